package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/face-attendance/internal/camera"
)

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List local video capture devices",
	RunE:  runDevices,
}

func init() {
	rootCmd.AddCommand(devicesCmd)

	devicesCmd.Flags().Bool("json", false, "Output as JSON")
}

func runDevices(cmd *cobra.Command, args []string) error {
	devices, err := camera.ListDevices()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if mustGetBool(cmd, "json") {
		if devices == nil {
			devices = []string{}
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(devices); err != nil {
			return fmt.Errorf("could not encode devices: %w", err)
		}
		return nil
	}

	if len(devices) == 0 {
		fmt.Fprintln(out, "No video devices found")
		return nil
	}
	for _, d := range devices {
		fmt.Fprintln(out, d)
	}
	return nil
}
