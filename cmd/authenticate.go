package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/kozaktomas/face-attendance/internal/capture"
	"github.com/kozaktomas/face-attendance/internal/workflow"
)

var authenticateCmd = &cobra.Command{
	Use:   "authenticate",
	Short: "Authenticate once from a photo file or the camera",
	Long: `Authenticate a single person and print the result.

Use --image to submit a photo from disk, or --camera to take one still from the
configured camera. Exits with a non-zero status when the person was not authenticated.`,
	RunE: runAuthenticate,
}

func init() {
	rootCmd.AddCommand(authenticateCmd)

	authenticateCmd.Flags().String("image", "", "Path to a photo to authenticate")
	authenticateCmd.Flags().Bool("camera", false, "Capture the photo from the camera")
	authenticateCmd.Flags().Bool("json", false, "Output the final state as JSON")
	authenticateCmd.MarkFlagsMutuallyExclusive("image", "camera")
	authenticateCmd.MarkFlagsOneRequired("image", "camera")
}

// authSteps are the progress stages: image ready, uploading, authenticating, done.
const authSteps = 4

func runAuthenticate(cmd *cobra.Command, args []string) error {
	imagePath := mustGetString(cmd, "image")
	useCamera := mustGetBool(cmd, "camera")
	jsonOutput := mustGetBool(cmd, "json")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	controller, _, err := newController(cfg)
	if err != nil {
		return err
	}
	defer controller.Close()

	var bar *progressbar.ProgressBar
	if !jsonOutput {
		bar = progressbar.NewOptions(authSteps,
			progressbar.OptionSetDescription("Authenticating"),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionShowCount(),
			progressbar.OptionSetPredictTime(false),
			progressbar.OptionClearOnFinish(),
		)
	}

	events := controller.AddListener()
	progressDone := make(chan struct{})
	go func() {
		defer close(progressDone)
		trackProgress(bar, events)
	}()

	ctx := cmd.Context()
	var ok bool
	if useCamera {
		if state := controller.ToggleCamera(ctx); !state.CameraActive {
			controller.RemoveListener(events)
			<-progressDone
			return fmt.Errorf("%s: %s", state.Message, state.Error)
		}
		_, ok = controller.Capture()
	} else {
		img, importErr := capture.FromFile(imagePath)
		if importErr != nil {
			controller.RemoveListener(events)
			<-progressDone
			return importErr
		}
		_, ok = controller.LoadImage(img)
	}

	var final workflow.State
	if ok {
		final, ok = controller.Submit(ctx)
	}
	if !ok {
		final = controller.State()
	}

	controller.RemoveListener(events)
	<-progressDone

	objectURL := ""
	if final.Attempt != "" {
		objectURL = cfg.Gateway.ObjectURL(final.Attempt.ObjectName())
	}
	if err := printState(cmd.OutOrStdout(), final, objectURL, jsonOutput); err != nil {
		return err
	}
	if !final.Authenticated {
		return errors.New("not authenticated")
	}
	return nil
}

// trackProgress advances bar from workflow events until the channel is closed.
func trackProgress(bar *progressbar.ProgressBar, events <-chan workflow.State) {
	step := 0
	advance := func(to int) {
		if bar != nil && to > step {
			step = to
			_ = bar.Set(step)
		}
	}

	for state := range events {
		switch {
		case state.Phase == workflow.PhaseImageReady:
			advance(1)
		case state.Phase == workflow.PhaseSubmitting:
			advance(step + 1)
		case state.Phase.Terminal():
			advance(authSteps)
		}
	}
}

func printState(w io.Writer, state workflow.State, objectURL string, jsonOutput bool) error {
	if jsonOutput {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(state); err != nil {
			return fmt.Errorf("could not encode state: %w", err)
		}
		return nil
	}

	fmt.Fprintln(w, state.Message)
	if state.Attempt != "" {
		fmt.Fprintf(w, "  Attempt: %s\n", state.Attempt)
	}
	if objectURL != "" {
		fmt.Fprintf(w, "  Stored:  %s\n", objectURL)
	}
	if state.Error != "" {
		fmt.Fprintf(w, "  Error:   %s\n", state.Error)
	}
	return nil
}
