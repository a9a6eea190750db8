package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/face-attendance/internal/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the web server",
	Long: `Start the Face Attendance web server.
The web server provides the kiosk page and the workflow API: start the camera,
capture or upload a photo, and authenticate it.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().Int("port", 0, "Port to listen on (overrides WEB_PORT)")
	serveCmd.Flags().String("host", "", "Host to bind to (overrides WEB_HOST)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if port := mustGetInt(cmd, "port"); port > 0 {
		cfg.Web.Port = port
	}
	if host := mustGetString(cmd, "host"); host != "" {
		cfg.Web.Host = host
	}

	controller, cam, err := newController(cfg)
	if err != nil {
		return err
	}
	defer controller.Close()

	server := web.NewServer(cfg, controller)

	ctx := cmd.Context()
	go func() {
		<-ctx.Done()
		fmt.Println("\nShutting down...")

		// Ends event streams and releases the camera before connections drain.
		controller.Close()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			fmt.Printf("Error during shutdown: %v\n", err)
		}
	}()

	fmt.Printf("Starting Face Attendance on http://%s:%d\n", cfg.Web.Host, cfg.Web.Port)
	fmt.Printf("API gateway: %s, camera: %s\n", cfg.Gateway.URL, cam.DeviceName())
	fmt.Println("Press Ctrl+C to stop")

	if err := server.Start(); err != nil {
		return fmt.Errorf("starting server: %w", err)
	}
	return nil
}
