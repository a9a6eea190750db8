package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var captureDir string

var rootCmd = &cobra.Command{
	Use:   "face-attendance",
	Short: "Check in to attendance by face",
	Long: `Face Attendance captures a photo from a local camera (or takes an uploaded one),
stores it behind the API gateway and asks the authentication service who is in it.
Run "serve" for the kiosk web page or "authenticate" for a one-shot check from the terminal.`,
	SilenceUsage: true,
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&captureDir, "capture", "", "Directory to save authentication responses for testing")
}

func initConfig() {
	// .env file is optional, don't fail if not found
	_ = godotenv.Load()
}
