package cmd

import (
	"errors"
	"fmt"

	"github.com/kozaktomas/face-attendance/internal/camera"
	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/gateway"
	"github.com/kozaktomas/face-attendance/internal/workflow"
)

// loadConfig loads the environment configuration and checks the gateway URL.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("could not load config: %w", err)
	}
	if cfg.Gateway.URL == "" {
		return nil, errors.New("API_GATEWAY_URL environment variable is required")
	}
	return cfg, nil
}

// newController wires the camera, the gateway client and the workflow.
func newController(cfg *config.Config) (*workflow.Controller, *camera.Manager, error) {
	client, err := gateway.NewClientWithCapture(cfg.Gateway, captureDir)
	if err != nil {
		return nil, nil, fmt.Errorf("could not create gateway client: %w", err)
	}

	cam := camera.NewManager(camera.NewFFmpegDevice(cfg.Camera), cfg.Camera.StartTimeout)
	return workflow.New(cam, client, cfg.Messages), cam, nil
}
