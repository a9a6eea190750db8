package config

import (
	_ "embed"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/kozaktomas/face-attendance/internal/constants"
)

//go:embed messages.yaml
var messagesYAML []byte

type Config struct {
	Gateway  GatewayConfig
	Camera   CameraConfig
	Web      WebConfig
	Messages Messages
}

type GatewayConfig struct {
	URL        string        `env:"API_GATEWAY_URL"` // base URL of the API gateway (e.g., https://abc.execute-api.eu-west-1.amazonaws.com/dev)
	BucketPath string        `env:"S3_BUCKET_PATH"`  // storage path segment the photos are written under
	Timeout    time.Duration `env:"API_TIMEOUT"`     // defaults to 30s
}

// ObjectURL returns the storage URL for an object name, or empty string if URL is not set.
func (c *GatewayConfig) ObjectURL(objectName string) string {
	if c.URL == "" {
		return ""
	}
	return strings.TrimRight(c.URL, "/") + "/" + strings.Trim(c.BucketPath, "/") + "/" + objectName
}

type CameraConfig struct {
	Device       string        `env:"CAMERA_DEVICE"`        // defaults to /dev/video0
	Format       string        `env:"CAMERA_FORMAT"`        // ffmpeg input format, defaults to v4l2
	FFmpeg       string        `env:"CAMERA_FFMPEG"`        // ffmpeg binary, defaults to ffmpeg
	Width        int           `env:"CAMERA_WIDTH"`         // 0 keeps the device default
	Height       int           `env:"CAMERA_HEIGHT"`        // 0 keeps the device default
	StartTimeout time.Duration `env:"CAMERA_START_TIMEOUT"` // defaults to 10s
}

type WebConfig struct {
	Host           string `env:"WEB_HOST" envDefault:"0.0.0.0"`
	Port           int    `env:"WEB_PORT" envDefault:"8080"`
	AllowedOrigins string `env:"WEB_ALLOWED_ORIGINS"`
}

// Messages is the catalog of status texts, one per workflow outcome.
type Messages struct {
	Initial        string `yaml:"initial"`
	CameraActive   string `yaml:"camera_active"`
	CameraError    string `yaml:"camera_error"`
	Captured       string `yaml:"captured"`
	CaptureError   string `yaml:"capture_error"`
	Imported       string `yaml:"imported"`
	Uploading      string `yaml:"uploading"`
	Authenticating string `yaml:"authenticating"`
	Authenticated  string `yaml:"authenticated"`
	NotFound       string `yaml:"not_found"`
	Unexpected     string `yaml:"unexpected"`
	Failed         string `yaml:"failed"`
}

// Greeting renders the authenticated message for a matched person.
func (m Messages) Greeting(firstName, lastName string) string {
	return fmt.Sprintf(m.Authenticated, firstName, lastName)
}

// merge fills empty fields of m from fallback.
func (m *Messages) merge(fallback Messages) {
	fill := func(dst *string, src string) {
		if strings.TrimSpace(*dst) == "" {
			*dst = src
		}
	}
	fill(&m.Initial, fallback.Initial)
	fill(&m.CameraActive, fallback.CameraActive)
	fill(&m.CameraError, fallback.CameraError)
	fill(&m.Captured, fallback.Captured)
	fill(&m.CaptureError, fallback.CaptureError)
	fill(&m.Imported, fallback.Imported)
	fill(&m.Uploading, fallback.Uploading)
	fill(&m.Authenticating, fallback.Authenticating)
	fill(&m.Authenticated, fallback.Authenticated)
	fill(&m.NotFound, fallback.NotFound)
	fill(&m.Unexpected, fallback.Unexpected)
	fill(&m.Failed, fallback.Failed)
}

// DefaultMessages returns the embedded message catalog.
func DefaultMessages() Messages {
	var m Messages
	if err := yaml.Unmarshal(messagesYAML, &m); err != nil {
		// This is an embedded file so this error should never happen in practice
		panic("failed to unmarshal embedded messages.yaml: " + err.Error())
	}
	return m
}

// LoadMessages reads a message catalog override from path. Missing keys fall back to the defaults.
func LoadMessages(path string) (Messages, error) {
	defaults := DefaultMessages()
	if path == "" {
		return defaults, nil
	}

	data, err := os.ReadFile(path) //nolint:gosec // operator-provided config path
	if err != nil {
		return Messages{}, fmt.Errorf("could not read messages file: %w", err)
	}

	var m Messages
	if err := yaml.Unmarshal(data, &m); err != nil {
		return Messages{}, fmt.Errorf("could not parse messages file: %w", err)
	}
	m.merge(defaults)
	if err := validateGreeting(m.Authenticated); err != nil {
		return Messages{}, err
	}
	return m, nil
}

// validateGreeting checks that the authenticated template takes exactly the two names.
func validateGreeting(tmpl string) error {
	verbs := strings.Count(tmpl, "%") - 2*strings.Count(tmpl, "%%")
	if strings.Count(tmpl, "%s") != 2 || verbs != 2 {
		return fmt.Errorf("authenticated message must contain exactly two %%s verbs for the first and last name, got %q", tmpl)
	}
	return nil
}

// applyDefaults fills zero values that have no envDefault tag.
func (c *Config) applyDefaults() {
	if c.Gateway.Timeout <= 0 {
		c.Gateway.Timeout = constants.DefaultAPITimeout
	}
	if c.Camera.Device == "" {
		c.Camera.Device = constants.DefaultCameraDevice
	}
	if c.Camera.Format == "" {
		c.Camera.Format = constants.DefaultCameraFormat
	}
	if c.Camera.FFmpeg == "" {
		c.Camera.FFmpeg = "ffmpeg"
	}
	if c.Camera.StartTimeout <= 0 {
		c.Camera.StartTimeout = constants.DefaultStartTimeout
	}
	if c.Camera.Width < 0 {
		c.Camera.Width = 0
	}
	if c.Camera.Height < 0 {
		c.Camera.Height = 0
	}
}

// Load reads the configuration from the environment.
// Values are not validated here; commands check what they need.
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg.Gateway); err != nil {
		return nil, fmt.Errorf("parse gateway env: %w", err)
	}
	if err := env.Parse(&cfg.Camera); err != nil {
		return nil, fmt.Errorf("parse camera env: %w", err)
	}
	if err := env.Parse(&cfg.Web); err != nil {
		return nil, fmt.Errorf("parse web env: %w", err)
	}
	cfg.applyDefaults()

	messages, err := LoadMessages(os.Getenv("MESSAGES_FILE"))
	if err != nil {
		return nil, err
	}
	cfg.Messages = messages

	return &cfg, nil
}
