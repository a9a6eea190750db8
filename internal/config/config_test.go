package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestObjectURL_EmptyURL(t *testing.T) {
	cfg := GatewayConfig{
		URL: "",
	}

	result := cfg.ObjectURL("abc.jpeg")

	if result != "" {
		t.Errorf("expected empty string for empty URL, got '%s'", result)
	}
}

func TestObjectURL_JoinsSegments(t *testing.T) {
	tests := []struct {
		name     string
		url      string
		bucket   string
		expected string
	}{
		{"plain", "https://api.example.com/dev", "photos", "https://api.example.com/dev/photos/k.jpeg"},
		{"trailing slash", "https://api.example.com/dev/", "photos", "https://api.example.com/dev/photos/k.jpeg"},
		{"slashed bucket", "https://api.example.com", "/visitors/", "https://api.example.com/visitors/k.jpeg"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := GatewayConfig{URL: tc.url, BucketPath: tc.bucket}
			if got := cfg.ObjectURL("k.jpeg"); got != tc.expected {
				t.Errorf("expected '%s', got '%s'", tc.expected, got)
			}
		})
	}
}

func TestLoad_GatewayConfig(t *testing.T) {
	t.Setenv("API_GATEWAY_URL", "https://api.test.com/dev")
	t.Setenv("S3_BUCKET_PATH", "visitors")
	t.Setenv("API_TIMEOUT", "5s")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Gateway.URL != "https://api.test.com/dev" {
		t.Errorf("expected URL 'https://api.test.com/dev', got '%s'", cfg.Gateway.URL)
	}
	if cfg.Gateway.BucketPath != "visitors" {
		t.Errorf("expected BucketPath 'visitors', got '%s'", cfg.Gateway.BucketPath)
	}
	if cfg.Gateway.Timeout != 5*time.Second {
		t.Errorf("expected Timeout 5s, got %v", cfg.Gateway.Timeout)
	}
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Gateway.Timeout != 30*time.Second {
		t.Errorf("expected default timeout 30s, got %v", cfg.Gateway.Timeout)
	}
	if cfg.Camera.Device != "/dev/video0" {
		t.Errorf("expected default device '/dev/video0', got '%s'", cfg.Camera.Device)
	}
	if cfg.Camera.Format != "v4l2" {
		t.Errorf("expected default format 'v4l2', got '%s'", cfg.Camera.Format)
	}
	if cfg.Camera.FFmpeg != "ffmpeg" {
		t.Errorf("expected default ffmpeg 'ffmpeg', got '%s'", cfg.Camera.FFmpeg)
	}
	if cfg.Camera.StartTimeout != 10*time.Second {
		t.Errorf("expected default start timeout 10s, got %v", cfg.Camera.StartTimeout)
	}
	if cfg.Web.Port != 8080 {
		t.Errorf("expected default port 8080, got %d", cfg.Web.Port)
	}
	if cfg.Web.Host != "0.0.0.0" {
		t.Errorf("expected default host '0.0.0.0', got '%s'", cfg.Web.Host)
	}
}

func TestLoad_CameraConfig(t *testing.T) {
	t.Setenv("CAMERA_DEVICE", "0")
	t.Setenv("CAMERA_FORMAT", "avfoundation")
	t.Setenv("CAMERA_WIDTH", "1280")
	t.Setenv("CAMERA_HEIGHT", "720")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Camera.Device != "0" {
		t.Errorf("expected device '0', got '%s'", cfg.Camera.Device)
	}
	if cfg.Camera.Format != "avfoundation" {
		t.Errorf("expected format 'avfoundation', got '%s'", cfg.Camera.Format)
	}
	if cfg.Camera.Width != 1280 || cfg.Camera.Height != 720 {
		t.Errorf("expected 1280x720, got %dx%d", cfg.Camera.Width, cfg.Camera.Height)
	}
}

func TestLoad_InvalidTimeout(t *testing.T) {
	t.Setenv("API_TIMEOUT", "soon")

	if _, err := Load(); err == nil {
		t.Error("expected error for invalid API_TIMEOUT")
	}
}

func TestDefaultMessages_AllSet(t *testing.T) {
	m := DefaultMessages()

	fields := map[string]string{
		"initial":        m.Initial,
		"camera_active":  m.CameraActive,
		"camera_error":   m.CameraError,
		"captured":       m.Captured,
		"capture_error":  m.CaptureError,
		"imported":       m.Imported,
		"uploading":      m.Uploading,
		"authenticating": m.Authenticating,
		"authenticated":  m.Authenticated,
		"not_found":      m.NotFound,
		"unexpected":     m.Unexpected,
		"failed":         m.Failed,
	}
	for key, value := range fields {
		if strings.TrimSpace(value) == "" {
			t.Errorf("expected message %q to be set", key)
		}
	}
}

func TestGreeting_ContainsNames(t *testing.T) {
	m := DefaultMessages()

	result := m.Greeting("Ana", "Lee")

	if !strings.Contains(result, "Ana") || !strings.Contains(result, "Lee") {
		t.Errorf("expected greeting to contain both names, got '%s'", result)
	}
}

func TestLoadMessages_OverrideFallsBack(t *testing.T) {
	path := filepath.Join(t.TempDir(), "messages.yaml")
	if err := os.WriteFile(path, []byte("initial: \"Look at the camera\"\n"), 0600); err != nil {
		t.Fatalf("failed to write messages file: %v", err)
	}

	m, err := LoadMessages(path)
	if err != nil {
		t.Fatalf("LoadMessages failed: %v", err)
	}

	if m.Initial != "Look at the camera" {
		t.Errorf("expected overridden initial message, got '%s'", m.Initial)
	}
	if m.NotFound != DefaultMessages().NotFound {
		t.Errorf("expected not_found to fall back to default, got '%s'", m.NotFound)
	}
}

func TestLoadMessages_MissingFile(t *testing.T) {
	if _, err := LoadMessages(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing messages file")
	}
}

func TestLoadMessages_AuthenticatedTemplate(t *testing.T) {
	tests := []struct {
		name    string
		tmpl    string
		wantErr bool
	}{
		{"two names", "Welcome %s %s!", false},
		{"escaped percent", "100%% sure: %s %s", false},
		{"missing names", "Welcome!", true},
		{"one name", "Welcome %s!", true},
		{"three verbs", "Welcome %s %s %s!", true},
		{"wrong verb", "Welcome %s %d!", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "messages.yaml")
			if err := os.WriteFile(path, []byte("authenticated: \""+tt.tmpl+"\"\n"), 0600); err != nil {
				t.Fatalf("failed to write messages file: %v", err)
			}

			m, err := LoadMessages(path)
			if tt.wantErr {
				if err == nil {
					t.Errorf("expected error for template %q", tt.tmpl)
				}
				return
			}
			if err != nil {
				t.Fatalf("LoadMessages failed: %v", err)
			}
			greeting := m.Greeting("Ana", "Lee")
			if !strings.Contains(greeting, "Ana") || !strings.Contains(greeting, "Lee") {
				t.Errorf("expected greeting with names, got %q", greeting)
			}
		})
	}
}
