// Package gateway is the client for the storage and authentication endpoints behind the API gateway.
package gateway

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/constants"
)

// Client talks to the API gateway
type Client struct {
	Url        string
	parsedURL  *url.URL
	bucketPath string
	httpClient *http.Client
	captureDir string
}

// NewClient creates a new gateway client
func NewClient(cfg config.GatewayConfig) (*Client, error) {
	return NewClientWithCapture(cfg, "")
}

// NewClientWithCapture creates a new gateway client with optional response capturing.
// Pass an empty captureDir to disable capturing.
func NewClientWithCapture(cfg config.GatewayConfig, captureDir string) (*Client, error) {
	baseURL := strings.TrimRight(cfg.URL, "/")
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid API gateway URL: %w", err)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = constants.DefaultAPITimeout
	}

	c := &Client{
		Url:        baseURL,
		parsedURL:  parsed,
		bucketPath: strings.Trim(cfg.BucketPath, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
	if captureDir != "" {
		if err := c.SetCaptureDir(captureDir); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// resolveURL builds a full URL from the base URL and the given path segments.
func (c *Client) resolveURL(pathSegments ...string) *url.URL {
	segments := make([]string, 0, len(pathSegments))
	for _, s := range pathSegments {
		if s != "" {
			segments = append(segments, s)
		}
	}
	return c.parsedURL.JoinPath(segments...)
}

// readErrorBody reads the response body for error messages.
// Returns empty string if reading fails (we're already in an error path).
func readErrorBody(r io.Reader) string {
	body, err := io.ReadAll(io.LimitReader(r, 4096))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(body))
}

// isSuccess reports a 2xx status.
func isSuccess(status int) bool {
	return status >= http.StatusOK && status < http.StatusMultipleChoices
}

// SetCaptureDir enables API response capturing to the specified directory.
// Pass an empty string to disable capturing.
func (c *Client) SetCaptureDir(dir string) error {
	if dir == "" {
		c.captureDir = ""
		return nil
	}

	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("could not create capture directory: %w", err)
	}
	c.captureDir = dir
	return nil
}

// captureResponse saves the API response body to a file if capturing is enabled.
func (c *Client) captureResponse(endpoint string, status int, body []byte) {
	if c.captureDir == "" {
		return
	}

	filename := strings.ReplaceAll(endpoint, "/", "_")
	filename = strings.TrimPrefix(filename, "_")
	timestamp := time.Now().Format("20060102_150405")
	filename = fmt.Sprintf("%s_%d_%s.json", filename, status, timestamp)

	path := filepath.Join(c.captureDir, filename)

	var prettyJSON bytes.Buffer
	if err := json.Indent(&prettyJSON, body, "", "  "); err == nil {
		body = prettyJSON.Bytes()
	}

	if err := os.WriteFile(path, body, 0600); err != nil {
		fmt.Fprintf(os.Stderr, "warning: failed to capture response to %s: %v\n", path, err)
	}
}
