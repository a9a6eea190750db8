package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/kozaktomas/face-attendance/internal/camera"
	"github.com/kozaktomas/face-attendance/internal/capture"
	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/gateway"
	"github.com/kozaktomas/face-attendance/internal/workflow"
)

// stubStream is a live camera that always serves the same frame.
type stubStream struct {
	mu     sync.Mutex
	closed bool
}

func (s *stubStream) Frame() (image.Image, error) {
	return image.NewRGBA(image.Rect(0, 0, 320, 240)), nil
}

func (s *stubStream) Ready() bool { return true }

func (s *stubStream) Tracks() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0
	}
	return 1
}

func (s *stubStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

type stubDevice struct{}

func (stubDevice) Name() string { return "stub0" }

func (stubDevice) Open(context.Context) (camera.Stream, error) {
	return &stubStream{}, nil
}

// stubGateway answers every submission with result.
type stubGateway struct {
	uploadErr error
	result    gateway.Result
}

func (g *stubGateway) Upload(context.Context, *capture.Image, gateway.Key) error {
	return g.uploadErr
}

func (g *stubGateway) Authenticate(context.Context, gateway.Key) gateway.Result {
	return g.result
}

// newTestWorkflow creates a controller backed by a stub camera and gateway.
func newTestWorkflow(t *testing.T, gw *stubGateway) *workflow.Controller {
	t.Helper()
	c := workflow.New(camera.NewManager(stubDevice{}, time.Second), gw, config.DefaultMessages())
	t.Cleanup(c.Close)
	return c
}

// multipartPhoto builds a multipart body with a PNG in field.
func multipartPhoto(t *testing.T, field string, width, height int) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile(field, "photo.png")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if err := png.Encode(part, image.NewRGBA(image.Rect(0, 0, width, height))); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return body, writer.FormDataContentType()
}

// decodeState parses a workflow state response.
func decodeState(t *testing.T, recorder *httptest.ResponseRecorder) workflow.State {
	t.Helper()
	var state workflow.State
	if err := json.Unmarshal(recorder.Body.Bytes(), &state); err != nil {
		t.Fatalf("failed to unmarshal state: %v (body %s)", err, recorder.Body.String())
	}
	return state
}

func assertStatus(t *testing.T, recorder *httptest.ResponseRecorder, want int) {
	t.Helper()
	if recorder.Code != want {
		t.Fatalf("expected status %d, got %d: %s", want, recorder.Code, recorder.Body.String())
	}
}

func post(handler http.HandlerFunc, path string) *httptest.ResponseRecorder {
	recorder := httptest.NewRecorder()
	handler(recorder, httptest.NewRequest(http.MethodPost, path, nil))
	return recorder
}
