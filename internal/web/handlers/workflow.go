package handlers

import (
	"bytes"
	"context"
	"errors"
	"log"
	"net/http"

	"github.com/kozaktomas/face-attendance/internal/capture"
	"github.com/kozaktomas/face-attendance/internal/constants"
	"github.com/kozaktomas/face-attendance/internal/workflow"
)

// Workflow is the controller surface exposed over HTTP.
type Workflow interface {
	State() workflow.State
	Image() *capture.Image
	ToggleCamera(ctx context.Context) workflow.State
	Capture() (workflow.State, bool)
	LoadImage(img *capture.Image) (workflow.State, bool)
	Submit(ctx context.Context) (workflow.State, bool)
	Retry(ctx context.Context) workflow.State
	Reset() workflow.State
	AddListener() chan workflow.State
	RemoveListener(ch chan workflow.State)
}

// WorkflowHandler handles the attendance workflow endpoints.
type WorkflowHandler struct {
	workflow Workflow
}

// NewWorkflowHandler creates a new workflow handler.
func NewWorkflowHandler(wf Workflow) *WorkflowHandler {
	return &WorkflowHandler{workflow: wf}
}

// respondState writes the snapshot, with 409 when the action was refused.
func respondState(w http.ResponseWriter, state workflow.State, applied bool) {
	status := http.StatusOK
	if !applied {
		status = http.StatusConflict
	}
	respondJSON(w, status, state)
}

// State returns the current snapshot.
func (h *WorkflowHandler) State(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.workflow.State())
}

// ToggleCamera starts or stops the camera.
func (h *WorkflowHandler) ToggleCamera(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.workflow.ToggleCamera(r.Context()))
}

// Capture takes a still from the live camera.
func (h *WorkflowHandler) Capture(w http.ResponseWriter, r *http.Request) {
	state, ok := h.workflow.Capture()
	respondState(w, state, ok)
}

// LoadImage accepts a photo upload in the multipart field "photo".
func (h *WorkflowHandler) LoadImage(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, constants.MaxUploadSize)
	if err := r.ParseMultipartForm(constants.MaxUploadSize); err != nil {
		respondError(w, http.StatusBadRequest, "failed to parse multipart form")
		return
	}

	file, header, err := r.FormFile("photo")
	if err != nil {
		respondError(w, http.StatusBadRequest, "photo is required")
		return
	}
	defer file.Close()

	img, err := capture.FromReader(file)
	if err != nil {
		log.Printf("Rejected upload %s: %v", sanitizeForLog(header.Filename), err)
		var encErr *capture.EncodingError
		if errors.As(err, &encErr) {
			respondError(w, http.StatusBadRequest, encErr.Error())
			return
		}
		respondError(w, http.StatusBadRequest, "invalid image")
		return
	}

	state, ok := h.workflow.LoadImage(img)
	respondState(w, state, ok)
}

// Submit uploads and authenticates the current image and returns the final state.
// The submission outlives a disconnected client.
func (h *WorkflowHandler) Submit(w http.ResponseWriter, r *http.Request) {
	state, ok := h.workflow.Submit(context.WithoutCancel(r.Context()))
	respondState(w, state, ok)
}

// Retry discards the image and restarts the camera.
func (h *WorkflowHandler) Retry(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.workflow.Retry(r.Context()))
}

// Reset stops the camera and returns to the initial state.
func (h *WorkflowHandler) Reset(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.workflow.Reset())
}

// Image serves the current preview as JPEG.
func (h *WorkflowHandler) Image(w http.ResponseWriter, r *http.Request) {
	img := h.workflow.Image()
	if img == nil {
		respondError(w, http.StatusNotFound, "no image")
		return
	}

	w.Header().Set("Content-Type", img.MIMEType())
	w.Header().Set("Cache-Control", "no-store")
	http.ServeContent(w, r, "preview"+constants.ImageExtension, h.workflow.State().UpdatedAt, bytes.NewReader(img.Bytes()))
}

// Events streams state snapshots as server-sent events.
func (h *WorkflowHandler) Events(w http.ResponseWriter, r *http.Request) {
	flusher, ok := setupSSEConnection(w)
	if !ok {
		return
	}

	eventCh := h.workflow.AddListener()
	defer h.workflow.RemoveListener(eventCh)

	sendSSEEvent(w, flusher, "state", h.workflow.State())

	for {
		select {
		case <-r.Context().Done():
			return
		case state, ok := <-eventCh:
			if !ok {
				return
			}
			sendSSEEvent(w, flusher, "state", state)
		}
	}
}
