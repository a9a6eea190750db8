package workflow

import (
	"fmt"
	"time"

	"github.com/kozaktomas/face-attendance/internal/gateway"
)

// Phase is the current stage of the capture-authenticate workflow.
type Phase int

// Phase constants define the workflow lifecycle.
const (
	PhaseIdle Phase = iota
	PhaseCameraActive
	PhaseImageReady
	PhaseSubmitting
	PhaseAuthenticated
	PhaseRejected
	PhaseFailed
)

var phaseNames = map[Phase]string{
	PhaseIdle:          "idle",
	PhaseCameraActive:  "camera_active",
	PhaseImageReady:    "image_ready",
	PhaseSubmitting:    "submitting",
	PhaseAuthenticated: "authenticated",
	PhaseRejected:      "rejected",
	PhaseFailed:        "failed",
}

func (p Phase) String() string {
	if name, ok := phaseNames[p]; ok {
		return name
	}
	return fmt.Sprintf("phase(%d)", int(p))
}

// MarshalText implements encoding.TextMarshaler.
func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *Phase) UnmarshalText(text []byte) error {
	for phase, name := range phaseNames {
		if name == string(text) {
			*p = phase
			return nil
		}
	}
	return fmt.Errorf("unknown phase %q", string(text))
}

// Terminal reports whether the phase ends a submission.
func (p Phase) Terminal() bool {
	return p == PhaseAuthenticated || p == PhaseRejected || p == PhaseFailed
}

// State is an immutable snapshot of the workflow.
type State struct {
	Phase         Phase           `json:"phase"`
	Message       string          `json:"message"`
	Authenticated bool            `json:"authenticated"`
	CameraActive  bool            `json:"camera_active"`
	HasImage      bool            `json:"has_image"`
	AspectRatio   float64         `json:"aspect_ratio,omitempty"`
	CanCapture    bool            `json:"can_capture"`
	CanSubmit     bool            `json:"can_submit"`
	Attempt       gateway.Key     `json:"attempt,omitempty"`
	Result        *gateway.Result `json:"result,omitempty"`
	Error         string          `json:"error,omitempty"`
	UpdatedAt     time.Time       `json:"updated_at"`
}
