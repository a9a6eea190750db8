// Package workflow drives the capture, upload and authenticate sequence.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/kozaktomas/face-attendance/internal/camera"
	"github.com/kozaktomas/face-attendance/internal/capture"
	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/gateway"
)

// Camera is the capture device session used by the controller.
type Camera interface {
	Start(ctx context.Context) (camera.FrameSource, error)
	Stop()
	Source() camera.FrameSource
}

// Uploader stores a captured image under a key.
type Uploader interface {
	Upload(ctx context.Context, img *capture.Image, key gateway.Key) error
}

// Authenticator looks up the person whose image was stored under a key.
type Authenticator interface {
	Authenticate(ctx context.Context, key gateway.Key) gateway.Result
}

// Gateway is both halves of a submission.
type Gateway interface {
	Uploader
	Authenticator
}

// Option configures a Controller.
type Option func(*Controller)

// WithKeyGenerator replaces the attempt key generator.
func WithKeyGenerator(fn func() gateway.Key) Option {
	return func(c *Controller) {
		c.newKey = fn
	}
}

// WithCapture replaces the frame grabber.
func WithCapture(fn func(camera.FrameSource) (*capture.Image, error)) Option {
	return func(c *Controller) {
		c.grab = fn
	}
}

// Controller is the single-user workflow state machine.
// Actions are serialized; the network part of a submission runs outside the action lock,
// so the camera can be toggled while a submission is in flight.
type Controller struct {
	camera   Camera
	gateway  Gateway
	messages config.Messages
	newKey   func() gateway.Key
	grab     func(camera.FrameSource) (*capture.Image, error)

	actionMu sync.Mutex

	mu           sync.RWMutex
	phase        Phase
	message      string
	cameraActive bool
	image        *capture.Image
	attempt      gateway.Key
	result       *gateway.Result
	lastErr      error
	closed       bool
	updatedAt    time.Time
	events       broadcaster
}

// New creates a controller in the Idle phase.
func New(cam Camera, gw Gateway, messages config.Messages, opts ...Option) *Controller {
	c := &Controller{
		camera:    cam,
		gateway:   gw,
		messages:  messages,
		newKey:    gateway.NewKey,
		grab:      capture.Capture,
		phase:     PhaseIdle,
		message:   messages.Initial,
		updatedAt: time.Now(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// State returns the current snapshot.
func (c *Controller) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snapshotLocked()
}

// Image returns the captured or imported image, nil when there is none.
func (c *Controller) Image() *capture.Image {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.image
}

// AddListener subscribes to state changes.
func (c *Controller) AddListener() chan State {
	return c.events.AddListener()
}

// RemoveListener unsubscribes a listener returned by AddListener.
func (c *Controller) RemoveListener(ch chan State) {
	c.events.RemoveListener(ch)
}

func (c *Controller) snapshotLocked() State {
	s := State{
		Phase:         c.phase,
		Message:       c.message,
		Authenticated: c.phase == PhaseAuthenticated,
		CameraActive:  c.cameraActive,
		HasImage:      c.image != nil,
		CanCapture:    !c.closed && c.phase == PhaseCameraActive,
		CanSubmit:     c.canSubmitLocked(),
		Attempt:       c.attempt,
		UpdatedAt:     c.updatedAt,
	}
	if c.image != nil {
		s.AspectRatio = c.image.AspectRatio()
	}
	if c.result != nil {
		r := *c.result
		s.Result = &r
	}
	if c.lastErr != nil {
		s.Error = c.lastErr.Error()
	}
	return s
}

func (c *Controller) canSubmitLocked() bool {
	if c.closed || c.image == nil {
		return false
	}
	return c.phase == PhaseImageReady || c.phase == PhaseFailed
}

// update applies fn under the state lock and publishes the new snapshot.
func (c *Controller) update(fn func()) State {
	c.mu.Lock()
	defer c.mu.Unlock()
	fn()
	c.updatedAt = time.Now()
	s := c.snapshotLocked()
	c.events.send(s)
	return s
}

// clearLocked drops the image, the result and the in-flight attempt.
func (c *Controller) clearLocked() {
	c.image = nil
	c.result = nil
	c.attempt = ""
	c.lastErr = nil
}

func (c *Controller) isClosed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.closed
}

// ToggleCamera starts the camera when it is off and stops it when it is on.
// A successful start discards any image, result and in-flight attempt.
func (c *Controller) ToggleCamera(ctx context.Context) State {
	c.actionMu.Lock()
	defer c.actionMu.Unlock()

	if c.isClosed() {
		return c.State()
	}

	if c.State().CameraActive {
		c.camera.Stop()
		return c.update(func() {
			c.cameraActive = false
			c.clearLocked()
			c.phase = PhaseIdle
			c.message = c.messages.Initial
		})
	}
	return c.startCameraLocked(ctx)
}

// startCameraLocked must be called with actionMu held.
// A failed start leaves the phase, image and result as they were.
func (c *Controller) startCameraLocked(ctx context.Context) State {
	if _, err := c.camera.Start(ctx); err != nil {
		log.Printf("workflow: could not start camera: %v", err)
		return c.update(func() {
			c.cameraActive = false
			if c.phase == PhaseCameraActive {
				c.phase = PhaseIdle
			}
			c.message = c.messages.CameraError
			c.lastErr = err
		})
	}

	return c.update(func() {
		c.clearLocked()
		c.cameraActive = true
		c.phase = PhaseCameraActive
		c.message = c.messages.CameraActive
	})
}

// Capture grabs the current frame and stops the camera.
// It returns false when the camera is not active or no frame could be encoded.
func (c *Controller) Capture() (State, bool) {
	c.actionMu.Lock()
	defer c.actionMu.Unlock()

	if st := c.State(); !st.CanCapture {
		return st, false
	}

	img, err := c.grab(c.camera.Source())
	if err != nil {
		log.Printf("workflow: could not capture frame: %v", err)
		return c.update(func() {
			c.message = c.messages.CaptureError
			c.lastErr = err
		}), false
	}

	c.camera.Stop()
	return c.update(func() {
		c.cameraActive = false
		c.clearLocked()
		c.image = img
		c.phase = PhaseImageReady
		c.message = c.messages.Captured
	}), true
}

// LoadImage uses an already encoded image instead of a camera capture.
// It is refused while a submission is in flight.
func (c *Controller) LoadImage(img *capture.Image) (State, bool) {
	c.actionMu.Lock()
	defer c.actionMu.Unlock()

	st := c.State()
	if img == nil || c.isClosed() || st.Phase == PhaseSubmitting {
		return st, false
	}

	c.camera.Stop()
	return c.update(func() {
		c.cameraActive = false
		c.clearLocked()
		c.image = img
		c.phase = PhaseImageReady
		c.message = c.messages.Imported
	}), true
}

// Submit uploads the image under a fresh key and authenticates it.
// It blocks until the attempt finishes and returns false without any effect
// when there is no image or the current phase does not allow a submission.
// A result arriving after the attempt was superseded is discarded and Submit
// returns false with the state that replaced it.
func (c *Controller) Submit(ctx context.Context) (State, bool) {
	c.actionMu.Lock()
	c.mu.RLock()
	allowed := c.canSubmitLocked()
	img := c.image
	c.mu.RUnlock()
	if !allowed {
		c.actionMu.Unlock()
		return c.State(), false
	}

	key := c.newKey()
	c.update(func() {
		c.attempt = key
		c.result = nil
		c.lastErr = nil
		c.phase = PhaseSubmitting
		c.message = c.messages.Uploading
	})
	c.actionMu.Unlock()

	result := c.run(ctx, img, key)

	c.actionMu.Lock()
	defer c.actionMu.Unlock()

	c.mu.RLock()
	current := !c.closed && c.attempt == key && c.phase == PhaseSubmitting
	c.mu.RUnlock()
	if !current {
		log.Printf("workflow: discarding result of superseded attempt %s", key)
		return c.State(), false
	}

	return c.update(func() {
		c.applyLocked(result)
	}), true
}

// run performs upload then authentication. Authentication is never attempted
// after a failed upload.
func (c *Controller) run(ctx context.Context, img *capture.Image, key gateway.Key) (result gateway.Result) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("workflow: submission %s panicked: %v", key, r)
			result = gateway.Failure(fmt.Errorf("submission panicked: %v", r))
		}
	}()

	if err := c.gateway.Upload(ctx, img, key); err != nil {
		log.Printf("workflow: upload of %s failed: %v", key, err)
		return gateway.Failure(err)
	}

	c.mu.Lock()
	if c.attempt == key && c.phase == PhaseSubmitting {
		c.message = c.messages.Authenticating
		c.updatedAt = time.Now()
		c.events.send(c.snapshotLocked())
	}
	c.mu.Unlock()

	return c.gateway.Authenticate(ctx, key)
}

func (c *Controller) applyLocked(result gateway.Result) {
	c.result = &result
	switch result.Kind {
	case gateway.ResultMatched:
		c.phase = PhaseAuthenticated
		c.message = c.messages.Greeting(result.FirstName, result.LastName)
	case gateway.ResultNotFound:
		c.phase = PhaseRejected
		c.message = c.messages.NotFound
	default:
		c.phase = PhaseFailed
		c.lastErr = result.Err
		if errors.Is(result.Err, gateway.ErrUnexpectedResponse) {
			c.message = c.messages.Unexpected
		} else {
			c.message = c.messages.Failed
		}
	}
}

// Retry discards the image and any result and restarts the camera.
func (c *Controller) Retry(ctx context.Context) State {
	c.actionMu.Lock()
	defer c.actionMu.Unlock()

	if c.isClosed() {
		return c.State()
	}
	return c.startCameraLocked(ctx)
}

// Reset stops the camera and returns to Idle.
func (c *Controller) Reset() State {
	c.actionMu.Lock()
	defer c.actionMu.Unlock()

	if c.isClosed() {
		return c.State()
	}

	c.camera.Stop()
	return c.update(func() {
		c.cameraActive = false
		c.clearLocked()
		c.phase = PhaseIdle
		c.message = c.messages.Initial
	})
}

// Close releases the camera and ends all listeners. Later actions are no-ops
// and an in-flight submission result is discarded.
func (c *Controller) Close() {
	c.actionMu.Lock()
	defer c.actionMu.Unlock()

	if c.isClosed() {
		return
	}

	c.camera.Stop()
	c.update(func() {
		c.cameraActive = false
		c.attempt = ""
		c.closed = true
		if c.phase == PhaseSubmitting || c.phase == PhaseCameraActive {
			c.phase = PhaseIdle
			c.message = c.messages.Initial
		}
	})
	c.events.close()
}
