// Package camera owns the camera device stream: acquiring it, exposing the live
// frames, and releasing it on every exit path.
package camera

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"
	"time"

	"github.com/kozaktomas/face-attendance/internal/constants"
)

// FrameSource is a live source of video frames.
type FrameSource interface {
	// Frame returns the most recent decoded frame.
	Frame() (image.Image, error)
	// Ready reports whether the source has delivered frame metadata yet.
	Ready() bool
}

// Stream is an acquired device stream. Close releases every track and is safe to call twice.
type Stream interface {
	FrameSource
	Tracks() int
	Close() error
}

// Device opens video-only streams. Open blocks until the first frame arrives or ctx is done.
type Device interface {
	Name() string
	Open(ctx context.Context) (Stream, error)
}

// ErrNotReady is returned by a frame source that has no frame yet.
var ErrNotReady = errors.New("no frame available yet")

// DeviceError reports that the camera could not be acquired (permission denied, no device, timeout).
type DeviceError struct {
	Device string
	Err    error
}

func (e *DeviceError) Error() string {
	return fmt.Sprintf("camera %s unavailable: %v", e.Device, e.Err)
}

func (e *DeviceError) Unwrap() error {
	return e.Err
}

// Manager holds at most one active session.
type Manager struct {
	device       Device
	startTimeout time.Duration

	mu     sync.Mutex
	stream Stream
}

// NewManager creates a session manager for device. A zero startTimeout uses the default.
func NewManager(device Device, startTimeout time.Duration) *Manager {
	if startTimeout <= 0 {
		startTimeout = constants.DefaultStartTimeout
	}
	return &Manager{device: device, startTimeout: startTimeout}
}

// Start acquires a new session, releasing any previous one first.
// On failure the manager is left without a session and a *DeviceError is returned.
func (m *Manager) Start(ctx context.Context) (FrameSource, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.stopLocked()

	openCtx, cancel := context.WithTimeout(ctx, m.startTimeout)
	defer cancel()

	stream, err := m.device.Open(openCtx)
	if err != nil {
		var devErr *DeviceError
		if errors.As(err, &devErr) {
			return nil, devErr
		}
		return nil, &DeviceError{Device: m.device.Name(), Err: err}
	}

	m.stream = stream
	return stream, nil
}

// Stop releases the current session. Calling it without a session is a no-op.
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopLocked()
}

func (m *Manager) stopLocked() {
	if m.stream == nil {
		return
	}
	if err := m.stream.Close(); err != nil {
		// The tracks are gone either way; the error only describes how the process exited.
		fmt.Printf("warning: camera %s closed with error: %v\n", m.device.Name(), err)
	}
	m.stream = nil
}

// Active reports whether a session is held.
func (m *Manager) Active() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stream != nil
}

// Source returns the live frame source, or nil when no session is active.
func (m *Manager) Source() FrameSource {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stream == nil {
		return nil
	}
	return m.stream
}

// Tracks returns the number of live device tracks held by the manager.
func (m *Manager) Tracks() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stream == nil {
		return 0
	}
	return m.stream.Tracks()
}

// DeviceName returns the configured device name.
func (m *Manager) DeviceName() string {
	return m.device.Name()
}
