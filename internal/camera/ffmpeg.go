package camera

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"io"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/constants"
)

var (
	jpegSOI = []byte{0xFF, 0xD8} // Start of Image
	jpegEOI = []byte{0xFF, 0xD9} // End of Image
)

// splitJPEGFrames is a bufio.SplitFunc that yields complete JPEG frames from an MJPEG stream.
func splitJPEGFrames(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	start := bytes.Index(data, jpegSOI)
	if start == -1 {
		if atEOF {
			return len(data), nil, nil
		}
		return 0, nil, nil
	}
	end := bytes.Index(data[start:], jpegEOI)
	if end == -1 {
		if atEOF {
			return len(data), nil, nil
		}
		return 0, nil, nil
	}
	return start + end + 2, data[start : start+end+2], nil
}

// FFmpegDevice captures frames from a local camera through an ffmpeg subprocess
// writing MJPEG to its stdout.
type FFmpegDevice struct {
	Binary string
	Format string // ffmpeg input format: v4l2, avfoundation, dshow
	Input  string // device path or name
	Width  int
	Height int
}

// NewFFmpegDevice creates a device from camera configuration.
func NewFFmpegDevice(cfg config.CameraConfig) *FFmpegDevice {
	return &FFmpegDevice{
		Binary: cfg.FFmpeg,
		Format: cfg.Format,
		Input:  cfg.Device,
		Width:  cfg.Width,
		Height: cfg.Height,
	}
}

// Name returns the device input.
func (d *FFmpegDevice) Name() string {
	return d.Input
}

// args builds the ffmpeg command line. Audio is disabled; only the video track is read.
func (d *FFmpegDevice) args() []string {
	args := []string{"-hide_banner", "-loglevel", "error"}
	if d.Format != "" {
		args = append(args, "-f", d.Format)
	}
	if d.Width > 0 && d.Height > 0 {
		args = append(args, "-video_size", fmt.Sprintf("%dx%d", d.Width, d.Height))
	}
	input := d.Input
	if d.Format == "avfoundation" && !strings.Contains(input, ":") {
		// avfoundation takes "video:audio"; "none" keeps the microphone closed
		input += ":none"
	}
	args = append(args, "-i", input, "-an", "-f", "image2pipe", "-vcodec", "mjpeg", "-q:v", "2", "-")
	return args
}

// Open starts ffmpeg and waits for the first complete frame.
func (d *FFmpegDevice) Open(ctx context.Context) (Stream, error) {
	binary := d.Binary
	if binary == "" {
		binary = "ffmpeg"
	}
	if _, err := exec.LookPath(binary); err != nil {
		return nil, &DeviceError{Device: d.Name(), Err: fmt.Errorf("could not find %s: %w", binary, err)}
	}

	cmd := exec.Command(binary, d.args()...) //nolint:gosec // binary and args come from operator config
	stderr := &bytes.Buffer{}
	cmd.Stderr = stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, &DeviceError{Device: d.Name(), Err: fmt.Errorf("could not create stdout pipe: %w", err)}
	}
	if err := cmd.Start(); err != nil {
		return nil, &DeviceError{Device: d.Name(), Err: fmt.Errorf("could not start %s: %w", binary, err)}
	}

	s := &ffmpegStream{
		cmd:        cmd,
		stdout:     stdout,
		stderr:     stderr,
		firstFrame: make(chan struct{}),
		done:       make(chan struct{}),
	}
	go s.readFrames()

	select {
	case <-s.firstFrame:
		return s, nil
	case <-s.done:
		s.Close()
		return nil, &DeviceError{Device: d.Name(), Err: s.exitError()}
	case <-ctx.Done():
		s.Close()
		return nil, &DeviceError{Device: d.Name(), Err: fmt.Errorf("waiting for first frame: %w", ctx.Err())}
	}
}

// ffmpegStream is one running capture process.
type ffmpegStream struct {
	cmd    *exec.Cmd
	stdout io.ReadCloser
	stderr *bytes.Buffer

	mu      sync.RWMutex
	latest  []byte
	readErr error
	closed  bool

	firstOnce  sync.Once
	firstFrame chan struct{}
	done       chan struct{}
	closeOnce  sync.Once
	closeErr   error
}

func (s *ffmpegStream) readFrames() {
	defer close(s.done)

	scanner := bufio.NewScanner(s.stdout)
	scanner.Buffer(make([]byte, 0, 1<<20), constants.FrameBufferSize)
	scanner.Split(splitJPEGFrames)

	for scanner.Scan() {
		frame := make([]byte, len(scanner.Bytes()))
		copy(frame, scanner.Bytes())

		s.mu.Lock()
		s.latest = frame
		s.mu.Unlock()

		s.firstOnce.Do(func() { close(s.firstFrame) })
	}

	s.mu.Lock()
	s.readErr = scanner.Err()
	s.mu.Unlock()
}

func (s *ffmpegStream) exitError() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	msg := strings.TrimSpace(s.stderr.String())
	switch {
	case s.readErr != nil:
		return fmt.Errorf("reading frames: %w", s.readErr)
	case msg != "":
		return errors.New(msg)
	default:
		return errors.New("capture process exited before the first frame")
	}
}

// Frame decodes the latest frame.
func (s *ffmpegStream) Frame() (image.Image, error) {
	s.mu.RLock()
	data := s.latest
	s.mu.RUnlock()

	if data == nil {
		return nil, ErrNotReady
	}
	img, err := jpeg.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode frame: %w", err)
	}
	return img, nil
}

// Ready reports whether a frame has arrived and the process is still running.
func (s *ffmpegStream) Ready() bool {
	select {
	case <-s.done:
		return false
	default:
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latest != nil && !s.closed
}

// Tracks returns 1 while the capture process holds the device.
func (s *ffmpegStream) Tracks() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return 0
	}
	return 1
}

// Close kills the capture process and waits for it, releasing the device.
func (s *ffmpegStream) Close() error {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()

		if s.cmd.Process != nil {
			_ = s.cmd.Process.Kill()
		}
		s.stdout.Close()
		<-s.done

		if err := s.cmd.Wait(); err != nil {
			var exitErr *exec.ExitError
			if !errors.As(err, &exitErr) {
				// Killed processes report an ExitError; anything else is worth surfacing.
				s.closeErr = fmt.Errorf("waiting for capture process: %w", err)
			}
		}
	})
	return s.closeErr
}

// ListDevices returns the local video capture devices (Linux V4L2 nodes).
func ListDevices() ([]string, error) {
	matches, err := filepath.Glob("/dev/video*")
	if err != nil {
		return nil, fmt.Errorf("could not list video devices: %w", err)
	}
	sort.Slice(matches, func(i, j int) bool {
		return deviceIndex(matches[i]) < deviceIndex(matches[j])
	})
	return matches, nil
}

func deviceIndex(path string) int {
	n, err := strconv.Atoi(strings.TrimPrefix(filepath.Base(path), "video"))
	if err != nil {
		return -1
	}
	return n
}
