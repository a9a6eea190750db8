// Package constants provides shared constants used across the codebase.
// Centralizing these values ensures consistency and makes them easier to modify.
package constants

import "time"

// Image encoding constants
const (
	// JPEGQuality is the encoder quality for captured and imported photos (0.95 on a 0-1 scale)
	JPEGQuality = 95

	// ImageMIMEType is the only content type sent to the storage service
	ImageMIMEType = "image/jpeg"

	// ImageExtension is appended to the upload key to form the object name
	ImageExtension = ".jpeg"

	// MaxImportSize is the maximum accepted size of an imported photo file
	MaxImportSize = 20 << 20
)

// Camera constants
const (
	// DefaultCameraDevice is the capture device used when CAMERA_DEVICE is unset
	DefaultCameraDevice = "/dev/video0"

	// DefaultCameraFormat is the ffmpeg input format used when CAMERA_FORMAT is unset
	DefaultCameraFormat = "v4l2"

	// DefaultStartTimeout bounds how long we wait for the first frame from the device
	DefaultStartTimeout = 10 * time.Second

	// FrameBufferSize is the maximum size of a single MJPEG frame read from the device
	FrameBufferSize = 16 << 20
)

// Gateway constants
const (
	// DefaultAPITimeout is the per-request timeout for the storage and authentication calls
	DefaultAPITimeout = 30 * time.Second

	// AttendeeEndpoint is the authentication lookup path under the API base URL
	AttendeeEndpoint = "attendee"
)
