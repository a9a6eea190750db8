// Package constants provides shared constants used across the codebase.
package constants

// Event channel constants
const (
	// EventChannelBuffer is the buffer size for workflow state listeners
	EventChannelBuffer = 100
)

// File upload constants
const (
	// MaxUploadSize is the maximum multipart form size accepted by the photo upload endpoint
	MaxUploadSize = 32 << 20
)
