// Package capture turns a live frame or an imported photo into the JPEG still that gets submitted.
package capture

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"io"
	"os"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"

	"github.com/kozaktomas/face-attendance/internal/camera"
	"github.com/kozaktomas/face-attendance/internal/constants"
)

// Image is an encoded still photo. It is immutable once created.
type Image struct {
	data        []byte
	width       int
	height      int
	aspectRatio float64
}

// Bytes returns a copy of the encoded JPEG.
func (i *Image) Bytes() []byte {
	out := make([]byte, len(i.data))
	copy(out, i.data)
	return out
}

// Reader returns a reader over the encoded JPEG.
func (i *Image) Reader() io.Reader {
	return bytes.NewReader(i.data)
}

// Size returns the encoded size in bytes.
func (i *Image) Size() int {
	return len(i.data)
}

// MIMEType is always image/jpeg.
func (i *Image) MIMEType() string {
	return constants.ImageMIMEType
}

// Width returns the native width of the source frame.
func (i *Image) Width() int {
	return i.width
}

// Height returns the native height of the source frame.
func (i *Image) Height() int {
	return i.height
}

// AspectRatio returns width / height of the source frame.
func (i *Image) AspectRatio() float64 {
	return i.aspectRatio
}

// EncodingError reports that a still could not be produced from the source.
type EncodingError struct {
	Reason string
	Err    error
}

func (e *EncodingError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("could not encode image: %s: %v", e.Reason, e.Err)
	}
	return "could not encode image: " + e.Reason
}

func (e *EncodingError) Unwrap() error {
	return e.Err
}

// Capture renders the current frame of src into an off-screen surface of the same
// native size and encodes it as JPEG.
func Capture(src camera.FrameSource) (*Image, error) {
	if src == nil || !src.Ready() {
		return nil, &EncodingError{Reason: "frame source is not ready", Err: camera.ErrNotReady}
	}

	frame, err := src.Frame()
	if err != nil {
		return nil, &EncodingError{Reason: "could not read frame", Err: err}
	}
	return Encode(frame)
}

// Encode draws img onto an RGBA surface sized to its bounds and encodes it as JPEG.
func Encode(img image.Image) (*Image, error) {
	if img == nil {
		return nil, &EncodingError{Reason: "no frame"}
	}

	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()
	if width <= 0 || height <= 0 {
		return nil, &EncodingError{Reason: fmt.Sprintf("invalid frame dimensions %dx%d", width, height)}
	}

	surface := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(surface, surface.Bounds(), img, bounds.Min, draw.Src)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, surface, &jpeg.Options{Quality: constants.JPEGQuality}); err != nil {
		return nil, &EncodingError{Reason: "jpeg encoder failed", Err: err}
	}

	return &Image{
		data:        buf.Bytes(),
		width:       width,
		height:      height,
		aspectRatio: float64(width) / float64(height),
	}, nil
}

// FromReader decodes a jpeg, png, gif or bmp photo and re-encodes it as JPEG.
func FromReader(r io.Reader) (*Image, error) {
	data, err := io.ReadAll(io.LimitReader(r, constants.MaxImportSize+1))
	if err != nil {
		return nil, &EncodingError{Reason: "could not read photo", Err: err}
	}
	if len(data) > constants.MaxImportSize {
		return nil, &EncodingError{Reason: fmt.Sprintf("photo larger than %d bytes", constants.MaxImportSize)}
	}
	if len(data) == 0 {
		return nil, &EncodingError{Reason: "photo is empty"}
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		if errors.Is(err, image.ErrFormat) {
			return nil, &EncodingError{Reason: "unsupported photo format", Err: err}
		}
		return nil, &EncodingError{Reason: "failed to decode photo", Err: err}
	}
	return Encode(img)
}

// FromFile imports a photo from disk.
func FromFile(path string) (*Image, error) {
	f, err := os.Open(path) //nolint:gosec // user-provided photo path
	if err != nil {
		return nil, fmt.Errorf("could not open photo: %w", err)
	}
	defer f.Close()

	return FromReader(f)
}
