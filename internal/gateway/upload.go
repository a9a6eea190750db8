package gateway

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/kozaktomas/face-attendance/internal/capture"
	"github.com/kozaktomas/face-attendance/internal/constants"
)

// Upload writes the image to {bucketPath}/{key}.jpeg.
// A non-2xx response returns *UploadError; a failed request returns *TransportError.
// No retry is attempted.
func (c *Client) Upload(ctx context.Context, img *capture.Image, key Key) error {
	if img == nil {
		return fmt.Errorf("no image to upload for key %s", key)
	}

	endpoint := c.resolveURL(c.bucketPath, key.ObjectName())

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, endpoint.String(), img.Reader())
	if err != nil {
		return fmt.Errorf("could not create request: %w", err)
	}
	req.Header.Set("Content-Type", constants.ImageMIMEType)

	resp, err := c.httpClient.Do(req) //nolint:gosec // URL constructed from configured base URL via resolveURL
	if err != nil {
		return &TransportError{Op: "upload", Err: err}
	}
	defer resp.Body.Close()

	if !isSuccess(resp.StatusCode) {
		return &UploadError{Status: resp.StatusCode, Body: readErrorBody(resp.Body)}
	}

	log.Printf("Uploaded %s (%d bytes)", key.ObjectName(), img.Size())
	return nil
}
