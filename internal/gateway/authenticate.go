package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"

	"github.com/kozaktomas/face-attendance/internal/constants"
)

// Authenticate looks up the person in the object stored under key.
// It never returns an error: transport and server failures become an Error result,
// and 403 is the NotFound business outcome.
func (c *Client) Authenticate(ctx context.Context, key Key) Result {
	endpoint := c.resolveURL(constants.AttendeeEndpoint)
	endpoint.RawQuery = url.Values{"objectKey": {key.ObjectName()}}.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return Failure(fmt.Errorf("could not create request: %w", err))
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req) //nolint:gosec // URL constructed from configured base URL via resolveURL
	if err != nil {
		return Failure(&TransportError{Op: "authenticate", Err: err})
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusForbidden {
		log.Printf("Person in %s not found in the system", key.ObjectName())
		return NotFound()
	}
	if !isSuccess(resp.StatusCode) {
		return Failure(&AuthError{Status: resp.StatusCode, Body: readErrorBody(resp.Body)})
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Failure(&TransportError{Op: "authenticate", Err: fmt.Errorf("could not read response body: %w", err)})
	}

	c.captureResponse(constants.AttendeeEndpoint, resp.StatusCode, body)

	return interpretAttendee(body)
}

// interpretAttendee maps a 2xx body to a result.
func interpretAttendee(body []byte) Result {
	var parsed attendeeResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return Failure(fmt.Errorf("%w: %v", ErrUnexpectedResponse, err))
	}

	if parsed.Message == "NotFound" {
		return NotFound()
	}
	if !parsed.succeeded() {
		return Failure(fmt.Errorf("%w: not a success", ErrUnexpectedResponse))
	}

	firstName := CleanName(parsed.FirstName)
	lastName := CleanName(parsed.LastName)
	if firstName == "" || lastName == "" {
		return Failure(fmt.Errorf("%w: missing firstName or lastName", ErrUnexpectedResponse))
	}
	return Matched(firstName, lastName)
}
