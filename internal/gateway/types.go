package gateway

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/kozaktomas/face-attendance/internal/constants"
)

// Key identifies one submission attempt: the storage object and the authentication lookup.
type Key string

// NewKey returns a fresh random (v4) key.
func NewKey() Key {
	return Key(uuid.NewString())
}

// ObjectName is the stored file name for the key.
func (k Key) ObjectName() string {
	return string(k) + constants.ImageExtension
}

// ResultKind discriminates the authentication outcome.
type ResultKind int

const (
	ResultError ResultKind = iota
	ResultMatched
	ResultNotFound
)

func (k ResultKind) String() string {
	switch k {
	case ResultMatched:
		return "matched"
	case ResultNotFound:
		return "not_found"
	default:
		return "error"
	}
}

// Result is the interpreted authentication response: Matched, NotFound, or Error.
type Result struct {
	Kind      ResultKind
	FirstName string
	LastName  string
	Err       error
}

// Matched builds a successful match.
func Matched(firstName, lastName string) Result {
	return Result{Kind: ResultMatched, FirstName: firstName, LastName: lastName}
}

// NotFound builds the "person not registered" outcome.
func NotFound() Result {
	return Result{Kind: ResultNotFound}
}

// Failure builds an error outcome.
func Failure(err error) Result {
	return Result{Kind: ResultError, Err: err}
}

// Detail describes an error outcome, empty otherwise.
func (r Result) Detail() string {
	if r.Kind != ResultError || r.Err == nil {
		return ""
	}
	return r.Err.Error()
}

// MarshalJSON implements json.Marshaler.
func (r Result) MarshalJSON() ([]byte, error) {
	data, err := json.Marshal(struct {
		Kind      string `json:"kind"`
		FirstName string `json:"first_name,omitempty"`
		LastName  string `json:"last_name,omitempty"`
		Detail    string `json:"detail,omitempty"`
	}{
		Kind:      r.Kind.String(),
		FirstName: r.FirstName,
		LastName:  r.LastName,
		Detail:    r.Detail(),
	})
	if err != nil {
		return nil, fmt.Errorf("marshal result: %w", err)
	}
	return data, nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (r *Result) UnmarshalJSON(data []byte) error {
	var raw struct {
		Kind      string `json:"kind"`
		FirstName string `json:"first_name"`
		LastName  string `json:"last_name"`
		Detail    string `json:"detail"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("unmarshal result: %w", err)
	}

	*r = Result{FirstName: raw.FirstName, LastName: raw.LastName}
	switch raw.Kind {
	case "matched":
		r.Kind = ResultMatched
	case "not_found":
		r.Kind = ResultNotFound
	default:
		r.Kind = ResultError
		if raw.Detail != "" {
			r.Err = errors.New(raw.Detail)
		}
	}
	return nil
}

// ErrUnexpectedResponse is returned when a success response lacks the expected fields.
var ErrUnexpectedResponse = errors.New("unexpected authentication response")

// UploadError reports a non-success status from the storage service.
type UploadError struct {
	Status int
	Body   string
}

func (e *UploadError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("upload failed with status %d: %s", e.Status, e.Body)
	}
	return fmt.Sprintf("upload failed with status %d", e.Status)
}

// AuthError reports a non-success status (other than 403) from the authentication service.
type AuthError struct {
	Status int
	Body   string
}

func (e *AuthError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("authentication failed with status %d: %s", e.Status, e.Body)
	}
	return fmt.Sprintf("authentication failed with status %d", e.Status)
}

// TransportError reports that a request never produced a response (connectivity, timeout).
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("could not send %s request: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// attendeeResponse is the authentication service body.
// Older deployments send {"Message":"Success"}, newer ones {"success":true}.
type attendeeResponse struct {
	Message   string `json:"Message"`
	Success   *bool  `json:"success"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

func (a *attendeeResponse) succeeded() bool {
	if a.Success != nil {
		return *a.Success
	}
	return a.Message == "Success"
}
