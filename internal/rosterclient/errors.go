// Package rosterclient talks to the Remote Roster Service: uploads,
// categorised previews, member mutations, logos, reprocessing and document
// generation.  Every call is a single round trip with no retries.
package rosterclient

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrEmptySessionID is returned before any request is made when an
// operation that needs a session is called without one.
var ErrEmptySessionID = errors.New("session id is required")

// ErrEmptyMemberID is returned when a member operation has no member id.
var ErrEmptyMemberID = errors.New("member id is required")

// ServiceError reports a failed remote call.  Detail carries the service's
// human readable explanation when it sent one; Message falls back to a
// generic text for the operation.
type ServiceError struct {
	Op     string // operation name, e.g. "add member"
	Status int    // HTTP status, 0 for transport failures
	Detail string // service supplied detail, may be empty
	Err    error  // underlying transport error, may be nil
}

// Error implements error.
func (e *ServiceError) Error() string {
	switch {
	case e.Detail != "":
		return fmt.Sprintf("%s: %s (status %d)", e.Op, e.Detail, e.Status)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s: status %d", e.Op, e.Status)
}

// Unwrap exposes the transport error.
func (e *ServiceError) Unwrap() error { return e.Err }

// Message is the user facing text: the service detail, or "failed to <op>".
func (e *ServiceError) Message() string {
	if e.Detail != "" {
		return e.Detail
	}
	return "failed to " + e.Op
}

// Unavailable reports whether the endpoint itself is missing or the
// service could not be reached, as opposed to the service rejecting the
// request.
func (e *ServiceError) Unavailable() bool {
	switch e.Status {
	case 0, 404, 405, 501, 502, 503, 504:
		return true
	}
	return false
}

// MessageOf returns the user facing text for any error returned by this
// package, falling back to fallback for errors of other origins.
func MessageOf(err error, fallback string) string {
	var se *ServiceError
	if errors.As(err, &se) {
		return se.Message()
	}
	if err != nil && err.Error() != "" {
		return err.Error()
	}
	return fallback
}

// parseDetail extracts the "detail" field of an error body.  The service
// sends either a string or a list of validation objects with "msg".
func parseDetail(body []byte) string {
	var env struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &env); err != nil || len(env.Detail) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(env.Detail, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var items []struct {
		Msg string `json:"msg"`
	}
	if err := json.Unmarshal(env.Detail, &items); err == nil {
		msgs := make([]string, 0, len(items))
		for _, it := range items {
			if it.Msg != "" {
				msgs = append(msgs, it.Msg)
			}
		}
		return strings.Join(msgs, "; ")
	}
	return ""
}
