package vezor

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Sentinel kinds for classified failures. Every error returned by a
// Client is an *Error carrying one of these (or none, for uncategorized
// server errors), so callers can branch with errors.Is while still
// reading the status code and message off the *Error itself.
var (
	// ErrAuth marks 401 responses and calls made without a token.
	ErrAuth = errors.New("authentication failed")
	// ErrPermission marks 403 responses.
	ErrPermission = errors.New("permission denied")
	// ErrNotFound marks 404 responses.
	ErrNotFound = errors.New("not found")
	// ErrValidation marks 400 and 422 responses and locally rejected arguments.
	ErrValidation = errors.New("validation failed")
	// ErrTransport marks requests that never produced an HTTP response.
	ErrTransport = errors.New("transport failure")
)

// Error is the root error type for every failure returned by a Client.
// StatusCode is zero when the request never completed, or when the call
// was rejected locally before any network I/O.
type Error struct {
	StatusCode int
	Message    string

	kind  error
	cause error
}

func (e *Error) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s (HTTP %d)", e.Message, e.StatusCode)
	}
	return e.Message
}

// Is reports whether target is the sentinel kind this error was
// classified as.
func (e *Error) Is(target error) bool {
	return e.kind != nil && target == e.kind
}

// Unwrap returns the underlying transport error, if any.
func (e *Error) Unwrap() error {
	return e.cause
}

// classifyResponse maps an HTTP error status and response body onto the
// taxonomy. It is pure: no I/O, callable with any status >= 400.
func classifyResponse(status int, body []byte) *Error {
	e := &Error{StatusCode: status, Message: errorMessage(status, body)}
	switch status {
	case http.StatusUnauthorized:
		e.kind = ErrAuth
	case http.StatusForbidden:
		e.kind = ErrPermission
	case http.StatusNotFound:
		e.kind = ErrNotFound
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		e.kind = ErrValidation
	}
	return e
}

// errorMessage extracts a human-readable message from an error response.
// JSON bodies are checked for the conventional fields in order, then the
// raw body text is used, then the bare status.
func errorMessage(status int, body []byte) string {
	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err == nil {
		for _, field := range []string{"error", "message", "detail"} {
			if v, ok := payload[field].(string); ok && v != "" {
				return v
			}
		}
	}
	if text := strings.TrimSpace(string(body)); text != "" {
		return text
	}
	return fmt.Sprintf("HTTP %d", status)
}

// transportError wraps a failure that happened before an HTTP response
// arrived (dial, DNS, TLS, context cancellation).
func transportError(err error) *Error {
	return &Error{Message: err.Error(), kind: ErrTransport, cause: err}
}

func authRequiredError(op string) *Error {
	return &Error{Message: "authentication token required for " + op, kind: ErrAuth}
}

func validationError(msg string) *Error {
	return &Error{Message: msg, kind: ErrValidation}
}

func notFoundError(msg string) *Error {
	return &Error{Message: msg, kind: ErrNotFound}
}
