package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"unicode/utf8"
)

var (
	errServerError  = errors.New("server error")
	errCircuitOpen  = errors.New("circuit breaker open")
	errNoHTTPClient = errors.New("http client not configured")
	errDecode       = errors.New("invalid response payload")
)

// RemoteError describes a failed call with enough context to show the user.
type RemoteError struct {
	Operation Operation
	Method    string
	Path      string
	// Status is zero when no response was received.
	Status int
	// Detail is the service's "detail" field verbatim when present.
	Detail string
	Err    error
}

func newRemoteError(op Operation, status int, detail string, err error) *RemoteError {
	ep := endpoints[op]
	return &RemoteError{
		Operation: op,
		Method:    ep.method,
		Path:      ep.path,
		Status:    status,
		Detail:    detail,
		Err:       err,
	}
}

func (e *RemoteError) Error() string {
	switch {
	case errors.Is(e.Err, errDecode):
		return fmt.Sprintf("%s %s returned an invalid payload: %s", e.Method, e.Path, e.Detail)
	case e.Status != 0:
		return fmt.Sprintf("%s %s failed with status %d: %s", e.Method, e.Path, e.Status, e.Detail)
	default:
		return fmt.Sprintf("network error calling %s %s: %s", e.Method, e.Path, e.Detail)
	}
}

func (e *RemoteError) Unwrap() error {
	return e.Err
}

// Timeout reports whether the call exceeded its deadline.
func (e *RemoteError) Timeout() bool {
	return errors.Is(e.Err, context.DeadlineExceeded)
}

// maxDetailLen caps a detail taken from a body that has no "detail" field.
const maxDetailLen = 256

// extractDetail returns the body's "detail" field verbatim. A non-string detail is
// returned as its JSON text. Without one, a short plain-text body is used
// (truncated to maxDetailLen); markup pages and empty bodies give the status text.
func extractDetail(body []byte, status int) string {
	var payload struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && len(payload.Detail) > 0 && string(payload.Detail) != "null" {
		var s string
		if err := json.Unmarshal(payload.Detail, &s); err == nil {
			return s
		}
		return string(payload.Detail)
	}

	text := strings.TrimSpace(string(body))
	if text == "" || strings.HasPrefix(text, "<") {
		return http.StatusText(status)
	}
	return truncate(text, maxDetailLen)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	cut := n
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
