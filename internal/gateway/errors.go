package gateway

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrTimeout marks requests that exceeded the client timeout, as opposed to
// requests the gateway rejected.
var ErrTimeout = errors.New("gateway: request timeout")

// timeoutMessage is shown to the user when a request times out.
const timeoutMessage = "Request timeout - operation took too long"

// Error is a failed gateway call. Message is human-readable and meant to be
// shown verbatim; Status is 0 when no response was received.
type Error struct {
	Op      string
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsTimeout reports whether err is a gateway timeout.
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout)
}

// StatusCode returns the HTTP status of a gateway error, or 0.
func StatusCode(err error) int {
	var gerr *Error
	if errors.As(err, &gerr) {
		return gerr.Status
	}
	return 0
}

// Message returns the user-facing message of err, or fallback when err
// carries none.
func Message(err error, fallback string) string {
	var gerr *Error
	if errors.As(err, &gerr) && gerr.Message != "" {
		return gerr.Message
	}
	return fallback
}

// errorMessage derives a message from an error response body: the values of
// an "errors" object, else "title", else "message", else the raw body text,
// else "HTTP <status>".
func errorMessage(status int, body []byte) string {
	msg := fmt.Sprintf("HTTP %d", status)
	var data any
	if err := json.Unmarshal(body, &data); err != nil {
		if text := strings.TrimSpace(string(body)); text != "" {
			return text
		}
		return msg
	}
	obj, ok := data.(map[string]any)
	if !ok {
		return msg
	}
	if errs, ok := obj["errors"]; ok && errs != nil {
		if msgs := flattenMessages(errs); len(msgs) > 0 {
			return strings.Join(msgs, "; ")
		}
		return msg
	}
	for _, key := range []string{"title", "message"} {
		if s, ok := obj[key].(string); ok && s != "" {
			return s
		}
	}
	return msg
}

// flattenMessages collects non-empty strings from an errors payload, which is
// usually a map of field name to message list. Map keys are visited sorted.
func flattenMessages(v any) []string {
	var out []string
	switch t := v.(type) {
	case string:
		if t != "" {
			out = append(out, t)
		}
	case []any:
		for _, item := range t {
			out = append(out, flattenMessages(item)...)
		}
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			out = append(out, flattenMessages(t[k])...)
		}
	}
	return out
}
