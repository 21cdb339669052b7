package httputil

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// APIError is returned for any response outside 2xx. The response body is
// kept verbatim.
type APIError struct {
	StatusCode int
	Method     string
	URL        string
	Body       []byte
	Header     http.Header
}

func (e *APIError) Error() string {
	msg := e.Message()
	if msg == "" {
		return fmt.Sprintf("%s %s: status %d", e.Method, e.URL, e.StatusCode)
	}
	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.URL, e.StatusCode, msg)
}

// Message returns the human readable part of the body. PostgREST sends
// {"message": ...}, the auth service {"msg": ...} or {"error_description": ...};
// anything else is returned trimmed.
func (e *APIError) Message() string {
	var body struct {
		Message     string `json:"message"`
		Msg         string `json:"msg"`
		Description string `json:"error_description"`
		Error       string `json:"error"`
	}
	if err := json.Unmarshal(e.Body, &body); err == nil {
		for _, s := range []string{body.Message, body.Msg, body.Description, body.Error} {
			if s != "" {
				return s
			}
		}
	}
	return strings.TrimSpace(string(e.Body))
}

// IsStatus reports whether err is, or wraps, an *APIError with the given status.
func IsStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == status
}
