package importapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// APIError is returned for transport failures (non-2xx) and for
// success:false payloads, which the wizard treats the same way.
type APIError struct {
	Op         string
	StatusCode int
	Message    string
	// Business is true when the server answered 2xx with success:false
	Business bool
	// Body holds the raw response when no message could be extracted
	Body string
}

func (e *APIError) Error() string {
	if e.Business {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}
	msg := e.Message
	if msg == "" {
		msg = e.Body
	}
	return fmt.Sprintf("%s: status %d: %s", e.Op, e.StatusCode, msg)
}

// MessageOf extracts a user-facing message from err, or fallback when none
func MessageOf(err error, fallback string) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return fallback
}

// extractMessage pulls "message" or "error" out of a JSON error body
func extractMessage(body []byte) string {
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		if payload.Message != "" {
			return payload.Message
		}
		if payload.Error != "" {
			return payload.Error
		}
	}
	return ""
}

func truncateBody(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > 200 {
		return s[:200] + "..."
	}
	return s
}
