package backend

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ServiceError is a non-2xx answer from the Query Service.
type ServiceError struct {
	Status int
	// Message is the service-provided reason, empty when the body carried none.
	Message string
}

func (e *ServiceError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("query service returned %d", e.Status)
	}
	return fmt.Sprintf("query service returned %d: %s", e.Status, e.Message)
}

// newServiceError extracts the reason from a JSON error body
// ({"detail": ...}, {"error": ...} or {"message": ...}) or falls back to the raw text.
func newServiceError(status int, body []byte) *ServiceError {
	text := strings.TrimSpace(string(body))
	var raw map[string]any
	if err := json.Unmarshal(body, &raw); err == nil {
		for _, key := range []string{"detail", "error", "message"} {
			if msg := reason(raw[key]); msg != "" {
				return &ServiceError{Status: status, Message: msg}
			}
		}
		return &ServiceError{Status: status}
	}
	return &ServiceError{Status: status, Message: text}
}

// reason flattens string details and FastAPI-style validation lists ([{"msg": ...}]).
func reason(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case []any:
		var parts []string
		for _, item := range t {
			if m, ok := item.(map[string]any); ok {
				if s := reason(m["msg"]); s != "" {
					parts = append(parts, s)
				}
			}
		}
		return strings.Join(parts, "; ")
	}
	return ""
}
