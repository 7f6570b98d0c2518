package oneid

import (
	"fmt"
	"net/http"
)

// APIError is returned when the gateway responds with a non-success status.
type APIError struct {
	StatusCode int
	Message    string
	// Errors holds per-field messages for 422 responses.
	Errors map[string][]string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("oneid: HTTP %d: %s", e.StatusCode, e.Message)
}

// IsInvalidRequest reports a 422 from the gateway.
func (e *APIError) IsInvalidRequest() bool {
	return e.StatusCode == http.StatusUnprocessableEntity
}
