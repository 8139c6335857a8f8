package playground

import "fmt"

// APIError is returned when the server responds with a non-success status.
type APIError struct {
	StatusCode int
	Message    string
	Detail     string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("playground: HTTP %d: %s", e.StatusCode, e.Message)
}
