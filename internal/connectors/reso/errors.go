package reso

import (
	"errors"
	"fmt"
)

// ErrNoSession indicates an operation before a successful login.
var ErrNoSession = errors.New("reso: no session")

// StatusError reports an unexpected HTTP status.
type StatusError struct {
	URL        string
	StatusCode int
	// Message is the OData error message when the body carried one.
	Message string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("reso: HTTP %d from %s: %s", e.StatusCode, e.URL, e.Message)
	}
	return fmt.Sprintf("reso: unexpected HTTP %d from %s", e.StatusCode, e.URL)
}
