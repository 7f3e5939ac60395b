package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Domain errors represent protocol-level failures.
// Each typed error below matches exactly one of these sentinels via errors.Is.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates an entity already exists.
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnsupportedProtocol indicates a protocol other than RETS or RESO.
	ErrUnsupportedProtocol = errors.New("unsupported protocol")

	// ErrInvalidConnection indicates an incomplete connection definition.
	ErrInvalidConnection = errors.New("invalid connection")

	// ErrSessionNotFound indicates an unknown or already closed session handle.
	ErrSessionNotFound = errors.New("session not found")

	// Transport and authentication errors.

	// ErrNetwork indicates a connectivity failure or timeout.
	ErrNetwork = errors.New("network error")

	// ErrAuth indicates rejected credentials.
	ErrAuth = errors.New("authentication failed")

	// ErrAuthExpired indicates a session or token the server no longer accepts.
	ErrAuthExpired = errors.New("authentication expired")

	// ErrEndpointNotFound indicates no RETS login path variant answered.
	ErrEndpointNotFound = errors.New("login endpoint not found")

	// Operation errors.

	// ErrMetadata indicates metadata could not be fetched or understood.
	ErrMetadata = errors.New("metadata unavailable")

	// ErrParse indicates a malformed or unexpected response body.
	ErrParse = errors.New("unparseable response")

	// ErrValidation indicates a query names something absent from metadata.
	ErrValidation = errors.New("validation failed")

	// ErrQuery indicates a query failed after its retry.
	ErrQuery = errors.New("query failed")
)

// NetworkError wraps a connectivity failure (DNS, refused, reset, timeout).
type NetworkError struct {
	Op  string
	URL string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network: %s %s: %v", e.Op, e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// Is matches ErrNetwork.
func (e *NetworkError) Is(target error) bool { return target == ErrNetwork }

// AuthError reports rejected or expired credentials.
type AuthError struct {
	URL        string
	StatusCode int
	ReplyCode  int
	ReplyText  string
	// Expired is true when a previously valid session was rejected.
	Expired bool
	Err     error
}

func (e *AuthError) Error() string {
	var b strings.Builder
	if e.Expired {
		b.WriteString("auth: session expired")
	} else {
		b.WriteString("auth: credentials rejected")
	}
	if e.URL != "" {
		fmt.Fprintf(&b, " at %s", e.URL)
	}
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, " (HTTP %d)", e.StatusCode)
	}
	if e.ReplyCode != 0 {
		fmt.Fprintf(&b, " [%d %s]", e.ReplyCode, e.ReplyText)
	} else if e.ReplyText != "" {
		fmt.Fprintf(&b, ": %s", e.ReplyText)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *AuthError) Unwrap() error { return e.Err }

// Is matches ErrAuth, and ErrAuthExpired when Expired is set.
func (e *AuthError) Is(target error) bool {
	return target == ErrAuth || (e.Expired && target == ErrAuthExpired)
}

// LoginAttempt records the outcome of one RETS login path variant.
type LoginAttempt struct {
	URL        string `json:"url"`
	StatusCode int    `json:"status_code,omitempty"`
	Outcome    string `json:"outcome"`
}

// EndpointNotFoundError lists every login variant that was tried.
type EndpointNotFoundError struct {
	BaseURL  string
	Attempts []LoginAttempt
}

func (e *EndpointNotFoundError) Error() string {
	urls := make([]string, len(e.Attempts))
	for i, a := range e.Attempts {
		urls[i] = fmt.Sprintf("%s (%s)", a.URL, a.Outcome)
	}
	return fmt.Sprintf("rets: no login endpoint under %s; tried %s", e.BaseURL, strings.Join(urls, ", "))
}

// Is matches ErrEndpointNotFound.
func (e *EndpointNotFoundError) Is(target error) bool { return target == ErrEndpointNotFound }

// MetadataError reports a metadata fetch failure.
type MetadataError struct {
	Type string
	ID   string
	Err  error
}

func (e *MetadataError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("metadata: %s %s: %v", e.Type, e.ID, e.Err)
	}
	return fmt.Sprintf("metadata: %s: %v", e.Type, e.Err)
}

func (e *MetadataError) Unwrap() error { return e.Err }

// Is matches ErrMetadata.
func (e *MetadataError) Is(target error) bool { return target == ErrMetadata }

// ParseError reports an unparseable body or a RETS error reply.
type ParseError struct {
	// ReplyCode and ReplyText carry the RETS envelope status when present.
	ReplyCode   int
	ReplyText   string
	ContentType string
	Err         error
}

func (e *ParseError) Error() string {
	if e.ReplyCode != 0 {
		return fmt.Sprintf("parse: server reply %d: %s", e.ReplyCode, e.ReplyText)
	}
	if e.ContentType != "" {
		return fmt.Sprintf("parse: %s: %v", e.ContentType, e.Err)
	}
	return fmt.Sprintf("parse: %v", e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Is matches ErrParse.
func (e *ParseError) Is(target error) bool { return target == ErrParse }

// ValidationError reports a query naming something absent from metadata.
// It is always raised before any network call.
type ValidationError struct {
	Field  string
	Value  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Value != "" {
		return fmt.Sprintf("validation: %s %q: %s", e.Field, e.Value, e.Reason)
	}
	return fmt.Sprintf("validation: %s: %s", e.Field, e.Reason)
}

// Is matches ErrValidation.
func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// QueryError reports a query that still failed after its retry.
type QueryError struct {
	Resource string
	Class    string
	Attempts int
	Err      error
}

func (e *QueryError) Error() string {
	target := e.Resource
	if e.Class != "" {
		target += ":" + e.Class
	}
	return fmt.Sprintf("query: %s failed after %d attempt(s): %v", target, e.Attempts, e.Err)
}

func (e *QueryError) Unwrap() error { return e.Err }

// Is matches ErrQuery.
func (e *QueryError) Is(target error) bool { return target == ErrQuery }

// IsNetwork reports whether err is a connectivity failure.
func IsNetwork(err error) bool {
	return errors.Is(err, ErrNetwork)
}

// IsAuthExpired reports whether err signals an expired session.
func IsAuthExpired(err error) bool {
	return errors.Is(err, ErrAuthExpired)
}
