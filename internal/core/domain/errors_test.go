package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTypedErrors_MatchSentinels(t *testing.T) {
	cause := errors.New("connection reset")
	tests := []struct {
		name     string
		err      error
		sentinel error
	}{
		{"network", &NetworkError{Op: "GET", URL: "https://x", Err: cause}, ErrNetwork},
		{"auth", &AuthError{StatusCode: 401}, ErrAuth},
		{"expired is auth", &AuthError{Expired: true}, ErrAuth},
		{"expired", &AuthError{Expired: true}, ErrAuthExpired},
		{"endpoint", &EndpointNotFoundError{BaseURL: "https://x"}, ErrEndpointNotFound},
		{"metadata", &MetadataError{Type: "METADATA-SYSTEM", Err: cause}, ErrMetadata},
		{"parse", &ParseError{Err: cause}, ErrParse},
		{"validation", &ValidationError{Field: "resource"}, ErrValidation},
		{"query", &QueryError{Resource: "Property", Attempts: 2, Err: cause}, ErrQuery},
		{"wrapped", fmt.Errorf("outer: %w", &ValidationError{Field: "class"}), ErrValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.err, tt.sentinel)
		})
	}
}

func TestAuthError_NotExpiredDoesNotMatchExpired(t *testing.T) {
	err := &AuthError{StatusCode: 401}
	assert.False(t, IsAuthExpired(err))
	assert.True(t, IsAuthExpired(fmt.Errorf("search: %w", &AuthError{Expired: true})))
}

func TestQueryError_UnwrapsNetwork(t *testing.T) {
	err := &QueryError{Resource: "Property", Class: "RES", Attempts: 2, Err: &NetworkError{Op: "GET", URL: "u", Err: errors.New("eof")}}

	assert.True(t, IsNetwork(err))
	assert.Equal(t, "query: Property:RES failed after 2 attempt(s): network: GET u: eof", err.Error())
}

func TestErrorMessages(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{
			"auth with reply",
			&AuthError{URL: "https://x/login", StatusCode: 200, ReplyCode: 20036, ReplyText: "Miscellaneous error"},
			"auth: credentials rejected at https://x/login (HTTP 200) [20036 Miscellaneous error]",
		},
		{
			"auth expired",
			&AuthError{Expired: true, ReplyText: "session timed out"},
			"auth: session expired: session timed out",
		},
		{
			"endpoint attempts",
			&EndpointNotFoundError{BaseURL: "https://x", Attempts: []LoginAttempt{
				{URL: "https://x/login", StatusCode: 404, Outcome: "HTTP 404"},
				{URL: "https://x/rets/login", Outcome: "HTTP 404"},
			}},
			"rets: no login endpoint under https://x; tried https://x/login (HTTP 404), https://x/rets/login (HTTP 404)",
		},
		{
			"metadata with id",
			&MetadataError{Type: "METADATA-TABLE", ID: "Property:RES", Err: errors.New("timeout")},
			"metadata: METADATA-TABLE Property:RES: timeout",
		},
		{
			"parse reply",
			&ParseError{ReplyCode: 20203, ReplyText: "Misc search error"},
			"parse: server reply 20203: Misc search error",
		},
		{
			"parse content type",
			&ParseError{ContentType: "text/html", Err: errors.New("no parser")},
			"parse: text/html: no parser",
		},
		{
			"validation with value",
			&ValidationError{Field: "select", Value: "Foo", Reason: "not a field of Property:RES"},
			`validation: select "Foo": not a field of Property:RES`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}
