package transport

import (
	"errors"
	"sync"

	"golang.org/x/oauth2"
)

// ErrNoToken is returned by a SwappableTokenSource that holds no token yet.
var ErrNoToken = errors.New("transport: no access token")

// SwappableTokenSource is an oauth2.TokenSource whose underlying source can
// be replaced after login or cleared at logout. Tokens are never refreshed
// proactively; an expired token surfaces as a 401 from the server.
type SwappableTokenSource struct {
	mu  sync.RWMutex
	src oauth2.TokenSource
}

// NewSwappableTokenSource creates an empty token source.
func NewSwappableTokenSource() *SwappableTokenSource {
	return &SwappableTokenSource{}
}

// Set replaces the underlying source with one returning tok unchanged.
func (s *SwappableTokenSource) Set(tok *oauth2.Token) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if tok == nil {
		s.src = nil
		return
	}
	s.src = oauth2.StaticTokenSource(tok)
}

// Clear discards the current token.
func (s *SwappableTokenSource) Clear() {
	s.Set(nil)
}

// Token implements oauth2.TokenSource.
func (s *SwappableTokenSource) Token() (*oauth2.Token, error) {
	s.mu.RLock()
	src := s.src
	s.mu.RUnlock()
	if src == nil {
		return nil, ErrNoToken
	}
	return src.Token()
}

// Has reports whether a token is set.
func (s *SwappableTokenSource) Has() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.src != nil
}
