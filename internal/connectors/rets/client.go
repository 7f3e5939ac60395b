package rets

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sync"

	"github.com/google/uuid"

	"github.com/custodia-labs/mlsq/internal/connectors/transport"
	"github.com/custodia-labs/mlsq/internal/core/domain"
	"github.com/custodia-labs/mlsq/internal/core/ports/driven"
)

// Ensure Client implements the interface.
var _ driven.ProtocolClient = (*Client)(nil)

const (
	// AcceptHeader is sent on every RETS request.
	AcceptHeader = "text/xml, application/xml, text/plain, */*"

	// MaxGetQueryLength is the encoded query length above which searches
	// are sent as a POST form.
	MaxGetQueryLength = 2000

	// SessionCookie is the cookie carrying the RETS session ID.
	SessionCookie = "RETS-Session-ID"
)

// Client speaks RETS to one server for one connection.
type Client struct {
	conn    domain.Connection
	http    *transport.Client
	parsers driven.ParserRegistry

	mu        sync.RWMutex
	loginURL  string
	caps      map[string]string
	sessionID string
}

// New creates a RETS client. The connection must carry Basic credentials.
func New(conn domain.Connection, parsers driven.ParserRegistry, base http.RoundTripper) (*Client, error) {
	if conn.Basic == nil {
		return nil, fmt.Errorf("%w: RETS requires username and password", domain.ErrInvalidConnection)
	}

	hc, err := transport.New(transport.Options{
		Timeout:   conn.EffectiveTimeout(),
		UserAgent: conn.EffectiveUserAgent(),
		Headers: http.Header{
			"RETS-Version": {conn.EffectiveVersion()},
			"Accept":       {AcceptHeader},
		},
		RateLimit: conn.RateLimit,
		Cookies:   true,
		Username:  conn.Basic.Username,
		Password:  conn.Basic.Password,
		Base:      base,
	})
	if err != nil {
		return nil, err
	}

	return &Client{
		conn:    conn,
		http:    hc,
		parsers: parsers,
		caps:    map[string]string{},
	}, nil
}

// Kind returns the protocol family.
func (c *Client) Kind() domain.ProtocolKind {
	return domain.ProtocolRETS
}

// capability returns the URL of a capability advertised at login.
func (c *Client) capability(name string) (string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if len(c.caps) == 0 {
		return "", fmt.Errorf("%w: not logged in", ErrNoSession)
	}
	u, ok := c.caps[name]
	if !ok || u == "" {
		return "", fmt.Errorf("%w: %s", ErrCapabilityMissing, name)
	}
	return u, nil
}

// call performs a request against a capability URL. A 401 on any
// non-login request means the session expired.
func (c *Client) call(ctx context.Context, capability string, params url.Values) (*transport.Response, error) {
	target, err := c.capability(capability)
	if err != nil {
		return nil, err
	}

	req := &transport.Request{URL: target, Header: c.requestHeaders(target)}
	if transport.EncodedLength(params) > MaxGetQueryLength {
		req.Method = http.MethodPost
		req.Form = params
	} else {
		req.Query = params
	}

	resp, err := c.http.Do(ctx, req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusUnauthorized {
		return nil, &domain.AuthError{URL: target, StatusCode: resp.StatusCode, Expired: true}
	}
	return resp, nil
}

// requestHeaders builds the per-request RETS headers.
func (c *Client) requestHeaders(target string) http.Header {
	h := http.Header{}
	requestID := uuid.NewString()
	h.Set("RETS-Request-ID", requestID)

	if c.conn.UserAgentPassword != "" {
		c.mu.RLock()
		sessionID := c.sessionID
		c.mu.RUnlock()
		if sessionID == "" {
			sessionID = c.http.Cookie(target, SessionCookie)
		}
		h.Set("RETS-UA-Authorization", UserAgentDigest(
			c.conn.EffectiveUserAgent(), c.conn.UserAgentPassword, requestID, sessionID, c.conn.EffectiveVersion(),
		))
	}
	return h
}

// Capabilities returns a copy of the capability map.
func (c *Client) Capabilities() map[string]string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]string, len(c.caps))
	for k, v := range c.caps {
		out[k] = v
	}
	return out
}
