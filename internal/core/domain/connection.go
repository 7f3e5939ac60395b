package domain

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

const (
	// DefaultTimeout bounds every network call made on behalf of a connection.
	DefaultTimeout = 30 * time.Second

	// DefaultRETSVersion is sent in the RETS-Version header.
	DefaultRETSVersion = "RETS/1.7.2"

	// DefaultUserAgent identifies the client to listing servers.
	DefaultUserAgent = "mlsq/1.0"
)

// Connection describes how to reach and authenticate against one listing server.
// A Connection is copied into a session when it opens and is never mutated
// afterwards.
type Connection struct {
	// ID is a stable identifier (profile ID when loaded from a profile).
	ID string `json:"id"`
	// Name is the display name.
	Name string `json:"name"`
	// Protocol selects the protocol family.
	Protocol ProtocolKind `json:"protocol"`
	// BaseURL is the RETS server root (or login URL) or the RESO service root.
	BaseURL string `json:"base_url"`
	// Version is the RETS protocol version header value.
	Version string `json:"version,omitempty"`
	// UserAgent is sent as the User-Agent header.
	UserAgent string `json:"user_agent,omitempty"`
	// UserAgentPassword enables RETS-UA-Authorization when set.
	UserAgentPassword string `json:"-"`
	// Timeout is the per-request timeout. Zero means DefaultTimeout.
	Timeout time.Duration `json:"timeout,omitempty"`
	// RateLimit caps requests per second. Zero means unlimited.
	RateLimit float64 `json:"rate_limit,omitempty"`

	// Exactly one of Basic, OAuth or Token is set.
	Basic *BasicCredentials       `json:"basic,omitempty"`
	OAuth *OAuthClientCredentials `json:"oauth,omitempty"`
	Token *BearerToken            `json:"-"`
}

// AuthMethod reports which credential variant is set.
func (c *Connection) AuthMethod() AuthMethod {
	switch {
	case c.Basic != nil:
		return AuthMethodBasic
	case c.OAuth != nil:
		return AuthMethodOAuth
	case c.Token != nil:
		return AuthMethodToken
	default:
		return AuthMethodNone
	}
}

// EffectiveTimeout returns the configured timeout or DefaultTimeout.
func (c *Connection) EffectiveTimeout() time.Duration {
	if c.Timeout <= 0 {
		return DefaultTimeout
	}
	return c.Timeout
}

// EffectiveVersion returns the configured RETS version or DefaultRETSVersion.
// A bare number such as "1.8" is prefixed with "RETS/".
func (c *Connection) EffectiveVersion() string {
	v := strings.TrimSpace(c.Version)
	if v == "" {
		return DefaultRETSVersion
	}
	if !strings.HasPrefix(strings.ToUpper(v), "RETS/") {
		return "RETS/" + v
	}
	return v
}

// EffectiveUserAgent returns the configured user agent or DefaultUserAgent.
func (c *Connection) EffectiveUserAgent() string {
	if c.UserAgent == "" {
		return DefaultUserAgent
	}
	return c.UserAgent
}

// Validate checks the connection is complete enough to attempt a login.
func (c *Connection) Validate() error {
	if !c.Protocol.IsValid() {
		return fmt.Errorf("%w: unknown protocol %q", ErrUnsupportedProtocol, c.Protocol)
	}
	if strings.TrimSpace(c.BaseURL) == "" {
		return fmt.Errorf("%w: base URL is required", ErrInvalidConnection)
	}
	u, err := url.Parse(c.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%w: base URL %q must be an absolute http(s) URL", ErrInvalidConnection, c.BaseURL)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: unsupported URL scheme %q", ErrInvalidConnection, u.Scheme)
	}

	set := 0
	for _, present := range []bool{c.Basic != nil, c.OAuth != nil, c.Token != nil} {
		if present {
			set++
		}
	}
	if set != 1 {
		return fmt.Errorf("%w: exactly one credential type must be set", ErrInvalidConnection)
	}

	switch c.Protocol {
	case ProtocolRETS:
		if c.Basic == nil {
			return fmt.Errorf("%w: RETS requires username and password", ErrInvalidConnection)
		}
		if c.Basic.Username == "" {
			return fmt.Errorf("%w: username is required", ErrInvalidConnection)
		}
	case ProtocolRESO:
		if c.Basic != nil {
			return fmt.Errorf("%w: RESO requires an OAuth2 client or a bearer token", ErrInvalidConnection)
		}
		if c.OAuth != nil && (c.OAuth.TokenURL == "" || c.OAuth.ClientID == "") {
			return fmt.Errorf("%w: OAuth2 requires token URL and client ID", ErrInvalidConnection)
		}
		if c.Token != nil && c.Token.AccessToken == "" {
			return fmt.Errorf("%w: access token is empty", ErrInvalidConnection)
		}
	}
	return nil
}

// Redacted returns a copy with every secret cleared. Safe to log or persist.
func (c Connection) Redacted() Connection {
	c.UserAgentPassword = ""
	if c.Basic != nil {
		b := *c.Basic
		b.Password = ""
		c.Basic = &b
	}
	if c.OAuth != nil {
		o := *c.OAuth
		o.ClientSecret = ""
		o.Password = ""
		c.OAuth = &o
	}
	if c.Token != nil {
		c.Token = &BearerToken{}
	}
	return c
}

// Clone returns a deep copy of the connection.
func (c Connection) Clone() Connection {
	if c.Basic != nil {
		b := *c.Basic
		c.Basic = &b
	}
	if c.OAuth != nil {
		o := *c.OAuth
		o.Scopes = append([]string(nil), c.OAuth.Scopes...)
		c.OAuth = &o
	}
	if c.Token != nil {
		t := *c.Token
		c.Token = &t
	}
	return c
}
