package domain

import (
	"fmt"
	"strings"
	"time"
)

// Profile is a saved connection without any secret material.
// Secrets live in a SecretStore under keys derived from the profile ID.
type Profile struct {
	// ID is the unique identifier (UUID).
	ID string `toml:"id" json:"id"`
	// Name is the human-readable name, unique across profiles.
	Name string `toml:"name" json:"name"`
	// Protocol is "rets" or "reso".
	Protocol ProtocolKind `toml:"protocol" json:"protocol"`
	// BaseURL is the login URL (RETS) or service root (RESO).
	BaseURL string `toml:"base_url" json:"base_url"`
	// Auth selects the credential variant.
	Auth AuthMethod `toml:"auth" json:"auth"`

	Username  string   `toml:"username,omitempty" json:"username,omitempty"`
	UserAgent string   `toml:"user_agent,omitempty" json:"user_agent,omitempty"`
	Version   string   `toml:"version,omitempty" json:"version,omitempty"`
	TokenURL  string   `toml:"token_url,omitempty" json:"token_url,omitempty"`
	ClientID  string   `toml:"client_id,omitempty" json:"client_id,omitempty"`
	Scopes    []string `toml:"scopes,omitempty" json:"scopes,omitempty"`

	// TimeoutSeconds overrides the default request timeout.
	TimeoutSeconds int `toml:"timeout_seconds,omitempty" json:"timeout_seconds,omitempty"`
	// RateLimit caps requests per second.
	RateLimit float64 `toml:"rate_limit,omitempty" json:"rate_limit,omitempty"`

	CreatedAt time.Time `toml:"created_at" json:"created_at"`
	UpdatedAt time.Time `toml:"updated_at" json:"updated_at"`
}

// SecretKind names one secret belonging to a profile.
type SecretKind string

const (
	SecretPassword          SecretKind = "password"
	SecretUserAgentPassword SecretKind = "ua_password"
	SecretClientSecret      SecretKind = "client_secret"
	SecretAccessToken       SecretKind = "access_token"
)

// SecretKey returns the SecretStore key for one of the profile's secrets.
func (p *Profile) SecretKey(kind SecretKind) string {
	return SecretKey(p.ID, kind)
}

// SecretKey returns the SecretStore key for a profile ID and secret kind.
func SecretKey(profileID string, kind SecretKind) string {
	return fmt.Sprintf("profile/%s/%s", profileID, kind)
}

// SecretKinds returns the secrets a profile with this auth method may hold.
func (p *Profile) SecretKinds() []SecretKind {
	switch p.Auth {
	case AuthMethodBasic:
		return []SecretKind{SecretPassword, SecretUserAgentPassword}
	case AuthMethodOAuth:
		return []SecretKind{SecretPassword, SecretClientSecret}
	case AuthMethodToken:
		return []SecretKind{SecretAccessToken}
	default:
		return nil
	}
}

// Validate checks the non-secret fields.
func (p *Profile) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("%w: profile name is required", ErrInvalidInput)
	}
	if !p.Protocol.IsValid() {
		return fmt.Errorf("%w: unknown protocol %q", ErrUnsupportedProtocol, p.Protocol)
	}
	if strings.TrimSpace(p.BaseURL) == "" {
		return fmt.Errorf("%w: base URL is required", ErrInvalidInput)
	}
	switch p.Auth {
	case AuthMethodBasic:
		if p.Username == "" {
			return fmt.Errorf("%w: username is required for basic auth", ErrInvalidInput)
		}
	case AuthMethodOAuth:
		if p.TokenURL == "" || p.ClientID == "" {
			return fmt.Errorf("%w: token URL and client ID are required for OAuth2", ErrInvalidInput)
		}
	case AuthMethodToken:
	default:
		return fmt.Errorf("%w: unknown auth method %q", ErrInvalidInput, p.Auth)
	}
	if p.Protocol == ProtocolRETS && p.Auth != AuthMethodBasic {
		return fmt.Errorf("%w: RETS profiles use basic auth", ErrInvalidInput)
	}
	if p.Protocol == ProtocolRESO && p.Auth == AuthMethodBasic {
		return fmt.Errorf("%w: RESO profiles use oauth or token auth", ErrInvalidInput)
	}
	return nil
}

// Connection builds a Connection from the profile and its resolved secrets.
func (p *Profile) Connection(secrets map[SecretKind]string) Connection {
	conn := Connection{
		ID:                p.ID,
		Name:              p.Name,
		Protocol:          p.Protocol,
		BaseURL:           p.BaseURL,
		Version:           p.Version,
		UserAgent:         p.UserAgent,
		UserAgentPassword: secrets[SecretUserAgentPassword],
		Timeout:           time.Duration(p.TimeoutSeconds) * time.Second,
		RateLimit:         p.RateLimit,
	}
	switch p.Auth {
	case AuthMethodBasic:
		conn.Basic = &BasicCredentials{Username: p.Username, Password: secrets[SecretPassword]}
	case AuthMethodOAuth:
		conn.OAuth = &OAuthClientCredentials{
			TokenURL:     p.TokenURL,
			ClientID:     p.ClientID,
			ClientSecret: secrets[SecretClientSecret],
			Username:     p.Username,
			Password:     secrets[SecretPassword],
			Scopes:       append([]string(nil), p.Scopes...),
		}
	case AuthMethodToken:
		conn.Token = &BearerToken{AccessToken: secrets[SecretAccessToken]}
	}
	return conn
}
