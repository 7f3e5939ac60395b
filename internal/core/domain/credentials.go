package domain

import "strings"

// DefaultOAuthScope is the scope requested when a RESO connection names none.
const DefaultOAuthScope = "odata_api"

// BasicCredentials is a username/password pair sent with HTTP Basic
// (or Digest) authentication. Used by RETS.
type BasicCredentials struct {
	Username string `json:"username"`
	Password string `json:"-"`
}

// OAuthClientCredentials configures an OAuth2 resource-owner password grant
// (RFC 6749 section 4.3) against a RESO token endpoint.
type OAuthClientCredentials struct {
	// TokenURL is the OAuth2 token endpoint.
	TokenURL string `json:"token_url"`
	// ClientID is the registered OAuth client.
	ClientID string `json:"client_id"`
	// ClientSecret is the client's secret.
	ClientSecret string `json:"-"`
	// Username is the resource owner's login.
	Username string `json:"username"`
	// Password is the resource owner's password.
	Password string `json:"-"`
	// Scopes requested with the grant. Defaults to DefaultOAuthScope.
	Scopes []string `json:"scopes,omitempty"`
}

// EffectiveScopes returns the configured scopes or the default scope.
func (c *OAuthClientCredentials) EffectiveScopes() []string {
	if len(c.Scopes) == 0 {
		return []string{DefaultOAuthScope}
	}
	return c.Scopes
}

// BearerToken is a pre-issued access token used as-is.
type BearerToken struct {
	AccessToken string `json:"-"`
}

// AuthMethod describes which credential variant a connection carries.
type AuthMethod string

const (
	// AuthMethodBasic is HTTP Basic/Digest with a username and password.
	AuthMethodBasic AuthMethod = "basic"
	// AuthMethodOAuth is the OAuth2 password grant.
	AuthMethodOAuth AuthMethod = "oauth"
	// AuthMethodToken is a static bearer token.
	AuthMethodToken AuthMethod = "token"
	// AuthMethodNone means no credentials were supplied.
	AuthMethodNone AuthMethod = "none"
)

// ParseAuthMethod converts user input into an AuthMethod.
func ParseAuthMethod(s string) AuthMethod {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "basic", "digest":
		return AuthMethodBasic
	case "oauth", "oauth2", "password":
		return AuthMethodOAuth
	case "token", "bearer":
		return AuthMethodToken
	default:
		return AuthMethodNone
	}
}
