package domain

import "time"

// SessionHandle identifies an open session. Callers pass it back to every
// adapter operation instead of relying on ambient state.
type SessionHandle string

// Capability names advertised by a login response.
const (
	CapabilityLogin       = "Login"
	CapabilityLogout      = "Logout"
	CapabilitySearch      = "Search"
	CapabilityGetMetadata = "GetMetadata"
	CapabilityGetObject   = "GetObject"
	CapabilityServiceRoot = "ServiceRoot"
	CapabilityMetadata    = "Metadata"
)

// SessionInfo is the read-only view of an open session.
type SessionInfo struct {
	Handle       SessionHandle     `json:"handle"`
	ConnectionID string            `json:"connection_id"`
	Name         string            `json:"name"`
	Protocol     ProtocolKind      `json:"protocol"`
	BaseURL      string            `json:"base_url"`
	LoginURL     string            `json:"login_url"`
	Capabilities map[string]string `json:"capabilities"`
	OpenedAt     time.Time         `json:"opened_at"`
	// ExpiresAt is zero when the server did not state a lifetime.
	ExpiresAt time.Time `json:"expires_at,omitempty"`
	// Relogins counts silent re-authentications performed after expiry.
	Relogins int `json:"relogins"`
}

// Expired reports whether the server-stated lifetime has passed.
func (s *SessionInfo) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && now.After(s.ExpiresAt)
}
