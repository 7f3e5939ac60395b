package domain

import (
	"fmt"
	"strings"
)

// ProtocolKind identifies the wire protocol family spoken by a listing server.
type ProtocolKind string

const (
	// ProtocolRETS is the legacy Real Estate Transaction Standard (1.0–1.8).
	ProtocolRETS ProtocolKind = "rets"

	// ProtocolRESO is the OData-based RESO Web API.
	ProtocolRESO ProtocolKind = "reso"
)

// AllProtocols returns the supported protocol kinds in display order.
func AllProtocols() []ProtocolKind {
	return []ProtocolKind{ProtocolRETS, ProtocolRESO}
}

// String returns the protocol identifier.
func (p ProtocolKind) String() string {
	return string(p)
}

// DisplayName returns a human-readable protocol name.
func (p ProtocolKind) DisplayName() string {
	switch p {
	case ProtocolRETS:
		return "RETS"
	case ProtocolRESO:
		return "RESO Web API"
	default:
		return string(p)
	}
}

// IsValid reports whether p is a supported protocol.
func (p ProtocolKind) IsValid() bool {
	return p == ProtocolRETS || p == ProtocolRESO
}

// ParseProtocolKind converts user input ("RETS", "reso", "RESO Web API")
// into a ProtocolKind.
func ParseProtocolKind(s string) (ProtocolKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "rets":
		return ProtocolRETS, nil
	case "reso", "reso web api", "webapi", "odata":
		return ProtocolRESO, nil
	default:
		return "", fmt.Errorf("%w: unknown protocol %q", ErrUnsupportedProtocol, s)
	}
}
