package mcp

import (
	"github.com/custodia-labs/mlsq/internal/core/ports/driving"
)

// Ports aggregates the driving ports required by the MCP server.
type Ports struct {
	// Adapter opens sessions and runs protocol operations.
	Adapter driving.ProtocolAdapter

	// Profiles resolves profile names into connections.
	Profiles driving.ProfileService
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p.Adapter == nil {
		return ErrMissingAdapter
	}
	if p.Profiles == nil {
		return ErrMissingProfileService
	}
	return nil
}
