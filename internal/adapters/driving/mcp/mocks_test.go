package mcp

import (
	"context"
	"fmt"
	"sync"

	"github.com/custodia-labs/mlsq/internal/core/domain"
)

// mockAdapter is a mock implementation of driving.ProtocolAdapter.
type mockAdapter struct {
	mu       sync.Mutex
	sessions map[domain.SessionHandle]domain.SessionInfo

	graph   *domain.MetadataGraph
	results *domain.ResultSet
	lookups map[string]domain.LookupTable
	raw     *domain.RawMetadata
	err     error

	connected    []domain.Connection
	disconnected []domain.SessionHandle
	lastSpec     domain.QuerySpec
}

func newMockAdapter() *mockAdapter {
	return &mockAdapter{sessions: make(map[domain.SessionHandle]domain.SessionInfo)}
}

func (m *mockAdapter) Connect(_ context.Context, conn domain.Connection) (domain.SessionHandle, error) {
	if m.err != nil {
		return "", m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connected = append(m.connected, conn)
	handle := domain.SessionHandle(fmt.Sprintf("h-%d", len(m.connected)))
	m.sessions[handle] = domain.SessionInfo{
		Handle:       handle,
		Name:         conn.Name,
		Protocol:     conn.Protocol,
		BaseURL:      conn.BaseURL,
		LoginURL:     conn.BaseURL + "/login",
		Capabilities: map[string]string{domain.CapabilitySearch: conn.BaseURL + "/search"},
	}
	return handle, nil
}

func (m *mockAdapter) Disconnect(_ context.Context, handle domain.SessionHandle) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, handle)
	m.disconnected = append(m.disconnected, handle)
}

func (m *mockAdapter) ListResources(_ context.Context, _ domain.SessionHandle) (*domain.MetadataGraph, error) {
	return m.graph, m.err
}

func (m *mockAdapter) RunQuery(
	_ context.Context, _ domain.SessionHandle, spec domain.QuerySpec,
) (*domain.ResultSet, error) {
	m.lastSpec = spec
	return m.results, m.err
}

func (m *mockAdapter) GetLookups(
	_ context.Context, _ domain.SessionHandle, _, _ string,
) (map[string]domain.LookupTable, error) {
	return m.lookups, m.err
}

func (m *mockAdapter) ExportMetadata(_ context.Context, _ domain.SessionHandle) (*domain.RawMetadata, error) {
	return m.raw, m.err
}

func (m *mockAdapter) Session(handle domain.SessionHandle) (domain.SessionInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	info, ok := m.sessions[handle]
	if !ok {
		return domain.SessionInfo{}, fmt.Errorf("%w: %s", domain.ErrSessionNotFound, handle)
	}
	return info, nil
}

func (m *mockAdapter) Sessions() []domain.SessionInfo {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.SessionInfo, 0, len(m.sessions))
	for _, info := range m.sessions {
		out = append(out, info)
	}
	return out
}

// mockProfileService is a mock implementation of driving.ProfileService.
type mockProfileService struct {
	profiles []domain.Profile
	conn     domain.Connection
	err      error
}

func (m *mockProfileService) Add(
	_ context.Context, p domain.Profile, _ map[domain.SecretKind]string,
) (*domain.Profile, error) {
	return &p, m.err
}

func (m *mockProfileService) Get(_ context.Context, idOrName string) (*domain.Profile, error) {
	for i := range m.profiles {
		if m.profiles[i].ID == idOrName || m.profiles[i].Name == idOrName {
			return &m.profiles[i], nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *mockProfileService) List(_ context.Context) ([]domain.Profile, error) {
	return m.profiles, m.err
}

func (m *mockProfileService) Remove(_ context.Context, _ string) error {
	return m.err
}

func (m *mockProfileService) Resolve(_ context.Context, _ string) (domain.Connection, error) {
	return m.conn, m.err
}

func (m *mockProfileService) MissingSecrets(_ context.Context, _ string) ([]domain.SecretKind, error) {
	return nil, m.err
}
