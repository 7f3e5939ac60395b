package services

import (
	"context"
	"fmt"
	"maps"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/custodia-labs/mlsq/internal/core/domain"
	"github.com/custodia-labs/mlsq/internal/core/ports/driven"
	"github.com/custodia-labs/mlsq/internal/core/ports/driving"
	"github.com/custodia-labs/mlsq/internal/logger"
)

// Ensure AdapterService implements the interface.
var _ driving.ProtocolAdapter = (*AdapterService)(nil)

// session is one open connection. The client owns the transport state;
// the fields below mu are replaced on login and metadata fetch.
type session struct {
	conn   domain.Connection
	client driven.ProtocolClient
	login  singleflight.Group

	mu    sync.Mutex
	info  domain.SessionInfo
	graph *domain.MetadataGraph
	// generation increments on every successful login.
	generation int
}

func (s *session) snapshot() domain.SessionInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	info := s.info
	info.Capabilities = maps.Clone(s.info.Capabilities)
	return info
}

func (s *session) currentGeneration() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generation
}

func (s *session) cachedGraph() *domain.MetadataGraph {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.graph
}

func (s *session) setGraph(g *domain.MetadataGraph) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.graph = g
}

func (s *session) applyLogin(result *driven.LoginResult, relogin bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.info.LoginURL = result.LoginURL
	s.info.Capabilities = maps.Clone(result.Capabilities)
	s.info.ExpiresAt = result.ExpiresAt
	s.generation++
	if relogin {
		s.info.Relogins++
	}
}

// AdapterService implements ProtocolAdapter over RETS and RESO clients.
// Sessions are independent; the registry map is the only shared state.
type AdapterService struct {
	factory driven.ProtocolClientFactory

	mu       sync.RWMutex
	sessions map[domain.SessionHandle]*session
}

// NewAdapterService creates an adapter that builds clients with factory.
func NewAdapterService(factory driven.ProtocolClientFactory) *AdapterService {
	return &AdapterService{
		factory:  factory,
		sessions: make(map[domain.SessionHandle]*session),
	}
}

// Connect validates the connection, logs in and registers a session.
func (s *AdapterService) Connect(ctx context.Context, conn domain.Connection) (domain.SessionHandle, error) {
	conn = conn.Clone()
	if err := conn.Validate(); err != nil {
		return "", err
	}

	client, err := s.factory.Create(conn)
	if err != nil {
		return "", err
	}

	logger.Section("Connect")
	logger.Info("connecting to %s (%s) at %s", conn.Name, conn.Protocol.DisplayName(), conn.BaseURL)

	result, err := client.Login(ctx)
	if err != nil && domain.IsNetwork(err) && ctx.Err() == nil {
		logger.Warn("retrying login after network error: %v", err)
		result, err = client.Login(ctx)
	}
	if err != nil {
		return "", err
	}

	handle := domain.SessionHandle(uuid.NewString())
	sess := &session{
		conn:   conn,
		client: client,
		info: domain.SessionInfo{
			Handle:       handle,
			ConnectionID: conn.ID,
			Name:         conn.Name,
			Protocol:     conn.Protocol,
			BaseURL:      conn.BaseURL,
			OpenedAt:     time.Now(),
		},
	}
	sess.applyLogin(result, false)

	s.mu.Lock()
	s.sessions[handle] = sess
	s.mu.Unlock()

	logger.Info("session %s opened via %s", handle, result.LoginURL)
	return handle, nil
}

// Disconnect removes the session and logs out. Logout failures are warnings.
func (s *AdapterService) Disconnect(ctx context.Context, handle domain.SessionHandle) {
	s.mu.Lock()
	sess, ok := s.sessions[handle]
	delete(s.sessions, handle)
	s.mu.Unlock()

	if !ok {
		logger.Debug("disconnect: unknown session %s", handle)
		return
	}
	if err := sess.client.Logout(ctx); err != nil {
		logger.Warn("logout from %s failed: %v", sess.conn.BaseURL, err)
		return
	}
	logger.Info("session %s closed", handle)
}

// ListResources fetches metadata and replaces the cached graph.
func (s *AdapterService) ListResources(ctx context.Context, handle domain.SessionHandle) (*domain.MetadataGraph, error) {
	sess, err := s.session(handle)
	if err != nil {
		return nil, err
	}
	return s.fetchMetadata(ctx, sess)
}

// RunQuery validates the query and executes it once, with at most one
// re-login and one network retry.
func (s *AdapterService) RunQuery(
	ctx context.Context, handle domain.SessionHandle, spec domain.QuerySpec,
) (*domain.ResultSet, error) {
	sess, err := s.session(handle)
	if err != nil {
		return nil, err
	}
	graph, err := s.metadata(ctx, sess)
	if err != nil {
		return nil, err
	}
	if err := ValidateQuery(graph, spec); err != nil {
		return nil, err
	}

	var rs *domain.ResultSet
	attempts, err := s.retry(ctx, sess, func() error {
		var err error
		rs, err = sess.client.Search(ctx, graph, spec)
		return err
	})
	if err != nil {
		if domain.IsNetwork(err) {
			return nil, &domain.QueryError{Resource: spec.ResourceID, Class: spec.ClassID, Attempts: attempts, Err: err}
		}
		return nil, err
	}
	logger.Debug("query %s returned %d rows (count %d)", target(spec.ResourceID, spec.ClassID), rs.Len(), rs.Count)
	return rs, nil
}

// GetLookups resolves the lookup tables of a resource or class.
func (s *AdapterService) GetLookups(
	ctx context.Context, handle domain.SessionHandle, resourceID, classID string,
) (map[string]domain.LookupTable, error) {
	sess, err := s.session(handle)
	if err != nil {
		return nil, err
	}
	graph, err := s.metadata(ctx, sess)
	if err != nil {
		return nil, err
	}

	var tables map[string]domain.LookupTable
	_, err = s.retry(ctx, sess, func() error {
		var err error
		tables, err = sess.client.ResolveLookups(ctx, graph, resourceID, classID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return tables, nil
}

// ExportMetadata returns the cached raw metadata, fetching it once if needed.
func (s *AdapterService) ExportMetadata(ctx context.Context, handle domain.SessionHandle) (*domain.RawMetadata, error) {
	sess, err := s.session(handle)
	if err != nil {
		return nil, err
	}
	graph, err := s.metadata(ctx, sess)
	if err != nil {
		return nil, err
	}
	raw := graph.Raw
	return &raw, nil
}

// Session returns the read-only view of an open session.
func (s *AdapterService) Session(handle domain.SessionHandle) (domain.SessionInfo, error) {
	sess, err := s.session(handle)
	if err != nil {
		return domain.SessionInfo{}, err
	}
	return sess.snapshot(), nil
}

// Sessions lists open sessions, oldest first.
func (s *AdapterService) Sessions() []domain.SessionInfo {
	s.mu.RLock()
	out := make([]domain.SessionInfo, 0, len(s.sessions))
	for _, sess := range s.sessions {
		out = append(out, sess.snapshot())
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].OpenedAt.Before(out[j].OpenedAt)
	})
	return out
}

func (s *AdapterService) session(handle domain.SessionHandle) (*session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[handle]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrSessionNotFound, handle)
	}
	return sess, nil
}

// metadata returns the cached graph or fetches it.
func (s *AdapterService) metadata(ctx context.Context, sess *session) (*domain.MetadataGraph, error) {
	if g := sess.cachedGraph(); g != nil {
		return g, nil
	}
	return s.fetchMetadata(ctx, sess)
}

func (s *AdapterService) fetchMetadata(ctx context.Context, sess *session) (*domain.MetadataGraph, error) {
	var graph *domain.MetadataGraph
	_, err := s.retry(ctx, sess, func() error {
		var err error
		graph, err = sess.client.FetchMetadata(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	if graph.HasGaps() {
		logger.Warn("metadata for %s is incomplete", sess.conn.BaseURL)
	}
	sess.setGraph(graph)
	return graph, nil
}

// retry runs op, re-logging in once on an expired session and repeating
// once after a network failure. It returns the number of attempts made.
func (s *AdapterService) retry(ctx context.Context, sess *session, op func() error) (int, error) {
	var (
		attempts       int
		relogged, sent bool
	)
	for {
		gen := sess.currentGeneration()
		attempts++
		err := op()
		switch {
		case err == nil:
			return attempts, nil
		case domain.IsAuthExpired(err) && !relogged:
			relogged = true
			logger.Info("session expired, logging in again")
			if lerr := s.relogin(ctx, sess, gen); lerr != nil {
				return attempts, lerr
			}
		case domain.IsNetwork(err) && !sent && ctx.Err() == nil:
			sent = true
			logger.Warn("retrying after network error: %v", err)
		default:
			return attempts, err
		}
	}
}

// relogin logs in again unless another caller already did so since gen.
// Concurrent callers share one login.
func (s *AdapterService) relogin(ctx context.Context, sess *session, gen int) error {
	_, err, _ := sess.login.Do("login", func() (any, error) {
		if sess.currentGeneration() != gen {
			return nil, nil
		}
		result, err := sess.client.Login(ctx)
		if err != nil {
			return nil, err
		}
		sess.applyLogin(result, true)
		return nil, nil
	})
	return err
}
