package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/custodia-labs/mlsq/internal/core/domain"
	"github.com/custodia-labs/mlsq/internal/core/ports/driven"
)

// Ensure ProfileStore implements the interface.
var _ driven.ProfileStore = (*ProfileStore)(nil)

// ProfileStore is an in-memory implementation of driven.ProfileStore.
type ProfileStore struct {
	mu       sync.RWMutex
	profiles map[string]domain.Profile
}

// NewProfileStore creates a new in-memory profile store.
func NewProfileStore() *ProfileStore {
	return &ProfileStore{
		profiles: make(map[string]domain.Profile),
	}
}

// Save stores or updates a profile.
func (s *ProfileStore) Save(_ context.Context, profile domain.Profile) error {
	if profile.ID == "" {
		return domain.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	profile.Scopes = append([]string(nil), profile.Scopes...)
	s.profiles[profile.ID] = profile
	return nil
}

// Get retrieves a profile by ID.
func (s *ProfileStore) Get(_ context.Context, id string) (*domain.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	profile, ok := s.profiles[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &profile, nil
}

// GetByName retrieves a profile by name, ignoring case.
func (s *ProfileStore) GetByName(_ context.Context, name string) (*domain.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, profile := range s.profiles {
		if strings.EqualFold(profile.Name, name) {
			p := profile
			return &p, nil
		}
	}
	return nil, domain.ErrNotFound
}

// List returns all profiles ordered by name.
func (s *ProfileStore) List(_ context.Context) ([]domain.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]domain.Profile, 0, len(s.profiles))
	for _, profile := range s.profiles {
		result = append(result, profile)
	}
	sort.Slice(result, func(i, j int) bool {
		return strings.ToLower(result[i].Name) < strings.ToLower(result[j].Name)
	})
	return result, nil
}

// Delete removes a profile.
func (s *ProfileStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.profiles, id)
	return nil
}
