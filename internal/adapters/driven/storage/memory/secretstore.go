package memory

import (
	"sync"

	"github.com/custodia-labs/mlsq/internal/core/domain"
	"github.com/custodia-labs/mlsq/internal/core/ports/driven"
)

// Ensure SecretStore implements the interface.
var _ driven.SecretStore = (*SecretStore)(nil)

// SecretStore keeps secrets in process memory. Used by tests and when the
// OS keychain is disabled.
type SecretStore struct {
	mu      sync.RWMutex
	secrets map[string]string
}

// NewSecretStore creates an empty in-memory secret store.
func NewSecretStore() *SecretStore {
	return &SecretStore{
		secrets: make(map[string]string),
	}
}

// Set stores a secret.
func (s *SecretStore) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.secrets[key] = value
	return nil
}

// Get retrieves a secret.
func (s *SecretStore) Get(key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	value, ok := s.secrets[key]
	if !ok {
		return "", domain.ErrNotFound
	}
	return value, nil
}

// Delete removes a secret.
func (s *SecretStore) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.secrets, key)
	return nil
}

// Len returns the number of stored secrets.
func (s *SecretStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.secrets)
}
