package secret

import (
	"errors"
	"fmt"
	"runtime"
	"sync"

	"github.com/99designs/keyring"

	"github.com/custodia-labs/mlsq/internal/core/domain"
	"github.com/custodia-labs/mlsq/internal/core/ports/driven"
)

// Ensure Keychain implements the interface.
var _ driven.SecretStore = (*Keychain)(nil)

// ServiceName namespaces mlsq items in the OS credential store.
const ServiceName = "mlsq"

// Keychain stores secrets in the OS credential store.
type Keychain struct {
	mu   sync.RWMutex
	ring keyring.Keyring
}

// NewKeychain wraps an already opened keyring.
func NewKeychain(ring keyring.Keyring) *Keychain {
	return &Keychain{ring: ring}
}

// OpenKeychain opens the platform's native credential store.
func OpenKeychain() (*Keychain, error) {
	cfg := keyring.Config{
		ServiceName:              ServiceName,
		AllowedBackends:          backends(),
		KeychainTrustApplication: true,
		LibSecretCollectionName:  ServiceName,
		KWalletAppID:             ServiceName,
		KWalletFolder:            ServiceName,
		PassPrefix:               ServiceName,
		WinCredPrefix:            ServiceName,
	}
	ring, err := keyring.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("opening OS keychain: %w", err)
	}
	return NewKeychain(ring), nil
}

func backends() []keyring.BackendType {
	switch runtime.GOOS {
	case "darwin":
		return []keyring.BackendType{keyring.KeychainBackend, keyring.PassBackend}
	case "windows":
		return []keyring.BackendType{keyring.WinCredBackend}
	default:
		return []keyring.BackendType{keyring.SecretServiceBackend, keyring.KWalletBackend, keyring.PassBackend}
	}
}

// Set stores a secret.
func (k *Keychain) Set(key, value string) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.ring.Set(keyring.Item{
		Key:   key,
		Data:  []byte(value),
		Label: ServiceName + " " + key,
	})
}

// Get retrieves a secret. Missing or empty items are domain.ErrNotFound.
func (k *Keychain) Get(key string) (string, error) {
	k.mu.RLock()
	defer k.mu.RUnlock()
	item, err := k.ring.Get(key)
	if err != nil {
		if errors.Is(err, keyring.ErrKeyNotFound) {
			return "", domain.ErrNotFound
		}
		return "", err
	}
	if len(item.Data) == 0 {
		return "", domain.ErrNotFound
	}
	return string(item.Data), nil
}

// Delete removes a secret. A missing key is not an error.
func (k *Keychain) Delete(key string) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	if err := k.ring.Remove(key); err != nil && !errors.Is(err, keyring.ErrKeyNotFound) {
		return err
	}
	return nil
}
