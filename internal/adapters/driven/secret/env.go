package secret

import (
	"os"
	"strings"

	"github.com/custodia-labs/mlsq/internal/core/ports/driven"
)

// Ensure EnvOverlay implements the interface.
var _ driven.SecretStore = (*EnvOverlay)(nil)

// EnvPrefix starts every secret override variable.
const EnvPrefix = "MLSQ_SECRET_"

// EnvOverlay reads secrets from MLSQ_SECRET_<KEY> variables before falling
// back to the wrapped store. Writes always go to the wrapped store.
type EnvOverlay struct {
	next   driven.SecretStore
	lookup func(string) (string, bool)
}

// NewEnvOverlay layers the process environment over next.
func NewEnvOverlay(next driven.SecretStore) *EnvOverlay {
	return &EnvOverlay{next: next, lookup: os.LookupEnv}
}

// EnvName returns the variable that overrides key. Every character that is
// not a letter or digit becomes an underscore.
func EnvName(key string) string {
	var b strings.Builder
	b.WriteString(EnvPrefix)
	for _, r := range strings.ToUpper(key) {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	return b.String()
}

// Set stores a secret in the wrapped store.
func (e *EnvOverlay) Set(key, value string) error {
	return e.next.Set(key, value)
}

// Get returns the environment override when set, else the stored secret.
func (e *EnvOverlay) Get(key string) (string, error) {
	if v, ok := e.lookup(EnvName(key)); ok && v != "" {
		return v, nil
	}
	return e.next.Get(key)
}

// Delete removes a secret from the wrapped store.
func (e *EnvOverlay) Delete(key string) error {
	return e.next.Delete(key)
}
