package secret

import (
	"testing"

	"github.com/99designs/keyring"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/mlsq/internal/core/domain"
)

func TestKeychain_RoundTrip(t *testing.T) {
	store := NewKeychain(keyring.NewArrayKeyring(nil))
	key := domain.SecretKey("p-1", domain.SecretPassword)

	_, err := store.Get(key)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, store.Set(key, "s3cret"))
	got, err := store.Get(key)
	require.NoError(t, err)
	assert.Equal(t, "s3cret", got)

	require.NoError(t, store.Delete(key))
	_, err = store.Get(key)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	assert.NoError(t, store.Delete(key))
}

func TestKeychain_EmptyItemIsNotFound(t *testing.T) {
	store := NewKeychain(keyring.NewArrayKeyring([]keyring.Item{{Key: "k", Data: nil}}))

	_, err := store.Get("k")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestBackends(t *testing.T) {
	assert.NotEmpty(t, backends())
}
