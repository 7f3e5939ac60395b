package file

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfigStore(t *testing.T) {
	dir := t.TempDir()

	store, err := NewConfigStore(dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "config.toml"), store.Path())
	assert.Empty(t, store.Keys())
}

func TestNewConfigStore_EnvDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested")
	t.Setenv(EnvConfigDir, dir)

	store, err := NewConfigStore("")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "config.toml"), store.Path())

	got, err := DefaultDir()
	require.NoError(t, err)
	assert.Equal(t, dir, got)
}

func TestConfigStore_ReadsNestedTables(t *testing.T) {
	dir := t.TempDir()
	content := `
[defaults]
timeout_seconds = 45
user_agent = "Acme/1.0"
rets_version = "1.8"
rate_limit = 2

[reso]
sample_size = 250
scopes = ["odata_api", "offline"]
verbose = true
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte(content), 0600))

	store, err := NewConfigStore(dir)
	require.NoError(t, err)

	assert.Equal(t, 45, store.GetInt("defaults.timeout_seconds"))
	assert.Equal(t, "Acme/1.0", store.GetString("defaults.user_agent"))
	assert.Equal(t, "1.8", store.GetString("defaults.rets_version"))
	assert.InDelta(t, 2.0, store.GetFloat("defaults.rate_limit"), 0.001)
	assert.Equal(t, 250, store.GetInt("reso.sample_size"))
	assert.Equal(t, []string{"odata_api", "offline"}, store.GetStringSlice("reso.scopes"))
	assert.True(t, store.GetBool("reso.verbose"))
}

func TestConfigStore_TypedGettersRejectWrongTypes(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, store.Set("s", "text"))

	assert.Zero(t, store.GetInt("s"))
	assert.Zero(t, store.GetFloat("s"))
	assert.False(t, store.GetBool("s"))
	assert.Nil(t, store.GetStringSlice("s"))
	assert.Empty(t, store.GetString("missing"))

	_, ok := store.Get("missing")
	assert.False(t, ok)
}

func TestConfigStore_PersistsAsTables(t *testing.T) {
	dir := t.TempDir()
	store, err := NewConfigStore(dir)
	require.NoError(t, err)

	require.NoError(t, store.Set("defaults.timeout_seconds", 60))
	require.NoError(t, store.Set("defaults.rate_limit", 1.5))
	require.NoError(t, store.Set("reso.sample_size", 500))

	raw, err := os.ReadFile(store.Path())
	require.NoError(t, err)
	assert.Contains(t, string(raw), "[defaults]")
	assert.Contains(t, string(raw), "[reso]")
	assert.NotContains(t, string(raw), "'defaults.timeout_seconds'")

	reopened, err := NewConfigStore(dir)
	require.NoError(t, err)
	assert.Equal(t, 60, reopened.GetInt("defaults.timeout_seconds"))
	assert.InDelta(t, 1.5, reopened.GetFloat("defaults.rate_limit"), 0.001)
	assert.Equal(t, 500, reopened.GetInt("reso.sample_size"))
	assert.Equal(t, []string{"defaults.rate_limit", "defaults.timeout_seconds", "reso.sample_size"}, reopened.Keys())
}

func TestConfigStore_FilePermissions(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, store.Set("defaults.user_agent", "x"))

	info, err := os.Stat(store.Path())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestConfigStore_EmptyFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), nil, 0600))

	store, err := NewConfigStore(dir)
	require.NoError(t, err)
	assert.Empty(t, store.Keys())
}

func TestConfigStore_CorruptFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte("not toml {{[["), 0600))

	store, err := NewConfigStore(dir)
	assert.Error(t, err)
	assert.Nil(t, store)
}

func TestConfigStore_MkdirFails(t *testing.T) {
	store, err := NewConfigStore("/dev/null/cannot/create")
	assert.Error(t, err)
	assert.Nil(t, store)
}

func TestConfigStore_WriteFailure(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, store.Set("a", "b"))

	require.NoError(t, os.Remove(store.Path()))
	require.NoError(t, os.Mkdir(store.Path(), 0700))

	assert.Error(t, store.Set("c", "d"))
}

func TestConfigStore_Concurrency(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			key := "k." + string(rune('a'+id))
			_ = store.Set(key, id)
			_ = store.GetInt(key)
			_ = store.Keys()
		}(i)
	}
	wg.Wait()
	assert.Len(t, store.Keys(), 10)
}

func TestNestMap(t *testing.T) {
	got := nestMap(map[string]any{
		"a.b":   1,
		"a.c.d": "x",
		"e":     true,
		"e.f":   "shadowed",
	})
	assert.Equal(t, map[string]any{
		"a": map[string]any{"b": 1, "c": map[string]any{"d": "x"}},
		"e": true,
	}, got)
	assert.Equal(t, map[string]any{"a.b": 1, "a.c.d": "x", "e": true}, flattenMap(got, ""))
}
