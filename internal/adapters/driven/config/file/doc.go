// Package file provides file-based implementations of driven port interfaces.
// These adapters persist data under the mlsq config directory (~/.mlsq, or
// $MLSQ_CONFIG_DIR).
//
// Adapters:
//   - ConfigStore: config.toml with connection defaults
//   - ProfileStore: profiles.toml with saved connections, no secrets
package file
