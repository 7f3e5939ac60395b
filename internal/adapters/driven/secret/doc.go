// Package secret provides SecretStore implementations.
//
//   - Keychain: the OS credential store via 99designs/keyring
//   - EnvOverlay: environment variables layered over another store
//
// In-memory secrets live in storage/memory.
package secret
