package driven

// SecretStore holds passwords, client secrets and tokens outside of any
// configuration file. Implementations may be the OS keychain, an in-memory
// map, or anything the embedding application supplies.
type SecretStore interface {
	// Set stores a secret under key, replacing any previous value.
	Set(key string, value string) error

	// Get retrieves the secret for key.
	// Returns domain.ErrNotFound when the key does not exist.
	Get(key string) (string, error)

	// Delete removes the secret for key. Deleting a missing key is not an error.
	Delete(key string) error
}
