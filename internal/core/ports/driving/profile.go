package driving

import (
	"context"

	"github.com/custodia-labs/mlsq/internal/core/domain"
)

// ProfileService manages saved connection profiles and their secrets.
type ProfileService interface {
	// Add stores a new profile and its secrets. Secrets go to the secret
	// store only; the profile itself is persisted without them.
	Add(ctx context.Context, profile domain.Profile, secrets map[domain.SecretKind]string) (*domain.Profile, error)

	// Get retrieves a profile by ID or name.
	Get(ctx context.Context, idOrName string) (*domain.Profile, error)

	// List returns all profiles.
	List(ctx context.Context) ([]domain.Profile, error)

	// Remove deletes a profile and its secrets.
	Remove(ctx context.Context, idOrName string) error

	// Resolve builds a ready-to-connect Connection for a profile,
	// reading its secrets from the secret store.
	Resolve(ctx context.Context, idOrName string) (domain.Connection, error)

	// MissingSecrets lists the secrets a profile needs but the store lacks.
	MissingSecrets(ctx context.Context, idOrName string) ([]domain.SecretKind, error)
}
