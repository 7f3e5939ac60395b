package driven

import (
	"context"

	"github.com/custodia-labs/mlsq/internal/core/domain"
)

// ProfileStore persists saved connection profiles.
// Profiles never contain secrets; see SecretStore.
type ProfileStore interface {
	// Save stores a profile. Creates if new, updates if exists.
	Save(ctx context.Context, profile domain.Profile) error

	// Get retrieves a profile by ID.
	Get(ctx context.Context, id string) (*domain.Profile, error)

	// GetByName retrieves a profile by name (case-insensitive).
	GetByName(ctx context.Context, name string) (*domain.Profile, error)

	// List returns all profiles ordered by name.
	List(ctx context.Context) ([]domain.Profile, error)

	// Delete removes a profile by ID.
	Delete(ctx context.Context, id string) error
}
