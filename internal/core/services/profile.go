package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/mlsq/internal/core/domain"
	"github.com/custodia-labs/mlsq/internal/core/ports/driven"
	"github.com/custodia-labs/mlsq/internal/core/ports/driving"
	"github.com/custodia-labs/mlsq/internal/logger"
)

// Ensure ProfileService implements the interface.
var _ driving.ProfileService = (*ProfileService)(nil)

// Config keys holding connection defaults.
const (
	KeyDefaultTimeout   = "defaults.timeout_seconds"
	KeyDefaultUserAgent = "defaults.user_agent"
	KeyDefaultVersion   = "defaults.rets_version"
	KeyDefaultRateLimit = "defaults.rate_limit"
	KeySampleSize       = "reso.sample_size"
)

// ProfileService manages saved profiles. Profile fields go to the profile
// store and secrets go to the secret store; the two never mix.
type ProfileService struct {
	profiles driven.ProfileStore
	secrets  driven.SecretStore
	config   driven.ConfigStore
}

// NewProfileService creates a profile service. config may be nil, in which
// case no connection defaults are applied.
func NewProfileService(
	profiles driven.ProfileStore, secrets driven.SecretStore, config driven.ConfigStore,
) *ProfileService {
	return &ProfileService{
		profiles: profiles,
		secrets:  secrets,
		config:   config,
	}
}

// Add validates and stores a new profile and its secrets.
func (s *ProfileService) Add(
	ctx context.Context, profile domain.Profile, secrets map[domain.SecretKind]string,
) (*domain.Profile, error) {
	profile.Name = strings.TrimSpace(profile.Name)
	profile.BaseURL = strings.TrimSpace(profile.BaseURL)
	if err := profile.Validate(); err != nil {
		return nil, err
	}

	if _, err := s.profiles.GetByName(ctx, profile.Name); err == nil {
		return nil, fmt.Errorf("%w: profile %q", domain.ErrAlreadyExists, profile.Name)
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	now := time.Now()
	profile.ID = uuid.NewString()
	profile.CreatedAt = now
	profile.UpdatedAt = now

	var stored []string
	for _, kind := range profile.SecretKinds() {
		value := secrets[kind]
		if value == "" {
			continue
		}
		key := profile.SecretKey(kind)
		if err := s.secrets.Set(key, value); err != nil {
			s.deleteSecrets(stored)
			return nil, fmt.Errorf("storing %s: %w", kind, err)
		}
		stored = append(stored, key)
	}

	if err := s.profiles.Save(ctx, profile); err != nil {
		s.deleteSecrets(stored)
		return nil, err
	}
	logger.Debug("profile %s (%s) saved with %d secret(s)", profile.Name, profile.ID, len(stored))
	return &profile, nil
}

// Get retrieves a profile by ID, falling back to name.
func (s *ProfileService) Get(ctx context.Context, idOrName string) (*domain.Profile, error) {
	p, err := s.profiles.Get(ctx, idOrName)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	p, err = s.profiles.GetByName(ctx, idOrName)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("%w: profile %q", domain.ErrNotFound, idOrName)
		}
		return nil, err
	}
	return p, nil
}

// List returns all profiles.
func (s *ProfileService) List(ctx context.Context) ([]domain.Profile, error) {
	return s.profiles.List(ctx)
}

// Remove deletes a profile and every secret it may hold.
func (s *ProfileService) Remove(ctx context.Context, idOrName string) error {
	p, err := s.Get(ctx, idOrName)
	if err != nil {
		return err
	}
	if err := s.profiles.Delete(ctx, p.ID); err != nil {
		return err
	}
	keys := make([]string, 0, 4)
	for _, kind := range []domain.SecretKind{
		domain.SecretPassword, domain.SecretUserAgentPassword, domain.SecretClientSecret, domain.SecretAccessToken,
	} {
		keys = append(keys, p.SecretKey(kind))
	}
	s.deleteSecrets(keys)
	return nil
}

// Resolve joins a profile with its secrets and the configured defaults.
func (s *ProfileService) Resolve(ctx context.Context, idOrName string) (domain.Connection, error) {
	p, err := s.Get(ctx, idOrName)
	if err != nil {
		return domain.Connection{}, err
	}

	secrets := make(map[domain.SecretKind]string)
	var missing []string
	for _, kind := range p.SecretKinds() {
		value, err := s.secrets.Get(p.SecretKey(kind))
		switch {
		case err == nil:
			secrets[kind] = value
		case errors.Is(err, domain.ErrNotFound):
			if requiredSecret(kind) {
				missing = append(missing, string(kind))
			}
		default:
			return domain.Connection{}, fmt.Errorf("reading %s for %s: %w", kind, p.Name, err)
		}
	}
	if len(missing) > 0 {
		return domain.Connection{}, fmt.Errorf("%w: profile %q is missing %s",
			domain.ErrInvalidConnection, p.Name, strings.Join(missing, ", "))
	}

	conn := p.Connection(secrets)
	s.applyDefaults(&conn)
	return conn, nil
}

// MissingSecrets lists required secrets the store lacks.
func (s *ProfileService) MissingSecrets(ctx context.Context, idOrName string) ([]domain.SecretKind, error) {
	p, err := s.Get(ctx, idOrName)
	if err != nil {
		return nil, err
	}
	var missing []domain.SecretKind
	for _, kind := range p.SecretKinds() {
		if !requiredSecret(kind) {
			continue
		}
		if _, err := s.secrets.Get(p.SecretKey(kind)); err != nil {
			if !errors.Is(err, domain.ErrNotFound) {
				return nil, err
			}
			missing = append(missing, kind)
		}
	}
	return missing, nil
}

func (s *ProfileService) applyDefaults(conn *domain.Connection) {
	if s.config == nil {
		return
	}
	if conn.Timeout == 0 {
		if secs := s.config.GetInt(KeyDefaultTimeout); secs > 0 {
			conn.Timeout = time.Duration(secs) * time.Second
		}
	}
	if conn.UserAgent == "" {
		conn.UserAgent = s.config.GetString(KeyDefaultUserAgent)
	}
	if conn.Version == "" {
		conn.Version = s.config.GetString(KeyDefaultVersion)
	}
	if conn.RateLimit == 0 {
		conn.RateLimit = s.config.GetFloat(KeyDefaultRateLimit)
	}
}

func (s *ProfileService) deleteSecrets(keys []string) {
	for _, key := range keys {
		if err := s.secrets.Delete(key); err != nil {
			logger.Warn("could not delete secret %s: %v", key, err)
		}
	}
}

// requiredSecret reports whether a connection cannot log in without kind.
func requiredSecret(kind domain.SecretKind) bool {
	return kind != domain.SecretUserAgentPassword
}
