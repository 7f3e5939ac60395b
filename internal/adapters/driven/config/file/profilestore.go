package file

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/pelletier/go-toml/v2"

	"github.com/custodia-labs/mlsq/internal/core/domain"
	"github.com/custodia-labs/mlsq/internal/core/ports/driven"
	"github.com/custodia-labs/mlsq/internal/logger"
)

// Ensure ProfileStore implements the interface.
var _ driven.ProfileStore = (*ProfileStore)(nil)

// ProfilesFile is the profile file name inside the config directory.
const ProfilesFile = "profiles.toml"

// reloadDelay coalesces bursts of file events into one reload.
const reloadDelay = 200 * time.Millisecond

// profileDocument is the on-disk layout: one [[profile]] table per profile.
type profileDocument struct {
	Profiles []domain.Profile `toml:"profile"`
}

// ProfileStore persists profiles to profiles.toml. It never holds secrets.
type ProfileStore struct {
	mu       sync.RWMutex
	filePath string
	profiles []domain.Profile
}

// NewProfileStore opens profiles.toml in configDir. An empty configDir
// means DefaultDir.
func NewProfileStore(configDir string) (*ProfileStore, error) {
	if configDir == "" {
		dir, err := DefaultDir()
		if err != nil {
			return nil, err
		}
		configDir = dir
	}
	if err := os.MkdirAll(configDir, 0700); err != nil {
		return nil, err
	}

	s := &ProfileStore{filePath: filepath.Join(configDir, ProfilesFile)}
	if err := s.Load(); err != nil {
		return nil, err
	}
	return s, nil
}

// Path returns the profile file path.
func (s *ProfileStore) Path() string {
	return s.filePath
}

// Load rereads the profile file. A missing file means no profiles.
func (s *ProfileStore) Load() error {
	data, err := os.ReadFile(s.filePath)
	if err != nil && !os.IsNotExist(err) {
		return err
	}

	var doc profileDocument
	if len(data) > 0 {
		if err := toml.Unmarshal(data, &doc); err != nil {
			return fmt.Errorf("parsing %s: %w", s.filePath, err)
		}
	}

	s.mu.Lock()
	s.profiles = doc.Profiles
	s.mu.Unlock()
	return nil
}

// Save stores or replaces a profile and rewrites the file.
func (s *ProfileStore) Save(_ context.Context, profile domain.Profile) error {
	if profile.ID == "" {
		return fmt.Errorf("%w: profile ID is required", domain.ErrInvalidInput)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	replaced := false
	for i := range s.profiles {
		if s.profiles[i].ID == profile.ID {
			s.profiles[i] = profile
			replaced = true
			break
		}
	}
	if !replaced {
		s.profiles = append(s.profiles, profile)
	}
	return s.save()
}

// Get retrieves a profile by ID.
func (s *ProfileStore) Get(_ context.Context, id string) (*domain.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := range s.profiles {
		if s.profiles[i].ID == id {
			p := s.profiles[i]
			return &p, nil
		}
	}
	return nil, domain.ErrNotFound
}

// GetByName retrieves a profile by name, ignoring case.
func (s *ProfileStore) GetByName(_ context.Context, name string) (*domain.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := range s.profiles {
		if strings.EqualFold(s.profiles[i].Name, name) {
			p := s.profiles[i]
			return &p, nil
		}
	}
	return nil, domain.ErrNotFound
}

// List returns all profiles ordered by name.
func (s *ProfileStore) List(_ context.Context) ([]domain.Profile, error) {
	s.mu.RLock()
	out := append([]domain.Profile(nil), s.profiles...)
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
	})
	return out, nil
}

// Delete removes a profile. Deleting a missing profile is not an error.
func (s *ProfileStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.profiles {
		if s.profiles[i].ID == id {
			s.profiles = append(s.profiles[:i], s.profiles[i+1:]...)
			return s.save()
		}
	}
	return nil
}

// save writes the profile file (caller must hold lock).
func (s *ProfileStore) save() error {
	data, err := toml.Marshal(profileDocument{Profiles: s.profiles})
	if err != nil {
		return err
	}
	return writeFileAtomic(s.filePath, data, 0600)
}

// Watch reloads the store whenever profiles.toml changes on disk until ctx
// is cancelled. onChange, when non-nil, runs after each successful reload.
// The directory is watched so editors that replace the file are seen.
func (s *ProfileStore) Watch(ctx context.Context, onChange func()) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := watcher.Add(filepath.Dir(s.filePath)); err != nil {
		watcher.Close()
		return err
	}

	go func() {
		defer watcher.Close()
		var timer *time.Timer
		defer func() {
			if timer != nil {
				timer.Stop()
			}
		}()

		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Base(event.Name) != ProfilesFile {
					continue
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
					!event.Has(fsnotify.Rename) && !event.Has(fsnotify.Remove) {
					continue
				}
				if timer != nil {
					timer.Stop()
				}
				timer = time.AfterFunc(reloadDelay, func() {
					if err := s.Load(); err != nil {
						logger.Warn("profiles: reload failed: %v", err)
						return
					}
					logger.Debug("profiles: reloaded %s", s.filePath)
					if onChange != nil {
						onChange()
					}
				})
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Warn("profiles: watch error: %v", err)
			}
		}
	}()
	return nil
}
