package service

import (
	"context"
	"sync"
	"time"

	"github.com/indexnow-studio/backend/internal/domain"
	"github.com/indexnow-studio/backend/internal/repository"
)

// SettingsService serves site settings from an in-process cache with a
// time-based TTL, backed by the site_settings table. The cache is owned by
// this object; there are no package-level globals.
type SettingsService struct {
	repo *repository.SettingsRepository
	ttl  time.Duration

	mu       sync.RWMutex
	cache    map[string]string
	loadedAt time.Time
}

// NewSettingsService creates a settings service with the given cache TTL.
func NewSettingsService(repo *repository.SettingsRepository, ttl time.Duration) *SettingsService {
	return &SettingsService{repo: repo, ttl: ttl}
}

// All returns every setting, refreshing the cache when stale.
func (s *SettingsService) All(ctx context.Context) (map[string]string, error) {
	s.mu.RLock()
	if s.cache != nil && time.Since(s.loadedAt) < s.ttl {
		out := make(map[string]string, len(s.cache))
		for k, v := range s.cache {
			out[k] = v
		}
		s.mu.RUnlock()
		return out, nil
	}
	s.mu.RUnlock()

	settings, err := s.repo.All(ctx)
	if err != nil {
		return nil, domain.ErrDatabase("failed to load settings", err)
	}

	s.mu.Lock()
	s.cache = settings
	s.loadedAt = time.Now()
	s.mu.Unlock()

	out := make(map[string]string, len(settings))
	for k, v := range settings {
		out[k] = v
	}
	return out, nil
}

// Get returns one setting value ("" when unset).
func (s *SettingsService) Get(ctx context.Context, key string) (string, error) {
	all, err := s.All(ctx)
	if err != nil {
		return "", err
	}
	return all[key], nil
}

// Set writes a setting and invalidates the cache.
func (s *SettingsService) Set(ctx context.Context, key, value string) error {
	if err := s.repo.Set(ctx, key, value); err != nil {
		return domain.ErrDatabase("failed to save setting", err)
	}
	s.mu.Lock()
	s.cache = nil
	s.mu.Unlock()
	return nil
}
