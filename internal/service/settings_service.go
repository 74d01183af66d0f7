package service

import (
	"context"
	"strconv"
	"sync"
	"time"

	"trafikskolan/internal/repository"
)

// SettingsProvider caches site settings for a fixed TTL. Callers always go
// through Get; a stale cache is refreshed on the next read, and a failed
// refresh falls back to the last good snapshot.
type SettingsProvider struct {
	repo repository.SettingsRepository
	ttl  time.Duration

	mu        sync.Mutex
	settings  map[string]string
	fetchedAt time.Time
}

func NewSettingsProvider(repo repository.SettingsRepository, ttl time.Duration) *SettingsProvider {
	return &SettingsProvider{repo: repo, ttl: ttl}
}

// Get returns the value for key, refreshing the cache when the TTL has
// elapsed. ok is false for unknown keys.
func (p *SettingsProvider) Get(ctx context.Context, key string) (string, bool, error) {
	settings, err := p.snapshot(ctx)
	if err != nil {
		return "", false, err
	}
	val, ok := settings[key]
	return val, ok, nil
}

// GetInt reads a numeric setting, returning fallback for missing or
// malformed values.
func (p *SettingsProvider) GetInt(ctx context.Context, key string, fallback int) (int, error) {
	val, ok, err := p.Get(ctx, key)
	if err != nil {
		return 0, err
	}
	if !ok {
		return fallback, nil
	}
	n, convErr := strconv.Atoi(val)
	if convErr != nil {
		return fallback, nil
	}
	return n, nil
}

// Set writes through to the store and invalidates the cache.
func (p *SettingsProvider) Set(ctx context.Context, key, value string) error {
	if err := p.repo.Set(ctx, key, value); err != nil {
		return err
	}
	p.mu.Lock()
	p.fetchedAt = time.Time{}
	p.mu.Unlock()
	return nil
}

// All returns the full settings snapshot.
func (p *SettingsProvider) All(ctx context.Context) (map[string]string, error) {
	settings, err := p.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(settings))
	for k, v := range settings {
		out[k] = v
	}
	return out, nil
}

func (p *SettingsProvider) snapshot(ctx context.Context) (map[string]string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.settings != nil && time.Since(p.fetchedAt) < p.ttl {
		return p.settings, nil
	}

	fresh, err := p.repo.GetAll(ctx)
	if err != nil {
		if p.settings != nil {
			return p.settings, nil
		}
		return nil, err
	}
	p.settings = fresh
	p.fetchedAt = time.Now()
	return p.settings, nil
}
