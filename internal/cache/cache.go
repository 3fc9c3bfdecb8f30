// Package cache memoizes expensive aggregates (dashboard statistics, the
// image sitemap) in memory or in Redis.
package cache

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/leca/seo-images/internal/metrics"
)

// Keys of the memoized aggregates, before prefixing.
const (
	DashboardKey = "dashboard_stats"
	SitemapKey   = "sitemap"
)

// Cache is a byte-oriented key/value backend with expiry.
type Cache interface {
	// Get returns the value and whether it was found.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	Close() error
}

// Store applies the configured prefix and TTL on top of a backend. A Store
// with a nil backend is disabled: every lookup computes.
type Store struct {
	backend Cache
	prefix  string
	ttl     time.Duration
	metrics *metrics.Metrics
}

// NewStore creates a Store. backend may be nil to disable caching.
func NewStore(backend Cache, prefix string, ttl time.Duration, m *metrics.Metrics) *Store {
	return &Store{backend: backend, prefix: prefix, ttl: ttl, metrics: m}
}

// Enabled reports whether a backend is configured.
func (s *Store) Enabled() bool {
	return s != nil && s.backend != nil
}

// Invalidate drops the given keys. Failures are logged, not returned, so
// a cache outage never fails a write path.
func (s *Store) Invalidate(ctx context.Context, keys ...string) {
	if !s.Enabled() || len(keys) == 0 {
		return
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = s.prefix + k
	}
	if err := s.backend.Delete(ctx, full...); err != nil {
		slog.Warn("cache invalidation failed", "keys", full, "error", err)
	}
}

// InvalidateAll drops every aggregate this service memoizes.
func (s *Store) InvalidateAll(ctx context.Context) {
	s.Invalidate(ctx, DashboardKey, SitemapKey)
}

// Remember returns the value cached under key, or calls compute, caches
// its result as JSON for the store TTL and returns it. Cache errors fall
// through to compute; compute errors are returned and nothing is cached.
func Remember[T any](ctx context.Context, s *Store, key string, compute func() (T, error)) (T, error) {
	if !s.Enabled() {
		return compute()
	}
	full := s.prefix + key

	data, ok, err := s.backend.Get(ctx, full)
	if err != nil {
		slog.Warn("cache read failed", "key", full, "error", err)
	}
	if ok {
		var v T
		if err := json.Unmarshal(data, &v); err == nil {
			s.metrics.ObserveCache(key, true)
			return v, nil
		}
		slog.Warn("discarding undecodable cache entry", "key", full)
	}
	s.metrics.ObserveCache(key, false)

	v, err := compute()
	if err != nil {
		return v, err
	}
	if data, err := json.Marshal(v); err != nil {
		slog.Warn("cache encode failed", "key", full, "error", err)
	} else if err := s.backend.Set(ctx, full, data, s.ttl); err != nil {
		slog.Warn("cache write failed", "key", full, "error", err)
	}
	return v, nil
}
