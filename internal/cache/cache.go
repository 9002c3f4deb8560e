// Package cache is a time-boxed key/value cache over a durable store.
//
// Storage failures never surface: a broken store behaves like a cache that
// always misses.
package cache

import (
	"encoding/json"
	"log/slog"
	"time"

	"currency_switcher/internal/domain"
)

// DefaultTTL is how long exchange rates stay cached.
const DefaultTTL = 15 * time.Minute

// envelope is the stored form: value plus absolute expiry in unix millis.
type envelope struct {
	V json.RawMessage `json:"v"`
	X int64           `json:"x"`
}

// Cache stores JSON values with an expiry in a domain.Store.
type Cache struct {
	store domain.Store
	now   func() time.Time
	ttl   time.Duration
}

// Option configures a Cache.
type Option func(*Cache)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// WithDefaultTTL sets the TTL used when Set is called with ttl <= 0.
func WithDefaultTTL(ttl time.Duration) Option {
	return func(c *Cache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// New creates a cache on top of store.
func New(store domain.Store, opts ...Option) *Cache {
	c := &Cache{store: store, now: time.Now, ttl: DefaultTTL}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Set stores v under key until now+ttl. A ttl <= 0 means the default TTL.
func (c *Cache) Set(key string, v any, ttl time.Duration) {
	if c == nil || c.store == nil {
		return
	}
	if ttl <= 0 {
		ttl = c.ttl
	}
	raw, err := json.Marshal(v)
	if err != nil {
		slog.Debug("cache: value not encodable", slog.String("key", key), slog.Any("error", err))
		return
	}
	body, err := json.Marshal(envelope{V: raw, X: c.now().Add(ttl).UnixMilli()})
	if err != nil {
		return
	}
	if err := c.store.Set(key, string(body)); err != nil {
		slog.Debug("cache: write dropped", slog.String("key", key), slog.Any("error", err))
	}
}

// Get decodes the cached value into dst and reports whether it was a hit.
// Expired or corrupt entries are evicted and reported as misses.
func (c *Cache) Get(key string, dst any) bool {
	if c == nil || c.store == nil {
		return false
	}
	body, ok, err := c.store.Get(key)
	if err != nil {
		slog.Debug("cache: read failed", slog.String("key", key), slog.Any("error", err))
		return false
	}
	if !ok {
		return false
	}

	var env envelope
	if err := json.Unmarshal([]byte(body), &env); err != nil || len(env.V) == 0 {
		c.evict(key)
		return false
	}
	if c.now().UnixMilli() > env.X {
		c.evict(key)
		return false
	}
	if err := json.Unmarshal(env.V, dst); err != nil {
		c.evict(key)
		return false
	}
	return true
}

func (c *Cache) evict(key string) {
	if err := c.store.Delete(key); err != nil {
		slog.Debug("cache: evict failed", slog.String("key", key), slog.Any("error", err))
	}
}
