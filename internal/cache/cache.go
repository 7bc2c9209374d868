// Package cache implements the StatsCache used to avoid repeating remote
// listings and filesystem walks within a short window.
package cache

import (
	"fmt"
	"time"

	json "github.com/goccy/go-json"

	"bckt-go/internal/bckt"
)

// Entry is one stored value and the time it was stored.
type Entry struct {
	Value    json.RawMessage `json:"value"`
	StoredAt time.Time       `json:"stored_at"`
}

// Store persists entries by string key.
type Store interface {
	Load(key string) (Entry, bool, error)
	Save(key string, e Entry) error
	Delete(key string) error
	// DeletePrefix removes every key starting with prefix.
	DeletePrefix(prefix string) error
	Close() error
}

// Cache is a TTL cache over a Store.
type Cache struct {
	store    Store
	ttl      time.Duration
	clock    bckt.Clock
	disabled bool
}

var _ bckt.StatsCache = (*Cache)(nil)

// Option configures a Cache.
type Option func(*Cache)

// WithClock sets the clock used for freshness checks.
func WithClock(c bckt.Clock) Option {
	return func(cache *Cache) { cache.clock = c }
}

// Disabled makes every Get miss. Set still writes so later runs benefit.
func Disabled(disabled bool) Option {
	return func(cache *Cache) { cache.disabled = disabled }
}

// New creates a Cache over store. Entries older than ttl are ignored.
func New(store Store, ttl time.Duration, opts ...Option) *Cache {
	c := &Cache{
		store: store,
		ttl:   ttl,
		clock: bckt.RealClock{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get decodes the entry for key into dest if one exists and is younger than the TTL.
func (c *Cache) Get(key bckt.CacheKey, dest any) (bool, error) {
	if c.disabled {
		return false, nil
	}

	e, ok, err := c.store.Load(key.String())
	if err != nil {
		return false, fmt.Errorf("loading %s: %w", key, err)
	}
	if !ok {
		return false, nil
	}
	if c.clock.Now().Sub(e.StoredAt) > c.ttl {
		return false, nil
	}

	if err := json.Unmarshal(e.Value, dest); err != nil {
		return false, fmt.Errorf("decoding %s: %w", key, err)
	}
	return true, nil
}

// Set stores value under key.
func (c *Cache) Set(key bckt.CacheKey, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", key, err)
	}

	e := Entry{Value: raw, StoredAt: c.clock.Now().UTC()}
	if err := c.store.Save(key.String(), e); err != nil {
		return fmt.Errorf("saving %s: %w", key, err)
	}
	return nil
}

// Invalidate removes key, or every target's entry when key.Target is empty.
func (c *Cache) Invalidate(key bckt.CacheKey) error {
	var err error
	if key.Target == "" {
		err = c.store.DeletePrefix(key.String())
	} else {
		err = c.store.Delete(key.String())
	}
	if err != nil {
		return fmt.Errorf("invalidating %s: %w", key, err)
	}
	return nil
}

// Close releases the backing store.
func (c *Cache) Close() error {
	return c.store.Close()
}
