package cache

import (
	"fmt"

	"bckt-go/internal/config"
)

// NewFromConfig creates a Cache from the [cache] section.
func NewFromConfig(cfg config.CacheConfig, opts ...Option) (*Cache, error) {
	var (
		store Store
		err   error
	)

	switch cfg.Type {
	case "file":
		store, err = NewFileStore(cfg.Path)
	case "bolt":
		store, err = NewBoltStore(cfg.Path)
	case "memory", "":
		store = NewMemoryStore()
	default:
		return nil, fmt.Errorf("unknown cache type: %q", cfg.Type)
	}
	if err != nil {
		return nil, err
	}

	return New(store, cfg.TTL.Duration, opts...), nil
}
