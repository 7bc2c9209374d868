package bckt

import "fmt"

// StatKind names the kind of expensive stat stored in the StatsCache.
type StatKind string

const (
	StatRemoteObjects StatKind = "remote_objects"
	StatModifiedFiles StatKind = "modified_files"
	StatExcludedFiles StatKind = "excluded_files"
	StatTreeSize      StatKind = "tree_size"
)

// LocalContext scopes cached stats computed from the local filesystem.
const LocalContext = "local"

// CacheKey identifies one cached stat. Context is the vault name for
// remote listings and LocalContext for filesystem scans.
type CacheKey struct {
	Context string
	Kind    StatKind
	Target  string
}

func (k CacheKey) String() string {
	if k.Target == "" {
		return fmt.Sprintf("%s|%s", k.Context, k.Kind)
	}
	return fmt.Sprintf("%s|%s|%s", k.Context, k.Kind, k.Target)
}

// StatsCache is a short-TTL key/value cache for remote listings and tree scans.
// Implementations are not safe across concurrent processes: the last writer wins.
type StatsCache interface {
	// Get decodes a fresh entry into dest and reports whether one was found.
	Get(key CacheKey, dest any) (bool, error)

	// Set stores value under key with the current time.
	Set(key CacheKey, value any) error

	// Invalidate drops the entry for key. A key without a Target also drops
	// the per-target entries of the same context and kind.
	Invalidate(key CacheKey) error
}

// cached returns the cached value for key or computes and stores it.
// Cache failures are logged and fall back to fn.
func cached[T any](c StatsCache, log Logger, key CacheKey, fn func() (T, error)) (T, error) {
	var v T
	if c == nil {
		return fn()
	}

	ok, err := c.Get(key, &v)
	if err != nil {
		log.Warn("stats cache read failed", "key", key.String(), "error", err)
	} else if ok {
		return v, nil
	}

	v, err = fn()
	if err != nil {
		return v, err
	}

	if err := c.Set(key, v); err != nil {
		log.Warn("stats cache write failed", "key", key.String(), "error", err)
	}
	return v, nil
}
