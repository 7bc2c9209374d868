package vault

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"bckt-go/internal/bckt"
)

type memoryObject struct {
	data         []byte
	lastModified time.Time
}

// MemoryVault is an in-memory implementation of the Vault interface.
// It is useful for testing and is safe for concurrent use.
type MemoryVault struct {
	name    string
	clock   bckt.Clock
	objects map[string]memoryObject
	mu      sync.RWMutex
}

// NewMemoryVault creates a new in-memory vault with the given name.
func NewMemoryVault(name string) *MemoryVault {
	return &MemoryVault{
		name:    name,
		clock:   bckt.RealClock{},
		objects: make(map[string]memoryObject),
	}
}

// SetClock sets the clock used to stamp uploaded objects.
func (m *MemoryVault) SetClock(c bckt.Clock) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clock = c
}

// Name returns the vault name.
func (m *MemoryVault) Name() string {
	return m.name
}

// List returns every object whose key starts with prefix, sorted by key.
func (m *MemoryVault) List(ctx context.Context, prefix string) ([]bckt.RemoteObject, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	objs := make([]bckt.RemoteObject, 0, len(m.objects))
	for key, obj := range m.objects {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		objs = append(objs, bckt.RemoteObject{
			Key:          key,
			LastModified: obj.lastModified,
			Size:         int64(len(obj.data)),
		})
	}
	sort.Slice(objs, func(i, j int) bool { return objs[i].Key < objs[j].Key })
	return objs, nil
}

// Put stores the content of r under key.
func (m *MemoryVault) Put(ctx context.Context, key string, r io.Reader, size int64) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("failed to read content: %w", err)
	}
	if size >= 0 && int64(len(data)) != size {
		return fmt.Errorf("size mismatch: expected %d bytes, got %d", size, len(data))
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = memoryObject{data: data, lastModified: m.clock.Now().UTC()}
	return nil
}

// Delete removes keys. Missing keys are reported as errors.
func (m *MemoryVault) Delete(ctx context.Context, keys []string) ([]bckt.DeleteResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	results := make([]bckt.DeleteResult, 0, len(keys))
	for _, key := range keys {
		if _, ok := m.objects[key]; !ok {
			results = append(results, bckt.DeleteResult{Key: key, Err: fmt.Errorf("object not found: %s", key)})
			continue
		}
		delete(m.objects, key)
		results = append(results, bckt.DeleteResult{Key: key})
	}
	return results, nil
}

// ValidateSetup always succeeds for in-memory vault.
func (m *MemoryVault) ValidateSetup(ctx context.Context) error {
	return nil
}

// Seed stores an object with an explicit modification time.
func (m *MemoryVault) Seed(key string, data []byte, lastModified time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = memoryObject{data: data, lastModified: lastModified.UTC()}
}

// Get returns the content stored under key.
func (m *MemoryVault) Get(key string) ([]byte, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	obj, ok := m.objects[key]
	return obj.data, ok
}

// Compile-time check that MemoryVault implements bckt.Vault interface
var _ bckt.Vault = (*MemoryVault)(nil)
