package bckt

//go:generate go run go.uber.org/mock/mockgen -destination=../testutil/mock_vault.go -package=testutil bckt-go/internal/bckt Vault

import (
	"context"
	"io"
	"time"
)

// RemoteObject is a single object in the remote store.
type RemoteObject struct {
	Key          string    `json:"key"`
	LastModified time.Time `json:"last_modified"`
	Size         int64     `json:"size"`
}

// DeleteResult reports the outcome of deleting one key in a batch.
type DeleteResult struct {
	Key string
	Err error
}

// Vault is the remote object store that archives are pushed to.
// Keys are relative to the vault's own root; backends apply any configured prefix.
type Vault interface {
	// Name identifies the store (bucket name, directory) and scopes cached listings.
	Name() string

	// List returns every object whose key starts with prefix.
	List(ctx context.Context, prefix string) ([]RemoteObject, error)

	// Put streams r to key. size is the number of bytes in r, or -1 when unknown.
	Put(ctx context.Context, key string, r io.Reader, size int64) error

	// Delete removes keys in batches and reports a result per key.
	// The returned error is reserved for failures that affect the whole call.
	Delete(ctx context.Context, keys []string) ([]DeleteResult, error)

	// ValidateSetup verifies that the store is reachable and writable.
	ValidateSetup(ctx context.Context) error
}
