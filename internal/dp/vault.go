package dp

import (
	"context"
	"io"
)

// Vault stores opaque objects addressed by slash-separated keys such as
// "snapshots/<id>.bin" or "metadata/<id>.json". It is the storage backend
// under a SnapshotStore.
type Vault interface {
	// Put stores the size bytes read from r under key, replacing any existing
	// object. A reader yielding a different number of bytes is an error and
	// leaves any previous object in place.
	Put(ctx context.Context, key string, r io.Reader, size int64) error

	// Get writes the object stored under key to w.
	// Returns an error wrapping ErrNotFound if the key does not exist.
	Get(ctx context.Context, key string, w io.Writer) error

	// List returns the base names of objects directly under dir.
	// Returns an error wrapping ErrNotFound if dir does not exist.
	List(ctx context.Context, dir string) ([]string, error)

	// Delete removes the object stored under key. A missing key is not an error.
	Delete(ctx context.Context, key string) error

	// ValidateSetup verifies that the vault is accessible and properly configured.
	ValidateSetup(ctx context.Context) error
}
