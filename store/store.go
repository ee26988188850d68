// Package store defines the backing-store contract that document buffers
// persist through, along with in-memory and filesystem implementations.
//
// A Store is latent and fallible: every call may block on I/O and may fail.
// Callers never assume a Load or Save completes promptly.
package store

import "context"

// Store translates between external storage and keyed document contents.
// Implementations are stateless from the caller's point of view and must be
// safe for concurrent calls on distinct keys.
type Store interface {
	// List returns a snapshot of the known keys in unspecified order.
	List(ctx context.Context) ([]string, error)
	// Load returns the contents stored under key. Absent keys yield an
	// error wrapping ErrKeyNotFound.
	Load(ctx context.Context, key string) (string, error)
	// Save associates contents with key, overwriting any previous value.
	// Repeating a Save with the same contents after a failure is safe.
	Save(ctx context.Context, key, contents string) error
}
