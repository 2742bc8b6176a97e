// Package storage is the content-addressed blob sink for derived resources
// (thumbnails, image representations, DASH packages). The core only ever
// deals in keys of the grammar documented in SPEC_FULL.md §6
// (thumb/{id}…, image/{id}…, dash/{id}/…); it has no notion of filesystem
// layout beyond that.
package storage

import (
	"context"
	"io"
	"time"
)

// Info describes a stored blob.
type Info struct {
	Key         string
	Size        int64
	ContentType string
	ModTime     time.Time
}

// Provider is the storage capability the operation layer's side-effect phase
// is given. Concurrent writes to the same key are not expected; the later
// write wins (garbage collection of superseded keys is out of scope, per
// spec.md §5).
type Provider interface {
	// Put uploads r under key, creating parent structure as needed.
	Put(ctx context.Context, key string, r io.Reader) error
	// Get opens key for reading.
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	// Delete removes key. Not exercised by the core today (no GC pass
	// exists yet), kept on the interface for when one is added.
	Delete(ctx context.Context, key string) error
	// Exists reports whether key is present.
	Exists(ctx context.Context, key string) (bool, error)
	// Stat returns metadata about key.
	Stat(ctx context.Context, key string) (Info, error)
}
