// Package objectstore abstracts the binary storage holding raw audio files.
// Paths are bucket-relative, forward-slash separated (e.g. "userID/recID.m4a").
package objectstore

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when no object exists at the given path.
var ErrNotFound = errors.New("objectstore: not found")

// Store is the narrow object storage contract the pipeline and library
// service consume.
type Store interface {
	// Download returns the full content of the object at path.
	Download(ctx context.Context, path string) ([]byte, error)

	// Upload stores data at path. With upsert set, an existing object at the
	// same path is replaced; otherwise the upload fails on conflict.
	Upload(ctx context.Context, path string, data []byte, contentType string, upsert bool) error

	// Delete removes the object at path. Deleting a missing object is not an
	// error (idempotent).
	Delete(ctx context.Context, path string) error

	// SignedURL returns a time-limited URL for direct client playback.
	SignedURL(ctx context.Context, path string, expiresIn time.Duration) (string, error)
}
