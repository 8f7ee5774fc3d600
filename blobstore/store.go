// Package blobstore abstracts over remote object storage backends (S3,
// MinIO) for archiving finished sequence files, behind one Store/Blob
// interface pair. Archiver adds concurrency and rate limiting on top of
// any backend.
package blobstore

import (
	"context"
	"errors"
	"io"
)

// ErrNotFound is returned when a blob does not exist. Implementations
// should return an error that satisfies errors.Is(err, ErrNotFound).
var ErrNotFound = errors.New("blobstore: blob not found")

// Store is an abstraction over a remote object storage backend holding
// immutable archive bundles.
type Store interface {
	// Open opens an existing blob for reading.
	Open(ctx context.Context, name string) (Blob, error)
	// Create begins a streaming upload of a new blob.
	Create(ctx context.Context, name string) (WritableBlob, error)
	// Delete removes a blob, no error if it is already gone.
	Delete(ctx context.Context, name string) error
	// List returns every blob name with the given prefix.
	List(ctx context.Context, prefix string) ([]string, error)
}

// Blob is a read-only handle to a remote object.
type Blob interface {
	io.ReadCloser
	// Size returns the blob's size in bytes.
	Size() int64
}

// WritableBlob is a streaming upload in progress. Close must be called
// to finalize it; an error from Close means the upload did not land.
type WritableBlob interface {
	io.WriteCloser
}
