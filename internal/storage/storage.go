// Package storage defines the five-operation blob backend contract the
// metadata engine treats as an external collaborator (spec §6), plus a
// PutIfAbsent extension used by the catalog's atomic-commit retry loop.
package storage

import (
	"context"
	"errors"
	"io"
)

// ErrNotFound is returned by Get/Delete/Exists-adjacent calls when a key
// does not exist.
var ErrNotFound = errors.New("storage: object not found")

// ErrAlreadyExists is returned by PutIfAbsent when key is already present.
var ErrAlreadyExists = errors.New("storage: object already exists")

// Blob is the minimal key/value object-store contract every metadata
// operation that touches durable state is built on: get, put, delete, list,
// exists. Backends MAY also implement ConditionalBlob for atomic-commit
// support; callers that need it type-assert for it.
type Blob interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, data []byte) error
	Delete(ctx context.Context, key string) error
	List(ctx context.Context, prefix string) ([]string, error)
	Exists(ctx context.Context, key string) (bool, error)
}

// ConditionalBlob is the optional sixth operation: an atomic
// put-if-absent, used by the catalog to publish a new metadata version
// without clobbering a concurrent writer (spec §4.L/§6's "backend's atomic
// swap primitive").
type ConditionalBlob interface {
	Blob
	PutIfAbsent(ctx context.Context, key string, data []byte) error
}

// ReaderBlob is an optional streaming extension some backends (s3blob) can
// offer to avoid buffering large manifest/data blobs entirely in memory.
type ReaderBlob interface {
	Blob
	GetReader(ctx context.Context, key string) (io.ReadCloser, error)
}
