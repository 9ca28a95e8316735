// Package core defines the blob storage abstraction shared by the drivers.
package core

import (
	"context"
	"errors"
	"io"
	"time"
)

// Driver identifies a concrete blob storage backend implementation.
type Driver string

const (
	DriverFilesystem Driver = "fs"     // local filesystem (default, dev)
	DriverS3         Driver = "s3"     // S3 / MinIO compatible
	DriverMemory     Driver = "memory" // in-memory (tests)
)

// PutOptions specifies optional parameters for Put.
type PutOptions struct {
	ContentType string
}

// Info describes a stored blob.
type Info struct {
	Key          string    `json:"key"`
	Size         int64     `json:"size_bytes"`
	ContentType  string    `json:"content_type,omitempty"`
	LastModified time.Time `json:"last_modified"`
}

// Store keeps whole files by key. Put replaces any existing object at key;
// files are never written partially.
type Store interface {
	Put(ctx context.Context, key string, r io.Reader, opts PutOptions) (Info, error)
	// Get returns ErrNotFound (wrapped) for missing keys.
	Get(ctx context.Context, key string) (Info, io.ReadCloser, error)
	// Delete returns (false, nil) if the key did not exist.
	Delete(ctx context.Context, key string) (bool, error)
	// URL returns a client-facing URL for key.
	URL(ctx context.Context, key string) (string, error)
	Driver() Driver
}

// ErrNotFound is returned by Get for missing keys.
var ErrNotFound = errors.New("blobstore: not found")
