// Package docstore stores off-ledger attestation documents addressed by the
// SHA-256 digest of their content. The ledger only ever records digests; the
// document bytes live here. Because addressing is content-derived, Put is
// idempotent: storing the same bytes twice yields the same digest and a
// single stored copy.
package docstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/ebuka-ez/TrackX/pkg/domain"
)

// Driver identifies a concrete document storage backend.
type Driver string

const (
	// DriverFilesystem stores documents under a local directory (default, dev).
	DriverFilesystem Driver = "fs"
	// DriverS3 stores documents in an S3 / MinIO compatible bucket.
	DriverS3 Driver = "s3"
	// DriverMemory keeps documents in process memory (tests).
	DriverMemory Driver = "memory"
)

// Info describes a stored attestation document.
type Info struct {
	Digest      domain.Digest `json:"digest"`
	Size        int64         `json:"size_bytes"`
	ContentType string        `json:"content_type,omitempty"`
	StoredAt    time.Time     `json:"stored_at"`
}

// Store is the document storage abstraction consumed by the ledger core.
type Store interface {
	// Put stores the document read from r and returns its info. The digest is
	// computed here from the content; callers never supply it.
	Put(ctx context.Context, r io.Reader, contentType string) (Info, error)
	// Get returns document info and a reader over its content.
	Get(ctx context.Context, digest domain.Digest) (Info, io.ReadCloser, error)
	// Stat returns document info without content.
	Stat(ctx context.Context, digest domain.Digest) (Info, error)
	// Delete removes the document, reporting whether it existed.
	Delete(ctx context.Context, digest domain.Digest) (bool, error)
	// List returns info for every stored document, ordered by digest.
	List(ctx context.Context) ([]Info, error)
	Driver() Driver
}

// ErrNotFound is returned when no document matches the requested digest.
var ErrNotFound = errors.New("docstore: document not found")

// Open selects a Store implementation using environment variables.
//
//	TRACKX_DOCSTORE_DRIVER: fs|s3|memory (default fs)
//	TRACKX_DOCSTORE_FS_ROOT: directory root when driver=fs (default ./docdata)
//	(S3 specific variables documented in s3.go)
func Open(ctx context.Context) (Store, error) {
	driver := os.Getenv("TRACKX_DOCSTORE_DRIVER")
	if driver == "" {
		driver = string(DriverFilesystem)
	}
	switch Driver(driver) {
	case DriverFilesystem:
		return NewFilesystem(os.Getenv("TRACKX_DOCSTORE_FS_ROOT"))
	case DriverS3:
		return OpenS3FromEnv(ctx)
	case DriverMemory:
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown docstore driver %s", driver)
	}
}
