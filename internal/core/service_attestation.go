package core

import (
	"context"
	"errors"
	"io"

	"github.com/ebuka-ez/TrackX/internal/docstore"
)

// ErrNoDocumentStore is returned by attestation document operations when the
// service was built without a document store.
var ErrNoDocumentStore = errors.New("no document store configured")

// WithDocumentStore attaches an off-ledger attestation document store. The
// ledger itself only records digests; the document bytes go here.
func WithDocumentStore(docs docstore.Store) ServiceOption {
	return func(s *Service) {
		if docs != nil {
			s.docs = docs
		}
	}
}

// StoreAttestation persists an attestation document and returns its info. The
// returned digest is what callers submit as CheckpointInput.Attestation.
func (s *Service) StoreAttestation(ctx context.Context, content io.Reader, contentType string) (docstore.Info, error) {
	if s.docs == nil {
		return docstore.Info{}, ErrNoDocumentStore
	}
	return s.docs.Put(ctx, content, contentType)
}

// FetchAttestation returns the document behind a recorded checkpoint
// attestation digest.
func (s *Service) FetchAttestation(ctx context.Context, digest Digest) (docstore.Info, io.ReadCloser, error) {
	if s.docs == nil {
		return docstore.Info{}, nil, ErrNoDocumentStore
	}
	return s.docs.Get(ctx, digest)
}
