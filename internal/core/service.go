// Package core implements the custody ledger service: product lifecycle,
// checkpoint ledger, custody transfers, verifier authorization, and
// certification validity. Every mutating operation takes the authenticated
// caller explicitly and runs as a single store transaction.
package core

import (
	"github.com/ebuka-ez/TrackX/internal/docstore"
	"github.com/ebuka-ez/TrackX/internal/infra/persistence/memory"
)

// Service exposes the transactional ledger operations over a persistent store.
type Service struct {
	store   PersistentStore
	docs    docstore.Store
	logger  Logger
	metrics MetricsRecorder
	tracer  Tracer
	audit   AuditRecorder
}

// NewService constructs a service backed by the supplied store.
func NewService(store PersistentStore, opts ...ServiceOption) *Service {
	s := &Service{
		store:   store,
		logger:  noopLogger{},
		metrics: noopMetricsRecorder{},
		tracer:  noopTracer{},
		audit:   noopAuditRecorder{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewInMemoryService creates a service over an in-memory store with the given
// rules engine.
func NewInMemoryService(engine *RulesEngine, opts ...ServiceOption) *Service {
	return NewService(memory.NewStore(engine, nil), opts...)
}

// Store returns the underlying storage implementation.
func (s *Service) Store() PersistentStore {
	return s.store
}
