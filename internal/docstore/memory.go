package docstore

import (
	"bytes"
	"context"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/ebuka-ez/TrackX/pkg/domain"
)

type memoryEntry struct {
	info Info
	data []byte
}

// Memory implements Store backed by process memory. Intended for tests.
type Memory struct {
	mu   sync.RWMutex
	docs map[domain.Digest]memoryEntry
}

// NewMemory returns an in-memory document store.
func NewMemory() *Memory { return &Memory{docs: make(map[domain.Digest]memoryEntry)} }

// Driver returns the document store driver identifier.
func (m *Memory) Driver() Driver { return DriverMemory }

// Put stores the document; storing identical content again is a no-op.
func (m *Memory) Put(_ context.Context, r io.Reader, contentType string) (Info, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return Info{}, err
	}
	digest := domain.HashBytes(b)
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.docs[digest]; ok {
		return existing.info, nil
	}
	info := Info{Digest: digest, Size: int64(len(b)), ContentType: contentType, StoredAt: time.Now().UTC()}
	m.docs[digest] = memoryEntry{info: info, data: b}
	return info, nil
}

// Get returns document info and a reader over a copy of its content.
func (m *Memory) Get(_ context.Context, digest domain.Digest) (Info, io.ReadCloser, error) {
	m.mu.RLock()
	entry, ok := m.docs[digest]
	m.mu.RUnlock()
	if !ok {
		return Info{}, nil, ErrNotFound
	}
	data := make([]byte, len(entry.data))
	copy(data, entry.data)
	return entry.info, io.NopCloser(bytes.NewReader(data)), nil
}

// Stat returns document info only.
func (m *Memory) Stat(_ context.Context, digest domain.Digest) (Info, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	entry, ok := m.docs[digest]
	if !ok {
		return Info{}, ErrNotFound
	}
	return entry.info, nil
}

// Delete removes the document, reporting whether it existed.
func (m *Memory) Delete(_ context.Context, digest domain.Digest) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.docs[digest]
	if ok {
		delete(m.docs, digest)
	}
	return ok, nil
}

// List returns all stored documents ordered by digest.
func (m *Memory) List(_ context.Context) ([]Info, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Info, 0, len(m.docs))
	for _, entry := range m.docs {
		out = append(out, entry.info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Digest.String() < out[j].Digest.String() })
	return out, nil
}
