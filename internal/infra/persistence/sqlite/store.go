// Package sqlite provides a SQLite-backed persistent store that mirrors the
// in-memory semantics and snapshots the full ledger state after each commit.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/ebuka-ez/TrackX/internal/infra/persistence/memory"
	"github.com/ebuka-ez/TrackX/pkg/domain"

	_ "modernc.org/sqlite" // pure go sqlite driver
)

// Compile-time contract assertion ensuring the store satisfies the domain interface.
var _ domain.PersistentStore = (*Store)(nil)

// Store persists the in-memory state to a single SQLite table as JSON blobs.
// It snapshots the full state after every successful transaction.
type Store struct {
	*memory.Store
	db   *sql.DB
	mu   sync.Mutex
	path string
}

// NewStore constructs a snapshotting SQLite-backed persistent store.
func NewStore(path string, engine *domain.RulesEngine) (*Store, error) {
	if path == "" {
		path = "trackx.db"
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("create dirs: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS state (
		bucket TEXT PRIMARY KEY,
		payload BLOB NOT NULL
	)`); err != nil {
		return nil, fmt.Errorf("create state table: %w", err)
	}
	mem := memory.NewStore(engine, nil)
	s := &Store{Store: mem, db: db, path: path}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

var sqliteBuckets = []string{"products", "checkpoints", "authorizations", "transfers", "certifications", "counters"}

// counters groups the allocator state persisted alongside the record buckets.
type counters struct {
	NextProductID uint64            `json:"next_product_id"`
	CheckpointSeq map[uint64]uint64 `json:"checkpoint_seq"`
	TransferSeq   map[uint64]uint64 `json:"transfer_seq"`
	Clock         uint64            `json:"clock"`
}

func (s *Store) load() error {
	rows, err := s.db.Query(`SELECT bucket, payload FROM state`)
	if err != nil {
		return fmt.Errorf("select state: %w", err)
	}
	defer func() { _ = rows.Close() }()
	type raw struct {
		bucket  string
		payload []byte
	}
	var raws []raw
	for rows.Next() {
		var r raw
		if err := rows.Scan(&r.bucket, &r.payload); err != nil {
			return fmt.Errorf("scan: %w", err)
		}
		raws = append(raws, r)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate state: %w", err)
	}
	if len(raws) == 0 {
		return nil
	}
	snapshot := memory.Snapshot{}
	for _, r := range raws {
		switch r.bucket {
		case "products":
			if err := json.Unmarshal(r.payload, &snapshot.Products); err != nil {
				return fmt.Errorf("decode products: %w", err)
			}
		case "checkpoints":
			if err := json.Unmarshal(r.payload, &snapshot.Checkpoints); err != nil {
				return fmt.Errorf("decode checkpoints: %w", err)
			}
		case "authorizations":
			if err := json.Unmarshal(r.payload, &snapshot.Authorizations); err != nil {
				return fmt.Errorf("decode authorizations: %w", err)
			}
		case "transfers":
			if err := json.Unmarshal(r.payload, &snapshot.Transfers); err != nil {
				return fmt.Errorf("decode transfers: %w", err)
			}
		case "certifications":
			if err := json.Unmarshal(r.payload, &snapshot.Certifications); err != nil {
				return fmt.Errorf("decode certifications: %w", err)
			}
		case "counters":
			var c counters
			if err := json.Unmarshal(r.payload, &c); err != nil {
				return fmt.Errorf("decode counters: %w", err)
			}
			snapshot.NextProductID = c.NextProductID
			snapshot.CheckpointSeq = c.CheckpointSeq
			snapshot.TransferSeq = c.TransferSeq
			snapshot.Clock = c.Clock
		}
	}
	s.ImportState(snapshot)
	return nil
}

func (s *Store) persist() (retErr error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snapshot := s.ExportState()
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()
	for _, bucket := range sqliteBuckets {
		var data []byte
		switch bucket {
		case "products":
			data, err = json.Marshal(snapshot.Products)
		case "checkpoints":
			data, err = json.Marshal(snapshot.Checkpoints)
		case "authorizations":
			data, err = json.Marshal(snapshot.Authorizations)
		case "transfers":
			data, err = json.Marshal(snapshot.Transfers)
		case "certifications":
			data, err = json.Marshal(snapshot.Certifications)
		case "counters":
			data, err = json.Marshal(counters{
				NextProductID: snapshot.NextProductID,
				CheckpointSeq: snapshot.CheckpointSeq,
				TransferSeq:   snapshot.TransferSeq,
				Clock:         snapshot.Clock,
			})
		}
		if err != nil {
			retErr = err
			return retErr
		}
		if _, err = tx.Exec(`INSERT INTO state(bucket,payload) VALUES(?,?) ON CONFLICT(bucket) DO UPDATE SET payload=excluded.payload`, bucket, data); err != nil {
			retErr = fmt.Errorf("upsert %s: %w", bucket, err)
			return retErr
		}
	}
	if err = tx.Commit(); err != nil {
		return err
	}
	return nil
}

// RunInTransaction applies the provided function within a transaction, then snapshots state to SQLite if successful.
func (s *Store) RunInTransaction(ctx context.Context, fn func(tx domain.Transaction) error) (domain.Result, error) {
	res, err := s.Store.RunInTransaction(ctx, fn)
	if err != nil {
		return res, err
	}
	if pErr := s.persist(); pErr != nil {
		return res, pErr
	}
	return res, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error { return s.db.Close() }

// DB exposes the underlying sql.DB for integration testing hooks.
func (s *Store) DB() *sql.DB { return s.db }

// Path returns the configured database path.
func (s *Store) Path() string { return s.path }
