package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"testing"

	"github.com/ebuka-ez/TrackX/internal/infra/persistence/postgres/testutil"
	"github.com/ebuka-ez/TrackX/pkg/domain"
)

func withStub(t *testing.T) (*sql.DB, *testutil.StubConn) {
	t.Helper()
	db, conn := testutil.NewStubDB()
	restore := OverrideSQLOpen(func(driverName, dsn string) (*sql.DB, error) {
		if driverName != defaultDriver {
			t.Fatalf("unexpected driver %q", driverName)
		}
		return db, nil
	})
	t.Cleanup(restore)
	return db, conn
}

func createProduct(t *testing.T, store *Store) domain.Product {
	t.Helper()
	var created domain.Product
	if _, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		p := domain.Product{
			Name:             "sensor",
			Category:         "electronics",
			OriginLocation:   "plant-7",
			Manufacturer:     "org-acme",
			LotNumber:        "LOT-7",
			Status:           domain.StatusCreated,
			CurrentCustodian: "org-acme",
		}
		p.ID = tx.NextProductID()
		var err error
		created, err = tx.CreateProduct(p)
		return err
	}); err != nil {
		t.Fatalf("create product: %v", err)
	}
	return created
}

func TestNewStoreEnsuresStateTable(t *testing.T) {
	_, conn := withStub(t)
	if _, err := NewStore("", domain.NewRulesEngine()); err != nil {
		t.Fatalf("new store: %v", err)
	}
	found := false
	for _, stmt := range conn.Execs {
		if strings.Contains(strings.ToUpper(stmt), "CREATE TABLE IF NOT EXISTS STATE") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected state table DDL, got %v", conn.Execs)
	}
}

func TestRunInTransactionPersistsBuckets(t *testing.T) {
	_, conn := withStub(t)
	store, err := NewStore("", domain.NewRulesEngine())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	created := createProduct(t, store)

	payload, ok := conn.Buckets["products"]
	if !ok {
		t.Fatalf("expected products bucket to be written, have %v", conn.Buckets)
	}
	var products map[uint64]domain.Product
	if err := json.Unmarshal(payload, &products); err != nil {
		t.Fatalf("decode products bucket: %v", err)
	}
	if got := products[created.ID]; got.Name != "sensor" {
		t.Fatalf("unexpected persisted product %+v", got)
	}
	if _, ok := conn.Buckets["counters"]; !ok {
		t.Fatalf("expected counters bucket to be written")
	}
}

func TestNewStoreHydratesFromSnapshot(t *testing.T) {
	_, _ = withStub(t)
	first, err := NewStore("", domain.NewRulesEngine())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	created := createProduct(t, first)

	// A second store over the same database must see the snapshot.
	second, err := NewStore("", domain.NewRulesEngine())
	if err != nil {
		t.Fatalf("reopen store: %v", err)
	}
	got, ok := second.GetProduct(created.ID)
	if !ok {
		t.Fatalf("expected hydrated product")
	}
	if got.LotNumber != "LOT-7" {
		t.Fatalf("unexpected hydrated product %+v", got)
	}
	if _, err := second.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		if id := tx.NextProductID(); id != created.ID+1 {
			t.Fatalf("expected next id %d, got %d", created.ID+1, id)
		}
		return nil
	}); err != nil {
		t.Fatalf("transaction after hydrate: %v", err)
	}
}

func TestNewStorePingFailure(t *testing.T) {
	_, conn := withStub(t)
	conn.FailPing = true
	if _, err := NewStore("", domain.NewRulesEngine()); err == nil {
		t.Fatalf("expected ping failure")
	}
}

func TestPersistBucketFailureSurfacesError(t *testing.T) {
	_, conn := withStub(t)
	store, err := NewStore("", domain.NewRulesEngine())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	conn.FailBuckets = map[string]bool{"transfers": true}
	if _, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		p := domain.Product{Name: "doomed", Manufacturer: "org-acme", CurrentCustodian: "org-acme", Status: domain.StatusCreated}
		p.ID = tx.NextProductID()
		_, cErr := tx.CreateProduct(p)
		return cErr
	}); err == nil {
		t.Fatalf("expected persist failure")
	}
}

func TestPersistCommitFailureSurfacesError(t *testing.T) {
	_, conn := withStub(t)
	store, err := NewStore("", domain.NewRulesEngine())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	conn.FailCommit = true
	if _, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		p := domain.Product{Name: "doomed", Manufacturer: "org-acme", CurrentCustodian: "org-acme", Status: domain.StatusCreated}
		p.ID = tx.NextProductID()
		_, cErr := tx.CreateProduct(p)
		return cErr
	}); err == nil {
		t.Fatalf("expected commit failure")
	}
}
