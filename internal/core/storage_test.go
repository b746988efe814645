package core

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/ebuka-ez/TrackX/internal/infra/persistence/memory"
	"github.com/ebuka-ez/TrackX/internal/infra/persistence/sqlite"
)

func TestOpenPersistentStoreMemory(t *testing.T) {
	t.Setenv("TRACKX_STORAGE_DRIVER", "memory")
	store, err := OpenPersistentStore(NewDefaultRulesEngine())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	if _, ok := store.(*memory.Store); !ok {
		t.Fatalf("expected memory store, got %T", store)
	}
}

func TestOpenPersistentStoreSQLiteDefault(t *testing.T) {
	t.Setenv("TRACKX_STORAGE_DRIVER", "")
	t.Setenv("TRACKX_SQLITE_PATH", filepath.Join(t.TempDir(), "trackx.db"))
	store, err := OpenPersistentStore(NewDefaultRulesEngine())
	if err != nil {
		t.Skipf("sqlite unavailable: %v", err)
	}
	s, ok := store.(*sqlite.Store)
	if !ok {
		t.Fatalf("expected sqlite store, got %T", store)
	}
	defer func() { _ = s.Close() }()

	svc := NewService(store)
	if _, _, err := svc.RegisterProduct(context.Background(), manufacturer, ProductInput{Name: "Box", LotNumber: "L1"}); err != nil {
		t.Fatalf("register product through sqlite store: %v", err)
	}
}

func TestOpenPersistentStoreUnknownDriver(t *testing.T) {
	t.Setenv("TRACKX_STORAGE_DRIVER", "etcd")
	if _, err := OpenPersistentStore(NewDefaultRulesEngine()); err == nil {
		t.Fatalf("expected error for unknown driver")
	}
}
