package testutil

import (
	"context"
	"testing"
)

func TestStubUpsertAndSelect(t *testing.T) {
	db, conn := NewStubDB()
	ctx := context.Background()
	if _, err := db.ExecContext(ctx, `INSERT INTO state(bucket,payload) VALUES($1,$2) ON CONFLICT(bucket) DO UPDATE SET payload=EXCLUDED.payload`, "products", []byte(`{}`)); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if _, err := db.ExecContext(ctx, `INSERT INTO state(bucket,payload) VALUES($1,$2) ON CONFLICT(bucket) DO UPDATE SET payload=EXCLUDED.payload`, "products", []byte(`{"1":{}}`)); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if got := string(conn.Buckets["products"]); got != `{"1":{}}` {
		t.Fatalf("expected upsert to replace payload, got %s", got)
	}
	rows, err := db.QueryContext(ctx, `SELECT bucket, payload FROM state`)
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	defer func() { _ = rows.Close() }()
	count := 0
	for rows.Next() {
		var bucket string
		var payload []byte
		if err := rows.Scan(&bucket, &payload); err != nil {
			t.Fatalf("scan: %v", err)
		}
		count++
	}
	if count != 1 {
		t.Fatalf("expected 1 row, got %d", count)
	}
}

func TestStubFailureKnobs(t *testing.T) {
	db, conn := NewStubDB()
	ctx := context.Background()
	conn.FailPing = true
	if err := db.PingContext(ctx); err == nil {
		t.Fatalf("expected ping failure")
	}
	conn.FailPing = false
	conn.FailExec = true
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS state (bucket TEXT PRIMARY KEY, payload JSONB NOT NULL)`); err == nil {
		t.Fatalf("expected exec failure")
	}
}
