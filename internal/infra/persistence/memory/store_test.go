package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/ebuka-ez/TrackX/pkg/domain"
)

func newTestProduct(name string) Product {
	return Product{
		Name:             name,
		Category:         "electronics",
		OriginLocation:   "factory-1",
		Manufacturer:     "org-acme",
		LotNumber:        "LOT-100",
		Status:           domain.StatusCreated,
		CurrentCustodian: "org-acme",
	}
}

func TestRunInTransactionCommitsState(t *testing.T) {
	store := NewStore(nil, nil)
	var created Product
	res, err := store.RunInTransaction(context.Background(), func(tx Transaction) error {
		p := newTestProduct("widget")
		p.ID = tx.NextProductID()
		var cErr error
		created, cErr = tx.CreateProduct(p)
		return cErr
	})
	if err != nil {
		t.Fatalf("run transaction: %v", err)
	}
	if len(res.Violations) != 0 {
		t.Fatalf("expected no violations, got %d", len(res.Violations))
	}
	if created.ID != 0 {
		t.Fatalf("expected first product id 0, got %d", created.ID)
	}
	if created.CreatedAt == 0 {
		t.Fatalf("expected created_at to be stamped")
	}
	got, ok := store.GetProduct(created.ID)
	if !ok {
		t.Fatalf("expected product to be visible after commit")
	}
	if got.Name != "widget" {
		t.Fatalf("unexpected product name %q", got.Name)
	}
}

func TestRunInTransactionRollsBackOnError(t *testing.T) {
	store := NewStore(nil, nil)
	boom := errors.New("boom")
	if _, err := store.RunInTransaction(context.Background(), func(tx Transaction) error {
		p := newTestProduct("doomed")
		p.ID = tx.NextProductID()
		if _, cErr := tx.CreateProduct(p); cErr != nil {
			return cErr
		}
		return boom
	}); !errors.Is(err, boom) {
		t.Fatalf("expected boom error, got %v", err)
	}
	if products := store.ListProducts(); len(products) != 0 {
		t.Fatalf("expected empty store after rollback, got %d products", len(products))
	}
	// The aborted transaction must not consume the product identifier.
	var id uint64 = 99
	if _, err := store.RunInTransaction(context.Background(), func(tx Transaction) error {
		id = tx.NextProductID()
		p := newTestProduct("survivor")
		p.ID = id
		_, cErr := tx.CreateProduct(p)
		return cErr
	}); err != nil {
		t.Fatalf("run transaction: %v", err)
	}
	if id != 0 {
		t.Fatalf("expected id 0 after rollback, got %d", id)
	}
}

type blockingRule struct{}

func (blockingRule) Name() string { return "always-block" }

func (blockingRule) Evaluate(_ context.Context, _ domain.RuleView, changes []Change) (Result, error) {
	if len(changes) == 0 {
		return Result{}, nil
	}
	return Result{Violations: []domain.Violation{{
		Rule:     "always-block",
		Severity: domain.SeverityBlock,
		Message:  "blocked",
	}}}, nil
}

func TestRunInTransactionBlockedByRules(t *testing.T) {
	engine := domain.NewRulesEngine()
	engine.Register(blockingRule{})
	store := NewStore(engine, nil)
	res, err := store.RunInTransaction(context.Background(), func(tx Transaction) error {
		p := newTestProduct("blocked")
		p.ID = tx.NextProductID()
		_, cErr := tx.CreateProduct(p)
		return cErr
	})
	var rve domain.RuleViolationError
	if !errors.As(err, &rve) {
		t.Fatalf("expected rule violation error, got %v", err)
	}
	if !res.HasBlocking() {
		t.Fatalf("expected blocking result")
	}
	if products := store.ListProducts(); len(products) != 0 {
		t.Fatalf("blocked transaction must not commit, got %d products", len(products))
	}
}

func TestCheckpointSequenceIsGaplessPerProduct(t *testing.T) {
	store := NewStore(nil, nil)
	ctx := context.Background()
	var pid uint64
	if _, err := store.RunInTransaction(ctx, func(tx Transaction) error {
		p := newTestProduct("tracked")
		p.ID = tx.NextProductID()
		pid = p.ID
		_, err := tx.CreateProduct(p)
		return err
	}); err != nil {
		t.Fatalf("create product: %v", err)
	}
	for i := 0; i < 3; i++ {
		if _, err := store.RunInTransaction(ctx, func(tx Transaction) error {
			_, err := tx.AppendCheckpoint(Checkpoint{
				ProductID: pid,
				Location:  "warehouse",
				Custodian: "org-acme",
				Verifier:  "org-acme",
				Type:      "quality-check",
			})
			return err
		}); err != nil {
			t.Fatalf("append checkpoint %d: %v", i, err)
		}
	}
	entries := store.ListCheckpoints(pid)
	if len(entries) != 3 {
		t.Fatalf("expected 3 checkpoints, got %d", len(entries))
	}
	for i, cp := range entries {
		if cp.ID != uint64(i) {
			t.Fatalf("checkpoint %d has id %d", i, cp.ID)
		}
	}
}

func TestAppendCheckpointUnknownProduct(t *testing.T) {
	store := NewStore(nil, nil)
	_, err := store.RunInTransaction(context.Background(), func(tx Transaction) error {
		_, cErr := tx.AppendCheckpoint(Checkpoint{ProductID: 42, Type: "delivery"})
		return cErr
	})
	if !domain.IsNotFound(err) {
		t.Fatalf("expected not-found error, got %v", err)
	}
}

func TestUpdateProductPreservesImmutableFields(t *testing.T) {
	store := NewStore(nil, nil)
	ctx := context.Background()
	var pid uint64
	if _, err := store.RunInTransaction(ctx, func(tx Transaction) error {
		p := newTestProduct("locked")
		p.ID = tx.NextProductID()
		pid = p.ID
		_, err := tx.CreateProduct(p)
		return err
	}); err != nil {
		t.Fatalf("create product: %v", err)
	}
	if _, err := store.RunInTransaction(ctx, func(tx Transaction) error {
		_, err := tx.UpdateProduct(pid, func(p *Product) error {
			p.Manufacturer = "org-impostor"
			p.Status = domain.StatusInTransit
			return nil
		})
		return err
	}); err != nil {
		t.Fatalf("update product: %v", err)
	}
	got, _ := store.GetProduct(pid)
	if got.Manufacturer != "org-acme" {
		t.Fatalf("manufacturer must be immutable, got %q", got.Manufacturer)
	}
	if got.Status != domain.StatusInTransit {
		t.Fatalf("status update lost, got %q", got.Status)
	}
}

func TestExportImportRoundTrip(t *testing.T) {
	store := NewStore(nil, nil)
	ctx := context.Background()
	var pid uint64
	if _, err := store.RunInTransaction(ctx, func(tx Transaction) error {
		p := newTestProduct("persisted")
		p.ID = tx.NextProductID()
		pid = p.ID
		if _, err := tx.CreateProduct(p); err != nil {
			return err
		}
		if _, err := tx.AppendCheckpoint(Checkpoint{ProductID: p.ID, Location: "dock", Custodian: "org-acme", Verifier: "org-acme", Type: "manufacture"}); err != nil {
			return err
		}
		if _, err := tx.CreateTransfer(CustodyTransfer{ProductID: p.ID, Initiator: "org-acme", Recipient: "org-ship"}); err != nil {
			return err
		}
		if _, err := tx.PutCertification(Certification{ProductID: p.ID, Type: "organic", Issuer: "org-cert", ExpiresAt: 100}); err != nil {
			return err
		}
		_, err := tx.PutAuthorization(AuthorizationRecord{Organization: "org-acme", Verifier: "alice", Name: "Alice", Role: "inspector", AuthorizedBy: "org-acme", Active: true})
		return err
	}); err != nil {
		t.Fatalf("seed store: %v", err)
	}

	snapshot := store.ExportState()
	restored := NewStore(nil, nil)
	restored.ImportState(snapshot)

	if _, ok := restored.GetProduct(pid); !ok {
		t.Fatalf("restored store missing product")
	}
	if got := restored.ListCheckpoints(pid); len(got) != 1 {
		t.Fatalf("restored store missing checkpoints")
	}
	if got := restored.ListTransfers(pid); len(got) != 1 || got[0].Status != domain.TransferPending {
		t.Fatalf("restored store missing pending transfer")
	}
	if got := restored.ListCertifications(pid); len(got) != 1 {
		t.Fatalf("restored store missing certification")
	}
	if _, ok := restored.GetAuthorization("org-acme", "alice"); !ok {
		t.Fatalf("restored store missing authorization")
	}
	if restored.Clock().Now() < store.Clock().Now() {
		t.Fatalf("restored clock regressed: %d < %d", restored.Clock().Now(), store.Clock().Now())
	}

	// The restored store must not reissue sequence numbers.
	if _, err := restored.RunInTransaction(ctx, func(tx Transaction) error {
		cp, err := tx.AppendCheckpoint(Checkpoint{ProductID: pid, Location: "truck", Custodian: "org-acme", Verifier: "org-acme", Type: "pickup"})
		if err != nil {
			return err
		}
		if cp.ID != 1 {
			t.Fatalf("expected checkpoint id 1 after restore, got %d", cp.ID)
		}
		return nil
	}); err != nil {
		t.Fatalf("append after restore: %v", err)
	}
}

func TestMigrateSnapshotDropsOrphansAndRaisesCounters(t *testing.T) {
	snapshot := Snapshot{
		Products: map[uint64]Product{
			3: {ID: 3, Name: "survivor", CreatedAt: 7},
		},
		Checkpoints: map[uint64]map[uint64]Checkpoint{
			3: {4: {Location: "dock", RecordedAt: 9}},
			8: {0: {Location: "orphan"}},
		},
		Transfers: map[uint64]map[uint64]CustodyTransfer{
			9: {0: {Initiator: "ghost"}},
		},
	}
	migrated := migrateSnapshot(snapshot)
	if _, ok := migrated.Checkpoints[8]; ok {
		t.Fatalf("orphan checkpoints should be dropped")
	}
	if _, ok := migrated.Transfers[9]; ok {
		t.Fatalf("orphan transfers should be dropped")
	}
	if migrated.NextProductID != 4 {
		t.Fatalf("expected next product id 4, got %d", migrated.NextProductID)
	}
	if migrated.CheckpointSeq[3] != 5 {
		t.Fatalf("expected checkpoint seq 5, got %d", migrated.CheckpointSeq[3])
	}
	if migrated.Clock < 9 {
		t.Fatalf("expected clock raised to cover timestamps, got %d", migrated.Clock)
	}
	cp := migrated.Checkpoints[3][4]
	if cp.ProductID != 3 || cp.ID != 4 {
		t.Fatalf("expected composite key backfill, got product %d id %d", cp.ProductID, cp.ID)
	}
}

func TestViewSeesCommittedSnapshot(t *testing.T) {
	store := NewStore(nil, nil)
	ctx := context.Background()
	if _, err := store.RunInTransaction(ctx, func(tx Transaction) error {
		p := newTestProduct("visible")
		p.ID = tx.NextProductID()
		_, err := tx.CreateProduct(p)
		return err
	}); err != nil {
		t.Fatalf("create product: %v", err)
	}
	if err := store.View(ctx, func(view TransactionView) error {
		if got := view.ListProducts(); len(got) != 1 {
			t.Fatalf("expected 1 product in view, got %d", len(got))
		}
		return nil
	}); err != nil {
		t.Fatalf("view: %v", err)
	}
}
