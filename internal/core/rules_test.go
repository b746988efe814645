package core

import (
	"context"
	"errors"
	"testing"

	"github.com/ebuka-ez/TrackX/internal/infra/persistence/memory"
	"github.com/ebuka-ez/TrackX/pkg/domain"
)

func TestTransferTerminalRuleBlocksDirectMutation(t *testing.T) {
	store := memory.NewStore(NewDefaultRulesEngine(), nil)
	svc := NewService(store)
	ctx := context.Background()
	product := registerTestProduct(t, svc)
	transfer, _, err := svc.InitiateTransfer(ctx, manufacturer, product.ID, carrier, nil)
	if err != nil {
		t.Fatalf("initiate: %v", err)
	}
	if _, _, err := svc.AcceptTransfer(ctx, carrier, product.ID, transfer.ID); err != nil {
		t.Fatalf("accept: %v", err)
	}
	// Even a raw transactional write may not mutate a terminal transfer.
	_, err = store.RunInTransaction(ctx, func(tx Transaction) error {
		_, uErr := tx.UpdateTransfer(product.ID, transfer.ID, func(tr *CustodyTransfer) error {
			tr.Status = domain.TransferPending
			return nil
		})
		return uErr
	})
	var rve domain.RuleViolationError
	if !errors.As(err, &rve) {
		t.Fatalf("expected rule violation, got %v", err)
	}
	got, _ := store.GetTransfer(product.ID, transfer.ID)
	if got.Status != domain.TransferCompleted {
		t.Fatalf("terminal transfer mutated to %s", got.Status)
	}
}

func TestCertificationWindowRuleBlocksBadExpiry(t *testing.T) {
	store := memory.NewStore(NewDefaultRulesEngine(), nil)
	svc := NewService(store)
	ctx := context.Background()
	product := registerTestProduct(t, svc)

	// PutCertification stamps IssuedAt with the transaction counter, so an
	// expiry at or below it must be rejected at commit.
	_, err := store.RunInTransaction(ctx, func(tx Transaction) error {
		_, pErr := tx.PutCertification(Certification{
			ProductID: product.ID,
			Type:      "organic",
			Issuer:    manufacturer,
			ExpiresAt: 0,
		})
		return pErr
	})
	var rve domain.RuleViolationError
	if !errors.As(err, &rve) {
		t.Fatalf("expected rule violation, got %v", err)
	}
}

func TestSequenceIntegrityRuleFlagsGaps(t *testing.T) {
	store := memory.NewStore(nil, nil)
	store.ImportState(memory.Snapshot{
		Products: map[uint64]Product{
			0: {ID: 0, Name: "gapped", Manufacturer: manufacturer, CurrentCustodian: manufacturer, Status: domain.StatusInTransit},
		},
		Checkpoints: map[uint64]map[uint64]Checkpoint{
			0: {
				0: {Location: "a"},
				2: {Location: "c"},
			},
		},
	})
	rule := NewSequenceIntegrityRule()
	if err := store.View(context.Background(), func(view TransactionView) error {
		res, err := rule.Evaluate(context.Background(), view, nil)
		if err != nil {
			return err
		}
		if !res.HasBlocking() {
			t.Fatalf("expected blocking violation for gapped sequence")
		}
		return nil
	}); err != nil {
		t.Fatalf("view: %v", err)
	}
}

func TestRecordOwnershipRuleFlagsOrphans(t *testing.T) {
	store := memory.NewStore(nil, nil)
	rule := NewRecordOwnershipRule()
	changes := []domain.Change{
		{
			Entity: domain.EntityCheckpoint,
			Action: domain.ActionCreate,
			After:  Checkpoint{ProductID: 99, ID: 0},
		},
	}
	if err := store.View(context.Background(), func(view TransactionView) error {
		res, err := rule.Evaluate(context.Background(), view, changes)
		if err != nil {
			return err
		}
		if !res.HasBlocking() {
			t.Fatalf("expected blocking violation for orphan checkpoint")
		}
		return nil
	}); err != nil {
		t.Fatalf("view: %v", err)
	}
}

func TestDefaultRulesEngineAllowsCleanCommits(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	product := registerTestProduct(t, svc)
	_, res, err := svc.AddCheckpoint(ctx, manufacturer, product.ID, CheckpointInput{Location: "dock", Type: "loading"})
	if err != nil {
		t.Fatalf("add checkpoint: %v", err)
	}
	if len(res.Violations) != 0 {
		t.Fatalf("expected clean result, got %+v", res.Violations)
	}
}
