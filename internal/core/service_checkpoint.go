package core

import (
	"context"
	"fmt"

	"github.com/ebuka-ez/TrackX/pkg/domain"
)

// CheckpointInput carries the caller-supplied fields for a checkpoint. The
// attestation digest is computed off-ledger and supplied precomputed.
type CheckpointInput struct {
	Location     string
	Type         string
	Temperature  *float64
	Humidity     *float64
	Observations *string
	Attestation  Digest
}

// appendCheckpointTx writes a checkpoint for the product and derives the new
// product status from the checkpoint type. The custodian field snapshots the
// product's custodian at write time; the verifier field records the caller.
// Recalled products accept no further checkpoints through any path; the
// recall checkpoint itself is appended before the status flips, so the guard
// holds there as well.
func appendCheckpointTx(tx Transaction, product Product, verifier Identity, input CheckpointInput) (Checkpoint, error) {
	if product.Status == domain.StatusRecalled {
		return Checkpoint{}, domain.InvalidStateError{Reason: fmt.Sprintf("product %d is recalled", product.ID)}
	}
	cp, err := tx.AppendCheckpoint(Checkpoint{
		ProductID:    product.ID,
		Location:     input.Location,
		Custodian:    product.CurrentCustodian,
		Verifier:     verifier,
		Type:         input.Type,
		Temperature:  input.Temperature,
		Humidity:     input.Humidity,
		Observations: input.Observations,
		Attestation:  input.Attestation,
	})
	if err != nil {
		return Checkpoint{}, err
	}
	if _, err := tx.UpdateProduct(product.ID, func(p *Product) error {
		p.Status = domain.DeriveStatus(input.Type)
		return nil
	}); err != nil {
		return Checkpoint{}, err
	}
	return cp, nil
}

// AddCheckpoint appends a waypoint to a product's ledger. The caller must be
// the current custodian or an active verifier under the custodian's
// organization, and the product must not be recalled. Status derivation runs
// on every checkpoint.
func (s *Service) AddCheckpoint(ctx context.Context, caller Identity, productID uint64, input CheckpointInput) (Checkpoint, Result, error) {
	var created Checkpoint
	res, err := s.instrument(ctx, "add_checkpoint", caller, func(ctx context.Context) (Result, error) {
		return s.store.RunInTransaction(ctx, func(tx Transaction) error {
			product, ok := tx.FindProduct(productID)
			if !ok {
				return domain.NotFoundError{Kind: domain.NotFoundProduct, Key: fmt.Sprint(productID)}
			}
			if caller != product.CurrentCustodian && !activeVerifier(tx.Snapshot(), product.CurrentCustodian, caller) {
				return domain.UnauthorizedError{Caller: caller, Reason: "not custodian or authorized verifier"}
			}
			if product.Status == domain.StatusRecalled {
				return domain.InvalidStateError{Reason: fmt.Sprintf("product %d is recalled", productID)}
			}
			var err error
			created, err = appendCheckpointTx(tx, product, caller, input)
			return err
		})
	}, func() string { return fmt.Sprintf("%d/%d", productID, created.ID) })
	return created, res, err
}

// GetCheckpoint returns a checkpoint by composite key.
func (s *Service) GetCheckpoint(_ context.Context, productID, checkpointID uint64) (Checkpoint, bool) {
	return s.store.GetCheckpoint(productID, checkpointID)
}

// ListCheckpoints returns a product's checkpoints in sequence order.
func (s *Service) ListCheckpoints(_ context.Context, productID uint64) []Checkpoint {
	return s.store.ListCheckpoints(productID)
}
