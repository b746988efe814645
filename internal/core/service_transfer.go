package core

import (
	"context"
	"fmt"

	"github.com/ebuka-ez/TrackX/pkg/domain"
)

// InitiateTransfer opens a pending custody transfer from the current
// custodian to the recipient.
func (s *Service) InitiateTransfer(ctx context.Context, caller Identity, productID uint64, recipient Identity, conditions *string) (CustodyTransfer, Result, error) {
	var created CustodyTransfer
	res, err := s.instrument(ctx, "initiate_transfer", caller, func(ctx context.Context) (Result, error) {
		return s.store.RunInTransaction(ctx, func(tx Transaction) error {
			product, ok := tx.FindProduct(productID)
			if !ok {
				return domain.NotFoundError{Kind: domain.NotFoundProduct, Key: fmt.Sprint(productID)}
			}
			if caller != product.CurrentCustodian {
				return domain.UnauthorizedError{Caller: caller, Reason: "only the current custodian may initiate a transfer"}
			}
			if product.Status == domain.StatusRecalled {
				return domain.InvalidStateError{Reason: fmt.Sprintf("product %d is recalled", productID)}
			}
			var err error
			created, err = tx.CreateTransfer(CustodyTransfer{
				ProductID:  productID,
				Initiator:  caller,
				Recipient:  recipient,
				Status:     domain.TransferPending,
				Conditions: conditions,
			})
			return err
		})
	}, func() string { return fmt.Sprintf("%d/%d", productID, created.ID) })
	return created, res, err
}

// findPendingTransfer loads a transfer and verifies it has not left Pending.
// Terminal transfers fail here before any caller check runs.
func findPendingTransfer(tx Transaction, productID, transferID uint64) (CustodyTransfer, error) {
	transfer, ok := tx.FindTransfer(productID, transferID)
	if !ok {
		return CustodyTransfer{}, domain.NotFoundError{Kind: domain.NotFoundTransfer, Key: fmt.Sprintf("%d/%d", productID, transferID)}
	}
	if transfer.Status != domain.TransferPending {
		return CustodyTransfer{}, domain.InvalidStateError{Reason: fmt.Sprintf("transfer %d/%d is %s", productID, transferID, transfer.Status)}
	}
	return transfer, nil
}

// AcceptTransfer completes a pending transfer. The caller must be the
// recipient; custody moves to the caller and a "transfer" checkpoint is
// appended within the same transaction.
func (s *Service) AcceptTransfer(ctx context.Context, caller Identity, productID, transferID uint64) (CustodyTransfer, Result, error) {
	var accepted CustodyTransfer
	res, err := s.instrument(ctx, "accept_transfer", caller, func(ctx context.Context) (Result, error) {
		return s.store.RunInTransaction(ctx, func(tx Transaction) error {
			transfer, err := findPendingTransfer(tx, productID, transferID)
			if err != nil {
				return err
			}
			if caller != transfer.Recipient {
				return domain.UnauthorizedError{Caller: caller, Reason: "only the recipient may accept"}
			}
			now := tx.Now()
			accepted, err = tx.UpdateTransfer(productID, transferID, func(t *CustodyTransfer) error {
				t.Status = domain.TransferCompleted
				t.CompletedAt = &now
				return nil
			})
			if err != nil {
				return err
			}
			product, err := tx.UpdateProduct(productID, func(p *Product) error {
				p.CurrentCustodian = caller
				return nil
			})
			if err != nil {
				return err
			}
			conditions := ""
			if transfer.Conditions != nil {
				conditions = *transfer.Conditions
			}
			location := ""
			if product.Destination != nil {
				location = *product.Destination
			}
			_, err = appendCheckpointTx(tx, product, caller, CheckpointInput{
				Location:    location,
				Type:        domain.CheckpointTransfer,
				Attestation: domain.HashText(conditions),
			})
			return err
		})
	}, func() string { return fmt.Sprintf("%d/%d", productID, transferID) })
	return accepted, res, err
}

// RejectTransfer declines a pending transfer. The caller must be the
// recipient; the conditions field is overwritten with the rejection reason.
func (s *Service) RejectTransfer(ctx context.Context, caller Identity, productID, transferID uint64, reason string) (CustodyTransfer, Result, error) {
	var rejected CustodyTransfer
	res, err := s.instrument(ctx, "reject_transfer", caller, func(ctx context.Context) (Result, error) {
		return s.store.RunInTransaction(ctx, func(tx Transaction) error {
			transfer, err := findPendingTransfer(tx, productID, transferID)
			if err != nil {
				return err
			}
			if caller != transfer.Recipient {
				return domain.UnauthorizedError{Caller: caller, Reason: "only the recipient may reject"}
			}
			now := tx.Now()
			rejected, err = tx.UpdateTransfer(productID, transferID, func(t *CustodyTransfer) error {
				t.Status = domain.TransferRejected
				t.CompletedAt = &now
				r := reason
				t.Conditions = &r
				return nil
			})
			return err
		})
	}, func() string { return fmt.Sprintf("%d/%d", productID, transferID) })
	return rejected, res, err
}

// CancelTransfer withdraws a pending transfer. The caller must be the
// original initiator.
func (s *Service) CancelTransfer(ctx context.Context, caller Identity, productID, transferID uint64) (CustodyTransfer, Result, error) {
	var cancelled CustodyTransfer
	res, err := s.instrument(ctx, "cancel_transfer", caller, func(ctx context.Context) (Result, error) {
		return s.store.RunInTransaction(ctx, func(tx Transaction) error {
			transfer, err := findPendingTransfer(tx, productID, transferID)
			if err != nil {
				return err
			}
			if caller != transfer.Initiator {
				return domain.UnauthorizedError{Caller: caller, Reason: "only the initiator may cancel"}
			}
			now := tx.Now()
			cancelled, err = tx.UpdateTransfer(productID, transferID, func(t *CustodyTransfer) error {
				t.Status = domain.TransferCancelled
				t.CompletedAt = &now
				return nil
			})
			return err
		})
	}, func() string { return fmt.Sprintf("%d/%d", productID, transferID) })
	return cancelled, res, err
}

// GetTransfer returns a transfer by composite key.
func (s *Service) GetTransfer(_ context.Context, productID, transferID uint64) (CustodyTransfer, bool) {
	return s.store.GetTransfer(productID, transferID)
}

// ListTransfers returns a product's transfers in sequence order.
func (s *Service) ListTransfers(_ context.Context, productID uint64) []CustodyTransfer {
	return s.store.ListTransfers(productID)
}
