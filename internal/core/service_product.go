package core

import (
	"context"
	"fmt"

	"github.com/ebuka-ez/TrackX/pkg/domain"
)

// ProductInput carries the caller-supplied fields for product registration.
type ProductInput struct {
	Name           string
	Description    string
	Category       string
	OriginLocation string
	LotNumber      string
	MetadataURI    *string
}

// RegisterProduct allocates the next product identifier and creates the
// product with the caller as manufacturer and custodian. The initial
// "manufacture" checkpoint is appended in the same transaction; its
// attestation is the digest of the lot number, and status derivation runs on
// it like any other checkpoint.
func (s *Service) RegisterProduct(ctx context.Context, caller Identity, input ProductInput) (Product, Result, error) {
	var created Product
	res, err := s.instrument(ctx, "register_product", caller, func(ctx context.Context) (Result, error) {
		return s.store.RunInTransaction(ctx, func(tx Transaction) error {
			product := Product{
				ID:               tx.NextProductID(),
				Name:             input.Name,
				Description:      input.Description,
				Category:         input.Category,
				OriginLocation:   input.OriginLocation,
				Manufacturer:     caller,
				LotNumber:        input.LotNumber,
				Status:           domain.StatusCreated,
				CurrentCustodian: caller,
				MetadataURI:      input.MetadataURI,
			}
			product, err := tx.CreateProduct(product)
			if err != nil {
				return err
			}
			if _, err := appendCheckpointTx(tx, product, caller, CheckpointInput{
				Location:    product.OriginLocation,
				Type:        domain.CheckpointManufacture,
				Attestation: domain.HashText(product.LotNumber),
			}); err != nil {
				return err
			}
			created, _ = tx.FindProduct(product.ID)
			return nil
		})
	}, func() string { return fmt.Sprint(created.ID) })
	return created, res, err
}

// SetShippingDetails overwrites the destination and expected arrival for a
// product. Allowed for the current custodian or an active verifier of the
// custodian's organization, regardless of product status.
func (s *Service) SetShippingDetails(ctx context.Context, caller Identity, productID uint64, destination string, expectedArrival uint64) (Product, Result, error) {
	var updated Product
	res, err := s.instrument(ctx, "set_shipping_details", caller, func(ctx context.Context) (Result, error) {
		return s.store.RunInTransaction(ctx, func(tx Transaction) error {
			product, ok := tx.FindProduct(productID)
			if !ok {
				return domain.NotFoundError{Kind: domain.NotFoundProduct, Key: fmt.Sprint(productID)}
			}
			if caller != product.CurrentCustodian && !activeVerifier(tx.Snapshot(), product.CurrentCustodian, caller) {
				return domain.UnauthorizedError{Caller: caller, Reason: "not custodian or authorized verifier"}
			}
			var err error
			updated, err = tx.UpdateProduct(productID, func(p *Product) error {
				dest := destination
				arrival := expectedArrival
				p.Destination = &dest
				p.ExpectedArrival = &arrival
				return nil
			})
			return err
		})
	}, func() string { return fmt.Sprint(productID) })
	return updated, res, err
}

// RecallProduct marks a product as recalled. Only the manufacturer may
// recall. The "recall" checkpoint, whose attestation digests the reason text,
// is appended before the status flips so the checkpoint precondition still
// holds; the transaction commits with status Recalled.
func (s *Service) RecallProduct(ctx context.Context, caller Identity, productID uint64, reason string) (Product, Result, error) {
	var recalled Product
	res, err := s.instrument(ctx, "recall_product", caller, func(ctx context.Context) (Result, error) {
		return s.store.RunInTransaction(ctx, func(tx Transaction) error {
			product, ok := tx.FindProduct(productID)
			if !ok {
				return domain.NotFoundError{Kind: domain.NotFoundProduct, Key: fmt.Sprint(productID)}
			}
			if caller != product.Manufacturer {
				return domain.UnauthorizedError{Caller: caller, Reason: "only the manufacturer may recall"}
			}
			if product.Status == domain.StatusRecalled {
				return domain.InvalidStateError{Reason: fmt.Sprintf("product %d already recalled", productID)}
			}
			if _, err := appendCheckpointTx(tx, product, caller, CheckpointInput{
				Type:        domain.CheckpointRecall,
				Attestation: domain.HashText(reason),
			}); err != nil {
				return err
			}
			var err error
			recalled, err = tx.UpdateProduct(productID, func(p *Product) error {
				p.Status = domain.StatusRecalled
				return nil
			})
			return err
		})
	}, func() string { return fmt.Sprint(productID) })
	return recalled, res, err
}

// GetProduct returns a product by identifier.
func (s *Service) GetProduct(_ context.Context, productID uint64) (Product, bool) {
	return s.store.GetProduct(productID)
}

// ListProducts returns all products sorted by identifier.
func (s *Service) ListProducts(_ context.Context) []Product {
	return s.store.ListProducts()
}

// VerifyAuthenticity summarises a product's provenance. Unknown products
// yield Authentic=false with zero-valued fields, never an error.
func (s *Service) VerifyAuthenticity(_ context.Context, productID uint64) AuthenticityReport {
	product, ok := s.store.GetProduct(productID)
	if !ok {
		return AuthenticityReport{}
	}
	return AuthenticityReport{
		Authentic:    true,
		Manufacturer: product.Manufacturer,
		LotNumber:    product.LotNumber,
		Status:       product.Status,
	}
}
