package core

import (
	"context"
	"fmt"

	"github.com/ebuka-ez/TrackX/pkg/domain"
)

// AddCertification upserts a certification for (product, type) with status
// Valid. The caller must be the manufacturer or an active verifier of the
// manufacturer's organization; the expiry must lie strictly beyond the
// current counter value. Re-adding a type overwrites the prior record
// entirely, including any revocation.
func (s *Service) AddCertification(ctx context.Context, caller Identity, productID uint64, certType string, expiresAt uint64, hash Digest, uri *string) (Certification, Result, error) {
	var added Certification
	res, err := s.instrument(ctx, "add_certification", caller, func(ctx context.Context) (Result, error) {
		return s.store.RunInTransaction(ctx, func(tx Transaction) error {
			product, ok := tx.FindProduct(productID)
			if !ok {
				return domain.NotFoundError{Kind: domain.NotFoundProduct, Key: fmt.Sprint(productID)}
			}
			if caller != product.Manufacturer && !activeVerifier(tx.Snapshot(), product.Manufacturer, caller) {
				return domain.UnauthorizedError{Caller: caller, Reason: "not manufacturer or authorized verifier"}
			}
			if expiresAt <= tx.Now() {
				return domain.InvalidStateError{Reason: fmt.Sprintf("expiry %d is not beyond counter %d", expiresAt, tx.Now())}
			}
			var err error
			added, err = tx.PutCertification(Certification{
				ProductID: productID,
				Type:      certType,
				Issuer:    caller,
				ExpiresAt: expiresAt,
				Hash:      hash,
				URI:       uri,
				Status:    domain.CertificationValid,
			})
			return err
		})
	}, func() string { return fmt.Sprintf("%d/%s", productID, certType) })
	return added, res, err
}

// RevokeCertification marks a certification as revoked. Only the issuer of
// the stored record may revoke it.
func (s *Service) RevokeCertification(ctx context.Context, caller Identity, productID uint64, certType string) (Certification, Result, error) {
	var revoked Certification
	res, err := s.instrument(ctx, "revoke_certification", caller, func(ctx context.Context) (Result, error) {
		return s.store.RunInTransaction(ctx, func(tx Transaction) error {
			cert, ok := tx.FindCertification(productID, certType)
			if !ok {
				return domain.NotFoundError{Kind: domain.NotFoundCertification, Key: fmt.Sprintf("%d/%s", productID, certType)}
			}
			if caller != cert.Issuer {
				return domain.UnauthorizedError{Caller: caller, Reason: "only the issuer may revoke"}
			}
			var err error
			revoked, err = tx.UpdateCertification(productID, certType, func(c *Certification) error {
				c.Status = domain.CertificationRevoked
				return nil
			})
			return err
		})
	}, func() string { return fmt.Sprintf("%d/%s", productID, certType) })
	return revoked, res, err
}

// IsCertificationValid reports whether the stored record is valid and not
// yet expired at the current counter value. Absent, revoked, or expired
// certifications yield false, never an error.
func (s *Service) IsCertificationValid(_ context.Context, productID uint64, certType string) bool {
	cert, ok := s.store.GetCertification(productID, certType)
	if !ok {
		return false
	}
	return cert.ValidAt(s.store.Clock().Now())
}

// GetCertification returns a certification by composite key.
func (s *Service) GetCertification(_ context.Context, productID uint64, certType string) (Certification, bool) {
	return s.store.GetCertification(productID, certType)
}

// ListCertifications returns a product's certifications sorted by type.
func (s *Service) ListCertifications(_ context.Context, productID uint64) []Certification {
	return s.store.ListCertifications(productID)
}
