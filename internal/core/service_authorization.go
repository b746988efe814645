package core

import (
	"context"
	"fmt"
)

// AuthorizeVerifier upserts an active authorization record keyed by the
// caller acting as its own organization. Re-authorizing an existing verifier
// overwrites the record; the operation is idempotent.
func (s *Service) AuthorizeVerifier(ctx context.Context, caller, verifier Identity, name, role string) (AuthorizationRecord, Result, error) {
	var record AuthorizationRecord
	res, err := s.instrument(ctx, "authorize_verifier", caller, func(ctx context.Context) (Result, error) {
		return s.store.RunInTransaction(ctx, func(tx Transaction) error {
			var err error
			record, err = tx.PutAuthorization(AuthorizationRecord{
				Organization: caller,
				Verifier:     verifier,
				Name:         name,
				Role:         role,
				AuthorizedBy: caller,
				Active:       true,
			})
			return err
		})
	}, func() string { return fmt.Sprintf("%s/%s", caller, verifier) })
	return record, res, err
}

// DeauthorizeVerifier clears the active flag on an existing record. The
// record persists for audit.
func (s *Service) DeauthorizeVerifier(ctx context.Context, caller, verifier Identity) (AuthorizationRecord, Result, error) {
	var record AuthorizationRecord
	res, err := s.instrument(ctx, "deauthorize_verifier", caller, func(ctx context.Context) (Result, error) {
		return s.store.RunInTransaction(ctx, func(tx Transaction) error {
			var err error
			record, err = tx.UpdateAuthorization(caller, verifier, func(rec *AuthorizationRecord) error {
				rec.Active = false
				return nil
			})
			return err
		})
	}, func() string { return fmt.Sprintf("%s/%s", caller, verifier) })
	return record, res, err
}

// IsVerifierAuthorized reports whether the verifier holds an active record
// under the organization. Unknown pairs return false, never an error.
func (s *Service) IsVerifierAuthorized(_ context.Context, organization, verifier Identity) bool {
	rec, ok := s.store.GetAuthorization(organization, verifier)
	return ok && rec.Active
}

// GetAuthorization returns an authorization record by composite key.
func (s *Service) GetAuthorization(_ context.Context, organization, verifier Identity) (AuthorizationRecord, bool) {
	return s.store.GetAuthorization(organization, verifier)
}

// ListAuthorizations returns an organization's records sorted by verifier.
func (s *Service) ListAuthorizations(_ context.Context, organization Identity) []AuthorizationRecord {
	return s.store.ListAuthorizations(organization)
}
