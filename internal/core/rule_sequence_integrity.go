package core

import (
	"context"
	"fmt"

	"github.com/ebuka-ez/TrackX/pkg/domain"
)

// NewSequenceIntegrityRule blocks commits that would leave a product's
// checkpoint or transfer identifiers with gaps or reuse. Both sequences must
// form 0..n-1 per product.
func NewSequenceIntegrityRule() domain.Rule {
	return sequenceIntegrityRule{}
}

type sequenceIntegrityRule struct{}

func (sequenceIntegrityRule) Name() string { return "sequence_integrity" }

func (sequenceIntegrityRule) Evaluate(_ context.Context, view domain.RuleView, _ []domain.Change) (Result, error) {
	var result Result
	for _, product := range view.ListProducts() {
		for i, cp := range view.ListCheckpoints(product.ID) {
			if cp.ID != uint64(i) {
				result.Violations = append(result.Violations, domain.Violation{
					Rule:     "sequence_integrity",
					Severity: domain.SeverityBlock,
					Message:  fmt.Sprintf("checkpoint sequence for product %d has id %d at position %d", product.ID, cp.ID, i),
					Entity:   domain.EntityCheckpoint,
					EntityID: fmt.Sprintf("%d/%d", product.ID, cp.ID),
				})
				break
			}
		}
		for i, tr := range view.ListTransfers(product.ID) {
			if tr.ID != uint64(i) {
				result.Violations = append(result.Violations, domain.Violation{
					Rule:     "sequence_integrity",
					Severity: domain.SeverityBlock,
					Message:  fmt.Sprintf("transfer sequence for product %d has id %d at position %d", product.ID, tr.ID, i),
					Entity:   domain.EntityTransfer,
					EntityID: fmt.Sprintf("%d/%d", product.ID, tr.ID),
				})
				break
			}
		}
	}
	return result, nil
}
