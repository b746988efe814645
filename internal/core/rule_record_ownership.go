package core

import (
	"context"
	"fmt"

	"github.com/ebuka-ez/TrackX/pkg/domain"
)

// NewRecordOwnershipRule blocks commits that create a checkpoint, transfer,
// or certification referencing a product absent from the candidate state.
func NewRecordOwnershipRule() domain.Rule {
	return recordOwnershipRule{}
}

type recordOwnershipRule struct{}

func (recordOwnershipRule) Name() string { return "record_ownership" }

func (recordOwnershipRule) Evaluate(_ context.Context, view domain.RuleView, changes []domain.Change) (Result, error) {
	var result Result
	block := func(entity domain.EntityType, productID uint64, entityID string) {
		result.Violations = append(result.Violations, domain.Violation{
			Rule:     "record_ownership",
			Severity: domain.SeverityBlock,
			Message:  fmt.Sprintf("%s %s references missing product %d", entity, entityID, productID),
			Entity:   entity,
			EntityID: entityID,
		})
	}
	for _, change := range changes {
		if change.Action != domain.ActionCreate {
			continue
		}
		switch change.Entity {
		case domain.EntityCheckpoint:
			cp, ok := change.After.(Checkpoint)
			if !ok {
				continue
			}
			if _, exists := view.FindProduct(cp.ProductID); !exists {
				block(domain.EntityCheckpoint, cp.ProductID, fmt.Sprintf("%d/%d", cp.ProductID, cp.ID))
			}
		case domain.EntityTransfer:
			tr, ok := change.After.(CustodyTransfer)
			if !ok {
				continue
			}
			if _, exists := view.FindProduct(tr.ProductID); !exists {
				block(domain.EntityTransfer, tr.ProductID, fmt.Sprintf("%d/%d", tr.ProductID, tr.ID))
			}
		case domain.EntityCertification:
			cert, ok := change.After.(Certification)
			if !ok {
				continue
			}
			if _, exists := view.FindProduct(cert.ProductID); !exists {
				block(domain.EntityCertification, cert.ProductID, fmt.Sprintf("%d/%s", cert.ProductID, cert.Type))
			}
		}
	}
	return result, nil
}
