package core

import (
	"context"
	"fmt"

	"github.com/ebuka-ez/TrackX/pkg/domain"
)

// NewTransferTerminalRule blocks any update to a transfer whose prior status
// was already terminal. Completed, rejected, and cancelled transfers are
// immutable.
func NewTransferTerminalRule() domain.Rule {
	return transferTerminalRule{}
}

type transferTerminalRule struct{}

func (transferTerminalRule) Name() string { return "transfer_terminal" }

func (transferTerminalRule) Evaluate(_ context.Context, _ domain.RuleView, changes []domain.Change) (Result, error) {
	var result Result
	for _, change := range changes {
		if change.Entity != domain.EntityTransfer || change.Action != domain.ActionUpdate {
			continue
		}
		before, ok := change.Before.(CustodyTransfer)
		if !ok {
			continue
		}
		if before.Status.Terminal() {
			result.Violations = append(result.Violations, domain.Violation{
				Rule:     "transfer_terminal",
				Severity: domain.SeverityBlock,
				Message:  fmt.Sprintf("transfer %d/%d is %s and immutable", before.ProductID, before.ID, before.Status),
				Entity:   domain.EntityTransfer,
				EntityID: fmt.Sprintf("%d/%d", before.ProductID, before.ID),
			})
		}
	}
	return result, nil
}
