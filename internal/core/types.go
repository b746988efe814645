package core

import "github.com/ebuka-ez/TrackX/pkg/domain"

// Aliases keep service code terse while the canonical definitions stay in the
// domain package.
type (
	Identity            = domain.Identity
	Product             = domain.Product
	Checkpoint          = domain.Checkpoint
	AuthorizationRecord = domain.AuthorizationRecord
	CustodyTransfer     = domain.CustodyTransfer
	Certification       = domain.Certification
	AuthenticityReport  = domain.AuthenticityReport
	Digest              = domain.Digest
	Result              = domain.Result
	RulesEngine         = domain.RulesEngine
	Transaction         = domain.Transaction
	TransactionView     = domain.TransactionView
	PersistentStore     = domain.PersistentStore
)

// NewRulesEngine constructs an empty rules engine.
func NewRulesEngine() *RulesEngine {
	return domain.NewRulesEngine()
}
