package domain

import "context"

// RuleView provides read-only access to ledger state for rule evaluation.
type RuleView interface {
	ListProducts() []Product
	FindProduct(id uint64) (Product, bool)
	ListCheckpoints(productID uint64) []Checkpoint
	FindCheckpoint(productID, checkpointID uint64) (Checkpoint, bool)
	ListTransfers(productID uint64) []CustodyTransfer
	FindTransfer(productID, transferID uint64) (CustodyTransfer, bool)
	ListCertifications(productID uint64) []Certification
	FindCertification(productID uint64, certType string) (Certification, bool)
	ListAuthorizations(organization Identity) []AuthorizationRecord
	FindAuthorization(organization, verifier Identity) (AuthorizationRecord, bool)
}

// Rule defines an invariant evaluated within a transaction boundary.
type Rule interface {
	Name() string
	Evaluate(ctx context.Context, view RuleView, changes []Change) (Result, error)
}

// RulesEngine orchestrates rule evaluation.
type RulesEngine struct {
	rules []Rule
}

// NewRulesEngine constructs an engine instance.
func NewRulesEngine() *RulesEngine {
	return &RulesEngine{}
}

// Register appends a rule to the engine.
func (e *RulesEngine) Register(rule Rule) {
	e.rules = append(e.rules, rule)
}

// Evaluate executes all registered rules and aggregates their results.
func (e *RulesEngine) Evaluate(ctx context.Context, view RuleView, changes []Change) (Result, error) {
	var combined Result
	for _, rule := range e.rules {
		res, err := rule.Evaluate(ctx, view, changes)
		if err != nil {
			return Result{}, err
		}
		combined.Merge(res)
	}
	return combined, nil
}
