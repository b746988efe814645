package core

// NewDefaultRulesEngine builds a rules engine with the built-in invariant set
// enforced at every commit.
func NewDefaultRulesEngine() *RulesEngine {
	engine := NewRulesEngine()
	engine.Register(NewSequenceIntegrityRule())
	engine.Register(NewTransferTerminalRule())
	engine.Register(NewCertificationWindowRule())
	engine.Register(NewRecordOwnershipRule())
	return engine
}
