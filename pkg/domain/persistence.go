package domain

import "context"

// Transaction exposes the ledger operations that a persistence implementation
// must support within an atomic scope. Sequence allocation happens inside the
// owning transaction so aborted transactions never consume identifiers.
type Transaction interface {
	Snapshot() TransactionView
	Now() uint64

	NextProductID() uint64
	CreateProduct(Product) (Product, error)
	UpdateProduct(id uint64, mutator func(*Product) error) (Product, error)
	FindProduct(id uint64) (Product, bool)

	AppendCheckpoint(Checkpoint) (Checkpoint, error)
	FindCheckpoint(productID, checkpointID uint64) (Checkpoint, bool)

	PutAuthorization(AuthorizationRecord) (AuthorizationRecord, error)
	UpdateAuthorization(organization, verifier Identity, mutator func(*AuthorizationRecord) error) (AuthorizationRecord, error)
	FindAuthorization(organization, verifier Identity) (AuthorizationRecord, bool)

	CreateTransfer(CustodyTransfer) (CustodyTransfer, error)
	UpdateTransfer(productID, transferID uint64, mutator func(*CustodyTransfer) error) (CustodyTransfer, error)
	FindTransfer(productID, transferID uint64) (CustodyTransfer, bool)

	PutCertification(Certification) (Certification, error)
	UpdateCertification(productID uint64, certType string, mutator func(*Certification) error) (Certification, error)
	FindCertification(productID uint64, certType string) (Certification, bool)
}

// TransactionView provides read-only access to snapshot data for rules and
// read operations.
type TransactionView = RuleView

// PersistentStore is a minimal abstraction over durable backends. Every
// read-validate-write sequence runs through RunInTransaction and becomes
// visible to subsequent calls only on success.
type PersistentStore interface {
	RunInTransaction(ctx context.Context, fn func(Transaction) error) (Result, error)
	View(ctx context.Context, fn func(TransactionView) error) error
	Clock() Clock

	GetProduct(id uint64) (Product, bool)
	ListProducts() []Product
	GetCheckpoint(productID, checkpointID uint64) (Checkpoint, bool)
	ListCheckpoints(productID uint64) []Checkpoint
	GetTransfer(productID, transferID uint64) (CustodyTransfer, bool)
	ListTransfers(productID uint64) []CustodyTransfer
	GetCertification(productID uint64, certType string) (Certification, bool)
	ListCertifications(productID uint64) []Certification
	GetAuthorization(organization, verifier Identity) (AuthorizationRecord, bool)
	ListAuthorizations(organization Identity) []AuthorizationRecord
}
