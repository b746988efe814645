// Package domain defines the core persistent entities, value types, and
// rule evaluation primitives used by TrackX.
package domain

// Identity is the authenticated principal on whose behalf an operation is
// invoked. Organizations are identities acting on their own behalf.
type Identity string

// EntityType identifies the type of record stored in the core ledger.
type EntityType string

// Supported entity type identifiers used in Change records and persistence buckets.
const (
	// EntityProduct identifies a tracked product record.
	EntityProduct EntityType = "product"
	// EntityCheckpoint identifies a checkpoint ledger entry.
	EntityCheckpoint EntityType = "checkpoint"
	// EntityAuthorization identifies a verifier authorization record.
	EntityAuthorization EntityType = "authorization"
	// EntityTransfer identifies a custody transfer record.
	EntityTransfer EntityType = "transfer"
	// EntityCertification identifies a compliance certification record.
	EntityCertification EntityType = "certification"
)

// ProductStatus represents the canonical product lifecycle states.
type ProductStatus string

// Canonical product statuses. Status only mutates through checkpoint
// derivation, accepted transfers, and recalls.
const (
	// StatusCreated is the initial status before the first checkpoint.
	StatusCreated ProductStatus = "created"
	// StatusInTransit is derived from any non-reserved checkpoint type.
	StatusInTransit ProductStatus = "in_transit"
	StatusDelivered ProductStatus = "delivered"
	StatusSold      ProductStatus = "sold"
	StatusRecalled  ProductStatus = "recalled"
)

// TransferStatus enumerates custody transfer workflow states.
type TransferStatus string

// Transfer statuses. Pending is the only non-terminal state.
const (
	TransferPending   TransferStatus = "pending"
	TransferCompleted TransferStatus = "completed"
	TransferRejected  TransferStatus = "rejected"
	TransferCancelled TransferStatus = "cancelled"
)

// Terminal reports whether the status is final. Terminal transfers are
// immutable apart from the rejection-reason overwrite performed by Reject.
func (s TransferStatus) Terminal() bool {
	return s == TransferCompleted || s == TransferRejected || s == TransferCancelled
}

// CertificationStatus enumerates stored certification states. Expiry is
// derived at read time from the logical clock and never stored.
type CertificationStatus string

// Stored certification statuses.
const (
	CertificationValid   CertificationStatus = "valid"
	CertificationRevoked CertificationStatus = "revoked"
)

// Checkpoint types with reserved status-derivation semantics. Any other type
// string is accepted and derives the in-transit status.
const (
	// CheckpointDelivery derives StatusDelivered.
	CheckpointDelivery = "delivery"
	// CheckpointRetailSale derives StatusSold.
	CheckpointRetailSale = "retail-sale"
	// CheckpointManufacture is written internally when a product registers.
	CheckpointManufacture = "manufacture"
	// CheckpointTransfer is written internally when a transfer completes.
	CheckpointTransfer = "transfer"
	// CheckpointRecall is written internally when a product is recalled.
	CheckpointRecall = "recall"
)

// DeriveStatus maps a checkpoint type to the product status it produces.
// The derivation runs on every checkpoint, including the first.
func DeriveStatus(checkpointType string) ProductStatus {
	switch checkpointType {
	case CheckpointDelivery:
		return StatusDelivered
	case CheckpointRetailSale:
		return StatusSold
	default:
		return StatusInTransit
	}
}

// Product is a physical good tracked through the custody chain. Manufacturer
// is immutable after creation; Status and CurrentCustodian mutate only through
// the defined operations.
type Product struct {
	ID               uint64        `json:"id"`
	Name             string        `json:"name"`
	Description      string        `json:"description"`
	Category         string        `json:"category"`
	OriginLocation   string        `json:"origin_location"`
	Manufacturer     Identity      `json:"manufacturer"`
	LotNumber        string        `json:"lot_number"`
	CreatedAt        uint64        `json:"created_at"`
	Status           ProductStatus `json:"status"`
	CurrentCustodian Identity      `json:"current_custodian"`
	Destination      *string       `json:"destination,omitempty"`
	ExpectedArrival  *uint64       `json:"expected_arrival,omitempty"`
	MetadataURI      *string       `json:"metadata_uri,omitempty"`
}

// Checkpoint is an immutable waypoint in a product's ledger. IDs form a
// gapless per-product sequence starting at zero.
type Checkpoint struct {
	ProductID    uint64   `json:"product_id"`
	ID           uint64   `json:"id"`
	Location     string   `json:"location"`
	RecordedAt   uint64   `json:"recorded_at"`
	Custodian    Identity `json:"custodian"`
	Verifier     Identity `json:"verifier"`
	Type         string   `json:"type"`
	Temperature  *float64 `json:"temperature,omitempty"`
	Humidity     *float64 `json:"humidity,omitempty"`
	Observations *string  `json:"observations,omitempty"`
	Attestation  Digest   `json:"attestation"`
}

// AuthorizationRecord grants a verifier delegated authority under an
// organization. Revocation clears Active but keeps the record for audit.
type AuthorizationRecord struct {
	Organization Identity `json:"organization"`
	Verifier     Identity `json:"verifier"`
	Name         string   `json:"name"`
	Role         string   `json:"role"`
	AuthorizedAt uint64   `json:"authorized_at"`
	AuthorizedBy Identity `json:"authorized_by"`
	Active       bool     `json:"active"`
}

// CustodyTransfer is a two-party workflow moving custodian responsibility
// from initiator to recipient. IDs form a gapless per-product sequence.
type CustodyTransfer struct {
	ProductID   uint64         `json:"product_id"`
	ID          uint64         `json:"id"`
	Initiator   Identity       `json:"initiator"`
	Recipient   Identity       `json:"recipient"`
	InitiatedAt uint64         `json:"initiated_at"`
	CompletedAt *uint64        `json:"completed_at,omitempty"`
	Status      TransferStatus `json:"status"`
	Conditions  *string        `json:"conditions,omitempty"`
}

// Certification is a time-bounded compliance attestation keyed by
// (product, type). Re-adding a type overwrites the prior record entirely.
type Certification struct {
	ProductID uint64              `json:"product_id"`
	Type      string              `json:"type"`
	Issuer    Identity            `json:"issuer"`
	IssuedAt  uint64              `json:"issued_at"`
	ExpiresAt uint64              `json:"expires_at"`
	Hash      Digest              `json:"hash"`
	URI       *string             `json:"uri,omitempty"`
	Status    CertificationStatus `json:"status"`
}

// ValidAt reports whether the certification is live at the given counter
// value: stored status valid and expiry strictly in the future.
func (c Certification) ValidAt(now uint64) bool {
	return c.Status == CertificationValid && c.ExpiresAt > now
}

// AuthenticityReport summarises a product's provenance for consumers.
type AuthenticityReport struct {
	Authentic    bool          `json:"authentic"`
	Manufacturer Identity      `json:"manufacturer"`
	LotNumber    string        `json:"lot_number"`
	Status       ProductStatus `json:"status"`
}

// Change describes a mutation applied to an entity during a transaction.
type Change struct {
	Entity EntityType
	Action Action
	Before any
	After  any
}

// Action indicates the type of modification performed.
type Action string

// Change actions enumerate the mutations captured for rule evaluation and audit.
const (
	// ActionCreate indicates an entity was created.
	ActionCreate Action = "create"
	// ActionUpdate indicates an entity was updated.
	ActionUpdate Action = "update"
)

// Violation reports a failed rule evaluation.
type Violation struct {
	Rule     string
	Severity Severity
	Message  string
	Entity   EntityType
	EntityID string
}

// Severity captures rule outcomes.
type Severity string

// Rule evaluation severities determine commit behavior.
const (
	// SeverityBlock blocks transaction commit.
	SeverityBlock Severity = "block"
	// SeverityWarn records a warning but allows commit.
	SeverityWarn Severity = "warn"
	SeverityLog  Severity = "log"
)

// Result aggregates violations from the rules engine.
type Result struct {
	Violations []Violation
}

// Merge appends violations from another result.
func (r *Result) Merge(other Result) {
	if len(other.Violations) == 0 {
		return
	}
	r.Violations = append(r.Violations, other.Violations...)
}

// HasBlocking returns true if the result contains blocking violations.
func (r Result) HasBlocking() bool {
	for _, v := range r.Violations {
		if v.Severity == SeverityBlock {
			return true
		}
	}
	return false
}

// RuleViolationError is returned when blocking violations are present.
type RuleViolationError struct {
	Result Result
}

func (e RuleViolationError) Error() string {
	return "transaction blocked by rules"
}
