// Package memory provides an in-memory implementation of the ledger
// persistence store used for tests and ephemeral environments.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/ebuka-ez/TrackX/pkg/domain"
)

// Compile-time contract assertion ensuring memory.Store adheres to the domain persistence interface.
var _ domain.PersistentStore = (*Store)(nil)

type (
	// Product aliases domain.Product for in-memory persistence operations.
	Product = domain.Product
	// Checkpoint aliases domain.Checkpoint.
	Checkpoint = domain.Checkpoint
	// AuthorizationRecord aliases domain.AuthorizationRecord.
	AuthorizationRecord = domain.AuthorizationRecord
	// CustodyTransfer aliases domain.CustodyTransfer.
	CustodyTransfer = domain.CustodyTransfer
	// Certification aliases domain.Certification.
	Certification = domain.Certification
	// Identity aliases domain.Identity.
	Identity = domain.Identity
	// Change aliases domain.Change captured in transactions.
	Change = domain.Change
	// Result aliases domain.Result summarizing rule evaluation.
	Result = domain.Result
	// RulesEngine aliases domain.RulesEngine used to evaluate rules.
	RulesEngine = domain.RulesEngine
	// Transaction aliases domain.Transaction representing a mutable unit of work.
	Transaction = domain.Transaction
	// TransactionView aliases domain.TransactionView providing read-only state.
	TransactionView = domain.TransactionView
)

type memoryState struct {
	products       map[uint64]Product
	checkpoints    map[uint64]map[uint64]Checkpoint
	authorizations map[Identity]map[Identity]AuthorizationRecord
	transfers      map[uint64]map[uint64]CustodyTransfer
	certifications map[uint64]map[string]Certification
	nextProductID  uint64
	checkpointSeq  map[uint64]uint64
	transferSeq    map[uint64]uint64
}

// Snapshot captures a point-in-time clone of the store state, including the
// allocator counters that back gapless sequence identifiers.
type Snapshot struct {
	Products       map[uint64]Product                            `json:"products"`
	Checkpoints    map[uint64]map[uint64]Checkpoint              `json:"checkpoints"`
	Authorizations map[Identity]map[Identity]AuthorizationRecord `json:"authorizations"`
	Transfers      map[uint64]map[uint64]CustodyTransfer         `json:"transfers"`
	Certifications map[uint64]map[string]Certification           `json:"certifications"`
	NextProductID  uint64                                        `json:"next_product_id"`
	CheckpointSeq  map[uint64]uint64                             `json:"checkpoint_seq"`
	TransferSeq    map[uint64]uint64                             `json:"transfer_seq"`
	Clock          uint64                                        `json:"clock"`
}

func newMemoryState() memoryState {
	return memoryState{
		products:       make(map[uint64]Product),
		checkpoints:    make(map[uint64]map[uint64]Checkpoint),
		authorizations: make(map[Identity]map[Identity]AuthorizationRecord),
		transfers:      make(map[uint64]map[uint64]CustodyTransfer),
		certifications: make(map[uint64]map[string]Certification),
		checkpointSeq:  make(map[uint64]uint64),
		transferSeq:    make(map[uint64]uint64),
	}
}

func snapshotFromMemoryState(state memoryState) Snapshot {
	s := Snapshot{
		Products:       make(map[uint64]Product, len(state.products)),
		Checkpoints:    make(map[uint64]map[uint64]Checkpoint, len(state.checkpoints)),
		Authorizations: make(map[Identity]map[Identity]AuthorizationRecord, len(state.authorizations)),
		Transfers:      make(map[uint64]map[uint64]CustodyTransfer, len(state.transfers)),
		Certifications: make(map[uint64]map[string]Certification, len(state.certifications)),
		NextProductID:  state.nextProductID,
		CheckpointSeq:  make(map[uint64]uint64, len(state.checkpointSeq)),
		TransferSeq:    make(map[uint64]uint64, len(state.transferSeq)),
	}
	for id, p := range state.products {
		s.Products[id] = cloneProduct(p)
	}
	for pid, entries := range state.checkpoints {
		bucket := make(map[uint64]Checkpoint, len(entries))
		for id, cp := range entries {
			bucket[id] = cloneCheckpoint(cp)
		}
		s.Checkpoints[pid] = bucket
	}
	for org, entries := range state.authorizations {
		bucket := make(map[Identity]AuthorizationRecord, len(entries))
		for verifier, rec := range entries {
			bucket[verifier] = rec
		}
		s.Authorizations[org] = bucket
	}
	for pid, entries := range state.transfers {
		bucket := make(map[uint64]CustodyTransfer, len(entries))
		for id, tr := range entries {
			bucket[id] = cloneTransfer(tr)
		}
		s.Transfers[pid] = bucket
	}
	for pid, entries := range state.certifications {
		bucket := make(map[string]Certification, len(entries))
		for certType, cert := range entries {
			bucket[certType] = cloneCertification(cert)
		}
		s.Certifications[pid] = bucket
	}
	for pid, seq := range state.checkpointSeq {
		s.CheckpointSeq[pid] = seq
	}
	for pid, seq := range state.transferSeq {
		s.TransferSeq[pid] = seq
	}
	return s
}

func memoryStateFromSnapshot(s Snapshot) memoryState {
	state := newMemoryState()
	for id, p := range s.Products {
		state.products[id] = cloneProduct(p)
	}
	for pid, entries := range s.Checkpoints {
		bucket := make(map[uint64]Checkpoint, len(entries))
		for id, cp := range entries {
			bucket[id] = cloneCheckpoint(cp)
		}
		state.checkpoints[pid] = bucket
	}
	for org, entries := range s.Authorizations {
		bucket := make(map[Identity]AuthorizationRecord, len(entries))
		for verifier, rec := range entries {
			bucket[verifier] = rec
		}
		state.authorizations[org] = bucket
	}
	for pid, entries := range s.Transfers {
		bucket := make(map[uint64]CustodyTransfer, len(entries))
		for id, tr := range entries {
			bucket[id] = cloneTransfer(tr)
		}
		state.transfers[pid] = bucket
	}
	for pid, entries := range s.Certifications {
		bucket := make(map[string]Certification, len(entries))
		for certType, cert := range entries {
			bucket[certType] = cloneCertification(cert)
		}
		state.certifications[pid] = bucket
	}
	state.nextProductID = s.NextProductID
	for pid, seq := range s.CheckpointSeq {
		state.checkpointSeq[pid] = seq
	}
	for pid, seq := range s.TransferSeq {
		state.transferSeq[pid] = seq
	}
	return state
}

// migrateSnapshot normalises a snapshot loaded from external persistence:
// missing maps are allocated, records owned by absent products are dropped,
// and allocator counters are raised above every existing identifier so a
// restored store can never reissue a sequence number.
func migrateSnapshot(snapshot Snapshot) Snapshot {
	if snapshot.Products == nil {
		snapshot.Products = map[uint64]Product{}
	}
	if snapshot.Checkpoints == nil {
		snapshot.Checkpoints = map[uint64]map[uint64]Checkpoint{}
	}
	if snapshot.Authorizations == nil {
		snapshot.Authorizations = map[Identity]map[Identity]AuthorizationRecord{}
	}
	if snapshot.Transfers == nil {
		snapshot.Transfers = map[uint64]map[uint64]CustodyTransfer{}
	}
	if snapshot.Certifications == nil {
		snapshot.Certifications = map[uint64]map[string]Certification{}
	}
	if snapshot.CheckpointSeq == nil {
		snapshot.CheckpointSeq = map[uint64]uint64{}
	}
	if snapshot.TransferSeq == nil {
		snapshot.TransferSeq = map[uint64]uint64{}
	}

	productExists := func(id uint64) bool {
		_, ok := snapshot.Products[id]
		return ok
	}

	for pid, entries := range snapshot.Checkpoints {
		if !productExists(pid) || len(entries) == 0 {
			delete(snapshot.Checkpoints, pid)
			continue
		}
		for id, cp := range entries {
			cp.ProductID = pid
			cp.ID = id
			entries[id] = cp
			if snapshot.CheckpointSeq[pid] <= id {
				snapshot.CheckpointSeq[pid] = id + 1
			}
		}
	}
	for pid, entries := range snapshot.Transfers {
		if !productExists(pid) || len(entries) == 0 {
			delete(snapshot.Transfers, pid)
			continue
		}
		for id, tr := range entries {
			tr.ProductID = pid
			tr.ID = id
			entries[id] = tr
			if snapshot.TransferSeq[pid] <= id {
				snapshot.TransferSeq[pid] = id + 1
			}
		}
	}
	for pid, entries := range snapshot.Certifications {
		if !productExists(pid) || len(entries) == 0 {
			delete(snapshot.Certifications, pid)
			continue
		}
		for certType, cert := range entries {
			cert.ProductID = pid
			cert.Type = certType
			entries[certType] = cert
		}
	}
	for pid := range snapshot.CheckpointSeq {
		if !productExists(pid) {
			delete(snapshot.CheckpointSeq, pid)
		}
	}
	for pid := range snapshot.TransferSeq {
		if !productExists(pid) {
			delete(snapshot.TransferSeq, pid)
		}
	}
	for org, entries := range snapshot.Authorizations {
		if len(entries) == 0 {
			delete(snapshot.Authorizations, org)
			continue
		}
		for verifier, rec := range entries {
			rec.Organization = org
			rec.Verifier = verifier
			entries[verifier] = rec
		}
	}
	for id := range snapshot.Products {
		if snapshot.NextProductID <= id {
			snapshot.NextProductID = id + 1
		}
		if _, ok := snapshot.CheckpointSeq[id]; !ok {
			snapshot.CheckpointSeq[id] = 0
		}
		if _, ok := snapshot.TransferSeq[id]; !ok {
			snapshot.TransferSeq[id] = 0
		}
	}

	raise := func(at uint64) {
		if snapshot.Clock < at {
			snapshot.Clock = at
		}
	}
	for _, p := range snapshot.Products {
		raise(p.CreatedAt)
	}
	for _, entries := range snapshot.Checkpoints {
		for _, cp := range entries {
			raise(cp.RecordedAt)
		}
	}
	for _, entries := range snapshot.Transfers {
		for _, tr := range entries {
			raise(tr.InitiatedAt)
			if tr.CompletedAt != nil {
				raise(*tr.CompletedAt)
			}
		}
	}
	for _, entries := range snapshot.Certifications {
		for _, cert := range entries {
			raise(cert.IssuedAt)
		}
	}
	for _, entries := range snapshot.Authorizations {
		for _, rec := range entries {
			raise(rec.AuthorizedAt)
		}
	}
	return snapshot
}

func (s memoryState) clone() memoryState {
	return memoryStateFromSnapshot(snapshotFromMemoryState(s))
}

func cloneProduct(p Product) Product {
	cp := p
	cp.Destination = cloneStringPtr(p.Destination)
	cp.ExpectedArrival = cloneUint64Ptr(p.ExpectedArrival)
	cp.MetadataURI = cloneStringPtr(p.MetadataURI)
	return cp
}

func cloneCheckpoint(c Checkpoint) Checkpoint {
	cp := c
	cp.Temperature = cloneFloat64Ptr(c.Temperature)
	cp.Humidity = cloneFloat64Ptr(c.Humidity)
	cp.Observations = cloneStringPtr(c.Observations)
	return cp
}

func cloneTransfer(t CustodyTransfer) CustodyTransfer {
	cp := t
	cp.CompletedAt = cloneUint64Ptr(t.CompletedAt)
	cp.Conditions = cloneStringPtr(t.Conditions)
	return cp
}

func cloneCertification(c Certification) Certification {
	cp := c
	cp.URI = cloneStringPtr(c.URI)
	return cp
}

func cloneStringPtr(v *string) *string {
	if v == nil {
		return nil
	}
	cp := *v
	return &cp
}

func cloneUint64Ptr(v *uint64) *uint64 {
	if v == nil {
		return nil
	}
	cp := *v
	return &cp
}

func cloneFloat64Ptr(v *float64) *float64 {
	if v == nil {
		return nil
	}
	cp := *v
	return &cp
}

// Store provides an in-memory transactional store for the custody ledger.
type Store struct {
	mu     sync.RWMutex
	state  memoryState
	engine *RulesEngine
	clock  domain.Clock
}

// NewStore constructs an in-memory store backed by the provided rules engine
// and logical clock. Nil arguments fall back to an empty engine and a fresh
// counter clock.
func NewStore(engine *RulesEngine, clock domain.Clock) *Store {
	if engine == nil {
		engine = domain.NewRulesEngine()
	}
	if clock == nil {
		clock = domain.NewCounterClock(0)
	}
	return &Store{
		state:  newMemoryState(),
		engine: engine,
		clock:  clock,
	}
}

// ExportState clones the current store state for external persistence.
func (s *Store) ExportState() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snapshot := snapshotFromMemoryState(s.state)
	snapshot.Clock = s.clock.Now()
	return snapshot
}

// ImportState replaces the store state with the provided snapshot. The clock
// is advanced past every restored timestamp so counters stay monotonic across
// restarts.
func (s *Store) ImportState(snapshot Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snapshot = migrateSnapshot(snapshot)
	if snapshot.Clock > s.clock.Now() {
		s.clock = domain.NewCounterClock(snapshot.Clock)
	}
	s.state = memoryStateFromSnapshot(snapshot)
}

// RulesEngine exposes the currently configured engine for integration points.
func (s *Store) RulesEngine() *RulesEngine {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.engine
}

// Clock returns the logical counter used for timestamps and expiry checks.
func (s *Store) Clock() domain.Clock {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.clock
}

// transaction represents a mutation set applied to the store state.
type transaction struct {
	state   memoryState
	changes []Change
	now     uint64
}

// transactionView exposes a read-only snapshot of transactional state.
type transactionView struct {
	state *memoryState
}

func newTransactionView(state *memoryState) TransactionView {
	return transactionView{state: state}
}

// ListProducts returns all products sorted by identifier.
func (v transactionView) ListProducts() []Product {
	out := make([]Product, 0, len(v.state.products))
	for _, p := range v.state.products {
		out = append(out, cloneProduct(p))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// FindProduct retrieves a product by identifier.
func (v transactionView) FindProduct(id uint64) (Product, bool) {
	p, ok := v.state.products[id]
	if !ok {
		return Product{}, false
	}
	return cloneProduct(p), true
}

// ListCheckpoints returns a product's checkpoints in sequence order.
func (v transactionView) ListCheckpoints(productID uint64) []Checkpoint {
	entries := v.state.checkpoints[productID]
	out := make([]Checkpoint, 0, len(entries))
	for _, cp := range entries {
		out = append(out, cloneCheckpoint(cp))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// FindCheckpoint retrieves a checkpoint by composite key.
func (v transactionView) FindCheckpoint(productID, checkpointID uint64) (Checkpoint, bool) {
	cp, ok := v.state.checkpoints[productID][checkpointID]
	if !ok {
		return Checkpoint{}, false
	}
	return cloneCheckpoint(cp), true
}

// ListTransfers returns a product's transfers in sequence order.
func (v transactionView) ListTransfers(productID uint64) []CustodyTransfer {
	entries := v.state.transfers[productID]
	out := make([]CustodyTransfer, 0, len(entries))
	for _, tr := range entries {
		out = append(out, cloneTransfer(tr))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// FindTransfer retrieves a transfer by composite key.
func (v transactionView) FindTransfer(productID, transferID uint64) (CustodyTransfer, bool) {
	tr, ok := v.state.transfers[productID][transferID]
	if !ok {
		return CustodyTransfer{}, false
	}
	return cloneTransfer(tr), true
}

// ListCertifications returns a product's certifications sorted by type.
func (v transactionView) ListCertifications(productID uint64) []Certification {
	entries := v.state.certifications[productID]
	out := make([]Certification, 0, len(entries))
	for _, cert := range entries {
		out = append(out, cloneCertification(cert))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Type < out[j].Type })
	return out
}

// FindCertification retrieves a certification by composite key.
func (v transactionView) FindCertification(productID uint64, certType string) (Certification, bool) {
	cert, ok := v.state.certifications[productID][certType]
	if !ok {
		return Certification{}, false
	}
	return cloneCertification(cert), true
}

// ListAuthorizations returns an organization's records sorted by verifier.
func (v transactionView) ListAuthorizations(organization Identity) []AuthorizationRecord {
	entries := v.state.authorizations[organization]
	out := make([]AuthorizationRecord, 0, len(entries))
	for _, rec := range entries {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Verifier < out[j].Verifier })
	return out
}

// FindAuthorization retrieves an authorization record by composite key.
func (v transactionView) FindAuthorization(organization, verifier Identity) (AuthorizationRecord, bool) {
	rec, ok := v.state.authorizations[organization][verifier]
	return rec, ok
}

// RunInTransaction executes fn within a transactional copy of the store
// state. The clock ticks once per attempt; sequence identifiers only advance
// when the transaction commits.
func (s *Store) RunInTransaction(ctx context.Context, fn func(tx Transaction) error) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &transaction{
		state: s.state.clone(),
		now:   s.clock.Tick(),
	}

	if err := fn(tx); err != nil {
		return Result{}, err
	}

	var result Result
	if s.engine != nil {
		view := newTransactionView(&tx.state)
		res, err := s.engine.Evaluate(ctx, view, tx.changes)
		if err != nil {
			return Result{}, err
		}
		result = res
		if res.HasBlocking() {
			return res, domain.RuleViolationError{Result: res}
		}
	}

	s.state = tx.state
	return result, nil
}

// View executes fn against a read-only snapshot of the store state.
func (s *Store) View(_ context.Context, fn func(TransactionView) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot := s.state.clone()
	view := newTransactionView(&snapshot)
	return fn(view)
}

func (tx *transaction) recordChange(change Change) {
	tx.changes = append(tx.changes, change)
}

// Snapshot returns a read-only view over the transactional state.
func (tx *transaction) Snapshot() TransactionView {
	return newTransactionView(&tx.state)
}

// Now returns the counter value stamped on this transaction.
func (tx *transaction) Now() uint64 {
	return tx.now
}

// NextProductID allocates the next global product identifier.
func (tx *transaction) NextProductID() uint64 {
	id := tx.state.nextProductID
	tx.state.nextProductID++
	return id
}

// CreateProduct stores a new product and initialises its sequence counters.
func (tx *transaction) CreateProduct(p Product) (Product, error) {
	if _, exists := tx.state.products[p.ID]; exists {
		return Product{}, fmt.Errorf("product %d already exists", p.ID)
	}
	p.CreatedAt = tx.now
	tx.state.products[p.ID] = cloneProduct(p)
	if _, ok := tx.state.checkpointSeq[p.ID]; !ok {
		tx.state.checkpointSeq[p.ID] = 0
	}
	if _, ok := tx.state.transferSeq[p.ID]; !ok {
		tx.state.transferSeq[p.ID] = 0
	}
	tx.recordChange(Change{Entity: domain.EntityProduct, Action: domain.ActionCreate, After: cloneProduct(p)})
	return cloneProduct(p), nil
}

// UpdateProduct mutates a product using the provided mutator. Identifier,
// manufacturer, and creation counter are restored after the mutator runs.
func (tx *transaction) UpdateProduct(id uint64, mutator func(*Product) error) (Product, error) {
	current, ok := tx.state.products[id]
	if !ok {
		return Product{}, domain.NotFoundError{Kind: domain.NotFoundProduct, Key: fmt.Sprint(id)}
	}
	before := cloneProduct(current)
	if err := mutator(&current); err != nil {
		return Product{}, err
	}
	current.ID = id
	current.Manufacturer = before.Manufacturer
	current.CreatedAt = before.CreatedAt
	tx.state.products[id] = cloneProduct(current)
	tx.recordChange(Change{Entity: domain.EntityProduct, Action: domain.ActionUpdate, Before: before, After: cloneProduct(current)})
	return cloneProduct(current), nil
}

// FindProduct exposes product lookup within the transaction scope.
func (tx *transaction) FindProduct(id uint64) (Product, bool) {
	p, ok := tx.state.products[id]
	if !ok {
		return Product{}, false
	}
	return cloneProduct(p), true
}

// AppendCheckpoint writes a checkpoint with the next sequence identifier for
// its product. The ledger is append-only: entries are never updated.
func (tx *transaction) AppendCheckpoint(cp Checkpoint) (Checkpoint, error) {
	if _, ok := tx.state.products[cp.ProductID]; !ok {
		return Checkpoint{}, domain.NotFoundError{Kind: domain.NotFoundProduct, Key: fmt.Sprint(cp.ProductID)}
	}
	seq, ok := tx.state.checkpointSeq[cp.ProductID]
	if !ok {
		return Checkpoint{}, domain.NotFoundError{Kind: domain.NotFoundCounter, Key: fmt.Sprintf("checkpoint-seq %d", cp.ProductID)}
	}
	cp.ID = seq
	cp.RecordedAt = tx.now
	bucket := tx.state.checkpoints[cp.ProductID]
	if bucket == nil {
		bucket = make(map[uint64]Checkpoint)
		tx.state.checkpoints[cp.ProductID] = bucket
	}
	bucket[cp.ID] = cloneCheckpoint(cp)
	tx.state.checkpointSeq[cp.ProductID] = seq + 1
	tx.recordChange(Change{Entity: domain.EntityCheckpoint, Action: domain.ActionCreate, After: cloneCheckpoint(cp)})
	return cloneCheckpoint(cp), nil
}

// FindCheckpoint exposes checkpoint lookup within the transaction scope.
func (tx *transaction) FindCheckpoint(productID, checkpointID uint64) (Checkpoint, bool) {
	cp, ok := tx.state.checkpoints[productID][checkpointID]
	if !ok {
		return Checkpoint{}, false
	}
	return cloneCheckpoint(cp), true
}

// PutAuthorization upserts a verifier authorization record.
func (tx *transaction) PutAuthorization(rec AuthorizationRecord) (AuthorizationRecord, error) {
	bucket := tx.state.authorizations[rec.Organization]
	if bucket == nil {
		bucket = make(map[Identity]AuthorizationRecord)
		tx.state.authorizations[rec.Organization] = bucket
	}
	action := domain.ActionCreate
	var before any
	if prior, exists := bucket[rec.Verifier]; exists {
		action = domain.ActionUpdate
		before = prior
	}
	rec.AuthorizedAt = tx.now
	bucket[rec.Verifier] = rec
	tx.recordChange(Change{Entity: domain.EntityAuthorization, Action: action, Before: before, After: rec})
	return rec, nil
}

// UpdateAuthorization mutates an existing authorization record.
func (tx *transaction) UpdateAuthorization(organization, verifier Identity, mutator func(*AuthorizationRecord) error) (AuthorizationRecord, error) {
	current, ok := tx.state.authorizations[organization][verifier]
	if !ok {
		return AuthorizationRecord{}, domain.NotFoundError{Kind: domain.NotFoundAuthorization, Key: fmt.Sprintf("%s/%s", organization, verifier)}
	}
	before := current
	if err := mutator(&current); err != nil {
		return AuthorizationRecord{}, err
	}
	current.Organization = organization
	current.Verifier = verifier
	tx.state.authorizations[organization][verifier] = current
	tx.recordChange(Change{Entity: domain.EntityAuthorization, Action: domain.ActionUpdate, Before: before, After: current})
	return current, nil
}

// FindAuthorization exposes authorization lookup within the transaction scope.
func (tx *transaction) FindAuthorization(organization, verifier Identity) (AuthorizationRecord, bool) {
	rec, ok := tx.state.authorizations[organization][verifier]
	return rec, ok
}

// CreateTransfer stores a transfer with the next sequence identifier for its
// product.
func (tx *transaction) CreateTransfer(tr CustodyTransfer) (CustodyTransfer, error) {
	if _, ok := tx.state.products[tr.ProductID]; !ok {
		return CustodyTransfer{}, domain.NotFoundError{Kind: domain.NotFoundProduct, Key: fmt.Sprint(tr.ProductID)}
	}
	seq, ok := tx.state.transferSeq[tr.ProductID]
	if !ok {
		return CustodyTransfer{}, domain.NotFoundError{Kind: domain.NotFoundCounter, Key: fmt.Sprintf("transfer-seq %d", tr.ProductID)}
	}
	tr.ID = seq
	tr.InitiatedAt = tx.now
	if tr.Status == "" {
		tr.Status = domain.TransferPending
	}
	bucket := tx.state.transfers[tr.ProductID]
	if bucket == nil {
		bucket = make(map[uint64]CustodyTransfer)
		tx.state.transfers[tr.ProductID] = bucket
	}
	bucket[tr.ID] = cloneTransfer(tr)
	tx.state.transferSeq[tr.ProductID] = seq + 1
	tx.recordChange(Change{Entity: domain.EntityTransfer, Action: domain.ActionCreate, After: cloneTransfer(tr)})
	return cloneTransfer(tr), nil
}

// UpdateTransfer mutates a transfer using the provided mutator. Composite key
// and initiation metadata are restored after the mutator runs.
func (tx *transaction) UpdateTransfer(productID, transferID uint64, mutator func(*CustodyTransfer) error) (CustodyTransfer, error) {
	current, ok := tx.state.transfers[productID][transferID]
	if !ok {
		return CustodyTransfer{}, domain.NotFoundError{Kind: domain.NotFoundTransfer, Key: fmt.Sprintf("%d/%d", productID, transferID)}
	}
	before := cloneTransfer(current)
	if err := mutator(&current); err != nil {
		return CustodyTransfer{}, err
	}
	current.ProductID = productID
	current.ID = transferID
	current.Initiator = before.Initiator
	current.Recipient = before.Recipient
	current.InitiatedAt = before.InitiatedAt
	tx.state.transfers[productID][transferID] = cloneTransfer(current)
	tx.recordChange(Change{Entity: domain.EntityTransfer, Action: domain.ActionUpdate, Before: before, After: cloneTransfer(current)})
	return cloneTransfer(current), nil
}

// FindTransfer exposes transfer lookup within the transaction scope.
func (tx *transaction) FindTransfer(productID, transferID uint64) (CustodyTransfer, bool) {
	tr, ok := tx.state.transfers[productID][transferID]
	if !ok {
		return CustodyTransfer{}, false
	}
	return cloneTransfer(tr), true
}

// PutCertification upserts a certification record, overwriting any prior
// record of the same type and losing its revocation history.
func (tx *transaction) PutCertification(cert Certification) (Certification, error) {
	if _, ok := tx.state.products[cert.ProductID]; !ok {
		return Certification{}, domain.NotFoundError{Kind: domain.NotFoundProduct, Key: fmt.Sprint(cert.ProductID)}
	}
	bucket := tx.state.certifications[cert.ProductID]
	if bucket == nil {
		bucket = make(map[string]Certification)
		tx.state.certifications[cert.ProductID] = bucket
	}
	action := domain.ActionCreate
	var before any
	if prior, exists := bucket[cert.Type]; exists {
		action = domain.ActionUpdate
		before = cloneCertification(prior)
	}
	cert.IssuedAt = tx.now
	if cert.Status == "" {
		cert.Status = domain.CertificationValid
	}
	bucket[cert.Type] = cloneCertification(cert)
	tx.recordChange(Change{Entity: domain.EntityCertification, Action: action, Before: before, After: cloneCertification(cert)})
	return cloneCertification(cert), nil
}

// UpdateCertification mutates an existing certification record.
func (tx *transaction) UpdateCertification(productID uint64, certType string, mutator func(*Certification) error) (Certification, error) {
	current, ok := tx.state.certifications[productID][certType]
	if !ok {
		return Certification{}, domain.NotFoundError{Kind: domain.NotFoundCertification, Key: fmt.Sprintf("%d/%s", productID, certType)}
	}
	before := cloneCertification(current)
	if err := mutator(&current); err != nil {
		return Certification{}, err
	}
	current.ProductID = productID
	current.Type = certType
	current.Issuer = before.Issuer
	current.IssuedAt = before.IssuedAt
	tx.state.certifications[productID][certType] = cloneCertification(current)
	tx.recordChange(Change{Entity: domain.EntityCertification, Action: domain.ActionUpdate, Before: before, After: cloneCertification(current)})
	return cloneCertification(current), nil
}

// FindCertification exposes certification lookup within the transaction scope.
func (tx *transaction) FindCertification(productID uint64, certType string) (Certification, bool) {
	cert, ok := tx.state.certifications[productID][certType]
	if !ok {
		return Certification{}, false
	}
	return cloneCertification(cert), true
}

// GetProduct returns a product outside any transaction.
func (s *Store) GetProduct(id uint64) (Product, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.state.products[id]
	if !ok {
		return Product{}, false
	}
	return cloneProduct(p), true
}

// ListProducts returns all products sorted by identifier.
func (s *Store) ListProducts() []Product {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return newTransactionView(&s.state).ListProducts()
}

// GetCheckpoint returns a checkpoint by composite key.
func (s *Store) GetCheckpoint(productID, checkpointID uint64) (Checkpoint, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return newTransactionView(&s.state).FindCheckpoint(productID, checkpointID)
}

// ListCheckpoints returns a product's checkpoints in sequence order.
func (s *Store) ListCheckpoints(productID uint64) []Checkpoint {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return newTransactionView(&s.state).ListCheckpoints(productID)
}

// GetTransfer returns a transfer by composite key.
func (s *Store) GetTransfer(productID, transferID uint64) (CustodyTransfer, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return newTransactionView(&s.state).FindTransfer(productID, transferID)
}

// ListTransfers returns a product's transfers in sequence order.
func (s *Store) ListTransfers(productID uint64) []CustodyTransfer {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return newTransactionView(&s.state).ListTransfers(productID)
}

// GetCertification returns a certification by composite key.
func (s *Store) GetCertification(productID uint64, certType string) (Certification, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return newTransactionView(&s.state).FindCertification(productID, certType)
}

// ListCertifications returns a product's certifications sorted by type.
func (s *Store) ListCertifications(productID uint64) []Certification {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return newTransactionView(&s.state).ListCertifications(productID)
}

// GetAuthorization returns an authorization record by composite key.
func (s *Store) GetAuthorization(organization, verifier Identity) (AuthorizationRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return newTransactionView(&s.state).FindAuthorization(organization, verifier)
}

// ListAuthorizations returns an organization's records sorted by verifier.
func (s *Store) ListAuthorizations(organization Identity) []AuthorizationRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return newTransactionView(&s.state).ListAuthorizations(organization)
}
