package ledger

import (
	"context"
	"sort"
	"sync"

	"github.com/erp/bonusledger/internal/domain/crm"
	"github.com/erp/bonusledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// =============================================================================
// In-memory store with optimistic locking and all-or-nothing commits
// =============================================================================

type memStore struct {
	mu        sync.Mutex
	customers map[uuid.UUID]crm.Customer
	entries   []*crm.BonusTransaction
	published []shared.DomainEvent

	// failEntryCreate makes every ledger append fail
	failEntryCreate error
	// beforeSave runs before a balance write is staged
	beforeSave func()
}

func newMemStore() *memStore {
	return &memStore{customers: make(map[uuid.UUID]crm.Customer)}
}

func (s *memStore) addCustomer(c *crm.Customer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c.ClearDomainEvents()
	s.customers[c.ID] = *c
}

func (s *memStore) customer(id uuid.UUID) crm.Customer {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.customers[id]
}

func (s *memStore) entriesFor(id uuid.UUID) []*crm.BonusTransaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*crm.BonusTransaction
	for _, e := range s.entries {
		if e.CustomerID == id {
			out = append(out, e)
		}
	}
	return out
}

type memTxKey struct{}

// memTx stages writes until the outermost Execute commits
type memTx struct {
	store     *memStore
	customers map[uuid.UUID]crm.Customer
	entries   []*crm.BonusTransaction
	events    []shared.DomainEvent
}

type memScope struct {
	store *memStore
}

func (s *memScope) Execute(ctx context.Context, fn func(ctx context.Context, repos TransactionalRepositories) error) error {
	if tx, ok := ctx.Value(memTxKey{}).(*memTx); ok {
		return fn(ctx, tx)
	}

	tx := &memTx{store: s.store, customers: make(map[uuid.UUID]crm.Customer)}
	if err := fn(context.WithValue(ctx, memTxKey{}, tx), tx); err != nil {
		return err
	}
	return tx.commit()
}

func (tx *memTx) commit() error {
	s := tx.store
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, staged := range tx.customers {
		if s.customers[id].Version != staged.Version-1 {
			return shared.ErrConcurrentModification
		}
	}
	for id, staged := range tx.customers {
		s.customers[id] = staged
	}
	s.entries = append(s.entries, tx.entries...)
	s.published = append(s.published, tx.events...)
	return nil
}

func (tx *memTx) CustomerRepo() crm.CustomerRepository { return &memCustomerRepo{tx: tx} }
func (tx *memTx) BonusTransactionRepo() crm.BonusTransactionRepository { return &memEntryRepo{store: tx.store, tx: tx} }
func (tx *memTx) Events() shared.EventCollector { return tx }
func (tx *memTx) Collect(events ...shared.DomainEvent) { tx.events = append(tx.events, events...) }

type memCustomerRepo struct {
	tx *memTx
}

func (r *memCustomerRepo) FindByID(_ context.Context, id uuid.UUID) (*crm.Customer, error) {
	if c, ok := r.tx.customers[id]; ok {
		return &c, nil
	}
	r.tx.store.mu.Lock()
	defer r.tx.store.mu.Unlock()
	c, ok := r.tx.store.customers[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return &c, nil
}

func (r *memCustomerRepo) ExistsByEmail(context.Context, string) (bool, error) { return false, nil }

func (r *memCustomerRepo) List(context.Context, crm.CustomerFilter) ([]*crm.Customer, int64, error) {
	return nil, 0, nil
}

func (r *memCustomerRepo) Create(_ context.Context, c *crm.Customer) error {
	r.tx.customers[c.ID] = *c
	return nil
}

func (r *memCustomerRepo) SaveWithLock(_ context.Context, c *crm.Customer) error {
	if hook := r.tx.store.beforeSave; hook != nil {
		hook()
	}
	r.tx.store.mu.Lock()
	current := r.tx.store.customers[c.ID]
	r.tx.store.mu.Unlock()
	if current.Version != c.Version-1 {
		return shared.ErrConcurrentModification
	}
	r.tx.customers[c.ID] = *c
	return nil
}

type memEntryRepo struct {
	store *memStore
	tx    *memTx
}

func (r *memEntryRepo) Create(_ context.Context, e *crm.BonusTransaction) error {
	if r.store.failEntryCreate != nil {
		return r.store.failEntryCreate
	}
	r.tx.entries = append(r.tx.entries, e)
	return nil
}

func (r *memEntryRepo) FindByCustomerID(_ context.Context, id uuid.UUID) ([]*crm.BonusTransaction, error) {
	out := r.store.entriesFor(id)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID.String() > out[j].ID.String()
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// memLookup answers existence checks from the committed store
type memLookup struct {
	store *memStore
}

func (l *memLookup) GetByID(_ context.Context, id uuid.UUID) (*crm.CustomerSummary, error) {
	l.store.mu.Lock()
	defer l.store.mu.Unlock()
	c, ok := l.store.customers[id]
	if !ok {
		return nil, shared.ErrNotFound.WithMessage("Customer not found")
	}
	s := c.Summary()
	return &s, nil
}

// =============================================================================
// Mocks
// =============================================================================

// MockCustomerLookup is a mock implementation of CustomerLookup
type MockCustomerLookup struct {
	mock.Mock
}

func (m *MockCustomerLookup) GetByID(ctx context.Context, id uuid.UUID) (*crm.CustomerSummary, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*crm.CustomerSummary), args.Error(1)
}

// MockTransactionScope is a mock implementation of TransactionScope
type MockTransactionScope struct {
	mock.Mock
}

func (m *MockTransactionScope) Execute(ctx context.Context, fn func(ctx context.Context, repos TransactionalRepositories) error) error {
	args := m.Called(ctx, fn)
	return args.Error(0)
}
