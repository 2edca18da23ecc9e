package persistence

import (
	"context"

	appinvoicing "github.com/erp/bonusledger/internal/application/invoicing"
	"github.com/erp/bonusledger/internal/application/ledger"
	"github.com/erp/bonusledger/internal/domain/crm"
	"github.com/erp/bonusledger/internal/domain/invoicing"
	"github.com/erp/bonusledger/internal/domain/shared"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// GormTransactionScope runs units of work in GORM transactions.
// The transaction travels in the context, so a scope opened inside another
// one joins it and every repository call made with that context shares it.
// Events collected during the unit of work are published after the
// outermost transaction commits; a rollback discards them.
type GormTransactionScope struct {
	db        *gorm.DB
	publisher shared.EventPublisher
	logger    *zap.Logger
}

// NewGormTransactionScope creates a new GormTransactionScope.
// publisher may be nil, in which case collected events are dropped.
func NewGormTransactionScope(db *gorm.DB, publisher shared.EventPublisher, logger *zap.Logger) *GormTransactionScope {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GormTransactionScope{db: db, publisher: publisher, logger: logger}
}

func (s *GormTransactionScope) run(ctx context.Context, fn func(ctx context.Context, repos *gormTransactionalRepositories) error) error {
	if state, ok := txStateFromContext(ctx); ok {
		return fn(ctx, newTransactionalRepositories(s.db, state))
	}

	state := &txState{}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		state.tx = tx
		txCtx := withTxState(ctx, state)
		return fn(txCtx, newTransactionalRepositories(s.db, state))
	})
	if err != nil {
		return translateError(err)
	}

	s.publish(ctx, state.events)
	return nil
}

func (s *GormTransactionScope) publish(ctx context.Context, events []shared.DomainEvent) {
	if s.publisher == nil || len(events) == 0 {
		return
	}
	// Publishing is best effort: the write is already committed.
	if err := s.publisher.Publish(context.WithoutCancel(ctx), events...); err != nil {
		s.logger.Warn("Failed to publish domain events",
			zap.Int("event_count", len(events)),
			zap.Error(err),
		)
	}
}

// Ledger returns the scope as seen by the bonus ledger
func (s *GormTransactionScope) Ledger() *LedgerScope {
	return &LedgerScope{scope: s}
}

// Invoices returns the scope as seen by the invoice processor
func (s *GormTransactionScope) Invoices() *InvoiceScope {
	return &InvoiceScope{scope: s}
}

// LedgerScope implements ledger.TransactionScope
type LedgerScope struct {
	scope *GormTransactionScope
}

// Execute implements ledger.TransactionScope
func (l *LedgerScope) Execute(ctx context.Context, fn func(ctx context.Context, repos ledger.TransactionalRepositories) error) error {
	return l.scope.run(ctx, func(ctx context.Context, repos *gormTransactionalRepositories) error {
		return fn(ctx, repos)
	})
}

// InvoiceScope implements invoicing.TransactionScope
type InvoiceScope struct {
	scope *GormTransactionScope
}

// Execute implements invoicing.TransactionScope
func (i *InvoiceScope) Execute(ctx context.Context, fn func(ctx context.Context, repos appinvoicing.TransactionalRepositories) error) error {
	return i.scope.run(ctx, func(ctx context.Context, repos *gormTransactionalRepositories) error {
		return fn(ctx, repos)
	})
}

// gormTransactionalRepositories provides access to all repositories within a transaction.
// Repositories resolve the transaction from the context passed to them.
type gormTransactionalRepositories struct {
	db    *gorm.DB
	state *txState
}

func newTransactionalRepositories(db *gorm.DB, state *txState) *gormTransactionalRepositories {
	return &gormTransactionalRepositories{db: db, state: state}
}

// CustomerRepo returns the customer repository
func (r *gormTransactionalRepositories) CustomerRepo() crm.CustomerRepository {
	return NewGormCustomerRepository(r.db)
}

// BonusTransactionRepo returns the ledger entry repository
func (r *gormTransactionalRepositories) BonusTransactionRepo() crm.BonusTransactionRepository {
	return NewGormBonusTransactionRepository(r.db)
}

// InvoiceRepo returns the invoice repository
func (r *gormTransactionalRepositories) InvoiceRepo() invoicing.InvoiceRepository {
	return NewGormInvoiceRepository(r.db)
}

// Events returns the collector of the current unit of work
func (r *gormTransactionalRepositories) Events() shared.EventCollector {
	return r.state
}

var (
	_ ledger.TransactionScope                = (*LedgerScope)(nil)
	_ appinvoicing.TransactionScope          = (*InvoiceScope)(nil)
	_ ledger.TransactionalRepositories       = (*gormTransactionalRepositories)(nil)
	_ appinvoicing.TransactionalRepositories = (*gormTransactionalRepositories)(nil)
)
