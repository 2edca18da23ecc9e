package crm

import (
	"context"

	"github.com/erp/bonusledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CustomerFilter narrows customer listings by bonus balance range
type CustomerFilter struct {
	shared.Filter
	MinBonus *decimal.Decimal
	MaxBonus *decimal.Decimal
}

// CustomerRepository defines the interface for customer persistence
type CustomerRepository interface {
	// FindByID finds a customer by its ID. Returns shared.ErrNotFound if absent.
	FindByID(ctx context.Context, id uuid.UUID) (*Customer, error)

	// ExistsByEmail checks whether an email is already registered
	ExistsByEmail(ctx context.Context, email string) (bool, error)

	// List returns customers matching the filter and the total count
	List(ctx context.Context, filter CustomerFilter) ([]*Customer, int64, error)

	// Create inserts a new customer
	Create(ctx context.Context, customer *Customer) error

	// SaveWithLock writes the balance of a customer whose version was
	// incremented in memory. The write succeeds only if the stored version
	// still equals customer.Version-1; otherwise shared.ErrConcurrentModification.
	SaveWithLock(ctx context.Context, customer *Customer) error
}

// BonusTransactionRepository is the append-only ledger store
type BonusTransactionRepository interface {
	// Create appends a ledger entry
	Create(ctx context.Context, entry *BonusTransaction) error

	// FindByCustomerID returns all entries of a customer, newest first
	FindByCustomerID(ctx context.Context, customerID uuid.UUID) ([]*BonusTransaction, error)
}
