package crm

import (
	"context"
	"errors"

	"github.com/erp/bonusledger/internal/domain/crm"
	"github.com/erp/bonusledger/internal/domain/shared"
	"github.com/google/uuid"
)

// CustomerLookup is the read port the bonus ledger uses for existence checks
type CustomerLookup struct {
	customerRepo crm.CustomerRepository
}

// NewCustomerLookup creates a new CustomerLookup
func NewCustomerLookup(customerRepo crm.CustomerRepository) *CustomerLookup {
	return &CustomerLookup{customerRepo: customerRepo}
}

// GetByID returns a summary of the customer or shared.ErrNotFound
func (l *CustomerLookup) GetByID(ctx context.Context, id uuid.UUID) (*crm.CustomerSummary, error) {
	customer, err := l.customerRepo.FindByID(ctx, id)
	if errors.Is(err, shared.ErrNotFound) {
		return nil, shared.ErrNotFound.WithMessage("Customer not found: " + id.String())
	}
	if err != nil {
		return nil, err
	}
	summary := customer.Summary()
	return &summary, nil
}
