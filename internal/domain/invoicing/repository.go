package invoicing

import (
	"context"

	"github.com/erp/bonusledger/internal/domain/shared"
	"github.com/google/uuid"
)

// InvoiceRepository defines the interface for invoice persistence
type InvoiceRepository interface {
	// Create stores the invoice header and lines
	Create(ctx context.Context, invoice *Invoice) error

	// FindByID loads an invoice with its lines. Returns shared.ErrNotFound if absent.
	FindByID(ctx context.Context, id uuid.UUID) (*Invoice, error)

	// FindByCustomerID lists a customer's invoices, newest first
	FindByCustomerID(ctx context.Context, customerID uuid.UUID, filter shared.Filter) ([]*Invoice, int64, error)
}
