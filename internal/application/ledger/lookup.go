package ledger

import (
	"context"

	"github.com/erp/bonusledger/internal/domain/crm"
	"github.com/google/uuid"
)

// CustomerLookup confirms a customer exists.
// GetByID must fail with shared.ErrNotFound when the customer is absent.
type CustomerLookup interface {
	GetByID(ctx context.Context, id uuid.UUID) (*crm.CustomerSummary, error)
}
