package invoicing

import (
	"context"

	"github.com/erp/bonusledger/internal/domain/invoicing"
	"github.com/erp/bonusledger/internal/domain/shared"
)

// TransactionScope runs invoice creation as one unit of work. Ledger calls
// made with the ctx handed to fn join the same transaction.
type TransactionScope interface {
	Execute(ctx context.Context, fn func(ctx context.Context, repos TransactionalRepositories) error) error
}

// TransactionalRepositories provides the invoice store within a transaction
type TransactionalRepositories interface {
	InvoiceRepo() invoicing.InvoiceRepository
	Events() shared.EventCollector
}
