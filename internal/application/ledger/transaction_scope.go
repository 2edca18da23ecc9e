package ledger

import (
	"context"

	"github.com/erp/bonusledger/internal/domain/crm"
	"github.com/erp/bonusledger/internal/domain/shared"
)

// TransactionScope runs ledger writes as one unit of work.
// If fn returns an error everything written through repos is rolled back.
// A scope opened while another one is active on ctx joins the outer
// transaction instead of starting a new one.
type TransactionScope interface {
	Execute(ctx context.Context, fn func(ctx context.Context, repos TransactionalRepositories) error) error
}

// TransactionalRepositories gives access to the stores touched by a ledger write.
// All of them share the transaction carried by the ctx passed to fn.
type TransactionalRepositories interface {
	CustomerRepo() crm.CustomerRepository
	BonusTransactionRepo() crm.BonusTransactionRepository
	Events() shared.EventCollector
}
