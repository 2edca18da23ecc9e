package ledger

import (
	"time"

	"github.com/erp/bonusledger/internal/domain/crm"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CustomerBalance is the customer state returned after a ledger write
type CustomerBalance struct {
	CustomerID   uuid.UUID       `json:"customer_id"`
	Name         string          `json:"name"`
	Email        string          `json:"email"`
	BonusBalance decimal.Decimal `json:"bonus_balance"`
	Version      int             `json:"version"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// TransactionResponse is a ledger entry as exposed to callers
type TransactionResponse struct {
	ID          uuid.UUID       `json:"id"`
	CustomerID  uuid.UUID       `json:"customer_id"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
	CreatedAt   time.Time       `json:"created_at"`
}

// ToCustomerBalance converts a domain customer to a CustomerBalance
func ToCustomerBalance(c *crm.Customer) *CustomerBalance {
	return &CustomerBalance{
		CustomerID:   c.ID,
		Name:         c.Name,
		Email:        c.Email,
		BonusBalance: c.BonusBalance,
		Version:      c.Version,
		UpdatedAt:    c.UpdatedAt,
	}
}

// ToTransactionResponses converts ledger entries, keeping their order
func ToTransactionResponses(entries []*crm.BonusTransaction) []TransactionResponse {
	out := make([]TransactionResponse, len(entries))
	for i, e := range entries {
		out[i] = TransactionResponse{
			ID:          e.ID,
			CustomerID:  e.CustomerID,
			Amount:      e.Amount,
			Description: e.Description,
			CreatedAt:   e.CreatedAt,
		}
	}
	return out
}
