package crm

import (
	"time"

	"github.com/erp/bonusledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Descriptions written by the ledger
const (
	DescriptionBonusAdded = "Bonus eklendi: "
)

// BonusTransaction is an immutable ledger entry.
// Amount is positive for credits (grants, returns) and negative for debits.
type BonusTransaction struct {
	ID          uuid.UUID
	CustomerID  uuid.UUID
	Amount      decimal.Decimal
	Description string
	CreatedAt   time.Time
}

// NewBonusTransaction creates a ledger entry for a non-zero amount
func NewBonusTransaction(customerID uuid.UUID, amount decimal.Decimal, description string) (*BonusTransaction, error) {
	if customerID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_CUSTOMER", "Customer ID cannot be empty")
	}
	if amount.IsZero() {
		return nil, shared.ErrInvalidAmount.WithMessage("Bonus transaction amount cannot be zero")
	}
	if !shared.WithinAmountScale(amount) {
		return nil, shared.ErrInvalidAmount.WithMessage("Bonus transaction amount has too many decimal places")
	}

	return &BonusTransaction{
		ID:          shared.NewID(),
		CustomerID:  customerID,
		Amount:      amount,
		Description: description,
		CreatedAt:   time.Now(),
	}, nil
}

// IsCredit returns true if the entry increased the balance
func (t *BonusTransaction) IsCredit() bool {
	return t.Amount.IsPositive()
}

// IsDebit returns true if the entry decreased the balance
func (t *BonusTransaction) IsDebit() bool {
	return t.Amount.IsNegative()
}

// SumAmounts returns the balance implied by a set of ledger entries
func SumAmounts(entries []*BonusTransaction) decimal.Decimal {
	total := decimal.Zero
	for _, e := range entries {
		total = total.Add(e.Amount)
	}
	return total
}
