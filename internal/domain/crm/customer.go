package crm

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/erp/bonusledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// Customer is the aggregate root of the CRM context.
// BonusBalance is a cached sum of the customer's bonus transactions and is
// only ever changed through ApplyBonusDelta.
type Customer struct {
	shared.BaseAggregateRoot
	Name         string
	Email        string
	BonusBalance decimal.Decimal
}

// NewCustomer creates a customer with a zero bonus balance
func NewCustomer(name, email string) (*Customer, error) {
	name = strings.TrimSpace(name)
	email = NormalizeEmail(email)

	if err := validateCustomerName(name); err != nil {
		return nil, err
	}
	if err := validateEmail(email); err != nil {
		return nil, err
	}

	customer := &Customer{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Name:              name,
		Email:             email,
		BonusBalance:      decimal.Zero,
	}

	customer.AddDomainEvent(NewCustomerCreatedEvent(customer))

	return customer, nil
}

// ApplyBonusDelta changes the bonus balance by delta and returns the ledger
// entry recording the change. The customer is left untouched on error.
func (c *Customer) ApplyBonusDelta(delta decimal.Decimal, description string) (*BonusTransaction, error) {
	if delta.IsZero() {
		return nil, shared.ErrInvalidAmount.WithMessage("Bonus delta cannot be zero")
	}
	if !shared.WithinAmountScale(delta) {
		return nil, shared.ErrInvalidAmount.WithMessage(
			fmt.Sprintf("Bonus delta cannot have more than %d decimal places", shared.AmountScale))
	}
	if delta.IsNegative() && !c.CanSpend(delta.Abs()) {
		return nil, shared.ErrInsufficientBalance.WithMessage(
			fmt.Sprintf("Insufficient bonus balance: available %s, requested %s",
				c.BonusBalance.StringFixed(2), delta.Abs().StringFixed(2)))
	}

	newBalance := c.BonusBalance.Add(delta)
	if newBalance.IsNegative() {
		return nil, shared.ErrBalanceBelowZero
	}

	entry, err := NewBonusTransaction(c.ID, delta, description)
	if err != nil {
		return nil, err
	}

	oldBalance := c.BonusBalance
	c.BonusBalance = newBalance
	c.Touch()
	c.IncrementVersion()

	c.AddDomainEvent(NewBonusBalanceChangedEvent(c, oldBalance, delta, description))

	return entry, nil
}

// CanSpend reports whether amount can be debited from the bonus balance
func (c *Customer) CanSpend(amount decimal.Decimal) bool {
	return !c.BonusBalance.LessThan(amount)
}

// Summary returns the read-only view used for existence checks
func (c *Customer) Summary() CustomerSummary {
	return CustomerSummary{
		ID:           c.ID,
		Name:         c.Name,
		Email:        c.Email,
		BonusBalance: c.BonusBalance,
	}
}

// CustomerSummary is the minimal customer view exposed to other contexts
type CustomerSummary struct {
	ID           uuid.UUID
	Name         string
	Email        string
	BonusBalance decimal.Decimal
}

// NormalizeEmail lowercases and trims an email address for uniqueness checks
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validateCustomerName(name string) error {
	if name == "" {
		return shared.NewDomainError("INVALID_NAME", "Customer name cannot be empty")
	}
	if len(name) > 200 {
		return shared.NewDomainError("INVALID_NAME", "Customer name cannot exceed 200 characters")
	}
	return nil
}

func validateEmail(email string) error {
	if email == "" {
		return shared.NewDomainError("INVALID_EMAIL", "Email cannot be empty")
	}
	if len(email) > 200 {
		return shared.NewDomainError("INVALID_EMAIL", "Email cannot exceed 200 characters")
	}
	if !emailRegex.MatchString(email) {
		return shared.NewDomainError("INVALID_EMAIL", "Invalid email format")
	}
	return nil
}
