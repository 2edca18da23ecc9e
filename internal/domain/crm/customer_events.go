package crm

import (
	"github.com/erp/bonusledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Aggregate type constant
const AggregateTypeCustomer = "Customer"

// Event type constants
const (
	EventTypeCustomerCreated     = "CustomerCreated"
	EventTypeBonusBalanceChanged = "BonusBalanceChanged"
)

// CustomerCreatedEvent is published when a new customer is created
type CustomerCreatedEvent struct {
	shared.BaseDomainEvent
	CustomerID uuid.UUID `json:"customer_id"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
}

// NewCustomerCreatedEvent creates a new CustomerCreatedEvent
func NewCustomerCreatedEvent(customer *Customer) *CustomerCreatedEvent {
	return &CustomerCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeCustomerCreated, AggregateTypeCustomer, customer.ID),
		CustomerID:      customer.ID,
		Name:            customer.Name,
		Email:           customer.Email,
	}
}

// BonusBalanceChangedEvent is published after a ledger entry is committed
type BonusBalanceChangedEvent struct {
	shared.BaseDomainEvent
	CustomerID    uuid.UUID       `json:"customer_id"`
	Delta         decimal.Decimal `json:"delta"`
	BalanceBefore decimal.Decimal `json:"balance_before"`
	BalanceAfter  decimal.Decimal `json:"balance_after"`
	Description   string          `json:"description"`
}

// NewBonusBalanceChangedEvent creates a new BonusBalanceChangedEvent
func NewBonusBalanceChangedEvent(customer *Customer, before, delta decimal.Decimal, description string) *BonusBalanceChangedEvent {
	return &BonusBalanceChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeBonusBalanceChanged, AggregateTypeCustomer, customer.ID),
		CustomerID:      customer.ID,
		Delta:           delta,
		BalanceBefore:   before,
		BalanceAfter:    customer.BonusBalance,
		Description:     description,
	}
}
