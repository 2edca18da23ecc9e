package models

import (
	"time"

	"github.com/erp/bonusledger/internal/domain/crm"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CustomerModel is the persistence model for the Customer aggregate
type CustomerModel struct {
	AggregateModel
	Name         string          `gorm:"type:varchar(200);not null"`
	Email        string          `gorm:"type:varchar(200);not null;uniqueIndex:idx_customers_email"`
	BonusBalance decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0;check:chk_customers_bonus_balance,bonus_balance >= 0"`
}

// TableName returns the table name for GORM
func (CustomerModel) TableName() string {
	return "customers"
}

// ToDomain converts the persistence model to a domain Customer
func (m *CustomerModel) ToDomain() *crm.Customer {
	return &crm.Customer{
		BaseAggregateRoot: m.ToDomainAggregateRoot(),
		Name:              m.Name,
		Email:             m.Email,
		BonusBalance:      m.BonusBalance,
	}
}

// FromDomain populates the model from a domain Customer
func (m *CustomerModel) FromDomain(c *crm.Customer) {
	m.FromDomainAggregateRoot(c.BaseAggregateRoot)
	m.Name = c.Name
	m.Email = c.Email
	m.BonusBalance = c.BonusBalance
}

// CustomerModelFromDomain creates a persistence model from a domain Customer
func CustomerModelFromDomain(c *crm.Customer) *CustomerModel {
	m := &CustomerModel{}
	m.FromDomain(c)
	return m
}

// BonusTransactionModel is an append-only ledger row. It has no UpdatedAt.
type BonusTransactionModel struct {
	ID          uuid.UUID       `gorm:"type:uuid;primary_key"`
	CustomerID  uuid.UUID       `gorm:"type:uuid;not null;index:idx_bonus_tx_customer_created,priority:1"`
	Amount      decimal.Decimal `gorm:"type:decimal(18,4);not null;check:chk_bonus_tx_amount_nonzero,amount <> 0"`
	Description string          `gorm:"type:varchar(500);not null;default:''"`
	CreatedAt   time.Time       `gorm:"not null;index:idx_bonus_tx_customer_created,priority:2"`

	Customer *CustomerModel `gorm:"foreignKey:CustomerID;constraint:OnDelete:RESTRICT"`
}

// TableName returns the table name for GORM
func (BonusTransactionModel) TableName() string {
	return "bonus_transactions"
}

// ToDomain converts the persistence model to a domain BonusTransaction
func (m *BonusTransactionModel) ToDomain() *crm.BonusTransaction {
	return &crm.BonusTransaction{
		ID:          m.ID,
		CustomerID:  m.CustomerID,
		Amount:      m.Amount,
		Description: m.Description,
		CreatedAt:   m.CreatedAt,
	}
}

// BonusTransactionModelFromDomain creates a persistence model from a ledger entry
func BonusTransactionModelFromDomain(t *crm.BonusTransaction) *BonusTransactionModel {
	return &BonusTransactionModel{
		ID:          t.ID,
		CustomerID:  t.CustomerID,
		Amount:      t.Amount,
		Description: t.Description,
		CreatedAt:   t.CreatedAt,
	}
}
