package models

import (
	"github.com/erp/bonusledger/internal/domain/invoicing"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InvoiceModel is the persistence model for the Invoice aggregate
type InvoiceModel struct {
	AggregateModel
	CustomerID  uuid.UUID          `gorm:"type:uuid;not null;index"`
	Type        string             `gorm:"type:varchar(32);not null"`
	TotalAmount decimal.Decimal    `gorm:"type:decimal(18,4);not null"`
	Lines       []InvoiceLineModel `gorm:"foreignKey:InvoiceID;constraint:OnDelete:CASCADE"`

	Customer *CustomerModel `gorm:"foreignKey:CustomerID;constraint:OnDelete:RESTRICT"`
}

// TableName returns the table name for GORM
func (InvoiceModel) TableName() string {
	return "invoices"
}

// ToDomain converts the persistence model to a domain Invoice
func (m *InvoiceModel) ToDomain() *invoicing.Invoice {
	lines := make([]invoicing.InvoiceLine, len(m.Lines))
	for i := range m.Lines {
		lines[i] = m.Lines[i].ToDomain()
	}
	return &invoicing.Invoice{
		BaseAggregateRoot: m.ToDomainAggregateRoot(),
		CustomerID:        m.CustomerID,
		Type:              invoicing.InvoiceType(m.Type),
		TotalAmount:       m.TotalAmount,
		Lines:             lines,
	}
}

// InvoiceModelFromDomain creates a persistence model from a domain Invoice
func InvoiceModelFromDomain(inv *invoicing.Invoice) *InvoiceModel {
	m := &InvoiceModel{
		CustomerID:  inv.CustomerID,
		Type:        inv.Type.String(),
		TotalAmount: inv.TotalAmount,
		Lines:       make([]InvoiceLineModel, len(inv.Lines)),
	}
	m.FromDomainAggregateRoot(inv.BaseAggregateRoot)
	for i, l := range inv.Lines {
		m.Lines[i] = InvoiceLineModel{
			ID:        l.ID,
			InvoiceID: inv.ID,
			LineNo:    l.LineNo,
			ProductID: l.ProductID,
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice,
		}
	}
	return m
}

// InvoiceLineModel is a product line of an invoice
type InvoiceLineModel struct {
	ID        uuid.UUID       `gorm:"type:uuid;primary_key"`
	InvoiceID uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_invoice_lines_invoice_line_no,priority:1"`
	LineNo    int             `gorm:"not null;uniqueIndex:idx_invoice_lines_invoice_line_no,priority:2"`
	ProductID uuid.UUID       `gorm:"type:uuid;not null"`
	Quantity  int             `gorm:"not null"`
	UnitPrice decimal.Decimal `gorm:"type:decimal(18,4);not null"`
}

// TableName returns the table name for GORM
func (InvoiceLineModel) TableName() string {
	return "invoice_lines"
}

// ToDomain converts the persistence model to a domain InvoiceLine
func (m *InvoiceLineModel) ToDomain() invoicing.InvoiceLine {
	return invoicing.InvoiceLine{
		ID:        m.ID,
		InvoiceID: m.InvoiceID,
		LineNo:    m.LineNo,
		ProductID: m.ProductID,
		Quantity:  m.Quantity,
		UnitPrice: m.UnitPrice,
	}
}
