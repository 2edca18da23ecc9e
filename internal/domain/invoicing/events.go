package invoicing

import (
	"github.com/erp/bonusledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Aggregate type constant
const AggregateTypeInvoice = "Invoice"

// Event type constants
const (
	EventTypeInvoiceCreated = "InvoiceCreated"
)

// InvoiceCreatedEvent is published after an invoice and its bonus entry are committed
type InvoiceCreatedEvent struct {
	shared.BaseDomainEvent
	InvoiceID   uuid.UUID       `json:"invoice_id"`
	CustomerID  uuid.UUID       `json:"customer_id"`
	Type        InvoiceType     `json:"type"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	LineCount   int             `json:"line_count"`
}

// NewInvoiceCreatedEvent creates a new InvoiceCreatedEvent
func NewInvoiceCreatedEvent(invoice *Invoice) *InvoiceCreatedEvent {
	return &InvoiceCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeInvoiceCreated, AggregateTypeInvoice, invoice.ID),
		InvoiceID:       invoice.ID,
		CustomerID:      invoice.CustomerID,
		Type:            invoice.Type,
		TotalAmount:     invoice.TotalAmount,
		LineCount:       len(invoice.Lines),
	}
}
