package invoicing

import (
	"time"

	"github.com/erp/bonusledger/internal/domain/invoicing"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CreateInvoiceRequest represents a request to record a sale or return
type CreateInvoiceRequest struct {
	CustomerID uuid.UUID          `json:"customerId" binding:"required"`
	Type       string             `json:"type"`
	Amount     decimal.Decimal    `json:"amount"`
	Lines      []InvoiceLineInput `json:"lines" binding:"omitempty,dive"`
}

// InvoiceLineInput is one product line of a CreateInvoiceRequest
type InvoiceLineInput struct {
	ProductID uuid.UUID       `json:"productId" binding:"required"`
	Quantity  int             `json:"quantity" binding:"required,gt=0"`
	Price     decimal.Decimal `json:"price"`
}

// InvoiceLineResponse represents an invoice line in API responses
type InvoiceLineResponse struct {
	ID        uuid.UUID       `json:"id"`
	LineNo    int             `json:"line_no"`
	ProductID uuid.UUID       `json:"product_id"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	LineTotal decimal.Decimal `json:"line_total"`
}

// InvoiceResponse represents an invoice in API responses
type InvoiceResponse struct {
	ID           uuid.UUID             `json:"id"`
	CustomerID   uuid.UUID             `json:"customer_id"`
	Type         string                `json:"type"`
	TotalAmount  decimal.Decimal       `json:"total_amount"`
	BonusDelta   decimal.Decimal       `json:"bonus_delta"`
	LinesTotal   decimal.Decimal       `json:"lines_total"`
	BonusBalance *decimal.Decimal      `json:"bonus_balance,omitempty"`
	Lines        []InvoiceLineResponse `json:"lines"`
	CreatedAt    time.Time             `json:"created_at"`
}

// ToInvoiceResponse converts a domain Invoice to InvoiceResponse
func ToInvoiceResponse(inv *invoicing.Invoice) InvoiceResponse {
	lines := make([]InvoiceLineResponse, len(inv.Lines))
	for i, l := range inv.Lines {
		lines[i] = InvoiceLineResponse{
			ID:        l.ID,
			LineNo:    l.LineNo,
			ProductID: l.ProductID,
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice,
			LineTotal: l.LineTotal(),
		}
	}
	return InvoiceResponse{
		ID:          inv.ID,
		CustomerID:  inv.CustomerID,
		Type:        inv.Type.String(),
		TotalAmount: inv.TotalAmount,
		BonusDelta:  inv.BonusDelta(),
		LinesTotal:  inv.LinesTotal(),
		Lines:       lines,
		CreatedAt:   inv.CreatedAt,
	}
}

// ToInvoiceResponses converts a slice of invoices
func ToInvoiceResponses(invoices []*invoicing.Invoice) []InvoiceResponse {
	out := make([]InvoiceResponse, len(invoices))
	for i, inv := range invoices {
		out[i] = ToInvoiceResponse(inv)
	}
	return out
}
