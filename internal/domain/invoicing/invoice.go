package invoicing

import (
	"fmt"

	"github.com/erp/bonusledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InvoiceType is the closed set of invoice kinds
type InvoiceType string

const (
	InvoiceTypeRetailSale      InvoiceType = "RETAIL_SALE"
	InvoiceTypeWholesaleSale   InvoiceType = "WHOLESALE_SALE"
	InvoiceTypeRetailReturn    InvoiceType = "RETAIL_RETURN"
	InvoiceTypeWholesaleReturn InvoiceType = "WHOLESALE_RETURN"
)

// AllInvoiceTypes lists every accepted invoice type
func AllInvoiceTypes() []InvoiceType {
	return []InvoiceType{
		InvoiceTypeRetailSale,
		InvoiceTypeWholesaleSale,
		InvoiceTypeRetailReturn,
		InvoiceTypeWholesaleReturn,
	}
}

// ParseInvoiceType parses an invoice type string. Matching is exact.
func ParseInvoiceType(s string) (InvoiceType, error) {
	for _, t := range AllInvoiceTypes() {
		if string(t) == s {
			return t, nil
		}
	}
	return "", shared.ErrInvalidInvoiceType.WithMessage(fmt.Sprintf("Invalid invoice type: %q", s))
}

// IsSale returns true for sale invoices, which spend bonus
func (t InvoiceType) IsSale() bool {
	return t == InvoiceTypeRetailSale || t == InvoiceTypeWholesaleSale
}

// IsReturn returns true for return invoices, which refund bonus
func (t InvoiceType) IsReturn() bool {
	return t == InvoiceTypeRetailReturn || t == InvoiceTypeWholesaleReturn
}

// String returns the string representation
func (t InvoiceType) String() string {
	return string(t)
}

// InvoiceLine is a product line owned by an invoice
type InvoiceLine struct {
	ID        uuid.UUID
	InvoiceID uuid.UUID
	LineNo    int
	ProductID uuid.UUID
	Quantity  int
	UnitPrice decimal.Decimal
}

// LineTotal returns quantity * unit price
func (l InvoiceLine) LineTotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// LineInput carries the caller-provided fields of a line
type LineInput struct {
	ProductID uuid.UUID
	Quantity  int
	UnitPrice decimal.Decimal
}

// Invoice is a sale or return document. It is immutable once created.
type Invoice struct {
	shared.BaseAggregateRoot
	CustomerID  uuid.UUID
	Type        InvoiceType
	TotalAmount decimal.Decimal
	Lines       []InvoiceLine
}

// NewInvoice builds an invoice with its lines. Nothing is persisted.
func NewInvoice(customerID uuid.UUID, invoiceType InvoiceType, amount decimal.Decimal, lines []LineInput) (*Invoice, error) {
	if !amount.IsPositive() {
		return nil, shared.ErrInvalidAmount.WithMessage("Invoice amount must be greater than zero")
	}
	if !shared.WithinAmountScale(amount) {
		return nil, shared.ErrInvalidAmount.WithMessage(
			fmt.Sprintf("Invoice amount cannot have more than %d decimal places", shared.AmountScale))
	}
	if !invoiceType.IsSale() && !invoiceType.IsReturn() {
		return nil, shared.ErrInvalidInvoiceType.WithMessage(fmt.Sprintf("Invalid invoice type: %q", invoiceType))
	}
	if customerID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_CUSTOMER", "Customer ID cannot be empty")
	}

	invoice := &Invoice{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		CustomerID:        customerID,
		Type:              invoiceType,
		TotalAmount:       amount,
		Lines:             make([]InvoiceLine, 0, len(lines)),
	}

	for i, in := range lines {
		if err := validateLine(i+1, in); err != nil {
			return nil, err
		}
		invoice.Lines = append(invoice.Lines, InvoiceLine{
			ID:        shared.NewID(),
			InvoiceID: invoice.ID,
			LineNo:    i + 1,
			ProductID: in.ProductID,
			Quantity:  in.Quantity,
			UnitPrice: in.UnitPrice,
		})
	}

	invoice.AddDomainEvent(NewInvoiceCreatedEvent(invoice))

	return invoice, nil
}

// BonusDelta returns the signed bonus change this invoice causes:
// sales spend the amount, returns refund it.
func (i *Invoice) BonusDelta() decimal.Decimal {
	if i.Type.IsSale() {
		return i.TotalAmount.Neg()
	}
	return i.TotalAmount
}

// BonusDescription returns the ledger description for this invoice
func (i *Invoice) BonusDescription() string {
	if i.Type.IsSale() {
		return "Bonus harcandı (fatura: " + i.Type.String() + ")"
	}
	return "Bonus iade edildi (fatura: " + i.Type.String() + ")"
}

// LinesTotal returns the sum of line totals
func (i *Invoice) LinesTotal() decimal.Decimal {
	total := decimal.Zero
	for _, l := range i.Lines {
		total = total.Add(l.LineTotal())
	}
	return total
}

func validateLine(lineNo int, in LineInput) error {
	prefix := "Line " + fmt.Sprint(lineNo) + ": "
	if in.ProductID == uuid.Nil {
		return shared.NewDomainError("INVALID_LINE", prefix+"product ID cannot be empty")
	}
	if in.Quantity <= 0 {
		return shared.NewDomainError("INVALID_LINE", prefix+"quantity must be greater than zero")
	}
	if in.UnitPrice.IsNegative() {
		return shared.NewDomainError("INVALID_LINE", prefix+"price cannot be negative")
	}
	if !shared.WithinAmountScale(in.UnitPrice) {
		return shared.ErrInvalidAmount.WithMessage(
			fmt.Sprintf("%sprice cannot have more than %d decimal places", prefix, shared.AmountScale))
	}
	return nil
}
