package invoicing

import (
	"context"

	"github.com/erp/bonusledger/internal/application/ledger"
	"github.com/erp/bonusledger/internal/domain/invoicing"
	"github.com/erp/bonusledger/internal/domain/shared"
	"github.com/erp/bonusledger/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// BonusLedger is the part of the ledger the invoice processor drives
type BonusLedger interface {
	ApplyDelta(ctx context.Context, customerID uuid.UUID, delta decimal.Decimal, description string) (*ledger.CustomerBalance, error)
}

// InvoiceService records sales and returns and moves bonus accordingly
type InvoiceService struct {
	scope       TransactionScope
	ledger      BonusLedger
	invoiceRepo invoicing.InvoiceRepository
	logger      *zap.Logger
}

// NewInvoiceService creates a new InvoiceService
func NewInvoiceService(
	scope TransactionScope,
	bonusLedger BonusLedger,
	invoiceRepo invoicing.InvoiceRepository,
	logger *zap.Logger,
) *InvoiceService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InvoiceService{
		scope:       scope,
		ledger:      bonusLedger,
		invoiceRepo: invoiceRepo,
		logger:      logger,
	}
}

// Create records an invoice. A sale spends its amount from the customer's
// bonus balance and a return refunds it. The invoice is stored only if the
// ledger write succeeds, and both commit together. Ledger errors are
// returned unchanged and never retried here.
func (s *InvoiceService) Create(ctx context.Context, req CreateInvoiceRequest) (_ *InvoiceResponse, err error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "invoice", "create",
		telemetry.WithAttribute(telemetry.SpanAttrCustomerID, req.CustomerID),
		telemetry.WithAttribute(telemetry.SpanAttrInvoiceType, req.Type),
		telemetry.WithAttribute(telemetry.SpanAttrAmount, req.Amount),
	)
	defer func() {
		telemetry.RecordError(span, err)
		span.End()
	}()

	if !req.Amount.IsPositive() {
		return nil, shared.ErrInvalidAmount.WithMessage("Invoice amount must be greater than zero")
	}

	invoiceType, err := invoicing.ParseInvoiceType(req.Type)
	if err != nil {
		return nil, err
	}

	lines := make([]invoicing.LineInput, len(req.Lines))
	for i, l := range req.Lines {
		lines[i] = invoicing.LineInput{
			ProductID: l.ProductID,
			Quantity:  l.Quantity,
			UnitPrice: l.Price,
		}
	}

	invoice, err := invoicing.NewInvoice(req.CustomerID, invoiceType, req.Amount, lines)
	if err != nil {
		return nil, err
	}

	var balance *ledger.CustomerBalance
	err = s.scope.Execute(ctx, func(ctx context.Context, repos TransactionalRepositories) error {
		result, err := s.ledger.ApplyDelta(ctx, invoice.CustomerID, invoice.BonusDelta(), invoice.BonusDescription())
		if err != nil {
			return err
		}
		if err := repos.InvoiceRepo().Create(ctx, invoice); err != nil {
			return err
		}
		repos.Events().Collect(invoice.GetDomainEvents()...)
		invoice.ClearDomainEvents()
		balance = result
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("invoice created",
		zap.String("invoice_id", invoice.ID.String()),
		zap.String("customer_id", invoice.CustomerID.String()),
		zap.String("type", invoice.Type.String()),
		zap.String("amount", invoice.TotalAmount.String()),
	)

	telemetry.SetAttributes(span, telemetry.SpanAttrInvoiceID, invoice.ID)
	response := ToInvoiceResponse(invoice)
	response.BonusBalance = &balance.BonusBalance
	return &response, nil
}

// GetByID returns an invoice with its lines
func (s *InvoiceService) GetByID(ctx context.Context, id uuid.UUID) (*InvoiceResponse, error) {
	invoice, err := s.invoiceRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	response := ToInvoiceResponse(invoice)
	return &response, nil
}

// ListByCustomer returns a customer's invoices, newest first
func (s *InvoiceService) ListByCustomer(ctx context.Context, customerID uuid.UUID, page, pageSize int) ([]InvoiceResponse, int64, error) {
	filter := shared.DefaultFilter()
	if page > 0 {
		filter.Page = page
	}
	if pageSize > 0 {
		filter.PageSize = min(pageSize, 100)
	}

	invoices, total, err := s.invoiceRepo.FindByCustomerID(ctx, customerID, filter)
	if err != nil {
		return nil, 0, err
	}
	return ToInvoiceResponses(invoices), total, nil
}
