package invoicing

import (
	"context"
	"fmt"

	"github.com/erp/bonusledger/internal/domain/invoicing"
	"github.com/erp/bonusledger/internal/domain/shared"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// InvoiceMetrics receives committed invoices
type InvoiceMetrics interface {
	RecordInvoice(ctx context.Context, invoiceType string, total decimal.Decimal)
}

// InvoiceCreatedHandler logs committed invoices and counts them by type
type InvoiceCreatedHandler struct {
	logger  *zap.Logger
	metrics InvoiceMetrics
}

// NewInvoiceCreatedHandler creates a new InvoiceCreatedHandler
func NewInvoiceCreatedHandler(logger *zap.Logger) *InvoiceCreatedHandler {
	return &InvoiceCreatedHandler{logger: logger}
}

// WithMetrics sets the metrics sink
func (h *InvoiceCreatedHandler) WithMetrics(metrics InvoiceMetrics) *InvoiceCreatedHandler {
	h.metrics = metrics
	return h
}

// EventTypes returns the event types this handler is interested in
func (h *InvoiceCreatedHandler) EventTypes() []string {
	return []string{invoicing.EventTypeInvoiceCreated}
}

// Handle processes an InvoiceCreatedEvent
func (h *InvoiceCreatedHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	created, ok := event.(*invoicing.InvoiceCreatedEvent)
	if !ok {
		return fmt.Errorf("unexpected event type: expected %s, got %s",
			invoicing.EventTypeInvoiceCreated, event.EventType())
	}

	h.logger.Info("invoice recorded",
		zap.String("invoice_id", created.InvoiceID.String()),
		zap.String("customer_id", created.CustomerID.String()),
		zap.String("type", created.Type.String()),
		zap.String("total_amount", created.TotalAmount.String()),
		zap.Int("line_count", created.LineCount),
	)

	if h.metrics != nil {
		h.metrics.RecordInvoice(ctx, created.Type.String(), created.TotalAmount)
	}
	return nil
}

var _ shared.EventHandler = (*InvoiceCreatedHandler)(nil)
