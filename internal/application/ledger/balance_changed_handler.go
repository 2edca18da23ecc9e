package ledger

import (
	"context"
	"fmt"

	"github.com/erp/bonusledger/internal/domain/crm"
	"github.com/erp/bonusledger/internal/domain/shared"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// EntryMetrics receives committed ledger entries
type EntryMetrics interface {
	RecordCredit(ctx context.Context, amount decimal.Decimal)
	RecordDebit(ctx context.Context, amount decimal.Decimal)
}

// BalanceChangedHandler writes an audit line for every committed balance
// change and feeds the entry metrics
type BalanceChangedHandler struct {
	logger  *zap.Logger
	metrics EntryMetrics
}

// NewBalanceChangedHandler creates a new BalanceChangedHandler
func NewBalanceChangedHandler(logger *zap.Logger) *BalanceChangedHandler {
	return &BalanceChangedHandler{
		logger: logger.Named("bonus_audit"),
	}
}

// WithMetrics sets the metrics sink
func (h *BalanceChangedHandler) WithMetrics(metrics EntryMetrics) *BalanceChangedHandler {
	h.metrics = metrics
	return h
}

// EventTypes returns the event types this handler is interested in
func (h *BalanceChangedHandler) EventTypes() []string {
	return []string{crm.EventTypeBonusBalanceChanged}
}

// Handle processes a BonusBalanceChangedEvent
func (h *BalanceChangedHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	changed, ok := event.(*crm.BonusBalanceChangedEvent)
	if !ok {
		return fmt.Errorf("unexpected event type: expected %s, got %s",
			crm.EventTypeBonusBalanceChanged, event.EventType())
	}

	h.logger.Info("bonus balance audit",
		zap.String("event_id", changed.EventID().String()),
		zap.String("customer_id", changed.CustomerID.String()),
		zap.String("delta", changed.Delta.String()),
		zap.String("balance_before", changed.BalanceBefore.String()),
		zap.String("balance_after", changed.BalanceAfter.String()),
		zap.String("description", changed.Description),
		zap.Time("occurred_at", changed.OccurredAt()),
	)

	if h.metrics != nil {
		if changed.Delta.IsNegative() {
			h.metrics.RecordDebit(ctx, changed.Delta)
		} else {
			h.metrics.RecordCredit(ctx, changed.Delta)
		}
	}
	return nil
}

var _ shared.EventHandler = (*BalanceChangedHandler)(nil)
