package telemetry

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/metric"
)

// ErrMeterNil is returned when a metrics set is built without a meter
var ErrMeterNil = errors.New("telemetry: meter cannot be nil")

// Direction values of the bonus entry counters
const (
	DirectionCredit = "credit"
	DirectionDebit  = "debit"
)

// LedgerMetrics counts bonus ledger activity: entries and absolute amounts
// per direction, and created invoices per type.
type LedgerMetrics struct {
	entriesTotal   *Counter
	amountTotal    *FloatCounter
	invoicesTotal  *Counter
	invoiceAmounts *FloatCounter
}

// NewLedgerMetrics creates the ledger instruments on meter
func NewLedgerMetrics(meter metric.Meter) (*LedgerMetrics, error) {
	if meter == nil {
		return nil, ErrMeterNil
	}

	entriesTotal, err := NewCounter(meter,
		"bonus_ledger_entries_total",
		"Number of bonus ledger entries by direction",
		"{entry}",
	)
	if err != nil {
		return nil, err
	}
	amountTotal, err := NewFloatCounter(meter,
		"bonus_ledger_amount_total",
		"Absolute bonus amount moved by direction",
		"{bonus}",
	)
	if err != nil {
		return nil, err
	}
	invoicesTotal, err := NewCounter(meter,
		"invoices_created_total",
		"Number of invoices created by type",
		"{invoice}",
	)
	if err != nil {
		return nil, err
	}
	invoiceAmounts, err := NewFloatCounter(meter,
		"invoices_amount_total",
		"Sum of invoice totals by type",
		"{currency}",
	)
	if err != nil {
		return nil, err
	}

	return &LedgerMetrics{
		entriesTotal:   entriesTotal,
		amountTotal:    amountTotal,
		invoicesTotal:  invoicesTotal,
		invoiceAmounts: invoiceAmounts,
	}, nil
}

// RecordCredit counts a positive ledger entry
func (m *LedgerMetrics) RecordCredit(ctx context.Context, amount decimal.Decimal) {
	m.record(ctx, DirectionCredit, amount)
}

// RecordDebit counts a negative ledger entry; amount may be passed signed
func (m *LedgerMetrics) RecordDebit(ctx context.Context, amount decimal.Decimal) {
	m.record(ctx, DirectionDebit, amount)
}

// RecordInvoice counts a created invoice
func (m *LedgerMetrics) RecordInvoice(ctx context.Context, invoiceType string, total decimal.Decimal) {
	attr := AttrInvoiceType.String(invoiceType)
	m.invoicesTotal.Inc(ctx, attr)
	m.invoiceAmounts.Add(ctx, total.Abs().InexactFloat64(), attr)
}

func (m *LedgerMetrics) record(ctx context.Context, direction string, amount decimal.Decimal) {
	attr := AttrDirection.String(direction)
	m.entriesTotal.Inc(ctx, attr)
	m.amountTotal.Add(ctx, amount.Abs().InexactFloat64(), attr)
}
