package scheduler

import (
	"context"
	"fmt"

	"github.com/erp/bonusledger/internal/domain/crm"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

// Audit outcomes
const (
	AuditOutcomeConsistent = "consistent"
	AuditOutcomeMismatch   = "mismatch"
	AuditOutcomeSkipped    = "skipped"
)

// AuditMetrics counts audited customers by outcome
type AuditMetrics struct {
	Audits *prometheus.CounterVec
}

// NewAuditMetrics registers the audit counters on reg
func NewAuditMetrics(reg prometheus.Registerer) *AuditMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	return &AuditMetrics{
		Audits: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "bonus_ledger_audits_total",
				Help: "Customers whose cached balance was compared with their ledger, by outcome",
			},
			[]string{"outcome"},
		),
	}
}

func (m *AuditMetrics) inc(outcome string) {
	if m == nil {
		return
	}
	m.Audits.WithLabelValues(outcome).Inc()
}

// LedgerAuditor compares a customer's cached balance with the sum of its
// ledger entries. A mismatch is reported, never repaired.
type LedgerAuditor struct {
	customers crm.CustomerRepository
	entries   crm.BonusTransactionRepository
	metrics   *AuditMetrics
	logger    *zap.Logger
}

// NewLedgerAuditor creates a LedgerAuditor
func NewLedgerAuditor(
	customers crm.CustomerRepository,
	entries crm.BonusTransactionRepository,
	metrics *AuditMetrics,
	logger *zap.Logger,
) *LedgerAuditor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LedgerAuditor{
		customers: customers,
		entries:   entries,
		metrics:   metrics,
		logger:    logger.Named("ledger_audit"),
	}
}

// Execute implements JobExecutor
func (a *LedgerAuditor) Execute(ctx context.Context, job *Job) error {
	_, err := a.Audit(ctx, job.CustomerID)
	return err
}

// Audit checks one customer and returns the outcome
func (a *LedgerAuditor) Audit(ctx context.Context, customerID uuid.UUID) (string, error) {
	customer, err := a.customers.FindByID(ctx, customerID)
	if err != nil {
		return "", fmt.Errorf("load customer: %w", err)
	}
	entries, err := a.entries.FindByCustomerID(ctx, customerID)
	if err != nil {
		return "", fmt.Errorf("load ledger: %w", err)
	}

	sum := crm.SumAmounts(entries)
	if sum.Equal(customer.BonusBalance) {
		a.metrics.inc(AuditOutcomeConsistent)
		return AuditOutcomeConsistent, nil
	}

	// A write that committed between the two reads also shows up as a
	// difference; only a version that held still counts as a mismatch.
	current, err := a.customers.FindByID(ctx, customerID)
	if err != nil {
		return "", fmt.Errorf("reload customer: %w", err)
	}
	if current.Version != customer.Version {
		a.metrics.inc(AuditOutcomeSkipped)
		return AuditOutcomeSkipped, nil
	}

	credits, debits := 0, 0
	for _, e := range entries {
		switch {
		case e.IsCredit():
			credits++
		case e.IsDebit():
			debits++
		}
	}

	a.metrics.inc(AuditOutcomeMismatch)
	a.logger.Error("Bonus balance does not match ledger",
		zap.String("customer_id", customerID.String()),
		zap.String("balance", customer.BonusBalance.String()),
		zap.String("ledger_sum", sum.String()),
		zap.Int("credits", credits),
		zap.Int("debits", debits),
	)
	return AuditOutcomeMismatch, nil
}
