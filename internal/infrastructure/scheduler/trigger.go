package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/erp/bonusledger/internal/domain/crm"
	"github.com/erp/bonusledger/internal/domain/shared"
	"go.uber.org/zap"
)

// CustomerLister pages through customers
type CustomerLister interface {
	List(ctx context.Context, filter crm.CustomerFilter) ([]*crm.Customer, int64, error)
}

// TriggerConfig holds configuration for the periodic audit trigger
type TriggerConfig struct {
	Interval time.Duration
	PageSize int
}

// DefaultTriggerConfig returns default trigger configuration
func DefaultTriggerConfig() TriggerConfig {
	return TriggerConfig{
		Interval: time.Hour,
		PageSize: 100,
	}
}

// Trigger submits an audit job for every customer once per interval
type Trigger struct {
	config    TriggerConfig
	scheduler *Scheduler
	customers CustomerLister
	logger    *zap.Logger

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
}

// NewTrigger creates a new trigger
func NewTrigger(config TriggerConfig, scheduler *Scheduler, customers CustomerLister, logger *zap.Logger) *Trigger {
	if config.PageSize <= 0 {
		config.PageSize = DefaultTriggerConfig().PageSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Trigger{
		config:    config,
		scheduler: scheduler,
		customers: customers,
		logger:    logger.Named("audit_trigger"),
	}
}

// Start starts the trigger loop
func (t *Trigger) Start(ctx context.Context) error {
	if t.config.Interval <= 0 {
		return ErrInvalidConfig
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.isRunning {
		return nil
	}
	t.isRunning = true

	ctx, cancel := context.WithCancel(ctx)
	t.cancel = cancel

	t.wg.Add(1)
	go t.runLoop(ctx)

	t.logger.Info("Audit trigger started", zap.Duration("interval", t.config.Interval))
	return nil
}

// Stop stops the trigger loop
func (t *Trigger) Stop(ctx context.Context) error {
	t.mu.Lock()
	if !t.isRunning {
		t.mu.Unlock()
		return nil
	}
	t.isRunning = false
	t.mu.Unlock()

	if t.cancel != nil {
		t.cancel()
	}

	done := make(chan struct{})
	go func() {
		t.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		t.logger.Info("Audit trigger stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (t *Trigger) runLoop(ctx context.Context) {
	defer t.wg.Done()

	ticker := time.NewTicker(t.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			submitted, err := t.RunOnce(ctx)
			if err != nil && !errors.Is(err, context.Canceled) {
				t.logger.Warn("Audit sweep incomplete", zap.Int("submitted", submitted), zap.Error(err))
				continue
			}
			t.logger.Info("Audit sweep submitted", zap.Int("jobs", submitted))
		}
	}
}

// RunOnce submits one job per customer and returns how many were queued.
// It stops at the first listing or queue error.
func (t *Trigger) RunOnce(ctx context.Context) (int, error) {
	filter := crm.CustomerFilter{
		Filter: shared.Filter{Page: 1, PageSize: t.config.PageSize, OrderBy: "created_at", OrderDir: "asc"},
	}

	submitted := 0
	for {
		if err := ctx.Err(); err != nil {
			return submitted, err
		}
		customers, total, err := t.customers.List(ctx, filter)
		if err != nil {
			return submitted, err
		}
		for _, c := range customers {
			if err := t.scheduler.SubmitJob(NewJob(c.ID, t.scheduler.config.RetryAttempts)); err != nil {
				return submitted, err
			}
			submitted++
		}
		if len(customers) == 0 || int64(filter.Page*filter.PageSize) >= total {
			return submitted, nil
		}
		filter.Page++
	}
}
