package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/erp/bonusledger/internal/domain/crm"
	"github.com/erp/bonusledger/internal/domain/shared"
	"github.com/erp/bonusledger/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// RetryConfig controls how optimistic-lock conflicts are retried
type RetryConfig struct {
	MaxRetries      int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// DefaultRetryConfig returns the retry policy used when none is configured
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:      3,
		InitialInterval: 10 * time.Millisecond,
		MaxInterval:     200 * time.Millisecond,
	}
}

// Service is the bonus ledger. It is the only writer of customer bonus
// balances and of the bonus transaction log.
type Service struct {
	scope   TransactionScope
	lookup  CustomerLookup
	entries crm.BonusTransactionRepository
	retry   RetryConfig
	logger  *zap.Logger
}

// Option configures a Service
type Option func(*Service)

// WithRetryConfig overrides the conflict retry policy
func WithRetryConfig(cfg RetryConfig) Option {
	return func(s *Service) {
		s.retry = cfg
	}
}

// WithLogger sets the service logger
func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewService creates a new ledger Service
func NewService(
	scope TransactionScope,
	lookup CustomerLookup,
	entries crm.BonusTransactionRepository,
	opts ...Option,
) *Service {
	s := &Service{
		scope:   scope,
		lookup:  lookup,
		entries: entries,
		retry:   DefaultRetryConfig(),
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AddBonus grants a positive bonus amount to a customer
func (s *Service) AddBonus(ctx context.Context, customerID uuid.UUID, amount decimal.Decimal, description string) (*CustomerBalance, error) {
	if !amount.IsPositive() {
		return nil, shared.ErrInvalidAmount.WithMessage("Bonus amount must be greater than zero")
	}
	if !shared.WithinAmountScale(amount) {
		return nil, shared.ErrInvalidAmount.WithMessage(
			fmt.Sprintf("Bonus amount cannot have more than %d decimal places", shared.AmountScale))
	}
	return s.apply(ctx, customerID, amount, crm.DescriptionBonusAdded+description)
}

// ApplyDelta applies a signed change to a customer's bonus balance and
// appends the matching ledger entry in the same transaction.
func (s *Service) ApplyDelta(ctx context.Context, customerID uuid.UUID, delta decimal.Decimal, description string) (*CustomerBalance, error) {
	return s.apply(ctx, customerID, delta, description)
}

// ListTransactions returns a customer's ledger entries, newest first.
// It does not check that the customer exists.
func (s *Service) ListTransactions(ctx context.Context, customerID uuid.UUID) ([]TransactionResponse, error) {
	entries, err := s.entries.FindByCustomerID(ctx, customerID)
	if err != nil {
		return nil, s.translate(ctx, err)
	}
	return ToTransactionResponses(entries), nil
}

func (s *Service) apply(ctx context.Context, customerID uuid.UUID, delta decimal.Decimal, description string) (_ *CustomerBalance, err error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "bonus_ledger", "apply_delta",
		telemetry.WithAttribute(telemetry.SpanAttrCustomerID, customerID),
		telemetry.WithAttribute(telemetry.SpanAttrDelta, delta),
	)
	defer func() {
		telemetry.RecordError(span, err)
		span.End()
	}()

	if _, err := s.lookup.GetByID(ctx, customerID); err != nil {
		return nil, s.translate(ctx, err)
	}

	var updated *crm.Customer
	attempt := 0
	operation := func() error {
		attempt++
		err := s.scope.Execute(ctx, func(ctx context.Context, repos TransactionalRepositories) error {
			customer, err := repos.CustomerRepo().FindByID(ctx, customerID)
			if err != nil {
				return err
			}

			entry, err := customer.ApplyBonusDelta(delta, description)
			if err != nil {
				return err
			}
			if err := repos.CustomerRepo().SaveWithLock(ctx, customer); err != nil {
				return err
			}
			if err := repos.BonusTransactionRepo().Create(ctx, entry); err != nil {
				return err
			}

			repos.Events().Collect(customer.GetDomainEvents()...)
			customer.ClearDomainEvents()
			updated = customer
			return nil
		})
		if errors.Is(err, shared.ErrConcurrentModification) {
			telemetry.AddEvent(span, "optimistic_lock_conflict", telemetry.SpanAttrAttempt, attempt)
			s.logger.Warn("bonus balance update conflicted",
				zap.String("customer_id", customerID.String()),
				zap.Int("attempt", attempt),
			)
			return err
		}
		if err != nil {
			return backoff.Permanent(err)
		}
		return nil
	}

	if err := backoff.Retry(operation, s.newBackOff(ctx)); err != nil {
		return nil, s.translate(ctx, err)
	}

	s.logger.Info("bonus balance changed",
		zap.String("customer_id", customerID.String()),
		zap.String("delta", delta.String()),
		zap.String("balance", updated.BonusBalance.String()),
		zap.Int("version", updated.Version),
	)

	return ToCustomerBalance(updated), nil
}

func (s *Service) newBackOff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = s.retry.InitialInterval
	b.MaxInterval = s.retry.MaxInterval
	b.MaxElapsedTime = 0

	retries := s.retry.MaxRetries
	if retries < 0 {
		retries = 0
	}
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(retries)), ctx)
}

// translate passes domain errors through unchanged and hides anything else
// behind a generic internal error.
func (s *Service) translate(ctx context.Context, err error) error {
	if de, ok := shared.AsDomainError(err); ok {
		if de.Code != shared.CodeInternal {
			s.logger.Info("bonus ledger request rejected",
				zap.String("code", de.Code),
				zap.String("reason", de.Message),
			)
		}
		return de
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	s.logger.Error("bonus ledger failure", zap.Error(err))
	return shared.NewInternalError(err)
}
