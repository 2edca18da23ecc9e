package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/erp/bonusledger/internal/domain/shared"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// ErrStoreUnavailable is returned while the breaker around a store is open
var ErrStoreUnavailable = errors.New("idempotency store unavailable")

// BreakerConfig configures the circuit breaker around a remote store
type BreakerConfig struct {
	Name             string
	MaxRequests      uint32        // requests allowed in half-open state
	Interval         time.Duration // window for clearing failure counts
	Timeout          time.Duration // open -> half-open delay
	FailureThreshold uint32        // consecutive failures that trip the breaker
}

// DefaultBreakerConfig returns defaults for the Redis idempotency store
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		Name:             "redis-idempotency",
		MaxRequests:      1,
		Interval:         time.Minute,
		Timeout:          10 * time.Second,
		FailureThreshold: 5,
	}
}

// BreakerIdempotencyStore fails fast once the wrapped store keeps erroring,
// instead of stalling every request on a dead Redis.
type BreakerIdempotencyStore struct {
	next shared.IdempotencyStore
	cb   *gobreaker.CircuitBreaker
}

// NewBreakerIdempotencyStore wraps next with a circuit breaker
func NewBreakerIdempotencyStore(next shared.IdempotencyStore, cfg BreakerConfig, logger *zap.Logger) *BreakerIdempotencyStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("Circuit breaker state changed",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
		// context cancellation is the caller's doing, not the store's
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
	}
	return &BreakerIdempotencyStore{next: next, cb: gobreaker.NewCircuitBreaker(settings)}
}

// MarkProcessed implements shared.IdempotencyStore
func (s *BreakerIdempotencyStore) MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	result, err := s.cb.Execute(func() (any, error) {
		return s.next.MarkProcessed(ctx, key, ttl)
	})
	if err != nil {
		return false, s.wrap(err)
	}
	return result.(bool), nil
}

// IsProcessed implements shared.IdempotencyStore
func (s *BreakerIdempotencyStore) IsProcessed(ctx context.Context, key string) (bool, error) {
	result, err := s.cb.Execute(func() (any, error) {
		return s.next.IsProcessed(ctx, key)
	})
	if err != nil {
		return false, s.wrap(err)
	}
	return result.(bool), nil
}

// Release implements shared.IdempotencyStore
func (s *BreakerIdempotencyStore) Release(ctx context.Context, key string) error {
	_, err := s.cb.Execute(func() (any, error) {
		return nil, s.next.Release(ctx, key)
	})
	return s.wrap(err)
}

// Close closes the wrapped store
func (s *BreakerIdempotencyStore) Close() error {
	return s.next.Close()
}

// Ping checks the wrapped store through the breaker. Stores without a
// Ping method are always reachable.
func (s *BreakerIdempotencyStore) Ping(ctx context.Context) error {
	pinger, ok := s.next.(interface{ Ping(context.Context) error })
	if !ok {
		return nil
	}
	_, err := s.cb.Execute(func() (any, error) {
		return nil, pinger.Ping(ctx)
	})
	return s.wrap(err)
}

// State returns the breaker state
func (s *BreakerIdempotencyStore) State() gobreaker.State {
	return s.cb.State()
}

func (s *BreakerIdempotencyStore) wrap(err error) error {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: %s", ErrStoreUnavailable, s.cb.Name())
	}
	return err
}

var _ shared.IdempotencyStore = (*BreakerIdempotencyStore)(nil)
