package ledger

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/erp/bonusledger/internal/domain/crm"
	"github.com/erp/bonusledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func dec(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

type ledgerFixture struct {
	store    *memStore
	service  *Service
	customer *crm.Customer
}

func newLedgerFixture(t *testing.T, opts ...Option) *ledgerFixture {
	t.Helper()

	store := newMemStore()
	customer, err := crm.NewCustomer("Mehmet Kaya", "mehmet@example.com")
	require.NoError(t, err)
	store.addCustomer(customer)

	opts = append([]Option{WithRetryConfig(RetryConfig{MaxRetries: 3, InitialInterval: time.Millisecond, MaxInterval: 5 * time.Millisecond})}, opts...)
	service := NewService(&memScope{store: store}, &memLookup{store: store}, &memEntryRepo{store: store}, opts...)

	return &ledgerFixture{store: store, service: service, customer: customer}
}

func (f *ledgerFixture) assertConsistent(t *testing.T) {
	t.Helper()
	c := f.store.customer(f.customer.ID)
	assert.False(t, c.BonusBalance.IsNegative(), "balance must never be negative")
	assert.True(t, crm.SumAmounts(f.store.entriesFor(c.ID)).Equal(c.BonusBalance),
		"balance %s must equal sum of ledger entries", c.BonusBalance)
}

func TestService_AddBonus(t *testing.T) {
	ctx := context.Background()

	t.Run("grants bonus and records entry", func(t *testing.T) {
		f := newLedgerFixture(t)

		result, err := f.service.AddBonus(ctx, f.customer.ID, dec("500"), "Hoşgeldin")

		require.NoError(t, err)
		assert.True(t, result.BonusBalance.Equal(dec("500")))
		assert.Equal(t, 2, result.Version)

		entries := f.store.entriesFor(f.customer.ID)
		require.Len(t, entries, 1)
		assert.True(t, entries[0].Amount.Equal(dec("500")))
		assert.Equal(t, "Bonus eklendi: Hoşgeldin", entries[0].Description)
		f.assertConsistent(t)
	})

	t.Run("rejects non-positive amounts before touching the store", func(t *testing.T) {
		lookup := new(MockCustomerLookup)
		scope := new(MockTransactionScope)
		service := NewService(scope, lookup, nil)

		for _, amount := range []string{"0", "-5", "0.00001", "12.34567"} {
			_, err := service.AddBonus(ctx, uuid.New(), dec(amount), "x")
			assert.True(t, errors.Is(err, shared.ErrInvalidAmount), amount)
		}

		lookup.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
		scope.AssertNotCalled(t, "Execute", mock.Anything, mock.Anything)
	})

	t.Run("unknown customer fails with not found and changes nothing", func(t *testing.T) {
		lookup := new(MockCustomerLookup)
		scope := new(MockTransactionScope)
		missing := uuid.New()
		lookup.On("GetByID", mock.Anything, missing).Return(nil, shared.ErrNotFound.WithMessage("Customer not found"))
		service := NewService(scope, lookup, nil)

		result, err := service.AddBonus(ctx, missing, dec("100"), "x")

		assert.Nil(t, result)
		assert.True(t, errors.Is(err, shared.ErrNotFound))
		scope.AssertNotCalled(t, "Execute", mock.Anything, mock.Anything)
		lookup.AssertExpectations(t)
	})
}

func TestService_ApplyDelta(t *testing.T) {
	ctx := context.Background()

	t.Run("sale then return keeps ledger and balance in step", func(t *testing.T) {
		f := newLedgerFixture(t)

		_, err := f.service.AddBonus(ctx, f.customer.ID, dec("500"), "Hoşgeldin")
		require.NoError(t, err)

		result, err := f.service.ApplyDelta(ctx, f.customer.ID, dec("-200"), "Bonus harcandı (fatura: RETAIL_SALE)")
		require.NoError(t, err)
		assert.True(t, result.BonusBalance.Equal(dec("300")))

		result, err = f.service.ApplyDelta(ctx, f.customer.ID, dec("50"), "Bonus iade edildi (fatura: RETAIL_RETURN)")
		require.NoError(t, err)
		assert.True(t, result.BonusBalance.Equal(dec("350")))
		assert.Equal(t, 4, result.Version)

		entries := f.store.entriesFor(f.customer.ID)
		require.Len(t, entries, 3)
		assert.True(t, entries[1].Amount.Equal(dec("-200")))
		assert.True(t, entries[2].Amount.Equal(dec("50")))
		f.assertConsistent(t)
	})

	t.Run("insufficient balance leaves no trace", func(t *testing.T) {
		f := newLedgerFixture(t)
		_, err := f.service.AddBonus(ctx, f.customer.ID, dec("350"), "seed")
		require.NoError(t, err)

		result, err := f.service.ApplyDelta(ctx, f.customer.ID, dec("-1000"), "Bonus harcandı (fatura: RETAIL_SALE)")

		assert.Nil(t, result)
		assert.True(t, errors.Is(err, shared.ErrInsufficientBalance))
		assert.True(t, f.store.customer(f.customer.ID).BonusBalance.Equal(dec("350")))
		assert.Len(t, f.store.entriesFor(f.customer.ID), 1)
		f.assertConsistent(t)
	})

	t.Run("failed ledger append rolls back the balance", func(t *testing.T) {
		f := newLedgerFixture(t)
		f.store.failEntryCreate = errors.New("insert bonus transaction: disk full")

		result, err := f.service.ApplyDelta(ctx, f.customer.ID, dec("100"), "x")

		assert.Nil(t, result)
		de, ok := shared.AsDomainError(err)
		require.True(t, ok)
		assert.Equal(t, shared.CodeInternal, de.Code)
		assert.Contains(t, de.Message, "disk full")

		c := f.store.customer(f.customer.ID)
		assert.True(t, c.BonusBalance.IsZero())
		assert.Equal(t, 1, c.Version)
		assert.Empty(t, f.store.entriesFor(f.customer.ID))
	})

	t.Run("zero delta is rejected", func(t *testing.T) {
		f := newLedgerFixture(t)

		_, err := f.service.ApplyDelta(ctx, f.customer.ID, decimal.Zero, "x")

		assert.True(t, errors.Is(err, shared.ErrInvalidAmount))
		assert.Empty(t, f.store.entriesFor(f.customer.ID))
	})

	t.Run("sub-scale delta is rejected and leaves balance equal to ledger sum", func(t *testing.T) {
		f := newLedgerFixture(t)
		_, err := f.service.AddBonus(ctx, f.customer.ID, dec("1"), "x")
		require.NoError(t, err)

		for _, d := range []string{"-0.00005", "0.00004"} {
			_, err := f.service.ApplyDelta(ctx, f.customer.ID, dec(d), "x")
			assert.True(t, errors.Is(err, shared.ErrInvalidAmount), d)
		}

		assert.Len(t, f.store.entriesFor(f.customer.ID), 1)
		assert.True(t, f.store.customer(f.customer.ID).BonusBalance.Equal(dec("1")))
		f.assertConsistent(t)
	})

	t.Run("events are published only after commit", func(t *testing.T) {
		f := newLedgerFixture(t)

		_, err := f.service.ApplyDelta(ctx, f.customer.ID, dec("10"), "x")
		require.NoError(t, err)
		_, err = f.service.ApplyDelta(ctx, f.customer.ID, dec("-20"), "x")
		require.Error(t, err)

		require.Len(t, f.store.published, 1)
		evt, ok := f.store.published[0].(*crm.BonusBalanceChangedEvent)
		require.True(t, ok)
		assert.True(t, evt.Delta.Equal(dec("10")))
	})

	t.Run("unknown customer", func(t *testing.T) {
		f := newLedgerFixture(t)

		_, err := f.service.ApplyDelta(ctx, uuid.New(), dec("-1"), "x")

		assert.True(t, errors.Is(err, shared.ErrNotFound))
	})
}

func TestService_ApplyDelta_ConcurrentDebits(t *testing.T) {
	ctx := context.Background()
	f := newLedgerFixture(t)
	_, err := f.service.AddBonus(ctx, f.customer.ID, dec("150"), "seed")
	require.NoError(t, err)

	// Hold the first two attempts until both have read the same version.
	var arrivals int32
	var barrier sync.WaitGroup
	barrier.Add(2)
	f.store.beforeSave = func() {
		if atomic.AddInt32(&arrivals, 1) <= 2 {
			barrier.Done()
			barrier.Wait()
		}
	}

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.service.ApplyDelta(ctx, f.customer.ID, dec("-100"), "Bonus harcandı (fatura: RETAIL_SALE)")
		}(i)
	}
	wg.Wait()

	successes := 0
	for _, err := range errs {
		if err == nil {
			successes++
			continue
		}
		assert.True(t,
			errors.Is(err, shared.ErrInsufficientBalance) || errors.Is(err, shared.ErrConcurrentModification),
			"unexpected error: %v", err)
	}

	assert.Equal(t, 1, successes)
	assert.True(t, f.store.customer(f.customer.ID).BonusBalance.Equal(dec("50")))
	assert.Len(t, f.store.entriesFor(f.customer.ID), 2)
	f.assertConsistent(t)
}

func TestService_ApplyDelta_ManyConcurrentWriters(t *testing.T) {
	ctx := context.Background()
	f := newLedgerFixture(t, WithRetryConfig(RetryConfig{MaxRetries: 50, InitialInterval: time.Millisecond, MaxInterval: 2 * time.Millisecond}))
	_, err := f.service.AddBonus(ctx, f.customer.ID, dec("100"), "seed")
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			delta := dec("-15")
			if i%2 == 0 {
				delta = dec("10")
			}
			_, _ = f.service.ApplyDelta(ctx, f.customer.ID, delta, "x")
		}(i)
	}
	wg.Wait()

	f.assertConsistent(t)
}

func TestService_ApplyDelta_RetriesExhausted(t *testing.T) {
	ctx := context.Background()
	f := newLedgerFixture(t, WithRetryConfig(RetryConfig{MaxRetries: 2, InitialInterval: time.Millisecond, MaxInterval: time.Millisecond}))

	// Every attempt sees a concurrent writer bump the version after its read.
	var attempts int32
	f.store.beforeSave = func() {
		atomic.AddInt32(&attempts, 1)
		f.store.mu.Lock()
		c := f.store.customers[f.customer.ID]
		c.Version++
		f.store.customers[f.customer.ID] = c
		f.store.mu.Unlock()
	}

	_, err := f.service.ApplyDelta(ctx, f.customer.ID, dec("5"), "x")

	assert.True(t, errors.Is(err, shared.ErrConcurrentModification))
	assert.Equal(t, int32(3), atomic.LoadInt32(&attempts))
	assert.Empty(t, f.store.entriesFor(f.customer.ID))
}

func TestService_ListTransactions(t *testing.T) {
	ctx := context.Background()
	f := newLedgerFixture(t)

	empty, err := f.service.ListTransactions(ctx, uuid.New())
	require.NoError(t, err)
	assert.Empty(t, empty)

	for _, d := range []string{"500", "-200", "50"} {
		_, err := f.service.ApplyDelta(ctx, f.customer.ID, dec(d), "x")
		require.NoError(t, err)
	}

	first, err := f.service.ListTransactions(ctx, f.customer.ID)
	require.NoError(t, err)
	second, err := f.service.ListTransactions(ctx, f.customer.ID)
	require.NoError(t, err)

	require.Len(t, first, 3)
	assert.Equal(t, first, second)
	assert.True(t, first[0].Amount.Equal(dec("50")), "newest first")
	assert.True(t, first[2].Amount.Equal(dec("500")))
}
