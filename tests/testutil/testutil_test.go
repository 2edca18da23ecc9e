package testutil

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/erp/bonusledger/internal/domain/crm"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTestUUID(t *testing.T) {
	assert.Equal(t, NewTestUUID("customer-1"), NewTestUUID("customer-1"))
	assert.NotEqual(t, NewTestUUID("customer-1"), NewTestUUID("customer-2"))
}

func TestWaitForCondition(t *testing.T) {
	var n atomic.Int32
	go func() {
		time.Sleep(20 * time.Millisecond)
		n.Store(1)
	}()

	assert.True(t, WaitForCondition(t, func() bool { return n.Load() == 1 }, time.Second, 5*time.Millisecond))
	assert.False(t, WaitForCondition(t, func() bool { return false }, 20*time.Millisecond, 5*time.Millisecond))
}

func TestRecordingEventHandler(t *testing.T) {
	h := NewRecordingEventHandler(crm.EventTypeBonusBalanceChanged)
	assert.Equal(t, []string{crm.EventTypeBonusBalanceChanged}, h.EventTypes())

	customer, err := crm.NewCustomer("Ann", "ann@example.com")
	require.NoError(t, err)
	_, err = customer.ApplyBonusDelta(decimal.NewFromInt(5), "seed")
	require.NoError(t, err)

	for _, e := range customer.GetDomainEvents() {
		require.NoError(t, h.Handle(context.Background(), e))
	}
	assert.True(t, WaitForEventCount(t, h, 1, time.Second))
	assert.Equal(t, customer.GetDomainEvents(), h.Handled())

	h.SetError(errors.New("boom"))
	assert.EqualError(t, h.Handle(context.Background(), customer.GetDomainEvents()[0]), "boom")
}
