package persistence

import (
	"context"

	"github.com/erp/bonusledger/internal/domain/shared"
	"gorm.io/gorm"
)

type txKey struct{}

// txState is the unit of work bound to a context: the open transaction and
// the events raised inside it.
type txState struct {
	tx     *gorm.DB
	events []shared.DomainEvent
}

// Collect implements shared.EventCollector
func (s *txState) Collect(events ...shared.DomainEvent) {
	s.events = append(s.events, events...)
}

func withTxState(ctx context.Context, state *txState) context.Context {
	return context.WithValue(ctx, txKey{}, state)
}

func txStateFromContext(ctx context.Context) (*txState, bool) {
	state, ok := ctx.Value(txKey{}).(*txState)
	return state, ok && state.tx != nil
}

// conn returns the transaction bound to ctx, falling back to db
func conn(ctx context.Context, db *gorm.DB) *gorm.DB {
	if state, ok := txStateFromContext(ctx); ok {
		return state.tx.WithContext(ctx)
	}
	return db.WithContext(ctx)
}

// inTransaction reports whether ctx carries an open unit of work
func inTransaction(ctx context.Context) bool {
	_, ok := txStateFromContext(ctx)
	return ok
}
