package persistence

import (
	"errors"
	"fmt"
	"testing"

	"github.com/erp/bonusledger/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestTranslateError(t *testing.T) {
	tests := []struct {
		name string
		in   error
		want error
	}{
		{"nil", nil, nil},
		{"record not found", fmt.Errorf("query: %w", gorm.ErrRecordNotFound), shared.ErrNotFound},
		{"duplicated key", gorm.ErrDuplicatedKey, shared.ErrConstraintViolation},
		{"foreign key", gorm.ErrForeignKeyViolated, shared.ErrConstraintViolation},
		{"sqlite check", errors.New("CHECK constraint failed: chk_customers_bonus_balance"), shared.ErrConstraintViolation},
		{"domain error passes through", shared.ErrConcurrentModification, shared.ErrConcurrentModification},
		{"unknown becomes internal", errors.New("connection reset"), shared.ErrInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := translateError(tt.in)
			if tt.want == nil {
				assert.NoError(t, got)
				return
			}
			assert.ErrorIs(t, got, tt.want)
		})
	}
}
