package persistence

import (
	"context"
	"errors"
	"strings"

	"github.com/erp/bonusledger/internal/domain/shared"
	"gorm.io/gorm"
)

// translateError maps driver and GORM errors to domain errors.
// Domain errors pass through unchanged. The message checks cover SQLite
// builds whose dialector does not translate constraint failures.
func translateError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := shared.AsDomainError(err); ok {
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	msg := err.Error()
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return shared.ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey), strings.Contains(msg, "UNIQUE constraint failed"):
		return shared.ErrConstraintViolation.WithMessage("Record violates a uniqueness constraint")
	case errors.Is(err, gorm.ErrForeignKeyViolated), strings.Contains(msg, "FOREIGN KEY constraint failed"):
		return shared.ErrConstraintViolation.WithMessage("Record references a missing row")
	case errors.Is(err, gorm.ErrCheckConstraintViolated),
		strings.Contains(msg, "CHECK constraint failed"),
		strings.Contains(msg, "SQLSTATE 23514"):
		return shared.ErrConstraintViolation.WithMessage("Record violates a check constraint")
	}
	return shared.NewInternalError(err)
}
