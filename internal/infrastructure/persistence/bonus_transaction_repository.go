package persistence

import (
	"context"

	"github.com/erp/bonusledger/internal/domain/crm"
	"github.com/erp/bonusledger/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormBonusTransactionRepository is the append-only ledger store.
// It never updates or deletes rows.
type GormBonusTransactionRepository struct {
	db *gorm.DB
}

// NewGormBonusTransactionRepository creates a new GormBonusTransactionRepository
func NewGormBonusTransactionRepository(db *gorm.DB) *GormBonusTransactionRepository {
	return &GormBonusTransactionRepository{db: db}
}

// Create appends a ledger entry
func (r *GormBonusTransactionRepository) Create(ctx context.Context, entry *crm.BonusTransaction) error {
	model := models.BonusTransactionModelFromDomain(entry)
	return translateError(conn(ctx, r.db).Omit("Customer").Create(model).Error)
}

// FindByCustomerID returns all entries of a customer, newest first
func (r *GormBonusTransactionRepository) FindByCustomerID(ctx context.Context, customerID uuid.UUID) ([]*crm.BonusTransaction, error) {
	var rows []models.BonusTransactionModel
	err := conn(ctx, r.db).
		Where("customer_id = ?", customerID).
		Order("created_at DESC, id DESC").
		Find(&rows).Error
	if err != nil {
		return nil, translateError(err)
	}

	entries := make([]*crm.BonusTransaction, len(rows))
	for i := range rows {
		entries[i] = rows[i].ToDomain()
	}
	return entries, nil
}

var _ crm.BonusTransactionRepository = (*GormBonusTransactionRepository)(nil)
