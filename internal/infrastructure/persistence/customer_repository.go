package persistence

import (
	"context"
	"time"

	"github.com/erp/bonusledger/internal/domain/crm"
	"github.com/erp/bonusledger/internal/domain/shared"
	"github.com/erp/bonusledger/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormCustomerRepository implements CustomerRepository using GORM
type GormCustomerRepository struct {
	db *gorm.DB
}

// NewGormCustomerRepository creates a new GormCustomerRepository
func NewGormCustomerRepository(db *gorm.DB) *GormCustomerRepository {
	return &GormCustomerRepository{db: db}
}

// FindByID finds a customer by ID
func (r *GormCustomerRepository) FindByID(ctx context.Context, id uuid.UUID) (*crm.Customer, error) {
	var model models.CustomerModel
	if err := conn(ctx, r.db).Where("id = ?", id).First(&model).Error; err != nil {
		return nil, translateError(err)
	}
	return model.ToDomain(), nil
}

// ExistsByEmail checks if a customer with the given email exists
func (r *GormCustomerRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var count int64
	err := conn(ctx, r.db).Model(&models.CustomerModel{}).
		Where("email = ?", crm.NormalizeEmail(email)).
		Count(&count).Error
	if err != nil {
		return false, translateError(err)
	}
	return count > 0, nil
}

// List returns a page of customers and the total number of matches
func (r *GormCustomerRepository) List(ctx context.Context, filter crm.CustomerFilter) ([]*crm.Customer, int64, error) {
	query := conn(ctx, r.db).Model(&models.CustomerModel{})
	if filter.MinBonus != nil {
		query = query.Where("bonus_balance >= ?", *filter.MinBonus)
	}
	if filter.MaxBonus != nil {
		query = query.Where("bonus_balance <= ?", *filter.MaxBonus)
	}
	query = query.Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, translateError(err)
	}

	var rows []models.CustomerModel
	err := query.
		Order(orderClause(filter.OrderBy, filter.OrderDir, CustomerSortFields)).
		Offset(filter.Offset()).
		Limit(filter.PageSize).
		Find(&rows).Error
	if err != nil {
		return nil, 0, translateError(err)
	}

	customers := make([]*crm.Customer, len(rows))
	for i := range rows {
		customers[i] = rows[i].ToDomain()
	}
	return customers, total, nil
}

// Create inserts a new customer. A duplicate email surfaces as ErrConstraintViolation.
func (r *GormCustomerRepository) Create(ctx context.Context, customer *crm.Customer) error {
	model := models.CustomerModelFromDomain(customer)
	return translateError(conn(ctx, r.db).Create(model).Error)
}

// SaveWithLock saves a customer with optimistic locking (version check).
// Returns ErrConcurrentModification if the stored version is no longer
// customer.Version-1.
func (r *GormCustomerRepository) SaveWithLock(ctx context.Context, customer *crm.Customer) error {
	updatedAt := customer.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now()
	}
	result := conn(ctx, r.db).
		Model(&models.CustomerModel{}).
		Where("id = ? AND version = ?", customer.ID, customer.Version-1).
		Updates(map[string]any{
			"bonus_balance": customer.BonusBalance,
			"version":       customer.Version,
			"updated_at":    updatedAt,
		})

	if result.Error != nil {
		return translateError(result.Error)
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrentModification.WithMessage("The customer record has been modified by another transaction")
	}
	return nil
}

var _ crm.CustomerRepository = (*GormCustomerRepository)(nil)
