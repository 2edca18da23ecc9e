package persistence

import (
	"context"

	"github.com/erp/bonusledger/internal/domain/invoicing"
	"github.com/erp/bonusledger/internal/domain/shared"
	"github.com/erp/bonusledger/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormInvoiceRepository implements InvoiceRepository using GORM
type GormInvoiceRepository struct {
	db *gorm.DB
}

// NewGormInvoiceRepository creates a new GormInvoiceRepository
func NewGormInvoiceRepository(db *gorm.DB) *GormInvoiceRepository {
	return &GormInvoiceRepository{db: db}
}

// Create stores the invoice header and its lines
func (r *GormInvoiceRepository) Create(ctx context.Context, invoice *invoicing.Invoice) error {
	model := models.InvoiceModelFromDomain(invoice)
	return translateError(conn(ctx, r.db).Omit("Customer").Create(model).Error)
}

// FindByID loads an invoice with its lines ordered by line number
func (r *GormInvoiceRepository) FindByID(ctx context.Context, id uuid.UUID) (*invoicing.Invoice, error) {
	var model models.InvoiceModel
	err := conn(ctx, r.db).
		Preload("Lines", orderLines).
		Where("id = ?", id).
		First(&model).Error
	if err != nil {
		return nil, translateError(err)
	}
	return model.ToDomain(), nil
}

// FindByCustomerID lists a customer's invoices with their lines
func (r *GormInvoiceRepository) FindByCustomerID(ctx context.Context, customerID uuid.UUID, filter shared.Filter) ([]*invoicing.Invoice, int64, error) {
	query := conn(ctx, r.db).Model(&models.InvoiceModel{}).Where("customer_id = ?", customerID).
		Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, translateError(err)
	}

	var rows []models.InvoiceModel
	err := query.
		Preload("Lines", orderLines).
		Order(orderClause(filter.OrderBy, filter.OrderDir, InvoiceSortFields)).
		Offset(filter.Offset()).
		Limit(filter.PageSize).
		Find(&rows).Error
	if err != nil {
		return nil, 0, translateError(err)
	}

	invoices := make([]*invoicing.Invoice, len(rows))
	for i := range rows {
		invoices[i] = rows[i].ToDomain()
	}
	return invoices, total, nil
}

func orderLines(db *gorm.DB) *gorm.DB {
	return db.Order("line_no ASC")
}

var _ invoicing.InvoiceRepository = (*GormInvoiceRepository)(nil)
