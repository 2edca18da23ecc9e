package crm

import (
	"context"

	"github.com/erp/bonusledger/internal/domain/crm"
	"github.com/erp/bonusledger/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const maxPageSize = 100

// CustomerService handles customer registration and queries
type CustomerService struct {
	customerRepo   crm.CustomerRepository
	eventPublisher shared.EventPublisher
	logger         *zap.Logger
}

// NewCustomerService creates a new CustomerService
func NewCustomerService(customerRepo crm.CustomerRepository, logger *zap.Logger) *CustomerService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CustomerService{
		customerRepo: customerRepo,
		logger:       logger,
	}
}

// SetEventPublisher sets the publisher used for CustomerCreated events
func (s *CustomerService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// Create registers a new customer with a zero bonus balance
func (s *CustomerService) Create(ctx context.Context, req CreateCustomerRequest) (*CustomerResponse, error) {
	customer, err := crm.NewCustomer(req.Name, req.Email)
	if err != nil {
		return nil, err
	}

	exists, err := s.customerRepo.ExistsByEmail(ctx, customer.Email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, shared.ErrAlreadyExists.WithMessage("Email is already registered")
	}

	// A concurrent registration of the same email still fails on the unique index
	if err := s.customerRepo.Create(ctx, customer); err != nil {
		return nil, err
	}

	s.publish(ctx, customer)

	response := ToCustomerResponse(customer)
	return &response, nil
}

// GetByID returns a customer by ID
func (s *CustomerService) GetByID(ctx context.Context, id uuid.UUID) (*CustomerResponse, error) {
	customer, err := s.customerRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	response := ToCustomerResponse(customer)
	return &response, nil
}

// List returns customers, optionally restricted to a bonus balance range
func (s *CustomerService) List(ctx context.Context, filter CustomerListFilter) ([]CustomerResponse, int64, error) {
	if filter.MinBonus != nil && filter.MaxBonus != nil && filter.MinBonus.GreaterThan(*filter.MaxBonus) {
		return nil, 0, shared.ErrInvalidInput.WithMessage("minBonus cannot be greater than maxBonus")
	}

	domainFilter := crm.CustomerFilter{
		Filter:   shared.DefaultFilter(),
		MinBonus: filter.MinBonus,
		MaxBonus: filter.MaxBonus,
	}
	if filter.Page > 0 {
		domainFilter.Page = filter.Page
	}
	if filter.PageSize > 0 {
		domainFilter.PageSize = min(filter.PageSize, maxPageSize)
	}

	customers, total, err := s.customerRepo.List(ctx, domainFilter)
	if err != nil {
		return nil, 0, err
	}
	return ToCustomerResponses(customers), total, nil
}

func (s *CustomerService) publish(ctx context.Context, customer *crm.Customer) {
	events := customer.GetDomainEvents()
	customer.ClearDomainEvents()
	if s.eventPublisher == nil || len(events) == 0 {
		return
	}
	if err := s.eventPublisher.Publish(ctx, events...); err != nil {
		s.logger.Warn("failed to publish customer events",
			zap.String("customer_id", customer.ID.String()),
			zap.Error(err),
		)
	}
}
