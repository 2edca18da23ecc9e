package handler

import (
	"context"

	crmapp "github.com/erp/bonusledger/internal/application/crm"
	"github.com/erp/bonusledger/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CustomerService is the customer use case surface used by the HTTP layer
type CustomerService interface {
	Create(ctx context.Context, req crmapp.CreateCustomerRequest) (*crmapp.CustomerResponse, error)
	GetByID(ctx context.Context, id uuid.UUID) (*crmapp.CustomerResponse, error)
	List(ctx context.Context, filter crmapp.CustomerListFilter) ([]crmapp.CustomerResponse, int64, error)
}

// CustomerHandler handles customer registration and queries
type CustomerHandler struct {
	BaseHandler
	customers CustomerService
}

// NewCustomerHandler creates a new CustomerHandler
func NewCustomerHandler(customers CustomerService) *CustomerHandler {
	return &CustomerHandler{customers: customers}
}

// CustomerListQuery holds the query parameters of GET /customers
type CustomerListQuery struct {
	dto.ListRequest
	MinBonus string `form:"minBonus"`
	MaxBonus string `form:"maxBonus"`
}

// Create registers a customer.
// POST /api/v1/customers
func (h *CustomerHandler) Create(c *gin.Context) {
	var req crmapp.CreateCustomerRequest
	if !h.BindJSON(c, &req) {
		return
	}

	customer, err := h.customers.Create(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, customer)
}

// GetByID returns a customer with its current bonus balance.
// GET /api/v1/customers/:id
func (h *CustomerHandler) GetByID(c *gin.Context) {
	id, ok := h.ParseUUIDParam(c, "id")
	if !ok {
		return
	}

	customer, err := h.customers.GetByID(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, customer)
}

// List returns customers, optionally filtered by bonus balance range.
// GET /api/v1/customers?minBonus=&maxBonus=&page=&page_size=
func (h *CustomerHandler) List(c *gin.Context) {
	query := CustomerListQuery{ListRequest: dto.DefaultListRequest()}
	if err := c.ShouldBindQuery(&query); err != nil {
		h.HandleBindQueryError(c, err)
		return
	}

	filter := crmapp.CustomerListFilter{
		Page:     query.Page,
		PageSize: query.PageSize,
	}
	var details []dto.ValidationDetail
	filter.MinBonus, details = parseDecimalQuery("minBonus", query.MinBonus, details)
	filter.MaxBonus, details = parseDecimalQuery("maxBonus", query.MaxBonus, details)
	if len(details) > 0 {
		h.ValidationError(c, details...)
		return
	}

	customers, total, err := h.customers.List(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.SuccessWithMeta(c, customers, total, query.Page, query.PageSize)
}

func parseDecimalQuery(name, raw string, details []dto.ValidationDetail) (*decimal.Decimal, []dto.ValidationDetail) {
	if raw == "" {
		return nil, details
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return nil, append(details, dto.ValidationDetail{Field: name, Message: "Must be a decimal number"})
	}
	return &d, details
}
