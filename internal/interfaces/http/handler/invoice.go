package handler

import (
	"context"

	invoicingapp "github.com/erp/bonusledger/internal/application/invoicing"
	"github.com/erp/bonusledger/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// InvoiceService is the invoicing use case surface used by the HTTP layer
type InvoiceService interface {
	Create(ctx context.Context, req invoicingapp.CreateInvoiceRequest) (*invoicingapp.InvoiceResponse, error)
	GetByID(ctx context.Context, id uuid.UUID) (*invoicingapp.InvoiceResponse, error)
	ListByCustomer(ctx context.Context, customerID uuid.UUID, page, pageSize int) ([]invoicingapp.InvoiceResponse, int64, error)
}

// InvoiceHandler records sales and returns
type InvoiceHandler struct {
	BaseHandler
	invoices  InvoiceService
	customers CustomerService
}

// NewInvoiceHandler creates a new InvoiceHandler
func NewInvoiceHandler(invoices InvoiceService, customers CustomerService) *InvoiceHandler {
	return &InvoiceHandler{invoices: invoices, customers: customers}
}

// Create records an invoice and applies its bonus delta atomically.
// POST /api/v1/invoices
func (h *InvoiceHandler) Create(c *gin.Context) {
	var req invoicingapp.CreateInvoiceRequest
	if !h.BindJSON(c, &req) {
		return
	}

	invoice, err := h.invoices.Create(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, invoice)
}

// GetByID returns an invoice with its lines.
// GET /api/v1/invoices/:id
func (h *InvoiceHandler) GetByID(c *gin.Context) {
	id, ok := h.ParseUUIDParam(c, "id")
	if !ok {
		return
	}

	invoice, err := h.invoices.GetByID(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, invoice)
}

// ListByCustomer returns a customer's invoices, newest first.
// GET /api/v1/customers/:id/invoices
func (h *InvoiceHandler) ListByCustomer(c *gin.Context) {
	customerID, ok := h.ParseUUIDParam(c, "id")
	if !ok {
		return
	}

	page := dto.DefaultListRequest()
	if err := c.ShouldBindQuery(&page); err != nil {
		h.HandleBindQueryError(c, err)
		return
	}

	if _, err := h.customers.GetByID(c.Request.Context(), customerID); err != nil {
		h.HandleError(c, err)
		return
	}

	invoices, total, err := h.invoices.ListByCustomer(c.Request.Context(), customerID, page.Page, page.PageSize)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.SuccessWithMeta(c, invoices, total, page.Page, page.PageSize)
}
