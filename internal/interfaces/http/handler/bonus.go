package handler

import (
	"context"

	ledgerapp "github.com/erp/bonusledger/internal/application/ledger"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BonusLedger is the ledger use case surface used by the HTTP layer
type BonusLedger interface {
	AddBonus(ctx context.Context, customerID uuid.UUID, amount decimal.Decimal, description string) (*ledgerapp.CustomerBalance, error)
	ListTransactions(ctx context.Context, customerID uuid.UUID) ([]ledgerapp.TransactionResponse, error)
}

// BonusHandler exposes manual bonus grants and the ledger history
type BonusHandler struct {
	BaseHandler
	ledger    BonusLedger
	customers CustomerService
}

// NewBonusHandler creates a new BonusHandler
func NewBonusHandler(ledger BonusLedger, customers CustomerService) *BonusHandler {
	return &BonusHandler{ledger: ledger, customers: customers}
}

// AddBonusRequest is the body of POST /customers/:id/bonus
type AddBonusRequest struct {
	Amount      *decimal.Decimal `json:"amount" binding:"required"`
	Description string           `json:"description" binding:"max=500"`
}

// AddBonus credits a positive amount to the customer's balance.
// POST /api/v1/customers/:id/bonus
func (h *BonusHandler) AddBonus(c *gin.Context) {
	customerID, ok := h.ParseUUIDParam(c, "id")
	if !ok {
		return
	}

	var req AddBonusRequest
	if !h.BindJSON(c, &req) {
		return
	}

	balance, err := h.ledger.AddBonus(c.Request.Context(), customerID, *req.Amount, req.Description)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, balance)
}

// ListTransactions returns the customer's ledger entries, newest first.
// GET /api/v1/customers/:id/bonus-transactions
func (h *BonusHandler) ListTransactions(c *gin.Context) {
	customerID, ok := h.ParseUUIDParam(c, "id")
	if !ok {
		return
	}

	// The ledger query itself does not distinguish unknown customers
	if _, err := h.customers.GetByID(c.Request.Context(), customerID); err != nil {
		h.HandleError(c, err)
		return
	}

	entries, err := h.ledger.ListTransactions(c.Request.Context(), customerID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, entries)
}
