package handler

import (
	"net/http"
	"testing"

	crmapp "github.com/erp/bonusledger/internal/application/crm"
	"github.com/erp/bonusledger/internal/domain/shared"
	"github.com/erp/bonusledger/internal/interfaces/http/dto"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newCustomerRouter(svc *MockCustomerService) http.Handler {
	h := NewCustomerHandler(svc)
	r := newTestRouter()
	r.POST("/api/v1/customers", h.Create)
	r.GET("/api/v1/customers", h.List)
	r.GET("/api/v1/customers/:id", h.GetByID)
	return r
}

func TestCustomerHandler_Create(t *testing.T) {
	t.Run("created", func(t *testing.T) {
		svc := new(MockCustomerService)
		created := &crmapp.CustomerResponse{ID: uuid.New(), Name: "Ann", Email: "ann@example.com", BonusBalance: decimal.Zero}
		svc.On("Create", mock.Anything, crmapp.CreateCustomerRequest{Name: "Ann", Email: "ann@example.com"}).Return(created, nil)

		w := doRequest(t, newCustomerRouter(svc), http.MethodPost, "/api/v1/customers", `{"name":"Ann","email":"ann@example.com"}`)

		assert.Equal(t, http.StatusCreated, w.Code)
		var got crmapp.CustomerResponse
		decodeData(t, w, &got)
		assert.Equal(t, created.ID, got.ID)
		assert.True(t, got.BonusBalance.IsZero())
		svc.AssertExpectations(t)
	})

	t.Run("invalid email is rejected before the service", func(t *testing.T) {
		svc := new(MockCustomerService)

		w := doRequest(t, newCustomerRouter(svc), http.MethodPost, "/api/v1/customers", `{"name":"Ann","email":"nope"}`)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		resp := decodeResponse(t, w)
		assert.Equal(t, dto.ErrCodeValidation, resp.Error.Code)
		require.Len(t, resp.Error.Details, 1)
		assert.Equal(t, "email", resp.Error.Details[0].Field)
		svc.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("duplicate email", func(t *testing.T) {
		svc := new(MockCustomerService)
		svc.On("Create", mock.Anything, mock.Anything).
			Return(nil, shared.ErrAlreadyExists.WithMessage("Email is already registered"))

		w := doRequest(t, newCustomerRouter(svc), http.MethodPost, "/api/v1/customers", `{"name":"Ann","email":"ann@example.com"}`)

		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Equal(t, dto.ErrCodeAlreadyExists, decodeResponse(t, w).Error.Code)
	})
}

func TestCustomerHandler_GetByID(t *testing.T) {
	id := uuid.New()

	t.Run("found", func(t *testing.T) {
		svc := new(MockCustomerService)
		svc.On("GetByID", mock.Anything, id).Return(&crmapp.CustomerResponse{ID: id, BonusBalance: decimal.RequireFromString("12.50")}, nil)

		w := doRequest(t, newCustomerRouter(svc), http.MethodGet, "/api/v1/customers/"+id.String(), "")

		assert.Equal(t, http.StatusOK, w.Code)
		var got crmapp.CustomerResponse
		decodeData(t, w, &got)
		assert.True(t, got.BonusBalance.Equal(decimal.RequireFromString("12.5")))
	})

	t.Run("not found", func(t *testing.T) {
		svc := new(MockCustomerService)
		svc.On("GetByID", mock.Anything, id).Return(nil, shared.ErrNotFound.WithMessage("Customer not found"))

		w := doRequest(t, newCustomerRouter(svc), http.MethodGet, "/api/v1/customers/"+id.String(), "")

		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("malformed id", func(t *testing.T) {
		w := doRequest(t, newCustomerRouter(new(MockCustomerService)), http.MethodGet, "/api/v1/customers/42", "")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestCustomerHandler_List(t *testing.T) {
	t.Run("passes balance range and paging", func(t *testing.T) {
		svc := new(MockCustomerService)
		svc.On("List", mock.Anything, mock.MatchedBy(func(f crmapp.CustomerListFilter) bool {
			return f.MinBonus != nil && f.MinBonus.Equal(decimal.NewFromInt(10)) &&
				f.MaxBonus != nil && f.MaxBonus.Equal(decimal.RequireFromString("99.5")) &&
				f.Page == 2 && f.PageSize == 5
		})).Return([]crmapp.CustomerResponse{{ID: uuid.New()}}, int64(6), nil)

		w := doRequest(t, newCustomerRouter(svc), http.MethodGet, "/api/v1/customers?minBonus=10&maxBonus=99.5&page=2&page_size=5", "")

		assert.Equal(t, http.StatusOK, w.Code)
		resp := decodeResponse(t, w)
		require.NotNil(t, resp.Meta)
		assert.Equal(t, int64(6), resp.Meta.Total)
		assert.Equal(t, 2, resp.Meta.TotalPages)
		svc.AssertExpectations(t)
	})

	t.Run("defaults without query", func(t *testing.T) {
		svc := new(MockCustomerService)
		svc.On("List", mock.Anything, crmapp.CustomerListFilter{Page: 1, PageSize: 20}).
			Return([]crmapp.CustomerResponse{}, int64(0), nil)

		w := doRequest(t, newCustomerRouter(svc), http.MethodGet, "/api/v1/customers", "")

		assert.Equal(t, http.StatusOK, w.Code)
		svc.AssertExpectations(t)
	})

	t.Run("non numeric bound", func(t *testing.T) {
		w := doRequest(t, newCustomerRouter(new(MockCustomerService)), http.MethodGet, "/api/v1/customers?minBonus=abc", "")

		assert.Equal(t, http.StatusBadRequest, w.Code)
		resp := decodeResponse(t, w)
		require.Len(t, resp.Error.Details, 1)
		assert.Equal(t, "minBonus", resp.Error.Details[0].Field)
	})

	t.Run("inverted range from service", func(t *testing.T) {
		svc := new(MockCustomerService)
		svc.On("List", mock.Anything, mock.Anything).
			Return(nil, int64(0), shared.ErrInvalidInput.WithMessage("minBonus cannot be greater than maxBonus"))

		w := doRequest(t, newCustomerRouter(svc), http.MethodGet, "/api/v1/customers?minBonus=10&maxBonus=1", "")

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, dto.ErrCodeInvalidInput, decodeResponse(t, w).Error.Code)
	})

	t.Run("page size over limit", func(t *testing.T) {
		w := doRequest(t, newCustomerRouter(new(MockCustomerService)), http.MethodGet, "/api/v1/customers?page_size=1000", "")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}
