package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	crmapp "github.com/erp/bonusledger/internal/application/crm"
	invoicingapp "github.com/erp/bonusledger/internal/application/invoicing"
	ledgerapp "github.com/erp/bonusledger/internal/application/ledger"
	"github.com/erp/bonusledger/internal/interfaces/http/dto"
	"github.com/erp/bonusledger/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
	middleware.SetupValidator()
}

type MockCustomerService struct {
	mock.Mock
}

func (m *MockCustomerService) Create(ctx context.Context, req crmapp.CreateCustomerRequest) (*crmapp.CustomerResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*crmapp.CustomerResponse), args.Error(1)
}

func (m *MockCustomerService) GetByID(ctx context.Context, id uuid.UUID) (*crmapp.CustomerResponse, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*crmapp.CustomerResponse), args.Error(1)
}

func (m *MockCustomerService) List(ctx context.Context, filter crmapp.CustomerListFilter) ([]crmapp.CustomerResponse, int64, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]crmapp.CustomerResponse), args.Get(1).(int64), args.Error(2)
}

type MockBonusLedger struct {
	mock.Mock
}

func (m *MockBonusLedger) AddBonus(ctx context.Context, customerID uuid.UUID, amount decimal.Decimal, description string) (*ledgerapp.CustomerBalance, error) {
	args := m.Called(ctx, customerID, amount, description)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledgerapp.CustomerBalance), args.Error(1)
}

func (m *MockBonusLedger) ListTransactions(ctx context.Context, customerID uuid.UUID) ([]ledgerapp.TransactionResponse, error) {
	args := m.Called(ctx, customerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]ledgerapp.TransactionResponse), args.Error(1)
}

type MockInvoiceService struct {
	mock.Mock
}

func (m *MockInvoiceService) Create(ctx context.Context, req invoicingapp.CreateInvoiceRequest) (*invoicingapp.InvoiceResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*invoicingapp.InvoiceResponse), args.Error(1)
}

func (m *MockInvoiceService) GetByID(ctx context.Context, id uuid.UUID) (*invoicingapp.InvoiceResponse, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*invoicingapp.InvoiceResponse), args.Error(1)
}

func (m *MockInvoiceService) ListByCustomer(ctx context.Context, customerID uuid.UUID, page, pageSize int) ([]invoicingapp.InvoiceResponse, int64, error) {
	args := m.Called(ctx, customerID, page, pageSize)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]invoicingapp.InvoiceResponse), args.Get(1).(int64), args.Error(2)
}

// newTestRouter returns an engine with the request id middleware installed
func newTestRouter() *gin.Engine {
	r := gin.New()
	r.Use(middleware.RequestID())
	return r
}

func doRequest(t *testing.T, r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeResponse(t *testing.T, w *httptest.ResponseRecorder) dto.Response {
	t.Helper()
	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return resp
}

// decodeData re-decodes the envelope's data field into out
func decodeData(t *testing.T, w *httptest.ResponseRecorder, out any) {
	t.Helper()
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.NoError(t, json.Unmarshal(envelope.Data, out))
}
