package router

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	crmapp "github.com/erp/bonusledger/internal/application/crm"
	invoicingapp "github.com/erp/bonusledger/internal/application/invoicing"
	ledgerapp "github.com/erp/bonusledger/internal/application/ledger"
	"github.com/erp/bonusledger/internal/domain/shared"
	"github.com/erp/bonusledger/internal/infrastructure/cache"
	"github.com/erp/bonusledger/internal/infrastructure/config"
	"github.com/erp/bonusledger/internal/interfaces/http/handler"
	"github.com/erp/bonusledger/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubCustomers struct{}

func (stubCustomers) Create(_ context.Context, req crmapp.CreateCustomerRequest) (*crmapp.CustomerResponse, error) {
	return &crmapp.CustomerResponse{ID: uuid.New(), Name: req.Name, Email: req.Email}, nil
}

func (stubCustomers) GetByID(_ context.Context, id uuid.UUID) (*crmapp.CustomerResponse, error) {
	return &crmapp.CustomerResponse{ID: id}, nil
}

func (stubCustomers) List(context.Context, crmapp.CustomerListFilter) ([]crmapp.CustomerResponse, int64, error) {
	return []crmapp.CustomerResponse{}, 0, nil
}

type countingLedger struct {
	calls atomic.Int32
}

func (l *countingLedger) AddBonus(_ context.Context, id uuid.UUID, amount decimal.Decimal, _ string) (*ledgerapp.CustomerBalance, error) {
	l.calls.Add(1)
	return &ledgerapp.CustomerBalance{CustomerID: id, BonusBalance: amount}, nil
}

func (l *countingLedger) ListTransactions(context.Context, uuid.UUID) ([]ledgerapp.TransactionResponse, error) {
	return []ledgerapp.TransactionResponse{}, nil
}

type stubInvoices struct{}

func (stubInvoices) Create(_ context.Context, req invoicingapp.CreateInvoiceRequest) (*invoicingapp.InvoiceResponse, error) {
	return &invoicingapp.InvoiceResponse{ID: uuid.New(), CustomerID: req.CustomerID, Type: req.Type}, nil
}

func (stubInvoices) GetByID(context.Context, uuid.UUID) (*invoicingapp.InvoiceResponse, error) {
	return nil, shared.ErrNotFound
}

func (stubInvoices) ListByCustomer(context.Context, uuid.UUID, int, int) ([]invoicingapp.InvoiceResponse, int64, error) {
	return []invoicingapp.InvoiceResponse{}, 0, nil
}

func newTestEngine(t *testing.T, mutate func(*EngineConfig)) (*gin.Engine, *countingLedger) {
	t.Helper()
	middleware.SetupValidator()

	store := cache.NewInMemoryIdempotencyStore()
	t.Cleanup(func() { _ = store.Close() })

	ledger := &countingLedger{}
	customers := stubCustomers{}
	cfg := EngineConfig{
		HTTP:        config.HTTPConfig{MaxBodySize: 1 << 20},
		Tracing:     middleware.TracingConfig{Enabled: false},
		Idempotency: middleware.IdempotencyConfig{Store: store},
		MetricsHandler: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte("# metrics"))
		}),
	}
	if mutate != nil {
		mutate(&cfg)
	}

	engine := NewEngine(cfg, Handlers{
		Customers: handler.NewCustomerHandler(customers),
		Bonus:     handler.NewBonusHandler(ledger, customers),
		Invoices:  handler.NewInvoiceHandler(stubInvoices{}, customers),
		Health:    handler.NewHealthHandler("bonus-ledger", "test", nil),
	})
	return engine, ledger
}

func serve(engine http.Handler, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func TestNewEngine_Routes(t *testing.T) {
	engine, _ := newTestEngine(t, nil)
	id := uuid.NewString()

	tests := []struct {
		method string
		path   string
		body   string
		want   int
	}{
		{http.MethodGet, "/health", "", http.StatusOK},
		{http.MethodGet, "/health/ready", "", http.StatusOK},
		{http.MethodGet, "/metrics", "", http.StatusOK},
		{http.MethodGet, "/api/v1/system/info", "", http.StatusOK},
		{http.MethodPost, "/api/v1/customers", `{"name":"Ann","email":"ann@example.com"}`, http.StatusCreated},
		{http.MethodGet, "/api/v1/customers", "", http.StatusOK},
		{http.MethodGet, "/api/v1/customers/" + id, "", http.StatusOK},
		{http.MethodPost, "/api/v1/customers/" + id + "/bonus", `{"amount":"1"}`, http.StatusOK},
		{http.MethodGet, "/api/v1/customers/" + id + "/bonus-transactions", "", http.StatusOK},
		{http.MethodGet, "/api/v1/customers/" + id + "/invoices", "", http.StatusOK},
		{http.MethodPost, "/api/v1/invoices", `{"customerId":"` + id + `","type":"RETAIL_SALE","amount":1}`, http.StatusCreated},
		{http.MethodGet, "/api/v1/invoices/" + id, "", http.StatusNotFound},
		{http.MethodGet, "/api/v1/unknown", "", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			w := serve(engine, tt.method, tt.path, tt.body, nil)
			assert.Equal(t, tt.want, w.Code, w.Body.String())
		})
	}
}

func TestNewEngine_CommonHeaders(t *testing.T) {
	engine, _ := newTestEngine(t, nil)

	w := serve(engine, http.MethodGet, "/health", "", map[string]string{middleware.HeaderRequestID: "trace-me-1"})

	assert.Equal(t, "trace-me-1", w.Header().Get(middleware.HeaderRequestID))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
}

func TestNewEngine_IdempotentBonus(t *testing.T) {
	engine, ledger := newTestEngine(t, nil)
	path := "/api/v1/customers/" + uuid.NewString() + "/bonus"
	headers := map[string]string{middleware.HeaderIdempotencyKey: "bonus-7"}

	first := serve(engine, http.MethodPost, path, `{"amount":"5"}`, headers)
	second := serve(engine, http.MethodPost, path, `{"amount":"5"}`, headers)

	assert.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, http.StatusConflict, second.Code)
	assert.Contains(t, second.Body.String(), "ERR_DUPLICATE_REQUEST")
	assert.Equal(t, int32(1), ledger.calls.Load())
}

func TestNewEngine_RateLimit(t *testing.T) {
	limiter := middleware.NewRateLimiter(1, 2)
	t.Cleanup(limiter.Stop)
	engine, _ := newTestEngine(t, func(cfg *EngineConfig) {
		cfg.RateLimiter = limiter
	})

	codes := make([]int, 0, 3)
	for range 3 {
		codes = append(codes, serve(engine, http.MethodGet, "/api/v1/customers", "", nil).Code)
	}

	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestNewEngine_BodyLimit(t *testing.T) {
	engine, _ := newTestEngine(t, func(cfg *EngineConfig) {
		cfg.HTTP.MaxBodySize = 16
	})

	w := serve(engine, http.MethodPost, "/api/v1/customers", `{"name":"A long enough name","email":"ann@example.com"}`, nil)

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestNewEngine_NoMetricsHandler(t *testing.T) {
	engine, _ := newTestEngine(t, func(cfg *EngineConfig) {
		cfg.MetricsHandler = nil
	})

	w := serve(engine, http.MethodGet, "/metrics", "", nil)

	require.Equal(t, http.StatusNotFound, w.Code)
}
