package middleware

import (
	"context"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/erp/bonusledger/internal/domain/shared"
	"github.com/erp/bonusledger/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

const (
	// HeaderIdempotencyKey is the optional header making a mutating request retry-safe
	HeaderIdempotencyKey = "Idempotency-Key"
	// MaxIdempotencyKeyLength bounds accepted keys
	MaxIdempotencyKeyLength = 128

	defaultIdempotencyTTL = 24 * time.Hour
)

var idempotencyKeyPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// Outcome labels of IdempotencyMetrics.Requests
const (
	idemOutcomeClaimed    = "claimed"
	idemOutcomeDuplicate  = "duplicate"
	idemOutcomeReleased   = "released"
	idemOutcomeInvalidKey = "invalid_key"
	idemOutcomeStoreError = "store_error"
)

// IdempotencyMetrics counts Idempotency-Key handling outcomes
type IdempotencyMetrics struct {
	Requests *prometheus.CounterVec
}

// NewIdempotencyMetrics registers the idempotency counters on reg
func NewIdempotencyMetrics(reg prometheus.Registerer) *IdempotencyMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &IdempotencyMetrics{
		Requests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bonus_ledger_idempotency_requests_total",
				Help: "Requests carrying an Idempotency-Key, by route and outcome",
			},
			[]string{"route", "outcome"},
		),
	}
}

func (m *IdempotencyMetrics) inc(route, outcome string) {
	if m == nil {
		return
	}
	m.Requests.WithLabelValues(route, outcome).Inc()
}

// IdempotencyConfig configures the Idempotency middleware
type IdempotencyConfig struct {
	Store   shared.IdempotencyStore
	TTL     time.Duration
	Metrics *IdempotencyMetrics
	Logger  *zap.Logger
}

// Idempotency claims the request's Idempotency-Key before the handler runs.
// A key that is already claimed answers 409 ERR_DUPLICATE_REQUEST without
// invoking the handler. The claim is released when the handler fails (4xx/5xx
// or panic) so the client may retry. Requests without the header pass through.
func Idempotency(cfg IdempotencyConfig) gin.HandlerFunc {
	if cfg.Store == nil {
		return passThrough
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = defaultIdempotencyTTL
	}
	baseLogger := cfg.Logger
	if baseLogger == nil {
		baseLogger = zap.NewNop()
	}

	return func(c *gin.Context) {
		key := strings.TrimSpace(c.GetHeader(HeaderIdempotencyKey))
		if key == "" {
			c.Next()
			return
		}

		route := routePattern(c)
		log := baseLogger.With(zap.String("request_id", requestIDFrom(c)))

		if len(key) > MaxIdempotencyKeyLength || !idempotencyKeyPattern.MatchString(key) {
			cfg.Metrics.inc(route, idemOutcomeInvalidKey)
			abortWithCode(c, dto.ErrCodeInvalidIdemKey,
				"Idempotency-Key must be 1-128 characters of letters, digits, '-' or '_'")
			return
		}

		storeKey := idempotencyStoreKey(c, key)
		claimed, err := cfg.Store.MarkProcessed(c.Request.Context(), storeKey, ttl)
		if err != nil {
			cfg.Metrics.inc(route, idemOutcomeStoreError)
			log.Error("idempotency store unavailable", zap.String("route", route), zap.Error(err))
			abortWithCode(c, dto.ErrCodeServiceUnavailable, "Idempotency store is unavailable, retry later")
			return
		}
		if !claimed {
			cfg.Metrics.inc(route, idemOutcomeDuplicate)
			log.Info("duplicate idempotent request rejected", zap.String("route", route))
			abortWithCode(c, dto.ErrCodeDuplicateRequest, "A request with this Idempotency-Key was already processed")
			return
		}
		cfg.Metrics.inc(route, idemOutcomeClaimed)

		completed := false
		defer func() {
			if completed && c.Writer.Status() < http.StatusBadRequest {
				return
			}
			// The request context may already be cancelled here
			releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(c.Request.Context()), 5*time.Second)
			defer cancel()
			if err := cfg.Store.Release(releaseCtx, storeKey); err != nil {
				log.Warn("failed to release idempotency key", zap.String("route", route), zap.Error(err))
				return
			}
			cfg.Metrics.inc(route, idemOutcomeReleased)
		}()

		c.Next()
		completed = true
	}
}

// idempotencyStoreKey scopes a client key to the method and concrete path,
// so the same key sent to two customers does not collide.
func idempotencyStoreKey(c *gin.Context, key string) string {
	return c.Request.Method + ":" + c.Request.URL.Path + ":" + key
}

func abortWithCode(c *gin.Context, code, message string) {
	c.AbortWithStatusJSON(dto.GetHTTPStatus(code), dto.NewErrorResponseWithRequestID(code, message, requestIDFrom(c)))
}
