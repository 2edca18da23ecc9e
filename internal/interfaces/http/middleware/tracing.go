package middleware

import (
	"net/http"
	"strings"

	"github.com/erp/bonusledger/internal/infrastructure/telemetry"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracingConfig holds configuration for the tracing middleware.
type TracingConfig struct {
	ServiceName string
	Enabled     bool
	// TracerProvider defaults to the global provider when nil.
	TracerProvider trace.TracerProvider
	// SkipPaths are never traced (health checks, scrape endpoint).
	SkipPaths []string
}

// DefaultTracingConfig returns default tracing configuration.
func DefaultTracingConfig() TracingConfig {
	return TracingConfig{
		ServiceName: "bonus-ledger",
		Enabled:     true,
		SkipPaths:   []string{"/health", "/health/ready", "/metrics"},
	}
}

// Tracing returns the otelgin server middleware. Span names follow
// "METHOD route_pattern", e.g. "POST /api/v1/customers/:id/bonus".
func Tracing(cfg TracingConfig) gin.HandlerFunc {
	if !cfg.Enabled {
		return func(c *gin.Context) {
			c.Next()
		}
	}

	opts := []otelgin.Option{
		otelgin.WithFilter(func(r *http.Request) bool {
			for _, p := range cfg.SkipPaths {
				if strings.EqualFold(r.URL.Path, p) {
					return false
				}
			}
			return true
		}),
	}
	if cfg.TracerProvider != nil {
		opts = append(opts, otelgin.WithTracerProvider(cfg.TracerProvider))
	}
	return otelgin.Middleware(cfg.ServiceName, opts...)
}

// SpanEnricher adds request attributes to the server span and marks it as
// failed for 4xx/5xx responses. Place it after Tracing and RequestID.
func SpanEnricher() gin.HandlerFunc {
	return func(c *gin.Context) {
		span := trace.SpanFromContext(c.Request.Context())
		if !span.IsRecording() {
			c.Next()
			return
		}

		if requestID := requestIDFrom(c); requestID != "" {
			span.SetAttributes(attribute.String("request_id", requestID))
		}
		if strings.HasPrefix(c.FullPath(), "/api/v1/customers/:id") {
			span.SetAttributes(attribute.String(telemetry.SpanAttrCustomerID, c.Param("id")))
		}

		c.Next()

		status := c.Writer.Status()
		if status >= http.StatusBadRequest {
			span.SetStatus(codes.Error, http.StatusText(status))
		}
		if len(c.Errors) > 0 {
			span.SetAttributes(attribute.String("error.detail", c.Errors.Last().Error()))
		}
	}
}
