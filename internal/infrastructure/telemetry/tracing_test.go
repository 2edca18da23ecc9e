package telemetry

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

// setupTestTracer installs an in-memory span recorder as the global provider
func setupTestTracer(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()

	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))

	original := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(original)
		_ = tp.Shutdown(context.Background())
	})
	return sr
}

func attrMap(span sdktrace.ReadOnlySpan) map[attribute.Key]attribute.Value {
	out := make(map[attribute.Key]attribute.Value)
	for _, kv := range span.Attributes() {
		out[kv.Key] = kv.Value
	}
	return out
}

func TestStartServiceSpan(t *testing.T) {
	sr := setupTestTracer(t)
	customerID := uuid.New()

	ctx, span := StartServiceSpan(context.Background(), "bonus_ledger", "apply_delta",
		WithAttribute(SpanAttrCustomerID, customerID),
		WithAttribute(SpanAttrDelta, decimal.RequireFromString("-12.50")),
		WithSpanKind(trace.SpanKindServer),
	)
	assert.NotEmpty(t, GetTraceID(ctx))
	span.End()

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "bonus_ledger.apply_delta", spans[0].Name())
	assert.Equal(t, trace.SpanKindServer, spans[0].SpanKind())

	attrs := attrMap(spans[0])
	assert.Equal(t, customerID.String(), attrs[SpanAttrCustomerID].AsString())
	assert.Equal(t, "-12.5", attrs[SpanAttrDelta].AsString())
}

func TestSetAttributes(t *testing.T) {
	sr := setupTestTracer(t)

	_, span := StartSpan(context.Background(), "attrs")
	SetAttributes(span,
		"count", 3,
		"big", int64(1<<40),
		"ratio", 0.5,
		"ok", true,
		"tags", []string{"a", "b"},
		42, "skipped non-string key",
		"dangling",
	)
	span.End()

	attrs := attrMap(sr.Ended()[0])
	assert.Equal(t, int64(3), attrs["count"].AsInt64())
	assert.Equal(t, int64(1<<40), attrs["big"].AsInt64())
	assert.Equal(t, 0.5, attrs["ratio"].AsFloat64())
	assert.True(t, attrs["ok"].AsBool())
	assert.Equal(t, []string{"a", "b"}, attrs["tags"].AsStringSlice())
	assert.NotContains(t, attrs, attribute.Key("dangling"))
	assert.Len(t, attrs, 5)
}

func TestRecordError(t *testing.T) {
	sr := setupTestTracer(t)

	_, span := StartSpan(context.Background(), "fails")
	RecordError(span, errors.New("insufficient bonus balance"))
	RecordError(span, nil)
	RecordError(nil, errors.New("ignored"))
	span.End()

	ended := sr.Ended()[0]
	assert.Equal(t, codes.Error, ended.Status().Code)
	assert.Equal(t, "insufficient bonus balance", ended.Status().Description)
	require.Len(t, ended.Events(), 1)
	assert.Equal(t, "exception", ended.Events()[0].Name)
}

func TestAddEvent(t *testing.T) {
	sr := setupTestTracer(t)

	_, span := StartSpan(context.Background(), "retry")
	AddEvent(span, "optimistic_lock_conflict", SpanAttrAttempt, 2)
	AddEvent(nil, "ignored")
	span.End()

	events := sr.Ended()[0].Events()
	require.Len(t, events, 1)
	assert.Equal(t, "optimistic_lock_conflict", events[0].Name)
	assert.Equal(t, attribute.Int(SpanAttrAttempt, 2), events[0].Attributes[0])
}

func TestGetTraceID_NoSpan(t *testing.T) {
	assert.Empty(t, GetTraceID(context.Background()))
}
