package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type tracedRow struct {
	ID        uint   `gorm:"primaryKey"`
	Name      string `gorm:"size:100;uniqueIndex"`
	CreatedAt time.Time
}

func setupTracedDB(t *testing.T, cfg DBTracingConfig) (*gorm.DB, *tracetest.SpanRecorder) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&tracedRow{}))

	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	cfg.TracerProvider = tp
	require.NoError(t, NewDBTracingPlugin(cfg, zap.NewNop()).Register(db))
	return db, sr
}

func findSpan(spans []sdktrace.ReadOnlySpan, table string) sdktrace.ReadOnlySpan {
	for _, s := range spans {
		if v, ok := attrMap(s)["db.sql.table"]; ok && v.AsString() == table {
			return s
		}
	}
	return nil
}

func TestDefaultDBTracingConfig(t *testing.T) {
	cfg := DefaultDBTracingConfig()

	assert.False(t, cfg.Enabled)
	assert.False(t, cfg.LogFullSQL)
	assert.Equal(t, 200*time.Millisecond, cfg.SlowQueryThresh)
	assert.Equal(t, "postgresql", cfg.DBSystem)
}

func TestDBTracingPlugin_Disabled(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)

	require.NoError(t, NewDBTracingPlugin(DefaultDBTracingConfig(), zap.NewNop()).Register(db))
	assert.Nil(t, db.Callback().Create().Get("otel_slow_query:create"))
}

func TestDBTracingPlugin_AnnotatesSpans(t *testing.T) {
	db, sr := setupTracedDB(t, DBTracingConfig{
		Enabled:         true,
		SlowQueryThresh: time.Hour,
		DBSystem:        "sqlite",
	})

	require.NoError(t, db.WithContext(context.Background()).Create(&tracedRow{Name: "alpha"}).Error)

	span := findSpan(sr.Ended(), "traced_rows")
	require.NotNil(t, span)
	attrs := attrMap(span)
	assert.Equal(t, int64(1), attrs["db.rows_affected"].AsInt64())
	assert.NotContains(t, attrs, attribute.Key("db.slow_query"))
	assert.NotEqual(t, codes.Error, span.Status().Code)
}

func TestDBTracingPlugin_MarksSlowQueries(t *testing.T) {
	db, sr := setupTracedDB(t, DBTracingConfig{
		Enabled:         true,
		SlowQueryThresh: time.Nanosecond,
		DBSystem:        "sqlite",
	})

	var rows []tracedRow
	require.NoError(t, db.WithContext(context.Background()).Find(&rows).Error)

	span := findSpan(sr.Ended(), "traced_rows")
	require.NotNil(t, span)
	assert.True(t, attrMap(span)["db.slow_query"].AsBool())

	var names []string
	for _, e := range span.Events() {
		names = append(names, e.Name)
	}
	assert.Contains(t, names, "slow_query_warning")
}

func TestDBTracingPlugin_ErrorStatus(t *testing.T) {
	db, sr := setupTracedDB(t, DBTracingConfig{
		Enabled:         true,
		SlowQueryThresh: time.Hour,
		DBSystem:        "sqlite",
	})
	ctx := context.Background()

	var missing tracedRow
	err := db.WithContext(ctx).First(&missing, 99999).Error
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
	notFound := findSpan(sr.Ended(), "traced_rows")
	require.NotNil(t, notFound)
	assert.NotEqual(t, codes.Error, notFound.Status().Code)

	require.NoError(t, db.WithContext(ctx).Create(&tracedRow{Name: "dup"}).Error)
	require.Error(t, db.WithContext(ctx).Create(&tracedRow{Name: "dup"}).Error)

	spans := sr.Ended()
	last := spans[len(spans)-1]
	assert.Equal(t, codes.Error, last.Status().Code)
}
