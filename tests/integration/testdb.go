// Package integration runs the bonus ledger against a real PostgreSQL
// started with testcontainers and migrated with the SQL migrations.
package integration

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/erp/bonusledger/internal/infrastructure/migration"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// ledgerTables lists every table the migrations create, children first
var ledgerTables = []string{"invoice_lines", "invoices", "bonus_transactions", "customers"}

// container is started once per test binary and migrated once
var container struct {
	once     sync.Once
	instance *tcpostgres.PostgresContainer
	dsn      string
	err      error
}

// TestDB is a clean, migrated database for one test
type TestDB struct {
	DB *gorm.DB
	t  *testing.T
}

// NewTestDB connects to the shared PostgreSQL container, starting and
// migrating it on first use, and empties every ledger table.
func NewTestDB(t *testing.T) *TestDB {
	t.Helper()

	container.once.Do(startContainer)
	require.NoError(t, container.err, "PostgreSQL container unavailable")

	db := open(t, container.dsn)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	tdb := &TestDB{DB: db, t: t}
	tdb.CleanTables()
	return tdb
}

func startContainer() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	c, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("bonus_ledger_test"),
		tcpostgres.WithUsername("postgres"),
		tcpostgres.WithPassword("ledger"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	if err != nil {
		container.err = fmt.Errorf("start container: %w", err)
		return
	}
	container.instance = c

	dsn, err := c.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		container.err = fmt.Errorf("connection string: %w", err)
		return
	}
	container.dsn = dsn
	container.err = migrateUp(dsn)
}

// migrateUp applies the SQL migrations on a dedicated connection, which the
// migrator closes when done.
func migrateUp(dsn string) error {
	dir := findMigrationsPath()
	if dir == "" {
		return fmt.Errorf("migrations directory not found")
	}

	db, err := gorm.Open(gormpostgres.Open(dsn), &gorm.Config{Logger: logger.Discard})
	if err != nil {
		return err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}

	m, err := migration.New(sqlDB, dir, zap.NewNop())
	if err != nil {
		_ = sqlDB.Close()
		return err
	}
	defer func() { _ = m.Close() }()
	return m.Up()
}

// terminateContainer stops the shared container if one was started
func terminateContainer() {
	if container.instance == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	_ = container.instance.Terminate(ctx)
}

func open(t *testing.T, dsn string) *gorm.DB {
	t.Helper()

	cfg := &gorm.Config{
		Logger:                 logger.Discard,
		SkipDefaultTransaction: true,
		TranslateError:         true,
	}
	if os.Getenv("TEST_DB_DEBUG") != "" {
		cfg.Logger = logger.Default.LogMode(logger.Info)
	}

	db, err := gorm.Open(gormpostgres.Open(dsn), cfg)
	require.NoError(t, err, "Failed to connect to database")

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(10)
	sqlDB.SetMaxIdleConns(2)
	return db
}

// CleanTables empties every ledger table. TRUNCATE does not fire the
// row-level append-only trigger on bonus_transactions.
func (tdb *TestDB) CleanTables() {
	tdb.t.Helper()
	err := tdb.DB.Exec("TRUNCATE TABLE " + strings.Join(ledgerTables, ", ") + " CASCADE").Error
	require.NoError(tdb.t, err, "Failed to truncate tables")
}

// CountRows returns the number of rows in table
func (tdb *TestDB) CountRows(table string) int64 {
	tdb.t.Helper()

	var n int64
	err := tdb.DB.Raw(fmt.Sprintf("SELECT COUNT(*) FROM %s", table)).Scan(&n).Error
	require.NoError(tdb.t, err, "Failed to count rows of %s", table)
	return n
}

// findMigrationsPath walks up from this file to the repository's migrations directory
func findMigrationsPath() string {
	_, filename, _, ok := runtime.Caller(0)
	if !ok {
		return ""
	}

	dir := filepath.Dir(filename)
	for i := 0; i < 5; i++ {
		candidate := filepath.Join(dir, "migrations")
		if info, err := os.Stat(candidate); err == nil && info.IsDir() {
			return candidate
		}
		dir = filepath.Dir(dir)
	}
	return ""
}
