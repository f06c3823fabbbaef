package tests

import (
	"context"
	"database/sql"
	"os"
	"sync"
	"testing"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finops/yearend-accrual/internal/adapter/storage"
	"github.com/finops/yearend-accrual/internal/cache"
	"github.com/finops/yearend-accrual/internal/core/domain"
	"github.com/finops/yearend-accrual/internal/core/service"
	"github.com/finops/yearend-accrual/internal/logger"
	"github.com/finops/yearend-accrual/internal/port"
)

type testEnv struct {
	redis   *redis.Client
	mysql   *sql.DB
	cleanup func()
}

func setupTestEnv(t *testing.T) *testEnv {
	redisAddr := os.Getenv("REDIS_ADDR")
	if redisAddr == "" {
		redisAddr = "localhost:6379"
	}

	mysqlDSN := os.Getenv("MYSQL_DSN")
	if mysqlDSN == "" {
		mysqlDSN = "root:root@tcp(localhost:3306)/accrual?parseTime=true"
	}

	rdb := redis.NewClient(&redis.Options{Addr: redisAddr})
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		t.Skipf("Redis not available: %v", err)
	}

	db, err := sql.Open("mysql", mysqlDSN)
	if err != nil {
		t.Skipf("MySQL not available: %v", err)
	}
	if err := db.Ping(); err != nil {
		t.Skipf("MySQL not available: %v", err)
	}

	ctx := context.Background()
	_, err = db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS control_counter (
			id TINYINT PRIMARY KEY,
			current_value VARCHAR(32) NOT NULL
		)`)
	require.NoError(t, err)
	_, err = db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS accrual_rows (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			submitted_at VARCHAR(40) NOT NULL,
			control_number VARCHAR(32) NOT NULL,
			email VARCHAR(255) NOT NULL,
			company VARCHAR(255) NOT NULL,
			supplier VARCHAR(255) NOT NULL,
			invoice_number VARCHAR(128) NOT NULL,
			expense_class VARCHAR(255) NOT NULL,
			gl_account VARCHAR(64) NOT NULL,
			profit_center VARCHAR(64) NOT NULL,
			tax_code VARCHAR(64) NOT NULL,
			transaction_type VARCHAR(128) NOT NULL,
			description TEXT,
			amount DECIMAL(18, 2) NOT NULL
		)`)
	require.NoError(t, err)

	return &testEnv{
		redis: rdb,
		mysql: db,
		cleanup: func() {
			rdb.Close()
			db.Close()
		},
	}
}

func integrationSubmission() domain.Submission {
	return domain.Submission{
		Email:         "clerk@example.com",
		Company:       "Acme Ltd",
		Supplier:      "SUP-001",
		InvoiceNumber: "INV-9",
		ExpenseClass:  "Professional Fees",
		Lines: []domain.LineItem{
			{GLAccount: "600100", ProfitCenter: "PC10", TaxCode: "V0", TransactionType: "Accrual", Amount: decimal.NewFromInt(100)},
			{GLAccount: "600200", ProfitCenter: "PC20", TaxCode: "V1", TransactionType: "Accrual", Amount: decimal.NewFromInt(200)},
		},
	}
}

func newServices(counter port.CounterStore, ledger port.LedgerAppender) (*service.ControlNumberService, *service.SubmissionService) {
	log := logger.NewNop()
	control := service.NewControlNumberService(counter, cache.NewInMemory(time.Minute), log, service.CounterConfig{
		OpTimeout:       5 * time.Second,
		InitialInterval: 10 * time.Millisecond,
		MaxInterval:     100 * time.Millisecond,
		MaxRetries:      2,
	})
	return control, service.NewSubmissionService(control, ledger, log)
}

// Full flow against MySQL: reserve atomically, append ledger rows, verify the
// counter advanced and the rows carry the reserved number.
func TestIntegration_MySQLSubmissionFlow(t *testing.T) {
	env := setupTestEnv(t)
	defer env.cleanup()

	ctx := context.Background()
	adapter := storage.NewMySQLAdapter(env.mysql)
	require.NoError(t, adapter.WriteValue(ctx, "ACT000100"))

	_, err := env.mysql.ExecContext(ctx, `DELETE FROM accrual_rows WHERE control_number LIKE 'ACT0001%'`)
	require.NoError(t, err)

	control, submission := newServices(adapter, adapter)

	receipt, err := submission.Submit(ctx, integrationSubmission())
	require.NoError(t, err)
	assert.Equal(t, "ACT000100", receipt.ControlNumber)

	current, err := control.PeekCurrent(ctx)
	require.NoError(t, err)
	assert.Equal(t, "ACT000101", current)

	var count int
	err = env.mysql.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM accrual_rows WHERE control_number = 'ACT000100'`).Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

// Counter in Redis, ledger in MySQL: the hybrid wiring used for
// multi-instance deployments.
func TestIntegration_RedisCounterWithMySQLLedger(t *testing.T) {
	env := setupTestEnv(t)
	defer env.cleanup()

	ctx := context.Background()
	counter := storage.NewRedisAdapter(env.redis)
	ledger := storage.NewMySQLAdapter(env.mysql)

	require.NoError(t, counter.WriteValue(ctx, "ACT000200"))
	_, err := env.mysql.ExecContext(ctx, `DELETE FROM accrual_rows WHERE control_number LIKE 'ACT0002%'`)
	require.NoError(t, err)

	_, submission := newServices(counter, ledger)

	first, err := submission.Submit(ctx, integrationSubmission())
	require.NoError(t, err)
	second, err := submission.Submit(ctx, integrationSubmission())
	require.NoError(t, err)

	assert.Equal(t, "ACT000200", first.ControlNumber)
	assert.Equal(t, "ACT000201", second.ControlNumber)
}

// Concurrent submissions against the Redis counter never share a number.
func TestIntegration_ConcurrentSubmissionsUnique(t *testing.T) {
	env := setupTestEnv(t)
	defer env.cleanup()

	ctx := context.Background()
	counter := storage.NewRedisAdapter(env.redis)
	ledger := storage.NewMySQLAdapter(env.mysql)

	require.NoError(t, counter.WriteValue(ctx, "ACT000300"))
	_, err := env.mysql.ExecContext(ctx, `DELETE FROM accrual_rows WHERE control_number LIKE 'ACT0003%'`)
	require.NoError(t, err)

	_, submission := newServices(counter, ledger)

	totalRequests := 20
	var mu sync.Mutex
	seen := make(map[string]bool)

	var wg sync.WaitGroup
	for i := 0; i < totalRequests; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			receipt, err := submission.Submit(ctx, integrationSubmission())
			assert.NoError(t, err)
			mu.Lock()
			seen[receipt.ControlNumber] = true
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Len(t, seen, totalRequests)
}
