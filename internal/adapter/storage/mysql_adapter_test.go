package storage

import (
	"context"
	"database/sql"
	"os"
	"sync"
	"testing"

	_ "github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finops/yearend-accrual/internal/core/domain"
)

func getMySQLDB(t *testing.T) *sql.DB {
	dsn := os.Getenv("MYSQL_DSN")
	if dsn == "" {
		dsn = "root:root@tcp(localhost:3306)/accrual?parseTime=true"
	}

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		t.Skipf("MySQL not available: %v", err)
	}
	if err := db.Ping(); err != nil {
		t.Skipf("MySQL not available: %v", err)
	}

	return db
}

func setupCounterTable(t *testing.T, db *sql.DB) {
	ctx := context.Background()
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS control_counter (
			id TINYINT PRIMARY KEY,
			current_value VARCHAR(32) NOT NULL
		)`)
	require.NoError(t, err)
	_, err = db.ExecContext(ctx, `DELETE FROM control_counter`)
	require.NoError(t, err)
}

func TestMySQLReserveNext_Sequence(t *testing.T) {
	db := getMySQLDB(t)
	defer db.Close()
	setupCounterTable(t, db)

	ctx := context.Background()
	adapter := NewMySQLAdapter(db)

	require.NoError(t, adapter.WriteValue(ctx, "ACT000041"))

	reserved, err := adapter.ReserveNext(ctx)
	require.NoError(t, err)
	assert.Equal(t, "ACT000041", reserved)

	current, err := adapter.ReadCurrent(ctx)
	require.NoError(t, err)
	assert.Equal(t, "ACT000042", current)
}

func TestMySQLReserveNext_EmptyCounter(t *testing.T) {
	db := getMySQLDB(t)
	defer db.Close()
	setupCounterTable(t, db)

	ctx := context.Background()
	adapter := NewMySQLAdapter(db)

	reserved, err := adapter.ReserveNext(ctx)
	require.NoError(t, err)
	assert.Equal(t, "ACT000000", reserved)

	current, err := adapter.ReadCurrent(ctx)
	require.NoError(t, err)
	assert.Equal(t, "ACT000001", current)
}

func TestMySQLReserveNext_ConcurrentUnique(t *testing.T) {
	db := getMySQLDB(t)
	defer db.Close()
	setupCounterTable(t, db)

	ctx := context.Background()
	adapter := NewMySQLAdapter(db)
	require.NoError(t, adapter.WriteValue(ctx, "ACT000000"))

	totalRequests := 20
	var mu sync.Mutex
	seen := make(map[string]bool)

	var wg sync.WaitGroup
	for i := 0; i < totalRequests; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			reserved, err := adapter.ReserveNext(ctx)
			assert.NoError(t, err)
			mu.Lock()
			seen[reserved] = true
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Len(t, seen, totalRequests)

	current, err := adapter.ReadCurrent(ctx)
	require.NoError(t, err)
	assert.Equal(t, "ACT000020", current)
}

func TestMySQLAppendRows(t *testing.T) {
	db := getMySQLDB(t)
	defer db.Close()

	ctx := context.Background()
	_, err := db.ExecContext(ctx, `
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
	_, err = db.ExecContext(ctx, `DELETE FROM accrual_rows WHERE control_number = 'ACT999901'`)
	require.NoError(t, err)

	adapter := NewMySQLAdapter(db)

	row := []string{
		"2026-08-28T10:30:00Z", "ACT999901", "clerk@example.com", "Acme Ltd",
		"SUP-001", "INV-9", "Professional Fees", "600100", "PC10", "V0",
		"Accrual", "audit fees", "1500.00",
	}
	require.Len(t, row, domain.LedgerRowWidth)
	require.NoError(t, adapter.AppendRows(ctx, [][]string{row, row}))

	var count int
	err = db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM accrual_rows WHERE control_number = 'ACT999901'`).Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestMySQLAppendRows_RejectsBadWidth(t *testing.T) {
	db := getMySQLDB(t)
	defer db.Close()

	adapter := NewMySQLAdapter(db)
	err := adapter.AppendRows(context.Background(), [][]string{{"too", "short"}})
	assert.Error(t, err)
}
