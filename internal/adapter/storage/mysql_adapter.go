package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/finops/yearend-accrual/internal/core/domain"
)

// MySQLAdapter backs the counter, the reference lists, and the ledger with
// MySQL. ReserveNext is a row-locked transaction, so it is the atomic variant
// of the counter store and safe across processes.
type MySQLAdapter struct {
	db *sql.DB
}

func NewMySQLAdapter(db *sql.DB) *MySQLAdapter {
	return &MySQLAdapter{db: db}
}

func (m *MySQLAdapter) ReadCurrent(ctx context.Context) (string, error) {
	var value string
	err := m.db.QueryRowContext(ctx,
		`SELECT current_value FROM control_counter WHERE id = 1`).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("%w: read counter: %v", domain.ErrStoreUnavailable, err)
	}
	return value, nil
}

func (m *MySQLAdapter) WriteValue(ctx context.Context, formatted string) error {
	_, err := m.db.ExecContext(ctx, `
		INSERT INTO control_counter (id, current_value) VALUES (1, ?)
		ON DUPLICATE KEY UPDATE current_value = VALUES(current_value)`,
		formatted,
	)
	if err != nil {
		return fmt.Errorf("%w: write counter: %v", domain.ErrStoreUnavailable, err)
	}
	return nil
}

// ReserveNext reads the counter row under an exclusive lock, advances it, and
// returns the pre-advance value. The row lock serializes concurrent
// reservations across all service instances.
func (m *MySQLAdapter) ReserveNext(ctx context.Context) (string, error) {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("%w: begin tx: %v", domain.ErrStoreUnavailable, err)
	}
	defer tx.Rollback()

	var raw string
	err = tx.QueryRowContext(ctx,
		`SELECT current_value FROM control_counter WHERE id = 1 FOR UPDATE`).Scan(&raw)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("%w: read counter: %v", domain.ErrStoreUnavailable, err)
	}

	// Empty or drifted values fall back to ACT000000 leniently.
	current, _ := domain.ParseControlNumber(raw)
	next := current.Next().Formatted()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO control_counter (id, current_value) VALUES (1, ?)
		ON DUPLICATE KEY UPDATE current_value = VALUES(current_value)`,
		next,
	)
	if err != nil {
		return "", fmt.Errorf("%w: advance counter: %v", domain.ErrStoreUnavailable, err)
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("%w: commit: %v", domain.ErrStoreUnavailable, err)
	}

	return current.Formatted(), nil
}

func (m *MySQLAdapter) Companies(ctx context.Context) ([]string, error) {
	return m.nameColumn(ctx, `SELECT name FROM companies ORDER BY name`)
}

func (m *MySQLAdapter) TaxCodes(ctx context.Context) ([]string, error) {
	return m.nameColumn(ctx, `SELECT description FROM tax_codes ORDER BY description`)
}

func (m *MySQLAdapter) TransactionTypes(ctx context.Context) ([]string, error) {
	return m.nameColumn(ctx, `SELECT name FROM transaction_types ORDER BY name`)
}

func (m *MySQLAdapter) ExpenseClasses(ctx context.Context) ([]string, error) {
	return m.nameColumn(ctx, `SELECT name FROM expense_classes ORDER BY name`)
}

func (m *MySQLAdapter) Suppliers(ctx context.Context) ([]domain.Supplier, error) {
	rows, err := m.db.QueryContext(ctx,
		`SELECT supplier_no, supplier_name, company FROM suppliers ORDER BY supplier_no`)
	if err != nil {
		return nil, fmt.Errorf("%w: query suppliers: %v", domain.ErrStoreUnavailable, err)
	}
	defer rows.Close()

	var suppliers []domain.Supplier
	for rows.Next() {
		var s domain.Supplier
		if err := rows.Scan(&s.No, &s.Name, &s.Company); err != nil {
			return nil, fmt.Errorf("scan supplier: %w", err)
		}
		suppliers = append(suppliers, s)
	}
	return suppliers, rows.Err()
}

func (m *MySQLAdapter) GLAccounts(ctx context.Context) ([]domain.GLAccount, error) {
	rows, err := m.db.QueryContext(ctx,
		`SELECT account_no, account_name FROM gl_accounts ORDER BY account_no`)
	if err != nil {
		return nil, fmt.Errorf("%w: query gl accounts: %v", domain.ErrStoreUnavailable, err)
	}
	defer rows.Close()

	var accounts []domain.GLAccount
	for rows.Next() {
		var a domain.GLAccount
		if err := rows.Scan(&a.No, &a.Name); err != nil {
			return nil, fmt.Errorf("scan gl account: %w", err)
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

func (m *MySQLAdapter) ProfitCenters(ctx context.Context) ([]domain.ProfitCenter, error) {
	rows, err := m.db.QueryContext(ctx,
		`SELECT center_no, center_name FROM profit_centers ORDER BY center_no`)
	if err != nil {
		return nil, fmt.Errorf("%w: query profit centers: %v", domain.ErrStoreUnavailable, err)
	}
	defer rows.Close()

	var centers []domain.ProfitCenter
	for rows.Next() {
		var p domain.ProfitCenter
		if err := rows.Scan(&p.No, &p.Name); err != nil {
			return nil, fmt.Errorf("scan profit center: %w", err)
		}
		centers = append(centers, p)
	}
	return centers, rows.Err()
}

func (m *MySQLAdapter) SetupDates(ctx context.Context) (domain.SetupDates, error) {
	var dates domain.SetupDates
	err := m.db.QueryRowContext(ctx,
		`SELECT cutoff_date, start_date FROM setup_dates WHERE id = 1`).
		Scan(&dates.CutoffDate, &dates.StartDate)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.SetupDates{}, nil
	}
	if err != nil {
		return domain.SetupDates{}, fmt.Errorf("%w: read setup dates: %v", domain.ErrStoreUnavailable, err)
	}
	return dates, nil
}

// AppendRows inserts ledger rows in one transaction, in the column order
// documented on domain.Submission.Rows.
func (m *MySQLAdapter) AppendRows(ctx context.Context, rows [][]string) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin tx: %v", domain.ErrStoreUnavailable, err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO accrual_rows (
			submitted_at, control_number, email, company, supplier,
			invoice_number, expense_class, gl_account, profit_center,
			tax_code, transaction_type, description, amount
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("%w: prepare insert: %v", domain.ErrStoreUnavailable, err)
	}
	defer stmt.Close()

	for _, row := range rows {
		if len(row) != domain.LedgerRowWidth {
			return fmt.Errorf("ledger row has %d columns, want %d", len(row), domain.LedgerRowWidth)
		}
		args := make([]any, len(row))
		for i, col := range row {
			args[i] = col
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("%w: insert ledger row: %v", domain.ErrStoreUnavailable, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit: %v", domain.ErrStoreUnavailable, err)
	}
	return nil
}

func (m *MySQLAdapter) nameColumn(ctx context.Context, query string) ([]string, error) {
	rows, err := m.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan name: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}
