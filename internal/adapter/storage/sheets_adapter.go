package storage

import (
	"context"
	"fmt"

	"google.golang.org/api/option"
	sheets "google.golang.org/api/sheets/v4"

	"github.com/finops/yearend-accrual/internal/core/domain"
)

// Spreadsheet layout. The counter lives in a single cell; reference lists are
// column ranges with a header row; submissions append to the responses sheet.
const (
	counterCell       = "SETUP!B4"
	setupDatesRange   = "SETUP!B1:B2"
	companyRange      = "Company!A:A"
	supplierRange     = "Supplier Data!A:C"
	transactionRange  = "Transaction Type!A:A"
	taxCodeRange      = "TAXCODE!A:A"
	glAccountRange    = "GL Account!A:B"
	profitCenterRange = "Profit Center!A:B"
	expenseClassRange = "Expense Classification!A:A"
	responsesRange    = "Form Responses!A1"
)

// SheetsAdapter backs everything with one Google spreadsheet. The Sheets API
// offers no compare-and-swap, so this adapter implements only the plain
// CounterStore: reservations against it rely on the service's in-process
// serialization and are only safe for a single running instance.
type SheetsAdapter struct {
	svc           *sheets.Service
	spreadsheetID string
}

func NewSheetsAdapter(ctx context.Context, spreadsheetID string, credentialsJSON []byte) (*SheetsAdapter, error) {
	svc, err := sheets.NewService(ctx,
		option.WithCredentialsJSON(credentialsJSON),
		option.WithScopes(sheets.SpreadsheetsScope),
	)
	if err != nil {
		return nil, fmt.Errorf("create sheets client: %w", err)
	}
	return &SheetsAdapter{svc: svc, spreadsheetID: spreadsheetID}, nil
}

func (s *SheetsAdapter) ReadCurrent(ctx context.Context) (string, error) {
	values, err := s.getRange(ctx, counterCell)
	if err != nil {
		return "", err
	}
	if len(values) == 0 || len(values[0]) == 0 {
		return "", nil
	}
	return cellString(values[0][0]), nil
}

func (s *SheetsAdapter) WriteValue(ctx context.Context, formatted string) error {
	body := &sheets.ValueRange{Values: [][]interface{}{{formatted}}}
	_, err := s.svc.Spreadsheets.Values.Update(s.spreadsheetID, counterCell, body).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("%w: update %s: %v", domain.ErrStoreUnavailable, counterCell, err)
	}
	return nil
}

func (s *SheetsAdapter) Companies(ctx context.Context) ([]string, error) {
	return s.singleColumn(ctx, companyRange)
}

func (s *SheetsAdapter) TaxCodes(ctx context.Context) ([]string, error) {
	return s.singleColumn(ctx, taxCodeRange)
}

func (s *SheetsAdapter) TransactionTypes(ctx context.Context) ([]string, error) {
	return s.singleColumn(ctx, transactionRange)
}

func (s *SheetsAdapter) ExpenseClasses(ctx context.Context) ([]string, error) {
	return s.singleColumn(ctx, expenseClassRange)
}

func (s *SheetsAdapter) Suppliers(ctx context.Context) ([]domain.Supplier, error) {
	rows, err := s.getTable(ctx, supplierRange)
	if err != nil {
		return nil, err
	}
	suppliers := make([]domain.Supplier, 0, len(rows))
	for _, row := range rows {
		suppliers = append(suppliers, domain.Supplier{
			No:      cellAt(row, 0),
			Name:    cellAt(row, 1),
			Company: cellAt(row, 2),
		})
	}
	return suppliers, nil
}

func (s *SheetsAdapter) GLAccounts(ctx context.Context) ([]domain.GLAccount, error) {
	rows, err := s.getTable(ctx, glAccountRange)
	if err != nil {
		return nil, err
	}
	accounts := make([]domain.GLAccount, 0, len(rows))
	for _, row := range rows {
		accounts = append(accounts, domain.GLAccount{No: cellAt(row, 0), Name: cellAt(row, 1)})
	}
	return accounts, nil
}

func (s *SheetsAdapter) ProfitCenters(ctx context.Context) ([]domain.ProfitCenter, error) {
	rows, err := s.getTable(ctx, profitCenterRange)
	if err != nil {
		return nil, err
	}
	centers := make([]domain.ProfitCenter, 0, len(rows))
	for _, row := range rows {
		centers = append(centers, domain.ProfitCenter{No: cellAt(row, 0), Name: cellAt(row, 1)})
	}
	return centers, nil
}

func (s *SheetsAdapter) SetupDates(ctx context.Context) (domain.SetupDates, error) {
	values, err := s.getRange(ctx, setupDatesRange)
	if err != nil {
		return domain.SetupDates{}, err
	}
	var dates domain.SetupDates
	if len(values) > 0 {
		dates.CutoffDate = cellAt(values[0], 0)
	}
	if len(values) > 1 {
		dates.StartDate = cellAt(values[1], 0)
	}
	return dates, nil
}

func (s *SheetsAdapter) AppendRows(ctx context.Context, rows [][]string) error {
	values := make([][]interface{}, 0, len(rows))
	for _, row := range rows {
		cells := make([]interface{}, len(row))
		for i, col := range row {
			cells[i] = col
		}
		values = append(values, cells)
	}

	body := &sheets.ValueRange{Values: values}
	_, err := s.svc.Spreadsheets.Values.Append(s.spreadsheetID, responsesRange, body).
		ValueInputOption("USER_ENTERED").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("%w: append to %s: %v", domain.ErrStoreUnavailable, responsesRange, err)
	}
	return nil
}

func (s *SheetsAdapter) getRange(ctx context.Context, rng string) ([][]interface{}, error) {
	resp, err := s.svc.Spreadsheets.Values.Get(s.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", domain.ErrStoreUnavailable, rng, err)
	}
	return resp.Values, nil
}

// getTable reads a range and drops the header row.
func (s *SheetsAdapter) getTable(ctx context.Context, rng string) ([][]interface{}, error) {
	values, err := s.getRange(ctx, rng)
	if err != nil {
		return nil, err
	}
	if len(values) <= 1 {
		return nil, nil
	}
	return values[1:], nil
}

// singleColumn reads a one-column range, dropping the header and blanks.
func (s *SheetsAdapter) singleColumn(ctx context.Context, rng string) ([]string, error) {
	values, err := s.getTable(ctx, rng)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(values))
	for _, row := range values {
		if v := cellAt(row, 0); v != "" {
			out = append(out, v)
		}
	}
	return out, nil
}

func cellAt(row []interface{}, i int) string {
	if i >= len(row) {
		return ""
	}
	return cellString(row[i])
}

func cellString(v interface{}) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}
