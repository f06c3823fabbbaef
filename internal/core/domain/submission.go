package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var ErrInvalidSubmission = errors.New("invalid submission")

// LineItem is a single accrual line within a submission.
type LineItem struct {
	GLAccount       string
	ProfitCenter    string
	TaxCode         string
	TransactionType string
	Description     string
	Amount          decimal.Decimal
}

// Submission is one form submission: a shared header plus one or more line
// items. All lines are persisted under a single reserved control number.
type Submission struct {
	ID            string
	Email         string
	Company       string
	Supplier      string
	InvoiceNumber string
	ExpenseClass  string
	Lines         []LineItem
}

// Validate checks the header and every line item. It returns an error wrapping
// ErrInvalidSubmission naming the first problem found.
func (s Submission) Validate() error {
	switch {
	case strings.TrimSpace(s.Email) == "" || !strings.Contains(s.Email, "@"):
		return fmt.Errorf("%w: missing or invalid email", ErrInvalidSubmission)
	case strings.TrimSpace(s.Company) == "":
		return fmt.Errorf("%w: missing company", ErrInvalidSubmission)
	case strings.TrimSpace(s.Supplier) == "":
		return fmt.Errorf("%w: missing supplier", ErrInvalidSubmission)
	case strings.TrimSpace(s.InvoiceNumber) == "":
		return fmt.Errorf("%w: missing invoice number", ErrInvalidSubmission)
	case strings.TrimSpace(s.ExpenseClass) == "":
		return fmt.Errorf("%w: missing expense classification", ErrInvalidSubmission)
	case len(s.Lines) == 0:
		return fmt.Errorf("%w: no line items", ErrInvalidSubmission)
	}

	for i, line := range s.Lines {
		switch {
		case strings.TrimSpace(line.GLAccount) == "":
			return fmt.Errorf("%w: line %d missing GL account", ErrInvalidSubmission, i+1)
		case strings.TrimSpace(line.ProfitCenter) == "":
			return fmt.Errorf("%w: line %d missing profit center", ErrInvalidSubmission, i+1)
		case strings.TrimSpace(line.TaxCode) == "":
			return fmt.Errorf("%w: line %d missing tax code", ErrInvalidSubmission, i+1)
		case strings.TrimSpace(line.TransactionType) == "":
			return fmt.Errorf("%w: line %d missing transaction type", ErrInvalidSubmission, i+1)
		case !line.Amount.IsPositive():
			return fmt.Errorf("%w: line %d amount must be positive", ErrInvalidSubmission, i+1)
		}
	}

	return nil
}

// Ledger row column order. Every line item becomes one row repeating the
// header fields and carrying the shared control number.
//
//	0: submitted-at (RFC 3339, UTC)
//	1: control number
//	2: email
//	3: company
//	4: supplier
//	5: invoice number
//	6: expense classification
//	7: GL account
//	8: profit center
//	9: tax code
//	10: transaction type
//	11: description
//	12: amount
const LedgerRowWidth = 13

// Rows flattens the submission into ledger rows, one per line item.
func (s Submission) Rows(controlNumber string, submittedAt time.Time) [][]string {
	stamp := submittedAt.UTC().Format(time.RFC3339)
	rows := make([][]string, 0, len(s.Lines))
	for _, line := range s.Lines {
		rows = append(rows, []string{
			stamp,
			controlNumber,
			s.Email,
			s.Company,
			s.Supplier,
			s.InvoiceNumber,
			s.ExpenseClass,
			line.GLAccount,
			line.ProfitCenter,
			line.TaxCode,
			line.TransactionType,
			line.Description,
			line.Amount.String(),
		})
	}
	return rows
}
