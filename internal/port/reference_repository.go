package port

import (
	"context"

	"github.com/finops/yearend-accrual/internal/core/domain"
)

// ReferenceRepository returns the unfiltered reference lists the form feeds
// its dropdowns from. Filtering and truncation happen in the service layer.
type ReferenceRepository interface {
	Companies(ctx context.Context) ([]string, error)
	Suppliers(ctx context.Context) ([]domain.Supplier, error)
	GLAccounts(ctx context.Context) ([]domain.GLAccount, error)
	ProfitCenters(ctx context.Context) ([]domain.ProfitCenter, error)
	TaxCodes(ctx context.Context) ([]string, error)
	TransactionTypes(ctx context.Context) ([]string, error)
	ExpenseClasses(ctx context.Context) ([]string, error)
	SetupDates(ctx context.Context) (domain.SetupDates, error)
}
