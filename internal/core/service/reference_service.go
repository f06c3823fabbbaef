package service

import (
	"context"
	"strings"
	"time"

	"github.com/samber/lo"

	"github.com/finops/yearend-accrual/internal/cache"
	"github.com/finops/yearend-accrual/internal/core/domain"
	"github.com/finops/yearend-accrual/internal/port"
)

// maxResults caps every filtered lookup, matching the form's dropdowns.
const maxResults = 50

// ReferenceService serves the read-mostly lookup lists behind the form's
// dropdowns. Full lists are cached per resource for the configured TTL and
// refreshed lazily; filtering runs in memory on the cached copy.
type ReferenceService struct {
	repo  port.ReferenceRepository
	cache cache.Cache
	ttl   time.Duration
}

func NewReferenceService(repo port.ReferenceRepository, c cache.Cache, ttl time.Duration) *ReferenceService {
	if ttl == 0 {
		ttl = 30 * time.Second
	}
	return &ReferenceService{repo: repo, cache: c, ttl: ttl}
}

func (s *ReferenceService) Companies(ctx context.Context) ([]string, error) {
	return cache.GetOrFetch(ctx, s.cache, cache.PrefixCompanies+"all", s.ttl, s.repo.Companies)
}

func (s *ReferenceService) TaxCodes(ctx context.Context) ([]string, error) {
	return cache.GetOrFetch(ctx, s.cache, cache.PrefixTaxCodes+"all", s.ttl, s.repo.TaxCodes)
}

func (s *ReferenceService) TransactionTypes(ctx context.Context) ([]string, error) {
	return cache.GetOrFetch(ctx, s.cache, cache.PrefixTransactionTypes+"all", s.ttl, s.repo.TransactionTypes)
}

func (s *ReferenceService) ExpenseClasses(ctx context.Context) ([]string, error) {
	return cache.GetOrFetch(ctx, s.cache, cache.PrefixExpenseClasses+"all", s.ttl, s.repo.ExpenseClasses)
}

func (s *ReferenceService) SetupDates(ctx context.Context) (domain.SetupDates, error) {
	return cache.GetOrFetch(ctx, s.cache, cache.PrefixSetupDates+"all", s.ttl, s.repo.SetupDates)
}

// Suppliers filters by case-insensitive substring on number or name, and by
// exact company when one is given.
func (s *ReferenceService) Suppliers(ctx context.Context, query, company string) ([]domain.Supplier, error) {
	all, err := cache.GetOrFetch(ctx, s.cache, cache.PrefixSuppliers+"all", s.ttl, s.repo.Suppliers)
	if err != nil {
		return nil, err
	}

	query = strings.ToLower(query)
	company = strings.ToLower(strings.TrimSpace(company))

	filtered := lo.Filter(all, func(sup domain.Supplier, _ int) bool {
		matchesQuery := query == "" ||
			strings.Contains(strings.ToLower(sup.No), query) ||
			strings.Contains(strings.ToLower(sup.Name), query)
		matchesCompany := company == "" || strings.ToLower(sup.Company) == company
		return matchesQuery && matchesCompany
	})

	return truncate(filtered), nil
}

func (s *ReferenceService) GLAccounts(ctx context.Context, query string) ([]domain.GLAccount, error) {
	all, err := cache.GetOrFetch(ctx, s.cache, cache.PrefixGLAccounts+"all", s.ttl, s.repo.GLAccounts)
	if err != nil {
		return nil, err
	}

	query = strings.ToLower(query)
	filtered := lo.Filter(all, func(acc domain.GLAccount, _ int) bool {
		return query == "" ||
			strings.Contains(strings.ToLower(acc.No), query) ||
			strings.Contains(strings.ToLower(acc.Name), query)
	})

	return truncate(filtered), nil
}

func (s *ReferenceService) ProfitCenters(ctx context.Context, query string) ([]domain.ProfitCenter, error) {
	all, err := cache.GetOrFetch(ctx, s.cache, cache.PrefixProfitCenters+"all", s.ttl, s.repo.ProfitCenters)
	if err != nil {
		return nil, err
	}

	query = strings.ToLower(query)
	filtered := lo.Filter(all, func(pc domain.ProfitCenter, _ int) bool {
		return query == "" ||
			strings.Contains(strings.ToLower(pc.No), query) ||
			strings.Contains(strings.ToLower(pc.Name), query)
	})

	return truncate(filtered), nil
}

func truncate[T any](list []T) []T {
	if len(list) > maxResults {
		return list[:maxResults]
	}
	return list
}
