package cache

import (
	"context"
	"time"

	goCache "github.com/patrickmn/go-cache"
)

// Cache is a TTL key/value store in front of the read-heavy lookup paths.
// Every entry carries its own expiry, so refreshing one resource never
// revalidates another.
type Cache interface {
	// Get retrieves a value and reports whether the key was present and fresh.
	Get(ctx context.Context, key string) (interface{}, bool)

	// Set stores a value for the given TTL. A zero expiration uses the
	// cache's default TTL.
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration)

	// Delete removes a key.
	Delete(ctx context.Context, key string)

	// Flush removes all entries.
	Flush(ctx context.Context)
}

// Cache key prefixes per resource.
const (
	PrefixControlNumber    = "controlnumber:v1:"
	PrefixCompanies        = "companies:v1:"
	PrefixSuppliers        = "suppliers:v1:"
	PrefixGLAccounts       = "glaccounts:v1:"
	PrefixProfitCenters    = "profitcenters:v1:"
	PrefixTaxCodes         = "taxcodes:v1:"
	PrefixTransactionTypes = "transactiontypes:v1:"
	PrefixExpenseClasses   = "expenseclasses:v1:"
	PrefixSetupDates       = "setupdates:v1:"
)

// DefaultCleanupInterval is how often expired entries are purged.
const DefaultCleanupInterval = 5 * time.Minute

// InMemory implements Cache on github.com/patrickmn/go-cache.
type InMemory struct {
	cache *goCache.Cache
}

func NewInMemory(defaultTTL time.Duration) *InMemory {
	return &InMemory{cache: goCache.New(defaultTTL, DefaultCleanupInterval)}
}

func (c *InMemory) Get(_ context.Context, key string) (interface{}, bool) {
	return c.cache.Get(key)
}

func (c *InMemory) Set(_ context.Context, key string, value interface{}, expiration time.Duration) {
	c.cache.Set(key, value, expiration)
}

func (c *InMemory) Delete(_ context.Context, key string) {
	c.cache.Delete(key)
}

func (c *InMemory) Flush(_ context.Context) {
	c.cache.Flush()
}

// GetOrFetch returns the cached value under key, or calls fetch, stores the
// result for ttl, and returns it. Fetch errors are never cached. Races on
// population are benign: last writer wins, costing only a redundant fetch.
func GetOrFetch[T any](ctx context.Context, c Cache, key string, ttl time.Duration, fetch func(ctx context.Context) (T, error)) (T, error) {
	if cached, ok := c.Get(ctx, key); ok {
		if value, ok := cached.(T); ok {
			return value, nil
		}
	}

	value, err := fetch(ctx)
	if err != nil {
		var zero T
		return zero, err
	}

	c.Set(ctx, key, value, ttl)
	return value, nil
}
