package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/finops/yearend-accrual/internal/cache"
	"github.com/finops/yearend-accrual/internal/core/domain"
	"github.com/finops/yearend-accrual/internal/logger"
	"github.com/finops/yearend-accrual/internal/port"
)

// ErrControlNumberUnavailable is surfaced after the retry budget is exhausted.
// The submission must be blocked; it never proceeds without a control number.
var ErrControlNumberUnavailable = errors.New("control number unavailable")

const currentControlNumberKey = cache.PrefixControlNumber + "current"

// CounterConfig bounds the store timeout and the retry schedule. Zero fields
// take the defaults below.
type CounterConfig struct {
	OpTimeout       time.Duration
	InitialInterval time.Duration
	MaxInterval     time.Duration
	MaxRetries      uint64
	PeekTTL         time.Duration
}

func (c *CounterConfig) applyDefaults() {
	if c.OpTimeout == 0 {
		c.OpTimeout = 10 * time.Second
	}
	if c.InitialInterval == 0 {
		c.InitialInterval = time.Second
	}
	if c.MaxInterval == 0 {
		c.MaxInterval = 30 * time.Second
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = 3
	}
	if c.PeekTTL == 0 {
		c.PeekTTL = 30 * time.Second
	}
}

// ControlNumberService issues unique sequential control numbers from a single
// shared counter.
//
// Policy: the number handed to the caller is the value read from the store,
// and the store is advanced to its successor, so the value at rest is always
// the next number to issue. Reserve is never cached and never safe to call
// more than once per submission attempt.
//
// Stores implementing port.AtomicCounterStore advance server-side in one
// round trip. Plain stores (the spreadsheet) have no compare-and-swap, so
// reservations against them are serialized behind an in-process mutex:
// concurrent calls queue and the read-modify-write never interleaves. That is
// sufficient for a single instance only; multi-instance deployments need an
// atomic store.
type ControlNumberService struct {
	store  port.CounterStore
	atomic port.AtomicCounterStore // nil when store cannot reserve atomically
	cache  cache.Cache             // fronts PeekCurrent only; nil disables
	log    *logger.Logger
	cfg    CounterConfig

	mu sync.Mutex // serializes read-modify-write reservations
}

func NewControlNumberService(store port.CounterStore, c cache.Cache, log *logger.Logger, cfg CounterConfig) *ControlNumberService {
	cfg.applyDefaults()
	s := &ControlNumberService{store: store, cache: c, log: log, cfg: cfg}
	if atomicStore, ok := store.(port.AtomicCounterStore); ok {
		s.atomic = atomicStore
	}
	return s
}

// PeekCurrent returns the next number to be issued without consuming it.
// Results are cached for PeekTTL.
func (s *ControlNumberService) PeekCurrent(ctx context.Context) (string, error) {
	if s.cache != nil {
		return cache.GetOrFetch(ctx, s.cache, currentControlNumberKey, s.cfg.PeekTTL, s.peek)
	}
	return s.peek(ctx)
}

func (s *ControlNumberService) peek(ctx context.Context) (string, error) {
	raw, err := s.withRetry(ctx, s.store.ReadCurrent)
	if err != nil {
		return "", err
	}
	return s.parseWithFallback(raw).Formatted(), nil
}

// Reserve consumes the current number and advances the store. The returned
// value belongs to exactly one submission and must never be reissued; a later
// failure downstream burns the number rather than reusing it.
func (s *ControlNumberService) Reserve(ctx context.Context) (string, error) {
	var reserved string
	var err error

	if s.atomic != nil {
		reserved, err = s.withRetry(ctx, s.atomic.ReserveNext)
	} else {
		reserved, err = s.reserveSerialized(ctx)
	}
	if err != nil {
		return "", err
	}

	if s.cache != nil {
		s.cache.Delete(ctx, currentControlNumberKey)
	}

	s.log.Infow("control number reserved", "controlNumber", reserved)
	return reserved, nil
}

func (s *ControlNumberService) reserveSerialized(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := s.withRetry(ctx, s.store.ReadCurrent)
	if err != nil {
		return "", err
	}

	current := s.parseWithFallback(raw)
	next := current.Next().Formatted()

	// Retrying the write here is safe: the number has not been handed out
	// yet, and the mutex keeps other reservations queued.
	_, err = s.withRetry(ctx, func(ctx context.Context) (string, error) {
		return "", s.store.WriteValue(ctx, next)
	})
	if err != nil {
		return "", err
	}

	return current.Formatted(), nil
}

func (s *ControlNumberService) parseWithFallback(raw string) domain.ControlNumber {
	cn, err := domain.ParseControlNumber(raw)
	if err != nil {
		s.log.Warnw("stored control number unparsable, using fallback",
			"raw", raw, "fallback", cn.Formatted(), "error", err)
	}
	return cn
}

// withRetry runs op under the per-call timeout with exponential backoff.
// Only transient store failures are retried; everything else is permanent.
func (s *ControlNumberService) withRetry(ctx context.Context, op func(ctx context.Context) (string, error)) (string, error) {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = s.cfg.InitialInterval
	policy.MaxInterval = s.cfg.MaxInterval
	policy.RandomizationFactor = 0
	policy.MaxElapsedTime = 0

	var result string
	attempt := func() error {
		opCtx, cancel := context.WithTimeout(ctx, s.cfg.OpTimeout)
		defer cancel()

		value, err := op(opCtx)
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				err = fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
			}
			if !errors.Is(err, domain.ErrStoreUnavailable) {
				return backoff.Permanent(err)
			}
			s.log.Warnw("store call failed, retrying", "error", err)
			return err
		}
		result = value
		return nil
	}

	err := backoff.Retry(attempt, backoff.WithContext(backoff.WithMaxRetries(policy, s.cfg.MaxRetries), ctx))
	if err != nil {
		if errors.Is(err, domain.ErrStoreUnavailable) {
			return "", fmt.Errorf("%w: %v", ErrControlNumberUnavailable, err)
		}
		return "", err
	}
	return result, nil
}
