package port

import "context"

// CounterStore holds the single shared control-number value. The persisted
// value at rest is always the NEXT number to hand out.
type CounterStore interface {
	// ReadCurrent returns the raw formatted value currently stored. An empty
	// string with a nil error means the counter was never initialized; I/O
	// failures wrap domain.ErrStoreUnavailable and never default silently.
	ReadCurrent(ctx context.Context) (string, error)

	// WriteValue overwrites the stored value. No compare-and-swap: callers
	// own serialization of read-modify-write cycles.
	WriteValue(ctx context.Context, formatted string) error
}

// AtomicCounterStore advances the counter server-side in one round trip,
// eliminating the read-then-write race. Stores that can implement it are
// always preferred over the plain CounterStore path.
type AtomicCounterStore interface {
	CounterStore

	// ReserveNext atomically returns the stored value and advances the store
	// to its successor. The returned value is the one being assigned to the
	// current submission.
	ReserveNext(ctx context.Context) (string, error)
}
