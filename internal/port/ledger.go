package port

import "context"

// LedgerAppender persists submission line items as appended rows, in the
// column order documented on domain.Submission.Rows. Append-only; the ledger
// is never rewritten by this service.
type LedgerAppender interface {
	AppendRows(ctx context.Context, rows [][]string) error
}
