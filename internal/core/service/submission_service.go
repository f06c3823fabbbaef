package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/finops/yearend-accrual/internal/core/domain"
	"github.com/finops/yearend-accrual/internal/logger"
	"github.com/finops/yearend-accrual/internal/port"
)

// ErrLedgerAppend marks an append failure AFTER a control number was
// reserved. The number is burned, not reissued; callers must not retry the
// whole submission blindly.
var ErrLedgerAppend = errors.New("ledger append failed")

// Receipt is returned to the client on (possibly partial) completion. On an
// append failure it still carries the burned control number so the user can
// report it.
type Receipt struct {
	SubmissionID  string
	ControlNumber string
}

// SubmissionService sequences a submission: validate, reserve a control
// number exactly once, then append the ledger rows.
type SubmissionService struct {
	control *ControlNumberService
	ledger  port.LedgerAppender
	log     *logger.Logger
	now     func() time.Time
}

func NewSubmissionService(control *ControlNumberService, ledger port.LedgerAppender, log *logger.Logger) *SubmissionService {
	return &SubmissionService{
		control: control,
		ledger:  ledger,
		log:     log,
		now:     time.Now,
	}
}

// Submit validates and persists one submission. Reserve is invoked at most
// once per call: a reserve failure blocks the submission with
// ErrControlNumberUnavailable, and an append failure after a successful
// reserve returns ErrLedgerAppend without re-reserving.
func (s *SubmissionService) Submit(ctx context.Context, sub domain.Submission) (Receipt, error) {
	if err := sub.Validate(); err != nil {
		return Receipt{}, err
	}

	if sub.ID == "" {
		sub.ID = uuid.NewString()
	}

	controlNumber, err := s.control.Reserve(ctx)
	if err != nil {
		return Receipt{}, err
	}

	rows := sub.Rows(controlNumber, s.now())
	if err := s.ledger.AppendRows(ctx, rows); err != nil {
		s.log.Errorw("ledger append failed after reservation, control number burned",
			"submissionID", sub.ID, "controlNumber", controlNumber, "error", err)
		return Receipt{SubmissionID: sub.ID, ControlNumber: controlNumber},
			fmt.Errorf("%w: %v", ErrLedgerAppend, err)
	}

	s.log.Infow("submission persisted",
		"submissionID", sub.ID, "controlNumber", controlNumber, "lines", len(sub.Lines))
	return Receipt{SubmissionID: sub.ID, ControlNumber: controlNumber}, nil
}
