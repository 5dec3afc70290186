// Package services: PaymentService
//
// This file records the outcome of payment captures performed by the
// external provider. The core never captures payment itself: it is handed a
// capture reference and an amount, and idempotently credits the backing that
// the capture paid for. The provider retries webhooks aggressively, so the
// capture reference doubles as the executor's external reference; replays
// return the original record without crediting twice.
package services

import (
	"context"
	"errors"
	"strconv"

	"gorm.io/gorm"

	"github.com/vlockster/vlockster-backend/internal/domain"
	"github.com/vlockster/vlockster-backend/internal/repo"
)

// TransactionKindBacking tags executor records created by capture recording.
const TransactionKindBacking = "backing"

// PaymentService implements capture recording against backings.
type PaymentService struct {
	// DB is the database handle used for all payment operations.
	DB *gorm.DB
	// Guard authorizes capture recording.
	Guard *Guard
	// Executor applies the credit exactly once per capture reference.
	Executor *Executor
	// Notifier thanks the backer once the credit lands (best effort).
	Notifier *Notifier
}

// NewPaymentService constructs a PaymentService.
func NewPaymentService(db *gorm.DB, guard *Guard, exec *Executor, notifier *Notifier) *PaymentService {
	return &PaymentService{DB: db, Guard: guard, Executor: exec, Notifier: notifier}
}

// RecordCapture credits backingID with the capture identified by captureRef.
//
// Semantics:
//   - The caller must pass the guard for record_capture.
//   - The backing must exist; otherwise ErrBackingNotFound.
//   - amountCents must match the backing's pledged amount; a mismatch is a
//     transition failure (the record is kept so the discrepancy is visible
//     and re-attemptable after correction upstream).
//   - Repeated calls with the same captureRef are replays: the original
//     transaction record is returned and the backing is credited once.
func (s *PaymentService) RecordCapture(ctx context.Context, caller *domain.Identity, captureRef, backingID string, amountCents int64) (*domain.TransactionRecord, bool, error) {
	if err := s.Guard.Authorize(ctx, caller, ActionRecordCapture); err != nil {
		return nil, false, err
	}

	backing, err := repo.GetBacking(ctx, s.DB, backingID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, ErrBackingNotFound
		}
		return nil, false, err
	}

	rec, replayed, err := s.Executor.Apply(ctx, captureRef, TransactionKindBacking, func(tx *gorm.DB) error {
		if backing.AmountCents != amountCents {
			return ErrAmountMismatch
		}
		err := repo.CreditBacking(ctx, tx, backingID, captureRef)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// Credited by an earlier attempt whose record was lost, or
			// the backing vanished; either way the credit cannot apply.
			return ErrBackingNotFound
		}
		return err
	})
	if err != nil {
		return nil, false, err
	}

	if !replayed {
		s.Notifier.Notify(backing.BackerID, EventBackingCredited, map[string]string{
			"amount": formatAmount(amountCents),
		})
	}
	return rec, replayed, nil
}

// formatAmount renders cents as a dollar string for notification templates.
func formatAmount(cents int64) string {
	return "$" + strconv.FormatInt(cents/100, 10) + "." +
		strconv.FormatInt(cents%100/10, 10) + strconv.FormatInt(cents%10, 10)
}
