// Package services: Executor
//
// This file implements the idempotent transaction executor. Every state
// transition driven by an external reference (a payment provider capture ID,
// a moderation request ID) funnels through Apply, which guarantees the
// transition runs at most once per reference. The storage-level unique index
// on external_ref, not application logic, closes the race between concurrent
// calls: the insert loser observes the winner's record instead of running
// the transition again.
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/vlockster/vlockster-backend/internal/domain"
	"github.com/vlockster/vlockster-backend/internal/repo"
)

// TransitionFunc performs the actual state mutation (crediting a backing,
// flipping a moderation status) inside the executor's transaction. A non-nil
// error rolls the mutation back and marks the record failed.
type TransitionFunc func(tx *gorm.DB) error

// Executor applies a state transition exactly once per external reference.
type Executor struct {
	// DB is the GORM handle; transitions run inside its transactions.
	DB *gorm.DB
	// MaxRetries bounds how many times a failed reference may be
	// re-attempted before it is frozen (>= 1).
	MaxRetries int
}

// NewExecutor constructs an Executor with the given retry bound.
func NewExecutor(db *gorm.DB, maxRetries int) *Executor {
	if maxRetries < 1 {
		maxRetries = 1
	}
	return &Executor{DB: db, MaxRetries: maxRetries}
}

// Apply runs fn at most once for externalRef.
//
// Outcomes:
//   - Record already applied: the record is returned unchanged with
//     replayed=true. Replay is a success, not an error; provider-side and
//     client-side retries land here.
//   - Record pending under another call: ErrTransactionInFlight.
//   - Record failed with attempts below the bound: the reference is claimed
//     for one more attempt; at or past the bound, ErrRetriesExhausted.
//   - No record: a pending record is inserted (put-if-absent on the unique
//     external_ref index), fn runs inside a DB transaction, and the record
//     moves to applied or failed. A failed fn surfaces as ErrTransitionFailed
//     wrapping the cause; the record is retained so a later call cannot
//     silently re-run a mutation whose upstream side effect already occurred.
func (e *Executor) Apply(ctx context.Context, externalRef, kind string, fn TransitionFunc) (rec *domain.TransactionRecord, replayed bool, err error) {
	if strings.TrimSpace(externalRef) == "" {
		return nil, false, fmt.Errorf("%w: empty external reference", ErrTransitionFailed)
	}

	rec, err = repo.GetTransaction(ctx, e.DB, externalRef)
	switch {
	case err == nil:
		rec, err = e.claim(ctx, rec)
		if err != nil {
			return nil, false, err
		}
		if rec.Status == domain.TransactionApplied {
			txReplays.WithLabelValues(kind).Inc()
			return rec, true, nil
		}
	case errors.Is(err, repo.ErrNotFound):
		rec, err = repo.CreateTransaction(ctx, e.DB, externalRef, kind)
		if errors.Is(err, repo.ErrDuplicate) {
			// Lost the insert race; the winner's record decides.
			return e.observeWinner(ctx, externalRef, kind)
		}
		if err != nil {
			return nil, false, err
		}
	default:
		return nil, false, err
	}

	return e.run(ctx, rec, kind, fn)
}

// claim decides what an existing record means for this call and, for failed
// records under the bound, flips it back to pending for one more attempt.
func (e *Executor) claim(ctx context.Context, rec *domain.TransactionRecord) (*domain.TransactionRecord, error) {
	switch rec.Status {
	case domain.TransactionApplied:
		return rec, nil
	case domain.TransactionPending:
		return nil, ErrTransactionInFlight
	default: // failed
		if rec.Attempts >= e.MaxRetries {
			return nil, ErrRetriesExhausted
		}
		err := repo.MarkTransactionRetrying(ctx, e.DB, rec.ID, e.MaxRetries)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// Another call claimed the retry (or finished) first.
			return nil, ErrTransactionInFlight
		}
		if err != nil {
			return nil, err
		}
		rec.Status = domain.TransactionPending
		return rec, nil
	}
}

// observeWinner re-reads after losing the put-if-absent race. An applied
// winner is served as a replay; anything else is reported as in flight.
func (e *Executor) observeWinner(ctx context.Context, externalRef, kind string) (*domain.TransactionRecord, bool, error) {
	rec, err := repo.GetTransaction(ctx, e.DB, externalRef)
	if err != nil {
		return nil, false, err
	}
	if rec.Status == domain.TransactionApplied {
		txReplays.WithLabelValues(kind).Inc()
		return rec, true, nil
	}
	return nil, false, ErrTransactionInFlight
}

// run executes the transition and settles the record.
func (e *Executor) run(ctx context.Context, rec *domain.TransactionRecord, kind string, fn TransitionFunc) (*domain.TransactionRecord, bool, error) {
	if txErr := e.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(tx)
	}); txErr != nil {
		txFailures.WithLabelValues(kind).Inc()
		if err := repo.MarkTransactionFailed(ctx, e.DB, rec.ID, txErr.Error()); err != nil {
			return nil, false, err
		}
		return nil, false, fmt.Errorf("%w: %v", ErrTransitionFailed, txErr)
	}

	if err := repo.MarkTransactionApplied(ctx, e.DB, rec.ID, time.Now().UTC()); err != nil {
		return nil, false, err
	}
	rec, err := repo.GetTransaction(ctx, e.DB, rec.ExternalRef)
	if err != nil {
		return nil, false, err
	}
	return rec, false, nil
}
