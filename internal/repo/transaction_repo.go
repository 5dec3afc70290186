// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository helpers for the
// TransactionRecord model used by the idempotent transaction executor.
//
// The unique index on external_ref is what makes the executor safe under
// concurrency: two racing inserts for the same reference resolve at the
// storage layer, and the loser surfaces ErrDuplicate.
package repo

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/vlockster/vlockster-backend/internal/domain"
)

// ErrDuplicate indicates that a row already exists for a unique key
// (an external_ref, or a (identity_id, policy) rate window).
var ErrDuplicate = errors.New("duplicate")

// GetTransaction returns the record for externalRef or ErrNotFound.
func GetTransaction(ctx context.Context, db *gorm.DB, externalRef string) (*domain.TransactionRecord, error) {
	if strings.TrimSpace(externalRef) == "" {
		return nil, ErrNotFound
	}
	var rec domain.TransactionRecord
	err := db.WithContext(ctx).
		Where("external_ref = ?", externalRef).
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// CreateTransaction inserts a pending record and returns ErrDuplicate on
// unique violation, which callers treat as "someone else holds this ref".
func CreateTransaction(ctx context.Context, db *gorm.DB, externalRef, kind string) (*domain.TransactionRecord, error) {
	rec := &domain.TransactionRecord{
		ID:          uuid.NewString(),
		ExternalRef: externalRef,
		Kind:        kind,
		Status:      domain.TransactionPending,
		CreatedAt:   time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(rec).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicate
		}
		return nil, err
	}
	return rec, nil
}

// MarkTransactionApplied moves a record to applied and stamps AppliedAt.
// The WHERE clause refuses to touch a record that is already applied, so the
// applied state stays terminal even if two executors finish close together.
func MarkTransactionApplied(ctx context.Context, db *gorm.DB, id string, now time.Time) error {
	res := db.WithContext(ctx).
		Model(&domain.TransactionRecord{}).
		Where("id = ? AND status <> ?", id, domain.TransactionApplied).
		Updates(map[string]any{
			"status":     domain.TransactionApplied,
			"applied_at": now,
			"last_error": "",
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// MarkTransactionFailed moves a record to failed, increments its attempt
// counter, and keeps the row so a later call with the same external_ref
// cannot silently re-run a mutation whose upstream side effect may already
// have happened.
func MarkTransactionFailed(ctx context.Context, db *gorm.DB, id, cause string) error {
	res := db.WithContext(ctx).
		Model(&domain.TransactionRecord{}).
		Where("id = ? AND status <> ?", id, domain.TransactionApplied).
		Updates(map[string]any{
			"status":     domain.TransactionFailed,
			"attempts":   gorm.Expr("attempts + 1"),
			"last_error": cause,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// MarkTransactionRetrying flips a failed record back to pending for one more
// attempt. It only matches failed rows below the attempt bound, so a racing
// retry for the same reference claims the record at most once.
func MarkTransactionRetrying(ctx context.Context, db *gorm.DB, id string, maxAttempts int) error {
	res := db.WithContext(ctx).
		Model(&domain.TransactionRecord{}).
		Where("id = ? AND status = ? AND attempts < ?", id, domain.TransactionFailed, maxAttempts).
		Update("status", domain.TransactionPending)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// isUniqueViolation detects unique-constraint violations across drivers.
// glebarez/sqlite often returns plain-text errors for UNIQUE violations.
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	low := strings.ToLower(err.Error())
	return strings.Contains(low, "unique constraint failed") ||
		strings.Contains(low, "constraint failed: unique") ||
		strings.Contains(low, "duplicate key")
}
