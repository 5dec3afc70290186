// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides the counter-store primitives behind the
// rate gate: windows are reset in place on rollover and incremented with a
// single atomic UPDATE so multiple process instances can share the table.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/vlockster/vlockster-backend/internal/domain"
)

// GetRateWindow returns the window row for (identityID, policy) or ErrNotFound.
func GetRateWindow(ctx context.Context, db *gorm.DB, identityID, policy string) (*domain.RateWindow, error) {
	var w domain.RateWindow
	err := db.WithContext(ctx).
		Where("identity_id = ? AND policy = ?", identityID, policy).
		First(&w).Error
	if err != nil {
		return nil, err
	}
	return &w, nil
}

// StartRateWindow begins a fresh window with count 1 for (identityID, policy),
// overwriting any previous window via upsert on the unique index. The first
// call in a window is always admitted, so the count starts at 1.
func StartRateWindow(ctx context.Context, db *gorm.DB, identityID, policy string, windowStart time.Time) error {
	w := &domain.RateWindow{
		ID:          uuid.NewString(),
		IdentityID:  identityID,
		Policy:      policy,
		WindowStart: windowStart,
		Count:       1,
	}
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "identity_id"}, {Name: "policy"}},
			DoUpdates: clause.Assignments(map[string]any{"window_start": windowStart, "count": 1}),
		}).
		Create(w).Error
}

// IncrementRateWindow atomically bumps the counter of the live window
// identified by (identityID, policy, windowStart) and returns the new count.
// The single UPDATE..RETURNING makes increment-and-check race-free: two
// concurrent callers each observe a distinct count.
//
// Returns ErrNotFound when the window rolled over between the caller's read
// and the increment; the caller restarts the admission check.
func IncrementRateWindow(ctx context.Context, db *gorm.DB, identityID, policy string, windowStart time.Time) (int, error) {
	var count int
	res := db.WithContext(ctx).Raw(
		`UPDATE rate_windows
		    SET count = count + 1, updated_at = ?
		  WHERE identity_id = ? AND policy = ? AND window_start = ?
		 RETURNING count`,
		time.Now().UTC(), identityID, policy, windowStart,
	).Scan(&count)
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected == 0 {
		return 0, ErrNotFound
	}
	return count, nil
}
