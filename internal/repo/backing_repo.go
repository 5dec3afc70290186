// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Backing
// model (crowdfunding pledges).
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/vlockster/vlockster-backend/internal/domain"
)

// CreateBacking inserts a pending pledge by backerID against projectID.
func CreateBacking(ctx context.Context, db *gorm.DB, projectID, backerID string, amountCents int64) (*domain.Backing, error) {
	b := &domain.Backing{
		ID:          uuid.NewString(),
		ProjectID:   projectID,
		BackerID:    backerID,
		AmountCents: amountCents,
		Status:      domain.BackingPending,
		CreatedAt:   time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(b).Error; err != nil {
		return nil, err
	}
	return b, nil
}

// GetBacking fetches a backing by ID, or ErrNotFound.
func GetBacking(ctx context.Context, db *gorm.DB, id string) (*domain.Backing, error) {
	var b domain.Backing
	err := db.WithContext(ctx).Where("id = ?", id).First(&b).Error
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// CreditBacking marks a pending backing as credited and records the capture
// reference that paid for it. Only pending rows match, so a backing can be
// credited at most once even if the executor's transition runs again.
func CreditBacking(ctx context.Context, db *gorm.DB, id, captureRef string) error {
	res := db.WithContext(ctx).
		Model(&domain.Backing{}).
		Where("id = ? AND status = ?", id, domain.BackingPending).
		Updates(map[string]any{
			"status":      domain.BackingCredited,
			"capture_ref": captureRef,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
