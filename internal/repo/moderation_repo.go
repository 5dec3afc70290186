// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the
// ModerationRequest model.
//
// The terminal-state invariant (no transition out of approved/rejected) is
// enforced twice: by the domain state machine in the service layer, and by
// the WHERE status = 'pending' guard on the update here, so a racing second
// reviewer cannot flip an already-reviewed request.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/vlockster/vlockster-backend/internal/domain"
)

// CreateModerationRequest inserts a pending request submitted by identityID.
func CreateModerationRequest(ctx context.Context, db *gorm.DB, identityID, filmTitle string) (*domain.ModerationRequest, error) {
	m := &domain.ModerationRequest{
		ID:         uuid.NewString(),
		IdentityID: identityID,
		FilmTitle:  filmTitle,
		Status:     domain.ModerationPending,
		CreatedAt:  time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(m).Error; err != nil {
		return nil, err
	}
	return m, nil
}

// GetModerationRequest fetches a request by ID, or ErrNotFound.
func GetModerationRequest(ctx context.Context, db *gorm.DB, id string) (*domain.ModerationRequest, error) {
	var m domain.ModerationRequest
	err := db.WithContext(ctx).Where("id = ?", id).First(&m).Error
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// CountModerationRequests returns the number of requests with the given
// status ("" counts all).
func CountModerationRequests(ctx context.Context, db *gorm.DB, status string) (int64, error) {
	q := db.WithContext(ctx).Model(&domain.ModerationRequest{})
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var total int64
	err := q.Count(&total).Error
	return total, err
}

// ListModerationRequestsPage returns a page of requests with the given status
// ("" lists all), oldest first so reviewers drain the queue in order.
func ListModerationRequestsPage(ctx context.Context, db *gorm.DB, status string, offset, limit int) ([]domain.ModerationRequest, error) {
	q := db.WithContext(ctx).Model(&domain.ModerationRequest{})
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var out []domain.ModerationRequest
	err := q.Order("created_at asc").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// ReviewModerationRequest moves a pending request to a terminal status and
// stamps the reviewer. The WHERE clause matches only pending rows; when no
// row is affected the request was missing or already reviewed, and the
// caller distinguishes the two with a follow-up read.
func ReviewModerationRequest(ctx context.Context, db *gorm.DB, id, status, reviewedBy, reason string, now time.Time) error {
	res := db.WithContext(ctx).
		Model(&domain.ModerationRequest{}).
		Where("id = ? AND status = ?", id, domain.ModerationPending).
		Updates(map[string]any{
			"status":      status,
			"reviewed_by": reviewedBy,
			"reviewed_at": now,
			"reason":      reason,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
