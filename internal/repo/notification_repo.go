// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the in-app
// Notification store, the delivery channel used by the notifier.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/vlockster/vlockster-backend/internal/domain"
)

// CreateNotification inserts one formatted notification for identityID.
func CreateNotification(ctx context.Context, db *gorm.DB, identityID, eventType, message string) (*domain.Notification, error) {
	n := &domain.Notification{
		ID:         uuid.NewString(),
		IdentityID: identityID,
		EventType:  eventType,
		Message:    message,
		CreatedAt:  time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(n).Error; err != nil {
		return nil, err
	}
	return n, nil
}

// CountNotifications returns the total number of notifications for identityID.
func CountNotifications(ctx context.Context, db *gorm.DB, identityID string) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.Notification{}).
		Where("identity_id = ?", identityID).
		Count(&total).Error
	return total, err
}

// ListNotificationsPage returns a page of notifications for identityID,
// newest first.
func ListNotificationsPage(ctx context.Context, db *gorm.DB, identityID string, offset, limit int) ([]domain.Notification, error) {
	var out []domain.Notification
	err := db.WithContext(ctx).
		Where("identity_id = ?", identityID).
		Order("created_at desc").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// MarkNotificationRead flags a single notification as read, enforcing
// ownership. Returns ErrNotFound when the row is missing or owned by someone
// else.
func MarkNotificationRead(ctx context.Context, db *gorm.DB, id, identityID string) error {
	res := db.WithContext(ctx).
		Model(&domain.Notification{}).
		Where("id = ? AND identity_id = ?", id, identityID).
		Update("read", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
