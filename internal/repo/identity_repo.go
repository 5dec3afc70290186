// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for identities and
// sessions.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations.
// They follow the "thin repository" approach: no business logic, only CRUD
// persistence and query composition.
//
// Error semantics:
//   - When a record is not found, functions return gorm.ErrRecordNotFound
//     (also exported here as ErrNotFound for convenience).
//   - On DB errors (constraint violations, connectivity issues, etc.),
//     the raw gorm error is propagated.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/vlockster/vlockster-backend/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// CreateIdentity inserts a new identity row. The ID is a randomly generated
// UUID (string), and CreatedAt is set to UTC.
func CreateIdentity(ctx context.Context, db *gorm.DB, email, displayName, role string) (*domain.Identity, error) {
	id := &domain.Identity{
		ID:          uuid.NewString(),
		Email:       email,
		DisplayName: displayName,
		Role:        role,
		CreatedAt:   time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(id).Error; err != nil {
		return nil, err
	}
	return id, nil
}

// GetIdentity fetches a single active identity by ID. Soft-deleted rows are
// excluded by GORM's default scope, so a tombstoned identity yields
// ErrNotFound.
func GetIdentity(ctx context.Context, db *gorm.DB, id string) (*domain.Identity, error) {
	var ident domain.Identity
	err := db.WithContext(ctx).Where("id = ?", id).First(&ident).Error
	if err != nil {
		return nil, err
	}
	return &ident, nil
}

// GetIdentityByEmail fetches a single active identity by email address.
func GetIdentityByEmail(ctx context.Context, db *gorm.DB, email string) (*domain.Identity, error) {
	var ident domain.Identity
	err := db.WithContext(ctx).Where("email = ?", email).First(&ident).Error
	if err != nil {
		return nil, err
	}
	return &ident, nil
}

// UpdateIdentityRole sets the role column for an active identity.
// Returns ErrNotFound when the identity does not exist (or is tombstoned).
func UpdateIdentityRole(ctx context.Context, db *gorm.DB, id, role string) error {
	res := db.WithContext(ctx).
		Model(&domain.Identity{}).
		Where("id = ?", id).
		Update("role", role)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// CountActiveAdmins returns the number of non-deleted identities holding the
// admin role. The guard uses this for last-admin protection.
func CountActiveAdmins(ctx context.Context, db *gorm.DB) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.Identity{}).
		Where("role = ?", domain.RoleAdmin).
		Count(&total).Error
	return total, err
}

// SoftDeleteIdentity tombstones an identity and anonymizes its personal
// fields in one transaction. The row is retained so moderation history,
// backings, and transaction records keep valid references.
func SoftDeleteIdentity(ctx context.Context, db *gorm.DB, id string) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&domain.Identity{}).
			Where("id = ?", id).
			Updates(map[string]any{
				"email":        "deleted+" + id + "@vlockster.invalid",
				"display_name": "Deleted user",
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		// Revoke every live session, then tombstone.
		if err := tx.Where("identity_id = ?", id).Delete(&domain.Session{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&domain.Identity{}).Error
	})
}

// CreateSession issues a session row binding token to identityID.
func CreateSession(ctx context.Context, db *gorm.DB, identityID, token string, ttl time.Duration) (*domain.Session, error) {
	now := time.Now().UTC()
	s := &domain.Session{
		ID:         uuid.NewString(),
		Token:      token,
		IdentityID: identityID,
		CreatedAt:  now,
		ExpiresAt:  now.Add(ttl),
	}
	if err := db.WithContext(ctx).Create(s).Error; err != nil {
		return nil, err
	}
	return s, nil
}

// GetSessionByToken returns a non-expired session or ErrNotFound.
func GetSessionByToken(ctx context.Context, db *gorm.DB, token string, now time.Time) (*domain.Session, error) {
	var s domain.Session
	err := db.WithContext(ctx).
		Where("token = ? AND expires_at > ?", token, now).
		First(&s).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}
