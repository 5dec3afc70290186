// Package services: IdentityService
//
// This file implements the identity resolver and the account mutations that
// sit behind it. Resolve maps an opaque session credential to an active
// identity; role updates and account deletion run through the authorization
// guard and announce their outcome via the notifier. Soft-deleted identities
// are treated as absent everywhere.
package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/vlockster/vlockster-backend/internal/domain"
	"github.com/vlockster/vlockster-backend/internal/repo"
)

// IdentityService resolves credentials and manages account-level mutations.
type IdentityService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Guard authorizes the mutating operations on this service.
	Guard *Guard
	// Notifier announces role changes and deletions (best effort).
	Notifier *Notifier
	// SessionTTL is the lifetime applied to sessions issued here.
	SessionTTL time.Duration
}

// NewIdentityService constructs an IdentityService with a default session TTL.
func NewIdentityService(db *gorm.DB, guard *Guard, notifier *Notifier) *IdentityService {
	return &IdentityService{
		DB:         db,
		Guard:      guard,
		Notifier:   notifier,
		SessionTTL: 7 * 24 * time.Hour,
	}
}

// Resolve maps an opaque session credential to the current identity.
//
// It fails with ErrUnauthenticated when the credential is blank, no live
// session matches it, or the identity behind the session has been
// soft-deleted. Resolve has no side effects.
func (s *IdentityService) Resolve(ctx context.Context, credential string) (*domain.Identity, error) {
	credential = strings.TrimSpace(credential)
	if credential == "" {
		return nil, ErrUnauthenticated
	}

	sess, err := repo.GetSessionByToken(ctx, s.DB, credential, time.Now().UTC())
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUnauthenticated
		}
		return nil, err
	}

	ident, err := repo.GetIdentity(ctx, s.DB, sess.IdentityID)
	if err != nil {
		// A tombstoned identity hides behind the soft-delete scope and is
		// indistinguishable from a missing one, which is the intent.
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUnauthenticated
		}
		return nil, err
	}
	return ident, nil
}

// IssueSession creates a session for identityID and returns its opaque token.
func (s *IdentityService) IssueSession(ctx context.Context, identityID string) (string, error) {
	token := uuid.NewString()
	if _, err := repo.CreateSession(ctx, s.DB, identityID, token, s.SessionTTL); err != nil {
		return "", err
	}
	return token, nil
}

// EnsureBootstrapAdmin seeds an admin account with the given email when no
// active admin exists yet. Returns the admin identity (existing or created);
// a nil identity with nil error means seeding was disabled (empty email) and
// an admin already exists.
func (s *IdentityService) EnsureBootstrapAdmin(ctx context.Context, email string) (*domain.Identity, error) {
	n, err := repo.CountActiveAdmins(ctx, s.DB)
	if err != nil {
		return nil, err
	}
	if n > 0 || strings.TrimSpace(email) == "" {
		return nil, nil
	}
	return repo.CreateIdentity(ctx, s.DB, email, "Administrator", domain.RoleAdmin)
}

// UpdateRole changes the role of targetID on behalf of caller.
//
// The guard is consulted first; its last-admin protection refuses to demote
// the only remaining admin no matter who asks. On success the target is
// notified of the new role.
func (s *IdentityService) UpdateRole(ctx context.Context, caller *domain.Identity, targetID, newRole string) error {
	if !domain.ValidRole(newRole) {
		return ErrInvalidRole
	}

	target, err := repo.GetIdentity(ctx, s.DB, targetID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrIdentityNotFound
		}
		return err
	}

	if err := s.Guard.AuthorizeRoleChange(ctx, caller, target, newRole); err != nil {
		return err
	}

	if err := repo.UpdateIdentityRole(ctx, s.DB, targetID, newRole); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrIdentityNotFound
		}
		return err
	}

	s.Notifier.Notify(targetID, EventRoleUpdated, map[string]string{"role": newRole})
	return nil
}

// Delete soft-deletes targetID on behalf of caller: the row is tombstoned
// and anonymized, never removed, so moderation history and transaction
// records keep valid references. Deleting the only remaining admin is
// refused for the same lockout reason as demoting them.
func (s *IdentityService) Delete(ctx context.Context, caller *domain.Identity, targetID string) error {
	target, err := repo.GetIdentity(ctx, s.DB, targetID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrIdentityNotFound
		}
		return err
	}

	if err := s.Guard.AuthorizeDeletion(ctx, caller, target); err != nil {
		return err
	}

	if err := repo.SoftDeleteIdentity(ctx, s.DB, targetID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrIdentityNotFound
		}
		return err
	}
	return nil
}
