// Package services: Guard
//
// This file implements the authorization guard: a static action→role table
// consulted before every mutating operation, plus the last-admin invariant
// that prevents the system from locking itself out. The table is immutable
// configuration built once at process start and passed in by reference;
// nothing reads it from ambient global state.
package services

import (
	"context"

	"gorm.io/gorm"

	"github.com/vlockster/vlockster-backend/internal/domain"
	"github.com/vlockster/vlockster-backend/internal/repo"
)

// Actions guarded by the role table. Handlers never compare roles directly;
// they name an action and let the guard decide.
const (
	ActionSubmitModeration  = "submit_moderation_request"
	ActionApproveModeration = "approve_moderation_request"
	ActionRejectModeration  = "reject_moderation_request"
	ActionListModeration    = "list_moderation_queue"
	ActionResolveReport     = "resolve_report"
	ActionUpdateUserRole    = "update_user_role"
	ActionDeleteUser        = "delete_user"
	ActionRecordCapture     = "record_capture"
)

// Rules maps an action to the roles allowed to perform it. Unknown actions
// are denied.
type Rules map[string][]string

// DefaultRules returns the production action→role table.
func DefaultRules() Rules {
	return Rules{
		ActionSubmitModeration:  {domain.RoleCreator, domain.RoleAdmin},
		ActionApproveModeration: {domain.RoleAdmin},
		ActionRejectModeration:  {domain.RoleAdmin},
		ActionListModeration:    {domain.RoleAdmin, domain.RoleModerator},
		ActionResolveReport:     {domain.RoleAdmin, domain.RoleModerator},
		ActionUpdateUserRole:    {domain.RoleAdmin},
		ActionDeleteUser:        {domain.RoleAdmin},
		ActionRecordCapture:     {domain.RoleAdmin},
	}
}

// Guard evaluates whether a resolved identity may perform a named action.
// It must be queried, never bypassed: every mutating service method calls
// into it before touching state.
type Guard struct {
	// DB is used for the active-admin count behind last-admin protection.
	DB *gorm.DB
	// Rules is the immutable action→role table.
	Rules Rules
}

// NewGuard constructs a Guard over the given table.
func NewGuard(db *gorm.DB, rules Rules) *Guard {
	return &Guard{DB: db, Rules: rules}
}

// Authorize reports whether identity may perform action. A nil identity,
// a role outside the action's allowed set, or an unknown action all yield
// ErrForbidden.
func (g *Guard) Authorize(_ context.Context, identity *domain.Identity, action string) error {
	if identity == nil {
		return ErrForbidden
	}
	for _, role := range g.Rules[action] {
		if identity.Role == role {
			return nil
		}
	}
	return ErrForbidden
}

// AuthorizeRoleChange authorizes caller to set target's role to newRole.
//
// Last-admin invariant: when target currently holds admin, newRole is not
// admin, and target is the only active admin in the system, the change fails
// with ErrLastAdminProtected regardless of the caller's own role. The
// invariant is checked before the role table so the protection reports
// consistently even for callers who would be forbidden anyway.
func (g *Guard) AuthorizeRoleChange(ctx context.Context, caller, target *domain.Identity, newRole string) error {
	if target != nil && target.Role == domain.RoleAdmin && newRole != domain.RoleAdmin {
		n, err := repo.CountActiveAdmins(ctx, g.DB)
		if err != nil {
			return err
		}
		if n <= 1 {
			return ErrLastAdminProtected
		}
	}
	return g.Authorize(ctx, caller, ActionUpdateUserRole)
}

// AuthorizeDeletion authorizes caller to soft-delete target. Deleting the
// only active admin is refused with ErrLastAdminProtected for the same
// lockout reason as demoting them.
func (g *Guard) AuthorizeDeletion(ctx context.Context, caller, target *domain.Identity) error {
	if target != nil && target.Role == domain.RoleAdmin {
		n, err := repo.CountActiveAdmins(ctx, g.DB)
		if err != nil {
			return err
		}
		if n <= 1 {
			return ErrLastAdminProtected
		}
	}
	return g.Authorize(ctx, caller, ActionDeleteUser)
}
