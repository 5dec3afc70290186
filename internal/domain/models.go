// Package domain defines the persistence models for identities, sessions,
// moderation requests, backings, and notifications. These types are mapped
// with GORM and form the core data layer of the platform backend.
package domain

import (
	"time"

	"gorm.io/gorm"
)

// Roles an identity can hold. Role changes are performed only through the
// authorization guard; handlers never write the column directly.
const (
	RoleViewer    = "viewer"
	RoleCreator   = "creator"
	RoleModerator = "moderator"
	RoleAdmin     = "admin"
)

// ValidRole reports whether r is one of the recognized roles.
func ValidRole(r string) bool {
	switch r {
	case RoleViewer, RoleCreator, RoleModerator, RoleAdmin:
		return true
	}
	return false
}

// Identity represents a platform account. Identities are never hard-deleted:
// removal tombstones the row (DeletedAt) and anonymizes the personal fields,
// preserving referential integrity of moderation history, backings, and
// transaction records.
//
// Fields:
//   - ID: stable UUID primary key (char(36)).
//   - Email / DisplayName: personal fields, overwritten on soft delete.
//   - Role: one of viewer|creator|moderator|admin (enforced by DB constraint).
//   - CreatedAt / UpdatedAt: timestamps managed by GORM.
//   - DeletedAt: soft deletion marker (retains row for audit/history).
type Identity struct {
	ID          string         `json:"id"           gorm:"type:char(36);primaryKey"`
	Email       string         `json:"email"        gorm:"type:varchar(255);not null;index"`
	DisplayName string         `json:"display_name" gorm:"type:varchar(120);not null"`
	Role        string         `json:"role"         gorm:"type:varchar(16);not null;default:'viewer';check:role IN ('viewer','creator','moderator','admin')"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `json:"-"            gorm:"index"`
}

// TableName returns the database table name for Identity.
func (Identity) TableName() string { return "identities" }

// Session maps an opaque credential (the session token) to an identity.
// Sessions are issued by the external auth flow; this core only resolves
// them. Expired sessions are treated as absent.
type Session struct {
	ID         string    `json:"id"          gorm:"type:char(36);primaryKey"`
	Token      string    `json:"-"           gorm:"type:varchar(128);not null;uniqueIndex"`
	IdentityID string    `json:"identity_id" gorm:"type:char(36);not null;index"`
	CreatedAt  time.Time `json:"created_at"`
	ExpiresAt  time.Time `json:"expires_at"  gorm:"index"`

	Identity Identity `json:"-" gorm:"foreignKey:IdentityID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Session.
func (Session) TableName() string { return "sessions" }

// ModerationRequest statuses. A request is terminal once approved or
// rejected; no transition leaves either state.
const (
	ModerationPending  = "pending"
	ModerationApproved = "approved"
	ModerationRejected = "rejected"
)

// ModerationRequest represents a creator's submission awaiting review
// (e.g., a film upload). It is created by a user action and mutated exactly
// once by an authorized reviewer.
//
// Fields:
//   - ID: UUID primary key (char(36)).
//   - IdentityID: the submitting creator (indexed).
//   - FilmTitle: human-readable label for the submitted work.
//   - Status: pending|approved|rejected (enforced by DB constraint).
//   - Reason: optional reviewer note, required for rejections.
//   - ReviewedBy / ReviewedAt: set when the request reaches a terminal state.
type ModerationRequest struct {
	ID         string         `json:"id"          gorm:"type:char(36);primaryKey"`
	IdentityID string         `json:"identity_id" gorm:"type:char(36);not null;index"`
	FilmTitle  string         `json:"film_title"  gorm:"type:varchar(255);not null"`
	Status     string         `json:"status"      gorm:"type:varchar(16);not null;default:'pending';check:status IN ('pending','approved','rejected')"`
	Reason     string         `json:"reason,omitempty" gorm:"type:text"`
	ReviewedBy string         `json:"reviewed_by,omitempty" gorm:"type:char(36)"`
	ReviewedAt *time.Time     `json:"reviewed_at,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	DeletedAt  gorm.DeletedAt `json:"-" gorm:"index"`
}

// TableName returns the database table name for ModerationRequest.
func (ModerationRequest) TableName() string { return "moderation_requests" }

// CanTransition reports whether a moderation request may move from its
// current status to next. Only pending requests may move, and only to a
// terminal status.
func (m *ModerationRequest) CanTransition(next string) bool {
	if m.Status != ModerationPending {
		return false
	}
	return next == ModerationApproved || next == ModerationRejected
}

// Backing statuses. A backing is created when a viewer pledges to a project
// and credited exactly once when the payment provider's capture is recorded.
const (
	BackingPending  = "pending"
	BackingCredited = "credited"
)

// Backing represents a crowdfunding pledge against a project. Crediting is
// driven by the transaction executor so that provider-side capture retries
// never credit twice.
type Backing struct {
	ID         string         `json:"id"          gorm:"type:char(36);primaryKey"`
	ProjectID  string         `json:"project_id"  gorm:"type:char(36);not null;index"`
	BackerID   string         `json:"backer_id"   gorm:"type:char(36);not null;index"`
	AmountCents int64         `json:"amount_cents" gorm:"not null;check:amount_cents > 0"`
	Status     string         `json:"status"      gorm:"type:varchar(16);not null;default:'pending';check:status IN ('pending','credited')"`
	CaptureRef string         `json:"capture_ref,omitempty" gorm:"type:varchar(128)"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	DeletedAt  gorm.DeletedAt `json:"-" gorm:"index"`
}

// TableName returns the database table name for Backing.
func (Backing) TableName() string { return "backings" }

// Notification is a formatted, in-app message delivered best-effort by the
// notifier. Rows are written on a fire-and-forget path; a failed insert is
// logged and dropped, never surfaced to the operation that triggered it.
type Notification struct {
	ID         string    `json:"id"          gorm:"type:char(36);primaryKey"`
	IdentityID string    `json:"identity_id" gorm:"type:char(36);not null;index:idx_identity_notifications"`
	EventType  string    `json:"event_type"  gorm:"type:varchar(64);not null"`
	Message    string    `json:"message"     gorm:"type:text;not null"`
	Read       bool      `json:"read"        gorm:"not null;default:false"`
	CreatedAt  time.Time `json:"created_at"  gorm:"index:idx_identity_notifications"`
}

// TableName returns the database table name for Notification.
func (Notification) TableName() string { return "notifications" }
