package repo

import (
	"context"
	"errors"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/vlockster/vlockster-backend/internal/domain"
)

func TestSoftDeleteIdentity_TombstonesAndAnonymizes(t *testing.T) {
	db := newRepoDB(t, &domain.Identity{}, &domain.Session{})
	ctx := context.Background()

	ident, err := CreateIdentity(ctx, db, "ada@example.com", "Ada", domain.RoleCreator)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := CreateSession(ctx, db, ident.ID, "tok-1", time.Hour); err != nil {
		t.Fatalf("session: %v", err)
	}

	if err := SoftDeleteIdentity(ctx, db, ident.ID); err != nil {
		t.Fatalf("soft delete: %v", err)
	}

	// Default scope hides the tombstoned row.
	if _, err := GetIdentity(ctx, db, ident.ID); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("expected not found after delete, got %v", err)
	}

	// The row still exists, anonymized, for referential integrity.
	var raw domain.Identity
	if err := db.Unscoped().Where("id = ?", ident.ID).First(&raw).Error; err != nil {
		t.Fatalf("unscoped fetch: %v", err)
	}
	if raw.Email == "ada@example.com" || raw.DisplayName == "Ada" {
		t.Fatalf("personal fields not anonymized: %+v", raw)
	}
	if !raw.DeletedAt.Valid {
		t.Fatal("expected DeletedAt tombstone")
	}

	// Sessions are revoked with the identity.
	if _, err := GetSessionByToken(ctx, db, "tok-1", time.Now().UTC()); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("expected session revoked, got %v", err)
	}
}

func TestCountActiveAdmins_ExcludesDeleted(t *testing.T) {
	db := newRepoDB(t, &domain.Identity{}, &domain.Session{})
	ctx := context.Background()

	a1, _ := CreateIdentity(ctx, db, "a1@example.com", "A1", domain.RoleAdmin)
	if _, err := CreateIdentity(ctx, db, "a2@example.com", "A2", domain.RoleAdmin); err != nil {
		t.Fatalf("create: %v", err)
	}
	CreateIdentity(ctx, db, "v@example.com", "V", domain.RoleViewer)

	n, err := CountActiveAdmins(ctx, db)
	if err != nil || n != 2 {
		t.Fatalf("count = %d, err %v, want 2", n, err)
	}

	if err := SoftDeleteIdentity(ctx, db, a1.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	n, _ = CountActiveAdmins(ctx, db)
	if n != 1 {
		t.Fatalf("count after delete = %d, want 1", n)
	}
}

func TestGetSessionByToken_Expired(t *testing.T) {
	db := newRepoDB(t, &domain.Identity{}, &domain.Session{})
	ctx := context.Background()

	ident, _ := CreateIdentity(ctx, db, "x@example.com", "X", domain.RoleViewer)
	if _, err := CreateSession(ctx, db, ident.ID, "tok-exp", -time.Minute); err != nil {
		t.Fatalf("session: %v", err)
	}

	if _, err := GetSessionByToken(ctx, db, "tok-exp", time.Now().UTC()); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("expected expired session to be absent, got %v", err)
	}
}

func TestUpdateIdentityRole(t *testing.T) {
	db := newRepoDB(t, &domain.Identity{})
	ctx := context.Background()

	ident, _ := CreateIdentity(ctx, db, "m@example.com", "M", domain.RoleViewer)
	if err := UpdateIdentityRole(ctx, db, ident.ID, domain.RoleModerator); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, _ := GetIdentity(ctx, db, ident.ID)
	if got.Role != domain.RoleModerator {
		t.Fatalf("role = %q", got.Role)
	}

	if err := UpdateIdentityRole(ctx, db, "missing", domain.RoleAdmin); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
