package repo

import (
	"context"
	"errors"
	"testing"

	"gorm.io/gorm"

	"github.com/vlockster/vlockster-backend/internal/domain"
)

func TestCreditBacking_OnlyOnce(t *testing.T) {
	db := newRepoDB(t, &domain.Backing{})
	ctx := context.Background()

	b, err := CreateBacking(ctx, db, "proj-1", "backer-1", 2500)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if b.Status != domain.BackingPending {
		t.Fatalf("status = %q, want pending", b.Status)
	}

	if err := CreditBacking(ctx, db, b.ID, "ch_1"); err != nil {
		t.Fatalf("credit: %v", err)
	}
	got, err := GetBacking(ctx, db, b.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != domain.BackingCredited || got.CaptureRef != "ch_1" {
		t.Fatalf("backing = %+v", got)
	}

	// Crediting a credited backing matches no rows.
	if err := CreditBacking(ctx, db, b.ID, "ch_2"); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("second credit: expected ErrRecordNotFound, got %v", err)
	}
	got, _ = GetBacking(ctx, db, b.ID)
	if got.CaptureRef != "ch_1" {
		t.Fatalf("capture_ref overwritten: %q", got.CaptureRef)
	}
}

func TestCreditBacking_Missing(t *testing.T) {
	db := newRepoDB(t, &domain.Backing{})
	if err := CreditBacking(context.Background(), db, "nope", "ch_1"); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("expected ErrRecordNotFound, got %v", err)
	}
}
