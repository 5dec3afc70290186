package services

import (
	"context"
	"testing"
	"time"

	"github.com/vlockster/vlockster-backend/internal/repo"
)

func TestNotifier_Format(t *testing.T) {
	n := NewNotifier(nil)

	msg := n.Format(EventModerationApproved, map[string]string{"film_title": "First Cut"})
	if msg != `Your film "First Cut" was approved and is now live.` {
		t.Fatalf("formatted = %q", msg)
	}

	msg = n.Format(EventRoleUpdated, map[string]string{"role": "moderator"})
	if msg != "Your account role is now moderator." {
		t.Fatalf("formatted = %q", msg)
	}

	// Unregistered events fall back to a readable generic message.
	msg = n.Format("payout_scheduled", nil)
	if msg != "Payout Scheduled" {
		t.Fatalf("fallback = %q", msg)
	}
}

func TestNotifier_DeliversToStore(t *testing.T) {
	db := newSvcDB(t)
	n := NewNotifier(db)

	n.Notify("id1", EventBackingCredited, map[string]string{"amount": "$25.00"})
	n.Flush()

	rows, err := repo.ListNotificationsPage(context.Background(), db, "id1", 0, 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("got %d notifications, want 1", len(rows))
	}
	if rows[0].EventType != EventBackingCredited || rows[0].Message == "" {
		t.Fatalf("row = %+v", rows[0])
	}
}

func TestNotifier_DedupesBursts(t *testing.T) {
	db := newSvcDB(t)
	n := NewNotifier(db)
	n.DedupeWindow = time.Minute

	for i := 0; i < 5; i++ {
		n.Notify("id2", EventRoleUpdated, map[string]string{"role": "creator"})
	}
	n.Flush()

	rows, _ := repo.ListNotificationsPage(context.Background(), db, "id2", 0, 10)
	if len(rows) != 1 {
		t.Fatalf("got %d notifications, want 1 after dedupe", len(rows))
	}

	// A different message in the same burst is not suppressed.
	n.Notify("id2", EventRoleUpdated, map[string]string{"role": "moderator"})
	n.Flush()
	rows, _ = repo.ListNotificationsPage(context.Background(), db, "id2", 0, 10)
	if len(rows) != 2 {
		t.Fatalf("got %d notifications, want 2", len(rows))
	}
}

func TestNotifier_StoreFailureNeverPropagates(t *testing.T) {
	db := newSvcDB(t)
	n := NewNotifier(db)

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("db handle: %v", err)
	}
	sqlDB.Close()

	// Must not panic or block; the failure is logged and dropped.
	n.Notify("id3", EventModerationRejected, map[string]string{
		"film_title": "Gone",
		"reason":     "duplicate submission",
	})
	n.Flush()
}
