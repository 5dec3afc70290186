package services

import (
	"context"
	"testing"
	"time"
)

func testPolicy() RatePolicy {
	return RatePolicy{Name: "sensitive", Limit: 5, Window: 60 * time.Second}
}

func TestRateGate_AdmitsUpToLimit(t *testing.T) {
	db := newSvcDB(t)
	gate := NewRateGate(db, false)
	ctx := context.Background()

	// 5 calls within one second are all admitted; the 6th in the same
	// window is denied with a positive retry hint.
	for i := 0; i < 5; i++ {
		d, err := gate.Admit(ctx, "id1", testPolicy())
		if err != nil {
			t.Fatalf("admit %d: %v", i+1, err)
		}
		if !d.Admitted {
			t.Fatalf("call %d should be admitted", i+1)
		}
	}

	d, err := gate.Admit(ctx, "id1", testPolicy())
	if err != nil {
		t.Fatalf("admit 6: %v", err)
	}
	if d.Admitted {
		t.Fatal("6th call within the window should be denied")
	}
	if d.RetryAfter <= 0 {
		t.Fatalf("RetryAfter = %v, want > 0", d.RetryAfter)
	}
	if d.RetryAfter > testPolicy().Window {
		t.Fatalf("RetryAfter = %v, want <= window", d.RetryAfter)
	}
}

func TestRateGate_WindowReset(t *testing.T) {
	db := newSvcDB(t)
	gate := NewRateGate(db, false)
	ctx := context.Background()

	now := time.Now().UTC()
	gate.Now = func() time.Time { return now }

	// Exhaust the window.
	for i := 0; i < 6; i++ {
		gate.Admit(ctx, "id2", testPolicy())
	}
	if d, _ := gate.Admit(ctx, "id2", testPolicy()); d.Admitted {
		t.Fatal("window should be exhausted")
	}

	// After windowSeconds elapse, the next call starts a fresh window with
	// count 1 and is admitted even though the prior window was exhausted.
	gate.Now = func() time.Time { return now.Add(61 * time.Second) }

	d, err := gate.Admit(ctx, "id2", testPolicy())
	if err != nil {
		t.Fatalf("admit after reset: %v", err)
	}
	if !d.Admitted {
		t.Fatal("first call of the fresh window should be admitted")
	}
}

func TestRateGate_IdentitiesAreIsolated(t *testing.T) {
	db := newSvcDB(t)
	gate := NewRateGate(db, false)
	ctx := context.Background()

	for i := 0; i < 6; i++ {
		gate.Admit(ctx, "noisy", testPolicy())
	}
	d, err := gate.Admit(ctx, "quiet", testPolicy())
	if err != nil {
		t.Fatalf("admit: %v", err)
	}
	if !d.Admitted {
		t.Fatal("another identity must not be affected by a noisy neighbor")
	}
}

func TestRateGate_StoreError_FailClosed(t *testing.T) {
	db := newSvcDB(t)
	gate := NewRateGate(db, false)
	ctx := context.Background()

	// Break the counter store.
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("db handle: %v", err)
	}
	sqlDB.Close()

	d, err := gate.Admit(ctx, "id3", testPolicy())
	if err != nil {
		t.Fatalf("admit: %v", err)
	}
	if d.Admitted {
		t.Fatal("fail-closed gate must deny when the store is unreachable")
	}
	if d.RetryAfter <= 0 {
		t.Fatalf("RetryAfter = %v, want > 0", d.RetryAfter)
	}
}

func TestRateGate_StoreError_FailOpen(t *testing.T) {
	db := newSvcDB(t)
	gate := NewRateGate(db, true)
	ctx := context.Background()

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("db handle: %v", err)
	}
	sqlDB.Close()

	d, err := gate.Admit(ctx, "id4", testPolicy())
	if err != nil {
		t.Fatalf("admit: %v", err)
	}
	if !d.Admitted {
		t.Fatal("fail-open gate must admit when the store is unreachable")
	}
}
