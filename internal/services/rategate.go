// Package services: RateGate
//
// This file implements per-identity sliding-window admission control shared
// by the sensitive operations (moderation review, role changes, capture
// recording). Windows live in the database so multiple process instances
// enforce one shared budget; the atomic increment in the counter store is
// what keeps concurrent admissions honest.
//
// Degradation is explicit: when the counter store errors, the gate admits if
// FailOpen is set (non-production) and denies otherwise. The flag comes from
// configuration, not from sniffing the environment.
package services

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/vlockster/vlockster-backend/internal/repo"
)

// RatePolicy names one admission budget: at most Limit calls per Window.
type RatePolicy struct {
	Name   string
	Limit  int
	Window time.Duration
}

// Decision is the outcome of an admission check. RetryAfter is populated
// only on denial and reports how long until the current window ends.
type Decision struct {
	Admitted   bool
	RetryAfter time.Duration
}

// RateGate admits or denies calls per (identity, policy) window. It performs
// pure resource accounting and never mutates business state.
type RateGate struct {
	// DB is the counter store.
	DB *gorm.DB
	// FailOpen admits on counter-store errors when true; the default
	// (false) fails closed.
	FailOpen bool
	// Now is a clock seam for tests; nil means time.Now.
	Now func() time.Time
}

// NewRateGate constructs a RateGate over db with the given degradation mode.
func NewRateGate(db *gorm.DB, failOpen bool) *RateGate {
	return &RateGate{DB: db, FailOpen: failOpen}
}

func (g *RateGate) now() time.Time {
	if g.Now != nil {
		return g.Now().UTC()
	}
	return time.Now().UTC()
}

// Admit checks identityID against policy and returns the decision.
//
// Behavior per call:
//   - No window, or the current window has expired: start a fresh window
//     with count 1 and admit.
//   - Live window: atomically increment; admit iff count <= limit, else deny
//     with RetryAfter = windowEnd - now.
//   - Counter store unreachable: admit when FailOpen, deny otherwise; both
//     paths log the degradation so it is never silent.
func (g *RateGate) Admit(ctx context.Context, identityID string, policy RatePolicy) (Decision, error) {
	now := g.now()

	w, err := repo.GetRateWindow(ctx, g.DB, identityID, policy.Name)
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		if err := repo.StartRateWindow(ctx, g.DB, identityID, policy.Name, now); err != nil {
			return g.degrade(policy, err), nil
		}
		return Decision{Admitted: true}, nil
	case err != nil:
		return g.degrade(policy, err), nil
	}

	windowEnd := w.WindowStart.Add(policy.Window)
	if !now.Before(windowEnd) {
		// Rollover: the next call starts a fresh window with count 1 and
		// is admitted even if the prior window was exhausted.
		if err := repo.StartRateWindow(ctx, g.DB, identityID, policy.Name, now); err != nil {
			return g.degrade(policy, err), nil
		}
		return Decision{Admitted: true}, nil
	}

	count, err := repo.IncrementRateWindow(ctx, g.DB, identityID, policy.Name, w.WindowStart)
	if errors.Is(err, repo.ErrNotFound) {
		// The window rolled over underneath us; the replacement window
		// absorbs this call as its first admission.
		if err := repo.StartRateWindow(ctx, g.DB, identityID, policy.Name, now); err != nil {
			return g.degrade(policy, err), nil
		}
		return Decision{Admitted: true}, nil
	}
	if err != nil {
		return g.degrade(policy, err), nil
	}

	if count <= policy.Limit {
		return Decision{Admitted: true}, nil
	}

	rateDenials.WithLabelValues(policy.Name, "limit").Inc()
	return Decision{Admitted: false, RetryAfter: windowEnd.Sub(now)}, nil
}

// degrade applies the configured fail-open/fail-closed policy after a
// counter-store error.
func (g *RateGate) degrade(policy RatePolicy, cause error) Decision {
	if g.FailOpen {
		log.Warn().Err(cause).Str("policy", policy.Name).
			Msg("rate gate store error, admitting (fail open)")
		return Decision{Admitted: true}
	}
	log.Warn().Err(cause).Str("policy", policy.Name).
		Msg("rate gate store error, denying (fail closed)")
	rateDenials.WithLabelValues(policy.Name, "store_error").Inc()
	return Decision{Admitted: false, RetryAfter: policy.Window}
}
