// Package services defines the business logic for identities, admission
// control, authorization, idempotent transactions, and notifications.
// This file centralizes common service-level error values so that they can be
// consistently returned by service methods and checked by callers.
//
// These errors are intended for internal use by the service layer and translation
// into user-facing messages or HTTP status codes should be performed at the
// handler/controller layer.
package services

import (
	"errors"
	"fmt"
)

// Pipeline-stage errors.
var (
	// ErrUnauthenticated indicates that no valid session exists for the
	// presented credential, or that the identity behind it has been
	// soft-deleted (tombstoned identities are treated as absent).
	ErrUnauthenticated = errors.New("unauthenticated")

	// ErrForbidden indicates that the caller's role is not in the allowed
	// set for the requested action.
	ErrForbidden = errors.New("forbidden")

	// ErrLastAdminProtected is the lockout-prevention variant of
	// ErrForbidden: demoting or deleting the only remaining admin is
	// refused regardless of who asks. errors.Is(err, ErrForbidden) holds.
	ErrLastAdminProtected = fmt.Errorf("%w: last admin protected", ErrForbidden)
)

// Transaction executor errors.
var (
	// ErrTransactionInFlight is returned when another call holds the
	// pending record for the same external reference. The caller may retry
	// once the winner finishes.
	ErrTransactionInFlight = errors.New("transaction in flight")

	// ErrRetriesExhausted is returned when a failed external reference has
	// consumed its re-attempt budget and will not be retried again.
	ErrRetriesExhausted = errors.New("transition retries exhausted")

	// ErrTransitionFailed wraps the cause of a failed state transition.
	// The transaction record is left in the failed state and remains
	// re-attemptable within the retry bound.
	ErrTransitionFailed = errors.New("transition failed")
)

// Domain errors.
var (
	// ErrIdentityNotFound indicates the target identity does not exist or
	// is tombstoned.
	ErrIdentityNotFound = errors.New("identity not found")

	// ErrInvalidRole is returned when a role-change request names a role
	// outside the recognized set.
	ErrInvalidRole = errors.New("invalid role")

	// ErrModerationNotFound indicates the moderation request does not exist.
	ErrModerationNotFound = errors.New("moderation request not found")

	// ErrModerationReviewed indicates the moderation request already
	// reached a terminal status; approved and rejected are frozen.
	ErrModerationReviewed = errors.New("moderation request already reviewed")

	// ErrBackingNotFound indicates the backing referenced by a capture does
	// not exist.
	ErrBackingNotFound = errors.New("backing not found")

	// ErrAmountMismatch is returned when a capture's amount does not match
	// the backing it claims to pay for.
	ErrAmountMismatch = errors.New("capture amount does not match backing")

	// ErrNotificationNotFound indicates the notification does not exist or
	// belongs to another identity.
	ErrNotificationNotFound = errors.New("notification not found")
)
