// Package handlers provides HTTP handler implementations for the public API.
//
// This file wires the handler set to the application services and defines the
// shared translation from service-level sentinel errors to HTTP responses.
// Handlers are transport-thin: they validate input, call application services
// with the identity resolved by the session middleware, and translate results
// into HTTP responses.
package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/vlockster/vlockster-backend/internal/domain"
	"github.com/vlockster/vlockster-backend/internal/http/middleware"
	"github.com/vlockster/vlockster-backend/internal/services"
	"github.com/vlockster/vlockster-backend/internal/utils"
)

//
// Service contracts (context-aware)
//

// ModerationAPI defines the moderation operations consumed by HTTP handlers.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type ModerationAPI interface {
	// Submit enters a film into the review queue on behalf of caller.
	Submit(ctx context.Context, caller *domain.Identity, filmTitle string) (*domain.ModerationRequest, error)
	// ListPage returns a page of the pending review queue and the total count.
	ListPage(ctx context.Context, caller *domain.Identity, page, pageSize int) ([]domain.ModerationRequest, int64, error)
	// Review applies an approve or reject decision exactly once.
	Review(ctx context.Context, caller *domain.Identity, requestID string, approve bool, reason string) (*domain.ModerationRequest, error)
}

// IdentityAPI defines the administrative identity operations.
type IdentityAPI interface {
	// UpdateRole changes the target identity's role, subject to last-admin
	// protection.
	UpdateRole(ctx context.Context, caller *domain.Identity, targetID, newRole string) error
	// Delete soft-deletes and anonymizes the target identity.
	Delete(ctx context.Context, caller *domain.Identity, targetID string) error
}

// PaymentAPI defines capture recording.
type PaymentAPI interface {
	// RecordCapture idempotently credits a backing from a provider capture.
	RecordCapture(ctx context.Context, caller *domain.Identity, captureRef, backingID string, amountCents int64) (*domain.TransactionRecord, bool, error)
}

// NotificationAPI defines the caller-facing notification reads.
type NotificationAPI interface {
	// ListPage returns a page of the caller's notifications, newest first.
	ListPage(ctx context.Context, identityID string, page, pageSize int) ([]domain.Notification, int64, error)
	// MarkRead flags one of the caller's notifications as read.
	MarkRead(ctx context.Context, identityID, notificationID string) error
}

//
// Handler wiring
//

// Handlers groups the HTTP endpoints for moderation, identities, payments,
// and notifications. It depends on abstract service interfaces to keep
// transport concerns separate from business logic.
type Handlers struct {
	modSvc   ModerationAPI
	identSvc IdentityAPI
	paySvc   PaymentAPI
	notifSvc NotificationAPI
}

// New constructs and returns a Handlers instance bound to the given services.
func New(modSvc ModerationAPI, identSvc IdentityAPI, paySvc PaymentAPI, notifSvc NotificationAPI) *Handlers {
	return &Handlers{modSvc: modSvc, identSvc: identSvc, paySvc: paySvc, notifSvc: notifSvc}
}

// caller returns the identity resolved by the session middleware. Routes in
// this package are always mounted behind RequireSession, so a nil identity
// means a wiring mistake; the service guard treats nil as forbidden anyway.
func caller(c *gin.Context) *domain.Identity {
	return middleware.IdentityFrom(c)
}

//
// DTOs
//

// Pagination carries pagination metadata for list responses.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
}

// paginate builds Pagination metadata from a page request and a total count.
func paginate(page, pageSize int, total int64) Pagination {
	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	return Pagination{
		Page:       page,
		PageSize:   pageSize,
		Total:      total,
		TotalPages: totalPages,
		HasNext:    page < totalPages,
	}
}

//
// Helpers
//

// clampPagination parses and bounds page and page_size query params to sane
// defaults and limits, returning (page, pageSize).
func clampPagination(c *gin.Context) (page, pageSize int) {
	const (
		defaultPage     = 1
		defaultPageSize = 20
		maxPageSize     = 100
	)
	page = utils.AtoiDefault(c.Query("page"), defaultPage)
	if page < 1 {
		page = 1
	}
	pageSize = utils.AtoiDefault(c.Query("page_size"), defaultPageSize)
	if pageSize < 1 {
		pageSize = 1
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return
}

// failService maps service-level sentinel errors to HTTP responses. The
// most specific sentinel wins; ErrLastAdminProtected is checked before the
// generic ErrForbidden it wraps.
func failService(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrUnauthenticated):
		fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, "authentication required")
	case errors.Is(err, services.ErrLastAdminProtected):
		fail(c, http.StatusForbidden, ErrCodeLastAdminProtected, "the last remaining admin cannot be demoted or deleted")
	case errors.Is(err, services.ErrForbidden):
		fail(c, http.StatusForbidden, ErrCodeForbidden, "operation not permitted for this role")
	case errors.Is(err, services.ErrInvalidRole):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "unrecognized role")
	case errors.Is(err, services.ErrIdentityNotFound),
		errors.Is(err, services.ErrModerationNotFound),
		errors.Is(err, services.ErrBackingNotFound),
		errors.Is(err, services.ErrNotificationNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "resource not found")
	case errors.Is(err, services.ErrModerationReviewed):
		fail(c, http.StatusConflict, ErrCodeConflict, "moderation request already reviewed")
	case errors.Is(err, services.ErrTransactionInFlight):
		fail(c, http.StatusConflict, ErrCodeConflict, "an identical operation is already in flight")
	case errors.Is(err, services.ErrRetriesExhausted):
		fail(c, http.StatusConflict, ErrCodeRetriesExhausted, "operation has exhausted its retry budget")
	case errors.Is(err, services.ErrTransitionFailed):
		fail(c, http.StatusUnprocessableEntity, ErrCodeTransitionFailed, err.Error())
	default:
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "internal server error")
	}
}
