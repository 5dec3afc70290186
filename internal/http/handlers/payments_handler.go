// Payment HTTP handlers.
//
// This file exposes the capture-recording endpoint consumed by the payment
// provider integration:
//   - POST /payments/captures
//
// The provider retries webhooks aggressively; the capture reference is the
// idempotency key, so replays return 200 with the original transaction record
// instead of crediting twice.
package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/vlockster/vlockster-backend/internal/domain"
)

// RecordCaptureRequest is the JSON payload describing a settled capture.
type RecordCaptureRequest struct {
	// CaptureRef is the provider's capture reference, unique per capture.
	CaptureRef string `json:"capture_ref" binding:"required" example:"ch_3LqT2d"`
	// BackingID identifies the backing the capture paid for.
	BackingID string `json:"backing_id" binding:"required" example:"141add05-4415-4938-b5a1-17e0d3171aff"`
	// AmountCents is the captured amount; it must match the backing.
	AmountCents int64 `json:"amount_cents" binding:"required,gt=0" example:"2500"`
}

// RecordCaptureResponse wraps the resulting transaction record and whether
// the call replayed an earlier capture.
type RecordCaptureResponse struct {
	Transaction *domain.TransactionRecord `json:"transaction"`
	Replayed    bool                      `json:"replayed"`
}

// RecordCapture godoc
// @ID          recordCapture
// @Summary     Record a settled payment capture
// @Description Idempotently credits the referenced backing. Replays of the same capture_ref return 200 with the original record.
// @Tags        Payments
// @Accept      json
// @Produce     json
//
// @Param       Authorization  header  string  true  "Bearer session token"
// @Param       body           body    handlers.RecordCaptureRequest  true  "Capture payload"
//
// @Success     201  {object}  handlers.RecordCaptureResponse  "Capture recorded"
// @Success     200  {object}  handlers.RecordCaptureResponse  "Idempotent replay"
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     401  {object}  handlers.ErrorResponse  "Unauthenticated"
// @Failure     403  {object}  handlers.ErrorResponse  "Role not allowed"
// @Failure     404  {object}  handlers.ErrorResponse  "Backing not found"
// @Failure     409  {object}  handlers.ErrorResponse  "In flight or retries exhausted"
// @Failure     422  {object}  handlers.ErrorResponse  "Transition failed"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /payments/captures [post]
func (h *Handlers) RecordCapture(c *gin.Context) {
	var req RecordCaptureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "capture_ref, backing_id and a positive amount_cents are required")
		return
	}
	if strings.TrimSpace(req.CaptureRef) == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "capture_ref must not be blank")
		return
	}

	rec, replayed, err := h.paySvc.RecordCapture(c.Request.Context(), caller(c),
		strings.TrimSpace(req.CaptureRef), req.BackingID, req.AmountCents)
	if err != nil {
		failService(c, err)
		return
	}

	status := http.StatusCreated
	if replayed {
		status = http.StatusOK
	}
	ok(c, status, RecordCaptureResponse{Transaction: rec, Replayed: replayed})
}
