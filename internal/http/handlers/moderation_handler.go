// Moderation HTTP handlers.
//
// This file exposes REST endpoints for the film review queue:
//   - POST   /moderation              (creator submits a film)
//   - GET    /moderation              (admin/moderator queue, paginated)
//   - POST   /moderation/{id}/approve (admin decision)
//   - POST   /moderation/{id}/reject  (admin decision)
//
// Decisions are executor-guarded: repeating an approve for the same request
// replays the original outcome instead of transitioning twice.
package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/vlockster/vlockster-backend/internal/domain"
)

//
// DTOs
//

// SubmitModerationRequest is the JSON payload for submitting a film.
type SubmitModerationRequest struct {
	// FilmTitle names the film under review (1-255 chars; defaulted when empty).
	FilmTitle string `json:"film_title" example:"Midnight Reel"`
}

// RejectModerationRequest is the JSON payload for rejecting a film.
type RejectModerationRequest struct {
	// Reason is included in the submitter's notification.
	Reason string `json:"reason" example:"duplicate submission"`
}

// ListModerationResponse wraps a page of pending requests and pagination
// information.
type ListModerationResponse struct {
	Requests   []domain.ModerationRequest `json:"requests"`
	Pagination Pagination                 `json:"pagination"`
}

//
// Handlers
//

// SubmitModeration godoc
// @ID          submitModeration
// @Summary     Submit a film for review
// @Description Enters a film into the moderation queue on behalf of the caller.
// @Tags        Moderation
// @Accept      json
// @Produce     json
//
// @Param       Authorization  header  string  true  "Bearer session token"
// @Param       body           body    handlers.SubmitModerationRequest  true  "Submission payload"
//
// @Success     201  {object}  domain.ModerationRequest
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     401  {object}  handlers.ErrorResponse  "Unauthenticated"
// @Failure     403  {object}  handlers.ErrorResponse  "Role not allowed"
// @Failure     429  {object}  handlers.ErrorResponse  "Rate limited"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /moderation [post]
func (h *Handlers) SubmitModeration(c *gin.Context) {
	var req SubmitModerationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	mr, err := h.modSvc.Submit(c.Request.Context(), caller(c), req.FilmTitle)
	if err != nil {
		failService(c, err)
		return
	}
	ok(c, http.StatusCreated, mr)
}

// ListModeration godoc
// @ID          listModeration
// @Summary     List the pending review queue (paginated)
// @Description Returns a page of pending moderation requests, oldest first.
// @Tags        Moderation
// @Produce     json
//
// @Param       Authorization  header  string  true  "Bearer session token"
// @Param       page           query   int     false "Page number"     minimum(1) default(1)
// @Param       page_size      query   int     false "Items per page"  minimum(1) maximum(100) default(20)
//
// @Success     200  {object}  handlers.ListModerationResponse
// @Failure     401  {object}  handlers.ErrorResponse  "Unauthenticated"
// @Failure     403  {object}  handlers.ErrorResponse  "Role not allowed"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /moderation [get]
func (h *Handlers) ListModeration(c *gin.Context) {
	page, pageSize := clampPagination(c)

	items, total, err := h.modSvc.ListPage(c.Request.Context(), caller(c), page, pageSize)
	if err != nil {
		failService(c, err)
		return
	}
	ok(c, http.StatusOK, ListModerationResponse{
		Requests:   items,
		Pagination: paginate(page, pageSize, total),
	})
}

// ApproveModeration godoc
// @ID          approveModeration
// @Summary     Approve a pending film
// @Description Applies the approve decision exactly once; repeats replay the original outcome.
// @Tags        Moderation
// @Produce     json
//
// @Param       Authorization  header  string  true  "Bearer session token"
// @Param       id             path    string  true  "Moderation request ID (UUID)"  format(uuid)
//
// @Success     200  {object}  domain.ModerationRequest
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     401  {object}  handlers.ErrorResponse  "Unauthenticated"
// @Failure     403  {object}  handlers.ErrorResponse  "Role not allowed"
// @Failure     404  {object}  handlers.ErrorResponse  "Request not found"
// @Failure     409  {object}  handlers.ErrorResponse  "Already reviewed or in flight"
// @Failure     422  {object}  handlers.ErrorResponse  "Transition failed"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /moderation/{id}/approve [post]
func (h *Handlers) ApproveModeration(c *gin.Context) {
	h.review(c, true)
}

// RejectModeration godoc
// @ID          rejectModeration
// @Summary     Reject a pending film
// @Description Applies the reject decision exactly once; the reason is forwarded to the submitter.
// @Tags        Moderation
// @Accept      json
// @Produce     json
//
// @Param       Authorization  header  string  true  "Bearer session token"
// @Param       id             path    string  true  "Moderation request ID (UUID)"  format(uuid)
// @Param       body           body    handlers.RejectModerationRequest  false  "Rejection payload"
//
// @Success     200  {object}  domain.ModerationRequest
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     401  {object}  handlers.ErrorResponse  "Unauthenticated"
// @Failure     403  {object}  handlers.ErrorResponse  "Role not allowed"
// @Failure     404  {object}  handlers.ErrorResponse  "Request not found"
// @Failure     409  {object}  handlers.ErrorResponse  "Already reviewed or in flight"
// @Failure     422  {object}  handlers.ErrorResponse  "Transition failed"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /moderation/{id}/reject [post]
func (h *Handlers) RejectModeration(c *gin.Context) {
	h.review(c, false)
}

// review is the shared approve/reject body. The reason is read only for
// rejections; approvals ignore any request body.
func (h *Handlers) review(c *gin.Context, approve bool) {
	requestID := c.Param("id")
	if _, err := uuid.Parse(requestID); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "moderation request id must be a UUID")
		return
	}

	var reason string
	if !approve {
		var req RejectModerationRequest
		// The body is optional for rejections without a stated reason.
		if err := c.ShouldBindJSON(&req); err == nil {
			reason = strings.TrimSpace(req.Reason)
		}
	}

	mr, err := h.modSvc.Review(c.Request.Context(), caller(c), requestID, approve, reason)
	if err != nil {
		failService(c, err)
		return
	}
	ok(c, http.StatusOK, mr)
}
