// User administration HTTP handlers.
//
// This file exposes the admin-only identity endpoints:
//   - PUT    /users/{id}/role (change role; last-admin protected)
//   - DELETE /users/{id}      (soft delete and anonymize)
//
// Both operations refuse to strand the platform without an administrator:
// demoting or deleting the only remaining admin fails with 403 and the
// last_admin_protected code, no matter who asks.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// UpdateUserRoleRequest is the JSON payload for changing an identity's role.
type UpdateUserRoleRequest struct {
	// Role is the new role: viewer, creator, moderator, or admin.
	Role string `json:"role" binding:"required" example:"moderator"`
}

// UpdateUserRole godoc
// @ID          updateUserRole
// @Summary     Change an identity's role
// @Description Assigns a new role to the target identity. Demoting the last admin is refused.
// @Tags        Users
// @Accept      json
// @Produce     json
//
// @Param       Authorization  header  string  true  "Bearer session token"
// @Param       id             path    string  true  "Identity ID (UUID)"  format(uuid)
// @Param       body           body    handlers.UpdateUserRoleRequest  true  "New role"
//
// @Success     204  {string}  string  "No Content"
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     401  {object}  handlers.ErrorResponse  "Unauthenticated"
// @Failure     403  {object}  handlers.ErrorResponse  "Role not allowed or last admin"
// @Failure     404  {object}  handlers.ErrorResponse  "Identity not found"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /users/{id}/role [put]
func (h *Handlers) UpdateUserRole(c *gin.Context) {
	targetID := c.Param("id")
	if _, err := uuid.Parse(targetID); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "identity id must be a UUID")
		return
	}

	var req UpdateUserRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "role required")
		return
	}

	if err := h.identSvc.UpdateRole(c.Request.Context(), caller(c), targetID, req.Role); err != nil {
		failService(c, err)
		return
	}
	noContent(c)
}

// DeleteUser godoc
// @ID          deleteUser
// @Summary     Delete an identity
// @Description Soft-deletes the identity, anonymizes its PII, and revokes its sessions. Deleting the last admin is refused.
// @Tags        Users
// @Produce     json
//
// @Param       Authorization  header  string  true  "Bearer session token"
// @Param       id             path    string  true  "Identity ID (UUID)"  format(uuid)
//
// @Success     204  {string}  string  "No Content"
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     401  {object}  handlers.ErrorResponse  "Unauthenticated"
// @Failure     403  {object}  handlers.ErrorResponse  "Role not allowed or last admin"
// @Failure     404  {object}  handlers.ErrorResponse  "Identity not found"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /users/{id} [delete]
func (h *Handlers) DeleteUser(c *gin.Context) {
	targetID := c.Param("id")
	if _, err := uuid.Parse(targetID); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "identity id must be a UUID")
		return
	}

	if err := h.identSvc.Delete(c.Request.Context(), caller(c), targetID); err != nil {
		failService(c, err)
		return
	}
	noContent(c)
}
