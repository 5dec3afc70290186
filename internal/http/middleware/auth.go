// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file provides session authentication. RequireSession extracts the
// caller's credential from the request, resolves it to an active identity,
// and stores that identity in the Gin context for handlers downstream. A
// missing, unknown, expired, or revoked credential yields 401 with the
// standard JSON error envelope.
package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/vlockster/vlockster-backend/internal/domain"
)

const (
	// identityKey is the Gin context key under which the resolved identity
	// is stored.
	identityKey = "identity"
	// sessionHeader is an alternative credential header for non-browser
	// clients that do not speak Authorization.
	sessionHeader = "X-Session-Token"
)

// IdentityResolver resolves an opaque session credential to an identity.
// The concrete implementation lives in the services layer.
type IdentityResolver interface {
	Resolve(ctx context.Context, credential string) (*domain.Identity, error)
}

// RequireSession returns a Gin middleware that authenticates the request.
//
// The credential is taken from "Authorization: Bearer <token>" or, failing
// that, the X-Session-Token header. Resolution failures are never
// distinguished in the response body: every failure mode is the same 401 so
// the API does not leak whether a token ever existed.
//
// On success the identity is stored in the context (see IdentityFrom) and the
// identity ID is mirrored under "userID" for the access-log middleware.
func RequireSession(resolver IdentityResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		cred := credentialFrom(c)

		ident, err := resolver.Resolve(c.Request.Context(), cred)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"request_id": c.Writer.Header().Get(requestIDHeader),
				"code":       "unauthorized",
				"message":    "authentication required",
			})
			return
		}

		c.Set(identityKey, ident)
		c.Set("userID", ident.ID)
		c.Next()
	}
}

// credentialFrom extracts the raw session credential from the request.
// Returns "" when no credential is present.
func credentialFrom(c *gin.Context) string {
	auth := c.GetHeader("Authorization")
	if strings.HasPrefix(auth, "Bearer ") || strings.HasPrefix(auth, "bearer ") {
		return strings.TrimSpace(auth[len("Bearer "):])
	}
	return strings.TrimSpace(c.GetHeader(sessionHeader))
}

// IdentityFrom returns the identity resolved by RequireSession, or nil when
// the route is unauthenticated.
func IdentityFrom(c *gin.Context) *domain.Identity {
	if v, ok := c.Get(identityKey); ok {
		if ident, ok := v.(*domain.Identity); ok {
			return ident
		}
	}
	return nil
}

// IdentityID returns the resolved identity's ID, or "" for anonymous traffic.
func IdentityID(c *gin.Context) string {
	if ident := IdentityFrom(c); ident != nil {
		return ident.ID
	}
	return ""
}
