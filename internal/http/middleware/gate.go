// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file applies the persisted per-identity rate gate to sensitive
// operations. Unlike the edge token-bucket limiter, the gate counts windowed
// operations in the database so the limit survives process restarts and is
// shared across replicas.
package middleware

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/vlockster/vlockster-backend/internal/services"
)

// RateGate returns a Gin middleware that admits or denies the authenticated
// caller under the given policy. It must run after RequireSession.
//
// Denied requests receive 429 with a Retry-After header set to the number of
// seconds until the current window rolls over. Infrastructure failures inside
// the gate follow the gate's configured degraded mode; from here they look
// like an ordinary admit or deny.
func RateGate(gate *services.RateGate, policy services.RatePolicy) gin.HandlerFunc {
	return func(c *gin.Context) {
		ident := IdentityFrom(c)
		if ident == nil {
			// Route misconfiguration; the gate is per-identity by contract.
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"request_id": c.Writer.Header().Get(requestIDHeader),
				"code":       "unauthorized",
				"message":    "authentication required",
			})
			return
		}

		dec, err := gate.Admit(c.Request.Context(), ident.ID, policy)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"request_id": c.Writer.Header().Get(requestIDHeader),
				"code":       "internal_error",
				"message":    "internal server error",
			})
			return
		}
		if !dec.Admitted {
			secs := int(dec.RetryAfter.Seconds())
			if secs < 1 {
				secs = 1
			}
			c.Header("Retry-After", strconv.Itoa(secs))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"request_id": c.Writer.Header().Get(requestIDHeader),
				"code":       "too_many_requests",
				"message":    "rate limit exceeded for " + policy.Name,
			})
			return
		}
		c.Next()
	}
}
