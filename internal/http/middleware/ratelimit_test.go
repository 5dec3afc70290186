package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestRateLimiter_AllowsThenLimits(t *testing.T) {
	gin.SetMode(gin.TestMode)

	rl := NewRateLimiter(0, 2, KeyByIdentityOrIP()) // 2 tokens, no refill
	r := gin.New()
	r.Use(rl.Handler())
	r.GET("/x", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
		if w.Code != http.StatusOK {
			t.Fatalf("request %d: status %d, want 200", i+1, w.Code)
		}
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("status %d, want 429", w.Code)
	}
	if w.Header().Get("Retry-After") == "" {
		t.Fatal("expected Retry-After header on 429")
	}
}

func TestRateLimiter_KeysAreIsolated(t *testing.T) {
	gin.SetMode(gin.TestMode)

	rl := NewRateLimiter(0, 1, KeyByIdentityOrIP())
	r := gin.New()
	// Simulate two authenticated callers by seeding the context key the
	// session middleware would set.
	r.GET("/x", func(c *gin.Context) {
		c.Set(identityKey, identityWithID(c.Query("as")))
		rl.Handler()(c)
		if !c.IsAborted() {
			c.String(http.StatusOK, "ok")
		}
	})

	do := func(as string) int {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x?as="+as, nil))
		return w.Code
	}

	if do("a") != http.StatusOK {
		t.Fatal("first request for a should pass")
	}
	if do("a") != http.StatusTooManyRequests {
		t.Fatal("second request for a should be limited")
	}
	// A different identity has its own bucket.
	if do("b") != http.StatusOK {
		t.Fatal("first request for b should pass")
	}
}

func TestRateLimiter_BurstCoercedToOne(t *testing.T) {
	rl := NewRateLimiter(1, 0, KeyByIdentityOrIP())
	if rl.burst != 1 {
		t.Fatalf("burst = %d, want 1", rl.burst)
	}
}
