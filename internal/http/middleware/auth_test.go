package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/vlockster/vlockster-backend/internal/domain"
	"github.com/vlockster/vlockster-backend/internal/services"
)

// fakeResolver resolves exactly one credential to one identity.
type fakeResolver struct {
	token string
	ident *domain.Identity
}

func (f *fakeResolver) Resolve(_ context.Context, credential string) (*domain.Identity, error) {
	if credential != "" && credential == f.token {
		return f.ident, nil
	}
	return nil, services.ErrUnauthenticated
}

func identityWithID(id string) *domain.Identity {
	return &domain.Identity{ID: id, Role: domain.RoleViewer}
}

func authRouter(resolver IdentityResolver) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID())
	r.GET("/me", RequireSession(resolver), func(c *gin.Context) {
		c.String(http.StatusOK, IdentityID(c))
	})
	return r
}

func TestRequireSession_BearerToken(t *testing.T) {
	r := authRouter(&fakeResolver{token: "tok-1", ident: identityWithID("id-1")})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer tok-1")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK || w.Body.String() != "id-1" {
		t.Fatalf("status %d body %q", w.Code, w.Body.String())
	}
}

func TestRequireSession_SessionHeader(t *testing.T) {
	r := authRouter(&fakeResolver{token: "tok-2", ident: identityWithID("id-2")})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set(sessionHeader, "tok-2")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK || w.Body.String() != "id-2" {
		t.Fatalf("status %d body %q", w.Code, w.Body.String())
	}
}

func TestRequireSession_RejectsMissingAndUnknown(t *testing.T) {
	r := authRouter(&fakeResolver{token: "tok-3", ident: identityWithID("id-3")})

	// No credential at all.
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/me", nil))
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("missing credential: status %d, want 401", w.Code)
	}

	// Wrong credential gets the same answer as a missing one.
	w = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	r.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("unknown credential: status %d, want 401", w.Code)
	}
}

func TestIdentityFrom_AbsentIsNil(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	if IdentityFrom(c) != nil {
		t.Fatal("expected nil identity on unauthenticated context")
	}
	if IdentityID(c) != "" {
		t.Fatal("expected empty identity id")
	}
}
