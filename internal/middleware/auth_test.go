package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/zaiqa-pos/api/internal/auth"
	"github.com/zaiqa-pos/api/internal/middleware"
)

const testSecret = "test-secret"

func sessionRequest(t *testing.T, token string) *http.Request {
	t.Helper()
	req := httptest.NewRequest("GET", "/", nil)
	if token != "" {
		req.AddCookie(&http.Cookie{Name: middleware.SessionCookie, Value: token})
	}
	return req
}

func TestAuthMiddleware_ValidCookie(t *testing.T) {
	token, _ := auth.GenerateToken(testSecret, 5, "Bilal", false)

	handler := middleware.Authenticate(testSecret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims := middleware.ClaimsFromContext(r.Context())
		if claims == nil {
			t.Fatal("expected claims in context")
		}
		if claims.UserID != 5 {
			t.Errorf("user ID: got %v, want 5", claims.UserID)
		}
		w.WriteHeader(http.StatusOK)
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, sessionRequest(t, token))

	if rr.Code != http.StatusOK {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusOK)
	}
}

func TestAuthMiddleware_MissingCookie(t *testing.T) {
	handler := middleware.Authenticate(testSecret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be called")
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, sessionRequest(t, ""))

	if rr.Code != http.StatusUnauthorized {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusUnauthorized)
	}
}

func TestAuthMiddleware_InvalidToken(t *testing.T) {
	handler := middleware.Authenticate(testSecret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be called")
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, sessionRequest(t, "invalid-token"))

	if rr.Code != http.StatusUnauthorized {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusUnauthorized)
	}
}

func TestRequireAdmin_AdminPasses(t *testing.T) {
	token, _ := auth.GenerateToken(testSecret, 1, "Admin", true)

	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	handler := middleware.Authenticate(testSecret)(middleware.RequireAdmin(inner))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, sessionRequest(t, token))

	if rr.Code != http.StatusOK {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusOK)
	}
}

func TestRequireAdmin_NonAdminForbidden(t *testing.T) {
	token, _ := auth.GenerateToken(testSecret, 2, "Waiter", false)

	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be called")
	})
	handler := middleware.Authenticate(testSecret)(middleware.RequireAdmin(inner))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, sessionRequest(t, token))

	if rr.Code != http.StatusForbidden {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusForbidden)
	}
}
