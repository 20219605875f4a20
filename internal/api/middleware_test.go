package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

// authedRouter wires a router with API key auth on. ListStyles serves the
// static catalogs, so a zero Handler is enough to probe the middleware.
func authedRouter(t *testing.T) http.Handler {
	t.Helper()
	return NewRouter(&Handler{}, RouterConfig{BackendAPIKey: "sekret"})
}

func TestAPIKeyAuthMissingKey(t *testing.T) {
	router := authedRouter(t)
	req := httptest.NewRequest(http.MethodGet, "/v1/styles", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestAPIKeyAuthWrongKey(t *testing.T) {
	router := authedRouter(t)
	req := httptest.NewRequest(http.MethodGet, "/v1/styles", nil)
	req.Header.Set("X-API-Key", "wrong")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}
}

func TestAPIKeyAuthHeaderKey(t *testing.T) {
	router := authedRouter(t)
	req := httptest.NewRequest(http.MethodGet, "/v1/styles", nil)
	req.Header.Set("X-API-Key", "sekret")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestAPIKeyAuthBearerKey(t *testing.T) {
	router := authedRouter(t)
	req := httptest.NewRequest(http.MethodGet, "/v1/styles", nil)
	req.Header.Set("Authorization", "Bearer sekret")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestHealthIsPublic(t *testing.T) {
	router := authedRouter(t)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}
