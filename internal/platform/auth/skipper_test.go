package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func TestAuthSkipper_PublicPaths(t *testing.T) {
	publicPaths := []string{
		"/health",
		"/health/db",
		"/api/v1/auth/login",
		"/api/v1/auth/register-patient",
		"/api/v1/faq/public",
	}

	for _, path := range publicPaths {
		t.Run(path, func(t *testing.T) {
			e := echo.New()
			req := httptest.NewRequest(http.MethodGet, path, nil)
			rec := httptest.NewRecorder()
			c := e.NewContext(req, rec)
			c.SetPath(path)

			if !AuthSkipper(c) {
				t.Errorf("expected AuthSkipper to return true for %s", path)
			}
		})
	}
}

func TestAuthSkipper_ProtectedPaths(t *testing.T) {
	protectedPaths := []string{
		"/api/v1/patients",
		"/api/v1/auth/me",
		"/api/v1/faq",
		"/api/v1/settings",
		"/",
		"/health/extra",
	}

	for _, path := range protectedPaths {
		t.Run(path, func(t *testing.T) {
			e := echo.New()
			req := httptest.NewRequest(http.MethodGet, path, nil)
			rec := httptest.NewRecorder()
			c := e.NewContext(req, rec)
			c.SetPath(path)

			if AuthSkipper(c) {
				t.Errorf("expected AuthSkipper to return false for %s", path)
			}
		})
	}
}

func TestOptionalAuth(t *testing.T) {
	e := echo.New()

	post := e.NewContext(httptest.NewRequest(http.MethodPost, "/api/v1/faq", nil), httptest.NewRecorder())
	post.SetPath("/api/v1/faq")
	if !OptionalAuth(post) {
		t.Error("expected FAQ submission to allow anonymous callers")
	}

	get := e.NewContext(httptest.NewRequest(http.MethodGet, "/api/v1/faq", nil), httptest.NewRecorder())
	get.SetPath("/api/v1/faq")
	if OptionalAuth(get) {
		t.Error("expected FAQ listing to require a token")
	}
}
