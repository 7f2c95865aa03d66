package auth

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// publicPaths lists route paths that bypass authentication: infrastructure
// probes, login and self-registration, and the public FAQ.
var publicPaths = map[string]bool{
	"/health":                       true,
	"/health/db":                    true,
	"/api/v1/auth/login":            true,
	"/api/v1/auth/register-patient": true,
	"/api/v1/faq/public":            true,
}

// AuthSkipper returns true for requests whose path should skip authentication.
func AuthSkipper(c echo.Context) bool {
	return publicPaths[c.Path()]
}

// IsPublicPath reports whether the given route path is public.
func IsPublicPath(path string) bool {
	return publicPaths[path]
}

// OptionalAuth marks routes where a token is used when present: submitting a
// FAQ question is open to anonymous visitors.
func OptionalAuth(c echo.Context) bool {
	return c.Request().Method == http.MethodPost && c.Path() == "/api/v1/faq"
}
