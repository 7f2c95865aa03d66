package auth

import (
	"strings"

	"github.com/labstack/echo/v4"
)

// TokenParser verifies a bearer token.
type TokenParser interface {
	Parse(token string) (Principal, error)
}

type MiddlewareConfig struct {
	Tokens TokenParser
	// Skipper bypasses authentication entirely.
	Skipper func(echo.Context) bool
	// Optional lets requests without an Authorization header through anonymously.
	// A header that is present must still be valid.
	Optional func(echo.Context) bool
}

// JWTMiddleware authenticates bearer tokens and stores the Principal on the
// request context. Failures surface as apperr Authentication errors.
func JWTMiddleware(cfg MiddlewareConfig) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if cfg.Skipper != nil && cfg.Skipper(c) {
				return next(c)
			}

			authHeader := c.Request().Header.Get(echo.HeaderAuthorization)
			if authHeader == "" {
				if cfg.Optional != nil && cfg.Optional(c) {
					return next(c)
				}
				return ErrMissingToken
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || strings.TrimSpace(parts[1]) == "" {
				return ErrInvalidToken
			}

			p, err := cfg.Tokens.Parse(strings.TrimSpace(parts[1]))
			if err != nil {
				return err
			}

			// user_id and role are read by the request logger and the audit middleware
			c.Set("user_id", p.UserID.String())
			c.Set("role", string(p.Role))
			c.SetRequest(c.Request().WithContext(WithPrincipal(c.Request().Context(), p)))

			return next(c)
		}
	}
}
