package auth

import (
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/clinic/clinic/internal/platform/apperr"
)

// RequireRole returns middleware that checks the caller holds one of roles.
func RequireRole(roles ...Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			p, ok := PrincipalFromContext(c.Request().Context())
			if !ok {
				return ErrMissingToken
			}
			for _, r := range roles {
				if p.Role == r {
					return next(c)
				}
			}
			var names []string
			for _, r := range roles {
				names = append(names, string(r))
			}
			return apperr.Authorization("required role: " + strings.Join(names, " or "))
		}
	}
}

// RequireAction returns middleware that checks the caller's role is granted action.
func RequireAction(action Action) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if _, err := Authorize(c.Request().Context(), action); err != nil {
				return err
			}
			return next(c)
		}
	}
}
