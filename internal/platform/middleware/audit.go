package middleware

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/clinic/clinic/internal/platform/auth"
)

const apiPrefix = "/api/v1/"

// patientScoped lists the API resources whose requests read or change patient data.
var patientScoped = map[string]bool{
	"patients":      true,
	"appointments":  true,
	"medical-notes": true,
}

// Audit emits one patient_data_access event for each request that touches
// patient-scoped resources, after the handler has run.
func Audit(logger zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			resource := resourceOf(req.URL.Path)
			if !patientScoped[resource] {
				return next(c)
			}

			err := next(c)

			p, _ := auth.PrincipalFromContext(req.Context())
			rid, _ := c.Get("request_id").(string)

			evt := logger.Info()
			if err != nil {
				evt = logger.Warn()
			}
			evt.
				Str("type", "patient_data_access").
				Str("request_id", rid).
				Str("user_id", principalID(p)).
				Str("role", string(p.Role)).
				Str("action", methodAction(req.Method)).
				Str("resource", resource).
				Str("patient_id", patientIDOf(c, resource)).
				Str("method", req.Method).
				Str("path", req.URL.Path).
				Str("remote_ip", c.RealIP()).
				Bool("denied", err != nil).
				Msg("patient_data_access")

			return err
		}
	}
}

func principalID(p auth.Principal) string {
	if p.UserID == uuid.Nil {
		return ""
	}
	return p.UserID.String()
}

// resourceOf returns the first path segment under /api/v1/.
func resourceOf(path string) string {
	if !strings.HasPrefix(path, apiPrefix) {
		return ""
	}
	seg, _, _ := strings.Cut(strings.TrimPrefix(path, apiPrefix), "/")
	return seg
}

func methodAction(method string) string {
	switch method {
	case http.MethodPost:
		return "create"
	case http.MethodPut, http.MethodPatch:
		return "update"
	case http.MethodDelete:
		return "delete"
	default:
		return "read"
	}
}

// patientIDOf finds the patient the request targets: the :id of a /patients
// route, or a patientId / clientId query filter.
func patientIDOf(c echo.Context, resource string) string {
	if resource == "patients" {
		rest := strings.TrimPrefix(c.Request().URL.Path, apiPrefix+"patients/")
		seg, _, _ := strings.Cut(rest, "/")
		if _, err := uuid.Parse(seg); err == nil {
			return seg
		}
	}
	for _, key := range []string{"patientId", "clientId"} {
		if v := c.QueryParam(key); v != "" {
			return v
		}
	}
	return ""
}
