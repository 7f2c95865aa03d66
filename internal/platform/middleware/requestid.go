package middleware

import (
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
)

// RequestIDHeader carries the request correlation id in both directions.
const RequestIDHeader = echo.HeaderXRequestID

const maxRequestIDLen = 128

// RequestID reuses an inbound X-Request-ID or generates a UUID, exposes it as
// c.Get("request_id") and echoes it on the response.
func RequestID() echo.MiddlewareFunc {
	rid := echomw.RequestIDWithConfig(echomw.RequestIDConfig{
		Generator:    uuid.NewString,
		TargetHeader: RequestIDHeader,
		RequestIDHandler: func(c echo.Context, id string) {
			c.Set("request_id", id)
		},
	})
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		h := rid(next)
		return func(c echo.Context) error {
			// oversized ids are dropped so a fresh one is generated
			if len(c.Request().Header.Get(RequestIDHeader)) > maxRequestIDLen {
				c.Request().Header.Del(RequestIDHeader)
			}
			return h(c)
		}
	}
}
