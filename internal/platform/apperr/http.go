package apperr

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// Body is the JSON error envelope returned by the API.
type Body struct {
	Error   Kind     `json:"error"`
	Message string   `json:"message"`
	Fields  []string `json:"fields,omitempty"`
	Detail  string   `json:"detail,omitempty"`
}

// HTTPErrorHandler translates handler errors into Body responses. Internal causes
// are logged always and echoed in Detail only when debug is set.
func HTTPErrorHandler(logger zerolog.Logger, debug bool) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		appErr := fromEcho(err)
		status := appErr.Status()
		if he, ok := err.(*echo.HTTPError); ok && status == http.StatusInternalServerError {
			status = he.Code
		}

		body := Body{Error: appErr.Kind, Message: appErr.Message, Fields: appErr.Fields}
		if appErr.Kind == KindInternal {
			rid, _ := c.Get("request_id").(string)
			logger.Error().Err(err).
				Str("request_id", rid).
				Str("path", c.Request().URL.Path).
				Msg("internal error")
			if debug && appErr.Err != nil {
				body.Detail = appErr.Err.Error()
			}
		}

		var writeErr error
		if c.Request().Method == http.MethodHead {
			writeErr = c.NoContent(status)
		} else {
			writeErr = c.JSON(status, body)
		}
		if writeErr != nil {
			logger.Error().Err(writeErr).Msg("failed to write error response")
		}
	}
}

// fromEcho maps framework errors (routing, binding, middleware) onto the taxonomy.
func fromEcho(err error) *Error {
	var he *echo.HTTPError
	if !errors.As(err, &he) {
		return As(err)
	}
	msg := http.StatusText(he.Code)
	if he.Message != nil {
		msg = fmt.Sprint(he.Message)
	}
	switch he.Code {
	case http.StatusBadRequest:
		return Validation(msg)
	case http.StatusUnauthorized:
		return Authentication(msg)
	case http.StatusForbidden:
		return Authorization(msg)
	case http.StatusNotFound:
		return &Error{Kind: KindNotFound, Message: msg}
	}
	if k := codeKind(he.Code); k != "" {
		return &Error{Kind: k, Message: msg}
	}
	if he.Code >= http.StatusInternalServerError {
		return Internal(he)
	}
	return &Error{Kind: "error", Message: msg}
}

func codeKind(code int) Kind {
	switch code {
	case http.StatusMethodNotAllowed:
		return "method_not_allowed"
	case http.StatusRequestEntityTooLarge:
		return "payload_too_large"
	case http.StatusUnsupportedMediaType:
		return "unsupported_media_type"
	case http.StatusTooManyRequests:
		return "rate_limited"
	case http.StatusServiceUnavailable:
		return "unavailable"
	case http.StatusGatewayTimeout:
		return "timeout"
	default:
		return ""
	}
}
