package faq

import (
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/clinic/clinic/internal/platform/apperr"
	"github.com/clinic/clinic/internal/platform/auth"
	"github.com/clinic/clinic/internal/platform/validate"
	"github.com/clinic/clinic/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/faq/public", h.ListPublic)
	api.POST("/faq", h.Submit)
	api.GET("/faq", h.List)
	api.PUT("/faq/:id/answer", h.Answer)
	api.DELETE("/faq/:id", h.Delete)
}

func parseID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, apperr.Validation("invalid id", "id")
	}
	return id, nil
}

func (h *Handler) ListPublic(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.svc.Public(c.Request().Context(), pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg))
}

// Submit accepts anonymous questions; a valid token attributes the question.
func (h *Handler) Submit(c echo.Context) error {
	var pr *auth.Principal
	if p, ok := auth.PrincipalFromContext(c.Request().Context()); ok {
		if !auth.Can(p.Role, auth.ActionFAQSubmit) {
			return auth.Forbidden(auth.ActionFAQSubmit)
		}
		pr = &p
	}
	var in SubmitInput
	if err := validate.Bind(c, &in); err != nil {
		return err
	}
	f, err := h.svc.Submit(c.Request().Context(), pr, in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, f)
}

func (h *Handler) List(c echo.Context) error {
	pr, err := auth.Authorize(c.Request().Context(), auth.ActionFAQListAll)
	if err != nil {
		return err
	}
	var f Filter
	if raw := c.QueryParam("answered"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return apperr.Validation("answered must be true or false", "answered")
		}
		f.Answered = &v
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.List(c.Request().Context(), pr, f, pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg))
}

func (h *Handler) Answer(c echo.Context) error {
	pr, err := auth.Authorize(c.Request().Context(), auth.ActionFAQAnswer)
	if err != nil {
		return err
	}
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var in AnswerInput
	if err := validate.Bind(c, &in); err != nil {
		return err
	}
	f, err := h.svc.Answer(c.Request().Context(), pr, id, in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, f)
}

func (h *Handler) Delete(c echo.Context) error {
	pr, err := auth.Authorize(c.Request().Context(), auth.ActionFAQDelete)
	if err != nil {
		return err
	}
	id, err := parseID(c)
	if err != nil {
		return err
	}
	if err := h.svc.Delete(c.Request().Context(), pr, id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
