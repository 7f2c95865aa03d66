package refdata

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/clinic/clinic/internal/platform/auth"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/reference-data", h.List)
}

func (h *Handler) List(c echo.Context) error {
	ctx := c.Request().Context()
	if _, err := auth.Authorize(ctx, auth.ActionReferenceDataRead); err != nil {
		return err
	}
	cat, err := h.svc.Catalog(ctx)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, cat)
}
