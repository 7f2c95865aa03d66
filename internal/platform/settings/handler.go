package settings

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/clinic/clinic/internal/platform/apperr"
	"github.com/clinic/clinic/internal/platform/auth"
)

// Provider exposes read access to the current settings.
type Provider interface {
	Get() Settings
}

type updater interface {
	Provider
	Update(p Patch) (Settings, error)
}

type Handler struct {
	store updater
}

func NewHandler(store *Store) *Handler {
	return &Handler{store: store}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/settings", h.Get, auth.RequireAction(auth.ActionSettingsRead))
	api.PUT("/settings", h.Update)
}

// Get expects RequireAction to have run in front of it.
func (h *Handler) Get(c echo.Context) error {
	return c.JSON(http.StatusOK, h.store.Get())
}

func (h *Handler) Update(c echo.Context) error {
	if _, err := auth.Authorize(c.Request().Context(), auth.ActionSettingsManage); err != nil {
		return err
	}
	var p Patch
	if err := c.Bind(&p); err != nil {
		return apperr.Validation("invalid settings body")
	}
	updated, err := h.store.Update(p)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, updated)
}
