package identity

import (
	"net/http"

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
	api.POST("/auth/login", h.Login)
	api.POST("/auth/register-patient", h.RegisterPatient)
	api.GET("/auth/me", h.Me)

	api.PUT("/users/password/change", h.ChangePassword)
	api.GET("/users", h.ListUsers)
	api.POST("/users", h.CreateUser)
	api.GET("/users/:id", h.GetUser)
	api.PUT("/users/:id", h.UpdateUser)
	api.DELETE("/users/:id", h.DeleteUser)
}

// -- Auth Handlers --

func (h *Handler) Login(c echo.Context) error {
	var in LoginInput
	if err := validate.Bind(c, &in); err != nil {
		return err
	}
	resp, err := h.svc.Login(c.Request().Context(), in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *Handler) RegisterPatient(c echo.Context) error {
	var in RegisterInput
	if err := validate.Bind(c, &in); err != nil {
		return err
	}
	resp, err := h.svc.RegisterPatient(c.Request().Context(), in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, resp)
}

func (h *Handler) Me(c echo.Context) error {
	pr, ok := auth.PrincipalFromContext(c.Request().Context())
	if !ok {
		return auth.ErrMissingToken
	}
	me, err := h.svc.Me(c.Request().Context(), pr)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, me)
}

func (h *Handler) ChangePassword(c echo.Context) error {
	pr, err := auth.Authorize(c.Request().Context(), auth.ActionPasswordChangeOwn)
	if err != nil {
		return err
	}
	var in ChangePasswordInput
	if err := validate.Bind(c, &in); err != nil {
		return err
	}
	if err := h.svc.ChangePassword(c.Request().Context(), pr, in); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "password updated"})
}

// -- User Handlers --

func (h *Handler) CreateUser(c echo.Context) error {
	if _, err := auth.Authorize(c.Request().Context(), auth.ActionUserManage); err != nil {
		return err
	}
	var in CreateUserInput
	if err := validate.Bind(c, &in); err != nil {
		return err
	}
	u, err := h.svc.CreateUser(c.Request().Context(), in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, u)
}

func (h *Handler) GetUser(c echo.Context) error {
	if _, err := auth.Authorize(c.Request().Context(), auth.ActionUserManage); err != nil {
		return err
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.Validation("invalid id", "id")
	}
	u, err := h.svc.GetUser(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, u)
}

func (h *Handler) ListUsers(c echo.Context) error {
	if _, err := auth.Authorize(c.Request().Context(), auth.ActionUserManage); err != nil {
		return err
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListUsers(c.Request().Context(), c.QueryParam("role"), pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg))
}

func (h *Handler) UpdateUser(c echo.Context) error {
	if _, err := auth.Authorize(c.Request().Context(), auth.ActionUserManage); err != nil {
		return err
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.Validation("invalid id", "id")
	}
	var in UpdateUserInput
	if err := validate.Bind(c, &in); err != nil {
		return err
	}
	u, err := h.svc.UpdateUser(c.Request().Context(), id, in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, u)
}

func (h *Handler) DeleteUser(c echo.Context) error {
	pr, err := auth.Authorize(c.Request().Context(), auth.ActionUserManage)
	if err != nil {
		return err
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.Validation("invalid id", "id")
	}
	if err := h.svc.DeleteUser(c.Request().Context(), pr, id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
