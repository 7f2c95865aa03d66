package patient

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
	api.GET("/patients", h.ListPatients)
	api.POST("/patients", h.CreatePatient)
	api.GET("/patients/:id", h.GetPatient)
	api.PUT("/patients/:id", h.UpdatePatient)
	api.DELETE("/patients/:id", h.DeletePatient)

	api.GET("/patients/:id/notes", h.ListNotes)
	api.POST("/patients/:id/notes", h.CreateNote)
	api.PUT("/medical-notes/:id", h.UpdateNote)
	api.DELETE("/medical-notes/:id", h.DeleteNote)
}

func parseID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, apperr.Validation("invalid id", "id")
	}
	return id, nil
}

// -- Patient Handlers --

func (h *Handler) CreatePatient(c echo.Context) error {
	pr, err := auth.Authorize(c.Request().Context(), auth.ActionPatientCreate)
	if err != nil {
		return err
	}
	var in CreateInput
	if err := validate.Bind(c, &in); err != nil {
		return err
	}
	p, err := h.svc.Create(c.Request().Context(), in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, p.ViewFor(pr.Role))
}

func (h *Handler) GetPatient(c echo.Context) error {
	pr, err := auth.AuthorizeAny(c.Request().Context(), auth.ActionPatientReadAny, auth.ActionPatientReadOwn)
	if err != nil {
		return err
	}
	id, err := parseID(c)
	if err != nil {
		return err
	}
	p, err := h.svc.Get(c.Request().Context(), pr, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, p.ViewFor(pr.Role))
}

func (h *Handler) ListPatients(c echo.Context) error {
	pr, err := auth.Authorize(c.Request().Context(), auth.ActionPatientReadAny)
	if err != nil {
		return err
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.Search(c.Request().Context(), c.QueryParam("q"), pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	views := make([]interface{}, 0, len(items))
	for _, p := range items {
		views = append(views, p.ViewFor(pr.Role))
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(views, total, pg))
}

func (h *Handler) UpdatePatient(c echo.Context) error {
	pr, err := auth.AuthorizeAny(c.Request().Context(),
		auth.ActionPatientUpdateAny, auth.ActionPatientMedicalNotes, auth.ActionPatientUpdateOwnProfile)
	if err != nil {
		return err
	}
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var in UpdateInput
	if err := validate.Bind(c, &in); err != nil {
		return err
	}
	p, err := h.svc.Update(c.Request().Context(), pr, id, in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, p.ViewFor(pr.Role))
}

func (h *Handler) DeletePatient(c echo.Context) error {
	if _, err := auth.Authorize(c.Request().Context(), auth.ActionPatientDelete); err != nil {
		return err
	}
	id, err := parseID(c)
	if err != nil {
		return err
	}
	if err := h.svc.Delete(c.Request().Context(), id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// -- Medical Note Handlers --

func (h *Handler) CreateNote(c echo.Context) error {
	pr, err := auth.Authorize(c.Request().Context(), auth.ActionMedicalNoteWrite)
	if err != nil {
		return err
	}
	patientID, err := parseID(c)
	if err != nil {
		return err
	}
	var in NoteInput
	if err := validate.Bind(c, &in); err != nil {
		return err
	}
	n, err := h.svc.AddNote(c.Request().Context(), pr, patientID, in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, n)
}

func (h *Handler) ListNotes(c echo.Context) error {
	pr, err := auth.AuthorizeAny(c.Request().Context(), auth.ActionMedicalNoteWrite, auth.ActionMedicalNoteReadOwn)
	if err != nil {
		return err
	}
	patientID, err := parseID(c)
	if err != nil {
		return err
	}
	notes, err := h.svc.ListNotes(c.Request().Context(), pr, patientID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, notes)
}

func (h *Handler) UpdateNote(c echo.Context) error {
	pr, err := auth.Authorize(c.Request().Context(), auth.ActionMedicalNoteWrite)
	if err != nil {
		return err
	}
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var in NotePatch
	if err := validate.Bind(c, &in); err != nil {
		return err
	}
	n, err := h.svc.UpdateNote(c.Request().Context(), pr, id, in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, n)
}

func (h *Handler) DeleteNote(c echo.Context) error {
	pr, err := auth.Authorize(c.Request().Context(), auth.ActionMedicalNoteWrite)
	if err != nil {
		return err
	}
	id, err := parseID(c)
	if err != nil {
		return err
	}
	if err := h.svc.DeleteNote(c.Request().Context(), pr, id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
