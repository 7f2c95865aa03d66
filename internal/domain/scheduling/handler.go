package scheduling

import (
	"context"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/clinic/clinic/internal/domain/refdata"
	"github.com/clinic/clinic/internal/platform/apperr"
	"github.com/clinic/clinic/internal/platform/auth"
	"github.com/clinic/clinic/internal/platform/validate"
	"github.com/clinic/clinic/pkg/civil"
	"github.com/clinic/clinic/pkg/pagination"
)

// CodeLookup maps a reference-data id to its code.
type CodeLookup interface {
	Code(ctx context.Context, field string, kind refdata.Kind, id int) (string, error)
}

type Handler struct {
	svc   *Service
	codes CodeLookup
}

func NewHandler(svc *Service, codes CodeLookup) *Handler {
	return &Handler{svc: svc, codes: codes}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/appointments/availability", h.CheckAvailability)
	api.GET("/appointments/available-slots", h.ListOpenSlots)

	api.GET("/appointments", h.ListAppointments)
	api.POST("/appointments", h.CreateAppointment)
	api.GET("/appointments/:id", h.GetAppointment)
	api.PUT("/appointments/:id", h.UpdateAppointment)
	api.DELETE("/appointments/:id", h.DeleteAppointment)
	api.POST("/appointments/:id/cancel", h.CancelAppointment)
	api.PATCH("/appointments/:id/status", h.SetStatus)

	api.GET("/patients/:id/appointments", h.ListForPatient)
	api.GET("/doctors/:id/appointments", h.ListForDoctor)

	api.GET("/availabilities", h.ListAvailability)
	api.POST("/availabilities", h.CreateAvailability)
	api.PUT("/availabilities/:id", h.UpdateAvailability)
	api.DELETE("/availabilities/:id", h.DeleteAvailability)
}

var appointmentActions = []auth.Action{
	auth.ActionAppointmentManageAny,
	auth.ActionAppointmentManageOwnSchd,
	auth.ActionAppointmentManageOwn,
}

func parseID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, apperr.Validation("invalid id", "id")
	}
	return id, nil
}

func queryDate(c echo.Context, name string) (*civil.Date, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return nil, nil
	}
	d, err := civil.ParseDate(raw)
	if err != nil {
		return nil, apperr.Validation("invalid input: "+name+" must be a date in YYYY-MM-DD format", name)
	}
	return &d, nil
}

func queryUUID(c echo.Context, names ...string) (*uuid.UUID, error) {
	for _, name := range names {
		raw := c.QueryParam(name)
		if raw == "" {
			continue
		}
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, apperr.Validation("invalid "+name, name)
		}
		return &id, nil
	}
	return nil, nil
}

// queryStatus reads status by name, falling back to the statusId reference id.
func (h *Handler) queryStatus(c echo.Context) (*Status, error) {
	raw := c.QueryParam("status")
	if raw == "" && c.QueryParam("statusId") != "" {
		id, err := strconv.Atoi(c.QueryParam("statusId"))
		if err != nil {
			return nil, apperr.Validation("invalid statusId", "statusId")
		}
		if raw, err = h.codes.Code(c.Request().Context(), "statusId", refdata.KindAppointmentStatus, id); err != nil {
			return nil, err
		}
	}
	if raw == "" {
		return nil, nil
	}
	st, err := ParseStatus(raw)
	if err != nil {
		return nil, apperr.Validation("invalid input: status must be one of Scheduled, Completed, Cancelled, NoShow", "status")
	}
	return &st, nil
}

// -- Slot Handlers --

func (h *Handler) CheckAvailability(c echo.Context) error {
	if _, err := auth.AuthorizeAny(c.Request().Context(), appointmentActions...); err != nil {
		return err
	}
	var missing []string
	if c.QueryParam("date") == "" {
		missing = append(missing, "date")
	}
	if c.QueryParam("time") == "" {
		missing = append(missing, "time")
	}
	if len(missing) > 0 {
		return apperr.Required(missing...)
	}
	date, err := queryDate(c, "date")
	if err != nil {
		return err
	}
	t, err := civil.ParseClock(c.QueryParam("time"))
	if err != nil {
		return apperr.Validation("invalid input: time must be a time in HH:MM format", "time")
	}
	exclude, err := queryUUID(c, "appointmentId", "excludeId")
	if err != nil {
		return err
	}
	free, err := h.svc.CheckAvailability(c.Request().Context(), *date, t, exclude)
	if err != nil {
		return err
	}
	out := AvailabilityCheck{Available: free, Message: "slot is available"}
	if !free {
		out.Message = "slot already booked"
	}
	return c.JSON(http.StatusOK, out)
}

func (h *Handler) ListOpenSlots(c echo.Context) error {
	if _, err := auth.AuthorizeAny(c.Request().Context(), appointmentActions...); err != nil {
		return err
	}
	date, err := queryDate(c, "date")
	if err != nil {
		return err
	}
	if date == nil {
		return apperr.Required("date")
	}
	slots, err := h.svc.ListOpenSlots(c.Request().Context(), *date)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, slots)
}

// -- Appointment Handlers --

func (h *Handler) CreateAppointment(c echo.Context) error {
	pr, err := auth.AuthorizeAny(c.Request().Context(), appointmentActions...)
	if err != nil {
		return err
	}
	var in CreateInput
	if err := validate.Bind(c, &in); err != nil {
		return err
	}
	a, err := h.svc.Create(c.Request().Context(), pr, in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, a)
}

func (h *Handler) GetAppointment(c echo.Context) error {
	pr, err := auth.AuthorizeAny(c.Request().Context(), appointmentActions...)
	if err != nil {
		return err
	}
	id, err := parseID(c)
	if err != nil {
		return err
	}
	a, err := h.svc.Get(c.Request().Context(), pr, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) ListAppointments(c echo.Context) error {
	pr, err := auth.AuthorizeAny(c.Request().Context(), appointmentActions...)
	if err != nil {
		return err
	}
	var f ListFilter
	if f.Date, err = queryDate(c, "date"); err != nil {
		return err
	}
	if f.StartPeriod, err = queryDate(c, "startPeriod"); err != nil {
		return err
	}
	if f.EndPeriod, err = queryDate(c, "endPeriod"); err != nil {
		return err
	}
	if f.PatientID, err = queryUUID(c, "clientId", "patientId"); err != nil {
		return err
	}
	if f.DoctorID, err = queryUUID(c, "doctorId"); err != nil {
		return err
	}
	if f.Status, err = h.queryStatus(c); err != nil {
		return err
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListAll(c.Request().Context(), pr, f, pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg))
}

func (h *Handler) ListForPatient(c echo.Context) error {
	pr, err := auth.AuthorizeAny(c.Request().Context(), auth.ActionPatientReadAny, auth.ActionPatientReadOwn)
	if err != nil {
		return err
	}
	id, err := parseID(c)
	if err != nil {
		return err
	}
	status, err := h.queryStatus(c)
	if err != nil {
		return err
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListForPatient(c.Request().Context(), pr, id, status, pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg))
}

func (h *Handler) ListForDoctor(c echo.Context) error {
	pr, err := auth.AuthorizeAny(c.Request().Context(), auth.ActionAppointmentManageAny, auth.ActionAppointmentManageOwnSchd)
	if err != nil {
		return err
	}
	id, err := parseID(c)
	if err != nil {
		return err
	}
	date, err := queryDate(c, "date")
	if err != nil {
		return err
	}
	status, err := h.queryStatus(c)
	if err != nil {
		return err
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListForDoctor(c.Request().Context(), pr, id, date, status, pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg))
}

func (h *Handler) UpdateAppointment(c echo.Context) error {
	pr, err := auth.AuthorizeAny(c.Request().Context(), appointmentActions...)
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
	a, err := h.svc.Update(c.Request().Context(), pr, id, in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) CancelAppointment(c echo.Context) error {
	pr, err := auth.AuthorizeAny(c.Request().Context(),
		auth.ActionAppointmentManageAny, auth.ActionAppointmentManageOwnSchd, auth.ActionAppointmentCancelOwn)
	if err != nil {
		return err
	}
	id, err := parseID(c)
	if err != nil {
		return err
	}
	a, err := h.svc.Cancel(c.Request().Context(), pr, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) SetStatus(c echo.Context) error {
	pr, err := auth.AuthorizeAny(c.Request().Context(),
		auth.ActionAppointmentSetOutcome, auth.ActionAppointmentCancelOwn)
	if err != nil {
		return err
	}
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var in StatusInput
	if err := validate.Bind(c, &in); err != nil {
		return err
	}
	to, err := ParseStatus(in.Status)
	if err != nil {
		return apperr.Validation("invalid input: status must be one of Scheduled, Completed, Cancelled, NoShow", "status")
	}
	a, err := h.svc.SetStatus(c.Request().Context(), pr, id, to)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) DeleteAppointment(c echo.Context) error {
	pr, err := auth.Authorize(c.Request().Context(), auth.ActionAppointmentDelete)
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

// -- Availability Handlers --

func (h *Handler) ListAvailability(c echo.Context) error {
	if _, err := auth.Authorize(c.Request().Context(), auth.ActionAvailabilityRead); err != nil {
		return err
	}
	var (
		f   AvailabilityFilter
		err error
	)
	if f.DoctorID, err = queryUUID(c, "doctorId"); err != nil {
		return err
	}
	if f.Date, err = queryDate(c, "date"); err != nil {
		return err
	}
	if f.StartPeriod, err = queryDate(c, "startPeriod"); err != nil {
		return err
	}
	if f.EndPeriod, err = queryDate(c, "endPeriod"); err != nil {
		return err
	}
	items, err := h.svc.ListAvailability(c.Request().Context(), f)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) CreateAvailability(c echo.Context) error {
	pr, err := auth.Authorize(c.Request().Context(), auth.ActionAvailabilityManageOwn)
	if err != nil {
		return err
	}
	var in AvailabilityInput
	if err := validate.Bind(c, &in); err != nil {
		return err
	}
	av, err := h.svc.CreateAvailability(c.Request().Context(), pr, in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, av)
}

func (h *Handler) UpdateAvailability(c echo.Context) error {
	pr, err := auth.Authorize(c.Request().Context(), auth.ActionAvailabilityManageOwn)
	if err != nil {
		return err
	}
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var in AvailabilityPatch
	if err := validate.Bind(c, &in); err != nil {
		return err
	}
	av, err := h.svc.UpdateAvailability(c.Request().Context(), pr, id, in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, av)
}

func (h *Handler) DeleteAvailability(c echo.Context) error {
	pr, err := auth.Authorize(c.Request().Context(), auth.ActionAvailabilityManageOwn)
	if err != nil {
		return err
	}
	id, err := parseID(c)
	if err != nil {
		return err
	}
	if err := h.svc.DeleteAvailability(c.Request().Context(), pr, id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
