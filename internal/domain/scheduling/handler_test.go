package scheduling

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/clinic/clinic/internal/domain/refdata"
	"github.com/clinic/clinic/internal/platform/apperr"
	"github.com/clinic/clinic/internal/platform/auth"
)

type fakeCodes map[int]string

func (f fakeCodes) Code(_ context.Context, field string, _ refdata.Kind, id int) (string, error) {
	code, ok := f[id]
	if !ok {
		return "", apperr.Validation(fmt.Sprintf("unknown %s %d", field, id), field)
	}
	return code, nil
}

var statusCodes = fakeCodes{1: "Scheduled", 2: "Completed", 3: "Cancelled", 4: "NoShow"}

func newContext(method, target, body string, pr *auth.Principal) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	if pr != nil {
		req = req.WithContext(auth.WithPrincipal(req.Context(), *pr))
	}
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestHandler_CreateThenConflict(t *testing.T) {
	svc, _, _ := newTestService()
	h := NewHandler(svc, statusCodes)

	body := fmt.Sprintf(`{"patientId":%q,"date":"2025-03-10","time":"09:00","durationMinutes":30}`, patientA)
	c, rec := newContext(http.MethodPost, "/appointments", body, &admin)
	if err := h.CreateAppointment(c); err != nil {
		t.Fatalf("CreateAppointment: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d", rec.Code)
	}
	var got map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if got["status"] != "Scheduled" || got["time"] != "09:00" || got["date"] != "2025-03-10" {
		t.Errorf("body = %s", rec.Body.String())
	}

	body = fmt.Sprintf(`{"patientId":%q,"date":"2025-03-10","time":"09:00"}`, patientB)
	c, _ = newContext(http.MethodPost, "/appointments", body, &admin)
	err := h.CreateAppointment(c)
	if !errors.Is(err, ErrSlotBooked) {
		t.Fatalf("expected slot already booked, got %v", err)
	}
}

func TestHandler_CreateMissingFields(t *testing.T) {
	svc, _, _ := newTestService()
	h := NewHandler(svc, statusCodes)

	c, _ := newContext(http.MethodPost, "/appointments", fmt.Sprintf(`{"patientId":%q}`, patientA), &admin)
	err := h.CreateAppointment(c)
	e := apperr.As(err)
	if e.Kind != apperr.KindValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	if !strings.Contains(e.Message, "date") || !strings.Contains(e.Message, "time") {
		t.Errorf("message %q should name date and time", e.Message)
	}
}

func TestHandler_AvailableSlots(t *testing.T) {
	svc, _, _ := newTestService()
	h := NewHandler(svc, statusCodes)
	book(t, svc, admin, patientA, "09:00")

	c, rec := newContext(http.MethodGet, "/appointments/available-slots?date=2025-03-10", "", &patientUsr)
	if err := h.ListOpenSlots(c); err != nil {
		t.Fatal(err)
	}
	var got OpenSlots
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if got.Date != day {
		t.Errorf("date = %s", got.Date)
	}
	for _, s := range got.AvailableSlots {
		if s == "09:00" {
			t.Error("09:00 listed as open")
		}
	}

	c, _ = newContext(http.MethodGet, "/appointments/available-slots", "", &patientUsr)
	if err := h.ListOpenSlots(c); !apperr.IsKind(err, apperr.KindValidation) {
		t.Errorf("missing date: expected validation error, got %v", err)
	}
}

func TestHandler_CheckAvailability(t *testing.T) {
	svc, _, _ := newTestService()
	h := NewHandler(svc, statusCodes)
	a := book(t, svc, admin, patientA, "09:00")

	tests := []struct {
		query string
		want  bool
	}{
		{"date=2025-03-10&time=09:00", false},
		{"date=2025-03-10&time=09:30", true},
		{"date=2025-03-10&time=09:00&appointmentId=" + a.ID.String(), true},
	}
	for _, tt := range tests {
		c, rec := newContext(http.MethodGet, "/appointments/availability?"+tt.query, "", &doctor)
		if err := h.CheckAvailability(c); err != nil {
			t.Fatalf("%s: %v", tt.query, err)
		}
		var got AvailabilityCheck
		if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
			t.Fatal(err)
		}
		if got.Available != tt.want || got.Message == "" {
			t.Errorf("%s: got %+v, want available=%v", tt.query, got, tt.want)
		}
	}

	c, _ := newContext(http.MethodGet, "/appointments/availability?date=2025-03-10&time=9am", "", &doctor)
	if err := h.CheckAvailability(c); !apperr.IsKind(err, apperr.KindValidation) {
		t.Errorf("bad time: expected validation error, got %v", err)
	}
}

func TestHandler_ListByStatusID(t *testing.T) {
	svc, _, _ := newTestService()
	h := NewHandler(svc, statusCodes)
	a := book(t, svc, admin, patientA, "09:00")
	book(t, svc, admin, patientB, "10:00")
	if _, err := svc.Cancel(context.Background(), admin, a.ID); err != nil {
		t.Fatal(err)
	}

	c, rec := newContext(http.MethodGet, "/appointments?statusId=3", "", &admin)
	if err := h.ListAppointments(c); err != nil {
		t.Fatal(err)
	}
	var got struct {
		Data  []Appointment `json:"data"`
		Total int           `json:"total"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if got.Total != 1 || got.Data[0].Status != StatusCancelled {
		t.Errorf("body = %s", rec.Body.String())
	}

	c, _ = newContext(http.MethodGet, "/appointments?statusId=99", "", &admin)
	if err := h.ListAppointments(c); !apperr.IsKind(err, apperr.KindValidation) {
		t.Errorf("unknown statusId: expected validation error, got %v", err)
	}
}

func TestHandler_ClientIDFilter(t *testing.T) {
	svc, _, _ := newTestService()
	h := NewHandler(svc, statusCodes)
	book(t, svc, admin, patientA, "09:00")
	book(t, svc, admin, patientB, "10:00")

	c, rec := newContext(http.MethodGet, "/appointments?clientId="+patientB.String(), "", &doctor)
	if err := h.ListAppointments(c); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(rec.Body.String(), `"total":1`) {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestHandler_SetStatusThenCancel(t *testing.T) {
	svc, _, _ := newTestService()
	h := NewHandler(svc, statusCodes)
	a := book(t, svc, doctor, patientA, "09:00")

	c, rec := newContext(http.MethodPatch, "/", `{"status":"Completed"}`, &doctor)
	c.SetParamNames("id")
	c.SetParamValues(a.ID.String())
	if err := h.SetStatus(c); err != nil {
		t.Fatalf("SetStatus: %v", err)
	}
	if !strings.Contains(rec.Body.String(), `"status":"Completed"`) {
		t.Errorf("body = %s", rec.Body.String())
	}

	c, _ = newContext(http.MethodPost, "/", "", &doctor)
	c.SetParamNames("id")
	c.SetParamValues(a.ID.String())
	if err := h.CancelAppointment(c); !apperr.IsKind(err, apperr.KindConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestHandler_Unauthenticated(t *testing.T) {
	svc, _, _ := newTestService()
	h := NewHandler(svc, statusCodes)

	c, _ := newContext(http.MethodGet, "/appointments", "", nil)
	if err := h.ListAppointments(c); !apperr.IsKind(err, apperr.KindAuthentication) {
		t.Fatalf("expected authentication error, got %v", err)
	}
}

func TestHandler_DeleteAvailabilityAsPatient(t *testing.T) {
	svc, _, _ := newTestService()
	h := NewHandler(svc, statusCodes)

	c, _ := newContext(http.MethodDelete, "/", "", &patientUsr)
	c.SetParamNames("id")
	c.SetParamValues(patientA.String())
	if err := h.DeleteAvailability(c); !apperr.IsKind(err, apperr.KindAuthorization) {
		t.Fatalf("expected authorization error, got %v", err)
	}
}
