// Package scheduling books appointments against the clinic day grid and keeps
// the doctors' informational availability calendar.
package scheduling

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/clinic/clinic/pkg/civil"
)

// Status is the appointment lifecycle state.
type Status string

const (
	StatusScheduled Status = "Scheduled"
	StatusCompleted Status = "Completed"
	StatusCancelled Status = "Cancelled"
	StatusNoShow    Status = "NoShow"
)

var Statuses = []Status{StatusScheduled, StatusCompleted, StatusCancelled, StatusNoShow}

// ParseStatus accepts any casing and returns the canonical value.
func ParseStatus(s string) (Status, error) {
	for _, st := range Statuses {
		if strings.EqualFold(s, string(st)) {
			return st, nil
		}
	}
	return "", fmt.Errorf("invalid status %q", s)
}

type NotificationType string

const (
	NotifyEmail NotificationType = "Email"
	NotifySMS   NotificationType = "SMS"
	NotifyBoth  NotificationType = "Both"
	NotifyNone  NotificationType = "None"
)

var NotificationTypes = []NotificationType{NotifyEmail, NotifySMS, NotifyBoth, NotifyNone}

func ParseNotificationType(s string) (NotificationType, error) {
	for _, nt := range NotificationTypes {
		if strings.EqualFold(s, string(nt)) {
			return nt, nil
		}
	}
	return "", fmt.Errorf("invalid notification type %q", s)
}

type Recurrence string

const (
	RecurrenceNone    Recurrence = "None"
	RecurrenceDaily   Recurrence = "Daily"
	RecurrenceWeekly  Recurrence = "Weekly"
	RecurrenceMonthly Recurrence = "Monthly"
)

var Recurrences = []Recurrence{RecurrenceNone, RecurrenceDaily, RecurrenceWeekly, RecurrenceMonthly}

func ParseRecurrence(s string) (Recurrence, error) {
	for _, r := range Recurrences {
		if strings.EqualFold(s, string(r)) {
			return r, nil
		}
	}
	return "", fmt.Errorf("invalid recurrence %q", s)
}

// MinDurationMinutes is the shortest bookable appointment.
const MinDurationMinutes = 5

type Appointment struct {
	ID               uuid.UUID        `json:"id"`
	PatientID        uuid.UUID        `json:"patientId"`
	DoctorID         *uuid.UUID       `json:"doctorId"`
	Date             civil.Date       `json:"date"`
	Time             civil.Clock      `json:"time"`
	DurationMinutes  int              `json:"durationMinutes"`
	NotificationType NotificationType `json:"notificationType"`
	Status           Status           `json:"status"`
	Notes            *string          `json:"notes"`
	CreatedBy        *uuid.UUID       `json:"createdBy"`
	CreatedAt        time.Time        `json:"createdAt"`
	UpdatedAt        time.Time        `json:"updatedAt"`

	// Joined on read.
	Patient           *PatientRef `json:"patient,omitempty"`
	CreatedByUsername *string     `json:"createdByUsername,omitempty"`
}

// PatientRef is the patient name carried on appointment listings.
type PatientRef struct {
	ID        uuid.UUID `json:"id"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
}

// End returns the first minute after the appointment.
func (a *Appointment) End() civil.Clock { return a.Time.Add(a.DurationMinutes) }

func (a *Appointment) Active() bool { return a.Status != StatusCancelled }

type CreateInput struct {
	PatientID        uuid.UUID    `json:"patientId" validate:"required"`
	DoctorID         *uuid.UUID   `json:"doctorId"`
	Date             civil.Date   `json:"date" validate:"required"`
	Time             *civil.Clock `json:"time" validate:"required"`
	DurationMinutes  *int         `json:"durationMinutes" validate:"omitempty,min=5"`
	NotificationType *string      `json:"notificationType" validate:"omitempty,oneof=Email SMS Both None"`
	Notes            *string      `json:"notes"`
}

// UpdateInput merges into an existing appointment; nil fields are kept.
type UpdateInput struct {
	PatientID        *uuid.UUID   `json:"patientId"`
	DoctorID         *uuid.UUID   `json:"doctorId"`
	Date             *civil.Date  `json:"date"`
	Time             *civil.Clock `json:"time"`
	DurationMinutes  *int         `json:"durationMinutes" validate:"omitempty,min=5"`
	NotificationType *string      `json:"notificationType" validate:"omitempty,oneof=Email SMS Both None"`
	Status           *string      `json:"status"`
	Notes            *string      `json:"notes"`
}

type StatusInput struct {
	Status string `json:"status" validate:"required"`
}

// ListFilter narrows appointment listings. Set fields are ANDed.
type ListFilter struct {
	Date        *civil.Date
	PatientID   *uuid.UUID
	DoctorID    *uuid.UUID
	Status      *Status
	StartPeriod *civil.Date
	EndPeriod   *civil.Date
	// IncludeUnassigned widens a DoctorID filter to appointments with no doctor.
	IncludeUnassigned bool
}

// AvailabilityCheck answers GET /appointments/availability.
type AvailabilityCheck struct {
	Available bool   `json:"available"`
	Message   string `json:"message"`
}

// OpenSlots answers GET /appointments/available-slots.
type OpenSlots struct {
	Date           civil.Date `json:"date"`
	AvailableSlots []string   `json:"availableSlots"`
}

// Availability is a doctor-declared open window. It is informational and never
// checked against bookings.
type Availability struct {
	ID         uuid.UUID   `json:"id"`
	DoctorID   uuid.UUID   `json:"doctorId"`
	Date       civil.Date  `json:"date"`
	StartTime  civil.Clock `json:"startTime"`
	EndTime    civil.Clock `json:"endTime"`
	Recurrence Recurrence  `json:"recurrence"`
	CreatedAt  time.Time   `json:"createdAt"`
	UpdatedAt  time.Time   `json:"updatedAt"`
}

type AvailabilityInput struct {
	Date       civil.Date   `json:"date" validate:"required"`
	StartTime  *civil.Clock `json:"startTime" validate:"required"`
	EndTime    *civil.Clock `json:"endTime" validate:"required"`
	Recurrence *string      `json:"recurrence" validate:"omitempty,oneof=None Daily Weekly Monthly"`
}

type AvailabilityPatch struct {
	Date       *civil.Date  `json:"date"`
	StartTime  *civil.Clock `json:"startTime"`
	EndTime    *civil.Clock `json:"endTime"`
	Recurrence *string      `json:"recurrence" validate:"omitempty,oneof=None Daily Weekly Monthly"`
}

type AvailabilityFilter struct {
	DoctorID    *uuid.UUID
	Date        *civil.Date
	StartPeriod *civil.Date
	EndPeriod   *civil.Date
}
