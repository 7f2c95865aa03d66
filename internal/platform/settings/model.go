// Package settings holds the clinic-wide configuration editable at runtime by
// administrators, persisted as a JSON document.
package settings

import (
	"fmt"

	"github.com/clinic/clinic/internal/platform/apperr"
	"github.com/clinic/clinic/pkg/civil"
)

// NotificationTypes are the accepted appointment reminder channels.
var NotificationTypes = []string{"Email", "SMS", "Both", "None"}

type Settings struct {
	Appointments  AppointmentSettings  `json:"appointments"`
	Notifications NotificationSettings `json:"notifications"`
	Clinic        ClinicSettings       `json:"clinic"`
}

type AppointmentSettings struct {
	DayStart                civil.Clock `json:"dayStart"`
	DayEnd                  civil.Clock `json:"dayEnd"`
	SlotMinutes             int         `json:"slotMinutes"`
	DefaultDurationMinutes  int         `json:"defaultDurationMinutes"`
	DefaultNotificationType string      `json:"defaultNotificationType"`
}

type NotificationSettings struct {
	EmailEnabled        bool `json:"emailEnabled"`
	SMSEnabled          bool `json:"smsEnabled"`
	ReminderHoursBefore int  `json:"reminderHoursBefore"`
}

type ClinicSettings struct {
	Name     string `json:"name"`
	Timezone string `json:"timezone"`
}

// Defaults returns the settings used before any administrator edit.
func Defaults() Settings {
	return Settings{
		Appointments: AppointmentSettings{
			DayStart:                civil.MustClock("08:00"),
			DayEnd:                  civil.MustClock("18:00"),
			SlotMinutes:             30,
			DefaultDurationMinutes:  30,
			DefaultNotificationType: "Email",
		},
		Notifications: NotificationSettings{
			EmailEnabled:        true,
			ReminderHoursBefore: 24,
		},
		Clinic: ClinicSettings{
			Name:     "Clinic",
			Timezone: "Europe/Paris",
		},
	}
}

// Patch is a partial update; nil fields keep their current value.
type Patch struct {
	Appointments  *AppointmentPatch  `json:"appointments,omitempty"`
	Notifications *NotificationPatch `json:"notifications,omitempty"`
	Clinic        *ClinicPatch       `json:"clinic,omitempty"`
}

type AppointmentPatch struct {
	DayStart                *civil.Clock `json:"dayStart,omitempty"`
	DayEnd                  *civil.Clock `json:"dayEnd,omitempty"`
	SlotMinutes             *int         `json:"slotMinutes,omitempty"`
	DefaultDurationMinutes  *int         `json:"defaultDurationMinutes,omitempty"`
	DefaultNotificationType *string      `json:"defaultNotificationType,omitempty"`
}

type NotificationPatch struct {
	EmailEnabled        *bool `json:"emailEnabled,omitempty"`
	SMSEnabled          *bool `json:"smsEnabled,omitempty"`
	ReminderHoursBefore *int  `json:"reminderHoursBefore,omitempty"`
}

type ClinicPatch struct {
	Name     *string `json:"name,omitempty"`
	Timezone *string `json:"timezone,omitempty"`
}

// Merge returns s with every provided patch field applied.
func (s Settings) Merge(p Patch) Settings {
	if a := p.Appointments; a != nil {
		setIf(&s.Appointments.DayStart, a.DayStart)
		setIf(&s.Appointments.DayEnd, a.DayEnd)
		setIf(&s.Appointments.SlotMinutes, a.SlotMinutes)
		setIf(&s.Appointments.DefaultDurationMinutes, a.DefaultDurationMinutes)
		setIf(&s.Appointments.DefaultNotificationType, a.DefaultNotificationType)
	}
	if n := p.Notifications; n != nil {
		setIf(&s.Notifications.EmailEnabled, n.EmailEnabled)
		setIf(&s.Notifications.SMSEnabled, n.SMSEnabled)
		setIf(&s.Notifications.ReminderHoursBefore, n.ReminderHoursBefore)
	}
	if c := p.Clinic; c != nil {
		setIf(&s.Clinic.Name, c.Name)
		setIf(&s.Clinic.Timezone, c.Timezone)
	}
	return s
}

func setIf[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}

// Validate checks the invariants the slot engine and booking rely on.
func (s Settings) Validate() error {
	a := s.Appointments
	if !a.DayStart.Valid() || !a.DayEnd.Valid() {
		return apperr.Validation("appointments.dayStart and appointments.dayEnd must be valid times", "appointments.dayStart", "appointments.dayEnd")
	}
	if a.DayStart >= a.DayEnd {
		return apperr.Validation("appointments.dayStart must be before appointments.dayEnd", "appointments.dayStart")
	}
	if a.SlotMinutes < 5 {
		return apperr.Validation("appointments.slotMinutes must be at least 5", "appointments.slotMinutes")
	}
	if a.DefaultDurationMinutes < 5 {
		return apperr.Validation("appointments.defaultDurationMinutes must be at least 5", "appointments.defaultDurationMinutes")
	}
	if !validNotificationType(a.DefaultNotificationType) {
		return apperr.Validation(fmt.Sprintf("appointments.defaultNotificationType must be one of %v", NotificationTypes), "appointments.defaultNotificationType")
	}
	if s.Notifications.ReminderHoursBefore < 0 {
		return apperr.Validation("notifications.reminderHoursBefore must not be negative", "notifications.reminderHoursBefore")
	}
	return nil
}

func validNotificationType(v string) bool {
	for _, t := range NotificationTypes {
		if t == v {
			return true
		}
	}
	return false
}
