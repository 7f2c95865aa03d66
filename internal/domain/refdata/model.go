// Package refdata serves the small lookup tables referenced by patients and
// appointments: patient types, languages, contact preferences, appointment
// statuses and notification types.
package refdata

import "fmt"

// Kind names one lookup table.
type Kind string

const (
	KindPatientType       Kind = "patientTypes"
	KindLanguage          Kind = "languages"
	KindContactPreference Kind = "contactPreferences"
	KindAppointmentStatus Kind = "appointmentStatuses"
	KindNotificationType  Kind = "notificationTypes"
)

// Kinds lists every lookup table in display order.
var Kinds = []Kind{
	KindPatientType,
	KindLanguage,
	KindContactPreference,
	KindAppointmentStatus,
	KindNotificationType,
}

// Codes assigned to self-registered patients.
const (
	DefaultPatientType       = "New"
	DefaultLanguage          = "French"
	DefaultContactPreference = "Email"
)

var tables = map[Kind]string{
	KindPatientType:       "patient_types",
	KindLanguage:          "languages",
	KindContactPreference: "contact_preferences",
	KindAppointmentStatus: "appointment_statuses",
	KindNotificationType:  "notification_types",
}

// table returns the SQL table for k. Only known kinds ever reach a query.
func (k Kind) table() (string, error) {
	t, ok := tables[k]
	if !ok {
		return "", fmt.Errorf("unknown reference data kind %q", k)
	}
	return t, nil
}

func (k Kind) Valid() bool {
	_, ok := tables[k]
	return ok
}

type Item struct {
	ID    int    `json:"id"`
	Code  string `json:"code"`
	Label string `json:"label"`
}

// Catalog is the full reference data set keyed by kind.
type Catalog map[Kind][]Item

// Defaults are the rows seeded on a fresh database.
func Defaults() map[Kind][]Item {
	return map[Kind][]Item{
		KindPatientType: {
			{Code: "New", Label: "New patient"},
			{Code: "Regular", Label: "Regular patient"},
			{Code: "VIP", Label: "VIP"},
		},
		KindLanguage: {
			{Code: "French", Label: "Français"},
			{Code: "English", Label: "English"},
			{Code: "Spanish", Label: "Español"},
			{Code: "Arabic", Label: "العربية"},
		},
		KindContactPreference: {
			{Code: "Email", Label: "Email"},
			{Code: "SMS", Label: "SMS"},
			{Code: "Phone", Label: "Phone call"},
		},
		KindAppointmentStatus: {
			{Code: "Scheduled", Label: "Scheduled"},
			{Code: "Completed", Label: "Completed"},
			{Code: "Cancelled", Label: "Cancelled"},
			{Code: "NoShow", Label: "No show"},
		},
		KindNotificationType: {
			{Code: "Email", Label: "Email"},
			{Code: "SMS", Label: "SMS"},
			{Code: "Both", Label: "Email and SMS"},
			{Code: "None", Label: "No notification"},
		},
	}
}
