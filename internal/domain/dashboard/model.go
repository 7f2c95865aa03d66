// Package dashboard builds the per-role landing summaries.
package dashboard

import (
	"github.com/google/uuid"

	"github.com/clinic/clinic/pkg/civil"
)

// NextLimit is how many upcoming appointments a dashboard lists.
const NextLimit = 5

// Scope restricts appointment counts. Unset fields do not filter.
type Scope struct {
	Date      *civil.Date
	After     *civil.Date
	From      *civil.Date
	PatientID *uuid.UUID
	// DoctorID also matches appointments with no doctor.
	DoctorID *uuid.UUID
	Status   string
}

type Upcoming struct {
	ID              uuid.UUID   `json:"id"`
	PatientID       uuid.UUID   `json:"patientId"`
	PatientName     string      `json:"patientName"`
	DoctorID        *uuid.UUID  `json:"doctorId"`
	Date            civil.Date  `json:"date"`
	Time            civil.Clock `json:"time"`
	DurationMinutes int         `json:"durationMinutes"`
	Status          string      `json:"status"`
}

type AdminView struct {
	Role              string         `json:"role"`
	Patients          int            `json:"patients"`
	Users             int            `json:"users"`
	UsersByRole       map[string]int `json:"usersByRole"`
	AppointmentsToday map[string]int `json:"appointmentsToday"`
	UnansweredFAQs    int            `json:"unansweredFaqs"`
}

type DoctorView struct {
	Role     string      `json:"role"`
	Today    int         `json:"today"`
	Upcoming int         `json:"upcoming"`
	Next     []*Upcoming `json:"next"`
}

type PatientView struct {
	Role     string         `json:"role"`
	Next     []*Upcoming    `json:"next"`
	ByStatus map[string]int `json:"byStatus"`
}
