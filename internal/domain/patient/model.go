// Package patient manages patient records and the medical notes doctors keep on them.
package patient

import (
	"time"

	"github.com/google/uuid"

	"github.com/clinic/clinic/internal/platform/auth"
)

type Patient struct {
	ID                  uuid.UUID
	FirstName           string
	LastName            string
	Email               *string
	Phone               *string
	PatientTypeID       int
	PreferredLanguageID int
	ContactPreferenceID int
	MedicalNotes        *string
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// View is the patient payload. It has no medicalNotes key at all.
type View struct {
	ID                  uuid.UUID `json:"id"`
	FirstName           string    `json:"firstName"`
	LastName            string    `json:"lastName"`
	Email               *string   `json:"email"`
	Phone               *string   `json:"phone"`
	PatientTypeID       int       `json:"patientTypeId"`
	PreferredLanguageID int       `json:"preferredLanguageId"`
	ContactPreferenceID int       `json:"contactPreferenceId"`
	CreatedAt           time.Time `json:"createdAt"`
	UpdatedAt           time.Time `json:"updatedAt"`
}

// ClinicalView adds the medical notes for roles allowed to see them.
type ClinicalView struct {
	View
	MedicalNotes *string `json:"medicalNotes"`
}

// ViewFor builds the payload appropriate to role.
func (p *Patient) ViewFor(role auth.Role) interface{} {
	v := View{
		ID:                  p.ID,
		FirstName:           p.FirstName,
		LastName:            p.LastName,
		Email:               p.Email,
		Phone:               p.Phone,
		PatientTypeID:       p.PatientTypeID,
		PreferredLanguageID: p.PreferredLanguageID,
		ContactPreferenceID: p.ContactPreferenceID,
		CreatedAt:           p.CreatedAt,
		UpdatedAt:           p.UpdatedAt,
	}
	if auth.Can(role, auth.ActionPatientMedicalNotes) {
		return ClinicalView{View: v, MedicalNotes: p.MedicalNotes}
	}
	return v
}

// Summary is the short form embedded in other payloads.
type Summary struct {
	ID        uuid.UUID `json:"id"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
	Email     *string   `json:"email,omitempty"`
}

func (p *Patient) Summary() *Summary {
	return &Summary{ID: p.ID, FirstName: p.FirstName, LastName: p.LastName, Email: p.Email}
}

type CreateInput struct {
	FirstName           string  `json:"firstName" validate:"required,max=100"`
	LastName            string  `json:"lastName" validate:"required,max=100"`
	Email               *string `json:"email" validate:"omitempty,email,max=255"`
	Phone               *string `json:"phone" validate:"omitempty,phone"`
	PatientTypeID       *int    `json:"patientTypeId" validate:"omitempty,gt=0"`
	PreferredLanguageID *int    `json:"preferredLanguageId" validate:"omitempty,gt=0"`
	ContactPreferenceID *int    `json:"contactPreferenceId" validate:"omitempty,gt=0"`
}

// UpdateInput is a partial update; nil fields are left unchanged.
type UpdateInput struct {
	FirstName           *string `json:"firstName" validate:"omitempty,min=1,max=100"`
	LastName            *string `json:"lastName" validate:"omitempty,min=1,max=100"`
	Email               *string `json:"email" validate:"omitempty,email,max=255"`
	Phone               *string `json:"phone" validate:"omitempty,phone"`
	PatientTypeID       *int    `json:"patientTypeId" validate:"omitempty,gt=0"`
	PreferredLanguageID *int    `json:"preferredLanguageId" validate:"omitempty,gt=0"`
	ContactPreferenceID *int    `json:"contactPreferenceId" validate:"omitempty,gt=0"`
	MedicalNotes        *string `json:"medicalNotes"`
}

// provided lists the JSON names of the fields present in the update.
func (in UpdateInput) provided() []string {
	var out []string
	add := func(set bool, name string) {
		if set {
			out = append(out, name)
		}
	}
	add(in.FirstName != nil, "firstName")
	add(in.LastName != nil, "lastName")
	add(in.Email != nil, "email")
	add(in.Phone != nil, "phone")
	add(in.PatientTypeID != nil, "patientTypeId")
	add(in.PreferredLanguageID != nil, "preferredLanguageId")
	add(in.ContactPreferenceID != nil, "contactPreferenceId")
	add(in.MedicalNotes != nil, "medicalNotes")
	return out
}

// selfServiceFields are the profile fields a patient may change on their own record.
var selfServiceFields = map[string]bool{
	"email":               true,
	"phone":               true,
	"contactPreferenceId": true,
	"preferredLanguageId": true,
}

type MedicalNote struct {
	ID            uuid.UUID  `json:"id"`
	AppointmentID *uuid.UUID `json:"appointmentId"`
	DoctorID      uuid.UUID  `json:"doctorId"`
	PatientID     uuid.UUID  `json:"patientId"`
	Content       string     `json:"content"`
	Diagnosis     *string    `json:"diagnosis"`
	Treatment     *string    `json:"treatment"`
	IsPrivate     bool       `json:"isPrivate"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

type NoteInput struct {
	AppointmentID *uuid.UUID `json:"appointmentId"`
	Content       string     `json:"content" validate:"required"`
	Diagnosis     *string    `json:"diagnosis"`
	Treatment     *string    `json:"treatment"`
	IsPrivate     bool       `json:"isPrivate"`
}

type NotePatch struct {
	Content   *string `json:"content" validate:"omitempty,min=1"`
	Diagnosis *string `json:"diagnosis"`
	Treatment *string `json:"treatment"`
	IsPrivate *bool   `json:"isPrivate"`
}
