package auth

import (
	"context"

	"github.com/google/uuid"

	"github.com/clinic/clinic/internal/platform/apperr"
)

// Action names a capability checked by handlers.
type Action string

const (
	ActionPatientReadAny           Action = "patient:read-any"
	ActionPatientReadOwn           Action = "patient:read-own"
	ActionPatientMedicalNotes      Action = "patient:medical-notes"
	ActionPatientCreate            Action = "patient:create"
	ActionPatientDelete            Action = "patient:delete"
	ActionPatientUpdateAny         Action = "patient:update-any"
	ActionPatientUpdateOwnProfile  Action = "patient:update-own-profile"
	ActionAppointmentManageAny     Action = "appointment:manage-any"
	ActionAppointmentManageOwnSchd Action = "appointment:manage-own-schedule"
	ActionAppointmentManageOwn     Action = "appointment:manage-own"
	ActionAppointmentCancelOwn     Action = "appointment:cancel-own"
	ActionAppointmentSetOutcome    Action = "appointment:set-outcome"
	ActionAppointmentDelete        Action = "appointment:delete"
	ActionAvailabilityManageOwn    Action = "availability:manage-own"
	ActionAvailabilityRead         Action = "availability:read"
	ActionMedicalNoteWrite         Action = "medical-note:write"
	ActionMedicalNoteReadOwn       Action = "medical-note:read-own"
	ActionFAQAnswer                Action = "faq:answer"
	ActionFAQDelete                Action = "faq:delete"
	ActionFAQListAll               Action = "faq:list-all"
	ActionFAQSubmit                Action = "faq:submit"
	ActionUserManage               Action = "user:manage"
	ActionPasswordChangeOwn        Action = "password:change-own"
	ActionSettingsRead             Action = "settings:read"
	ActionSettingsManage           Action = "settings:manage"
	ActionDashboardView            Action = "dashboard:view"
	ActionReferenceDataRead        Action = "reference-data:read"
)

// matrix is the single source of truth for who may do what.
var matrix = func() map[Action][]Role {
	a, d, p := RoleAdministrator, RoleDoctor, RolePatient
	return map[Action][]Role{
		ActionPatientReadAny:           {a, d},
		ActionPatientReadOwn:           {a, d, p},
		ActionPatientMedicalNotes:      {d},
		ActionPatientCreate:            {a},
		ActionPatientDelete:            {a},
		ActionPatientUpdateAny:         {a},
		ActionPatientUpdateOwnProfile:  {p},
		ActionAppointmentManageAny:     {a},
		ActionAppointmentManageOwnSchd: {d},
		ActionAppointmentManageOwn:     {p},
		ActionAppointmentCancelOwn:     {p},
		ActionAppointmentSetOutcome:    {a, d},
		ActionAppointmentDelete:        {a, d},
		ActionAvailabilityManageOwn:    {d},
		ActionAvailabilityRead:         {a, d, p},
		ActionMedicalNoteWrite:         {d},
		ActionMedicalNoteReadOwn:       {p},
		ActionFAQAnswer:                {a},
		ActionFAQDelete:                {a},
		ActionFAQListAll:               {a},
		ActionFAQSubmit:                {a, d, p},
		ActionUserManage:               {a},
		ActionPasswordChangeOwn:        {a, d, p},
		ActionSettingsRead:             {a, d, p},
		ActionSettingsManage:           {a},
		ActionDashboardView:            {a, d, p},
		ActionReferenceDataRead:        {a, d, p},
	}
}()

// Can reports whether role is granted action. Unknown actions are denied.
func Can(role Role, action Action) bool {
	for _, r := range matrix[action] {
		if r == role {
			return true
		}
	}
	return false
}

// CanAny reports whether role holds at least one of actions.
func CanAny(role Role, actions ...Action) bool {
	for _, act := range actions {
		if Can(role, act) {
			return true
		}
	}
	return false
}

// Authorize returns the caller when it may perform action. An anonymous caller
// gets an Authentication error; a known caller lacking the capability gets an
// Authorization error.
func Authorize(ctx context.Context, action Action) (Principal, error) {
	pr, ok := PrincipalFromContext(ctx)
	if !ok {
		return Principal{}, apperr.Authentication("missing authorization header")
	}
	if !Can(pr.Role, action) {
		return pr, Forbidden(action)
	}
	return pr, nil
}

// AuthorizeAny is Authorize over a set of alternative capabilities.
func AuthorizeAny(ctx context.Context, actions ...Action) (Principal, error) {
	pr, ok := PrincipalFromContext(ctx)
	if !ok {
		return Principal{}, apperr.Authentication("missing authorization header")
	}
	if !CanAny(pr.Role, actions...) {
		return pr, Forbidden(actions[0])
	}
	return pr, nil
}

func Forbidden(action Action) *apperr.Error {
	return apperr.Authorization("not allowed to " + string(action))
}

// CanReadPatient applies the read-any / read-own split for a patient record.
func CanReadPatient(pr Principal, patientID uuid.UUID) bool {
	if Can(pr.Role, ActionPatientReadAny) {
		return true
	}
	return Can(pr.Role, ActionPatientReadOwn) && pr.OwnsPatient(patientID)
}

// CanManageAppointment reports whether pr may modify an appointment belonging
// to patientID and assigned to doctorID (nil when unassigned).
func CanManageAppointment(pr Principal, patientID uuid.UUID, doctorID *uuid.UUID) bool {
	switch {
	case Can(pr.Role, ActionAppointmentManageAny):
		return true
	case Can(pr.Role, ActionAppointmentManageOwnSchd):
		return doctorID == nil || *doctorID == pr.UserID
	case Can(pr.Role, ActionAppointmentManageOwn):
		return pr.OwnsPatient(patientID)
	}
	return false
}

// CanCancelAppointment extends CanManageAppointment with the patient cancel-own right.
func CanCancelAppointment(pr Principal, patientID uuid.UUID, doctorID *uuid.UUID) bool {
	if Can(pr.Role, ActionAppointmentCancelOwn) && pr.OwnsPatient(patientID) {
		return true
	}
	return CanManageAppointment(pr, patientID, doctorID)
}
