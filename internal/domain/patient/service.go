package patient

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/clinic/clinic/internal/domain/refdata"
	"github.com/clinic/clinic/internal/platform/apperr"
	"github.com/clinic/clinic/internal/platform/auth"
	"github.com/clinic/clinic/internal/platform/db"
	"github.com/clinic/clinic/internal/platform/validate"
)

// RefChecker resolves and validates reference data ids.
type RefChecker interface {
	Resolve(ctx context.Context, kind refdata.Kind, code string) (int, error)
	Check(ctx context.Context, field string, kind refdata.Kind, id int) error
}

type Service struct {
	patients Repository
	notes    NoteRepository
	refs     RefChecker
}

func NewService(patients Repository, notes NoteRepository, refs RefChecker) *Service {
	return &Service{patients: patients, notes: notes, refs: refs}
}

// -- Patient --

func (s *Service) Create(ctx context.Context, in CreateInput) (*Patient, error) {
	p := &Patient{
		FirstName: strings.TrimSpace(in.FirstName),
		LastName:  strings.TrimSpace(in.LastName),
	}
	if p.FirstName == "" || p.LastName == "" {
		return nil, apperr.Required("firstName", "lastName")
	}
	p.Email = normalizeEmail(in.Email)
	phone, err := normalizePhone(in.Phone)
	if err != nil {
		return nil, err
	}
	p.Phone = phone

	if p.PatientTypeID, err = s.refID(ctx, "patientTypeId", refdata.KindPatientType, in.PatientTypeID, refdata.DefaultPatientType); err != nil {
		return nil, err
	}
	if p.PreferredLanguageID, err = s.refID(ctx, "preferredLanguageId", refdata.KindLanguage, in.PreferredLanguageID, refdata.DefaultLanguage); err != nil {
		return nil, err
	}
	if p.ContactPreferenceID, err = s.refID(ctx, "contactPreferenceId", refdata.KindContactPreference, in.ContactPreferenceID, refdata.DefaultContactPreference); err != nil {
		return nil, err
	}

	if err := s.patients.Create(ctx, p); err != nil {
		return nil, apperr.Wrap(err, "patient")
	}
	return p, nil
}

// refID returns the given id after checking it, or the id of defaultCode when absent.
func (s *Service) refID(ctx context.Context, field string, kind refdata.Kind, id *int, defaultCode string) (int, error) {
	if id == nil {
		return s.refs.Resolve(ctx, kind, defaultCode)
	}
	if err := s.refs.Check(ctx, field, kind, *id); err != nil {
		return 0, err
	}
	return *id, nil
}

// Get returns a patient the caller may read.
func (s *Service) Get(ctx context.Context, pr auth.Principal, id uuid.UUID) (*Patient, error) {
	if !auth.CanReadPatient(pr, id) {
		return nil, auth.Forbidden(auth.ActionPatientReadAny)
	}
	p, err := s.patients.GetByID(ctx, id)
	if err != nil {
		return nil, apperr.Wrap(err, "patient")
	}
	return p, nil
}

func (s *Service) Search(ctx context.Context, q string, limit, offset int) ([]*Patient, int, error) {
	items, total, err := s.patients.Search(ctx, strings.TrimSpace(q), limit, offset)
	if err != nil {
		return nil, 0, apperr.Wrap(err, "patient")
	}
	return items, total, nil
}

// Update applies a partial update after checking which fields the caller's
// role may touch on this record.
func (s *Service) Update(ctx context.Context, pr auth.Principal, id uuid.UUID, in UpdateInput) (*Patient, error) {
	if err := authorizeUpdate(pr, id, in); err != nil {
		return nil, err
	}
	p, err := s.patients.GetByID(ctx, id)
	if err != nil {
		return nil, apperr.Wrap(err, "patient")
	}

	if in.FirstName != nil {
		name := strings.TrimSpace(*in.FirstName)
		if name == "" {
			return nil, apperr.Required("firstName")
		}
		p.FirstName = name
	}
	if in.LastName != nil {
		name := strings.TrimSpace(*in.LastName)
		if name == "" {
			return nil, apperr.Required("lastName")
		}
		p.LastName = name
	}
	if in.Email != nil {
		p.Email = normalizeEmail(in.Email)
	}
	if in.Phone != nil {
		if p.Phone, err = normalizePhone(in.Phone); err != nil {
			return nil, err
		}
	}
	if in.PatientTypeID != nil {
		if err := s.refs.Check(ctx, "patientTypeId", refdata.KindPatientType, *in.PatientTypeID); err != nil {
			return nil, err
		}
		p.PatientTypeID = *in.PatientTypeID
	}
	if in.PreferredLanguageID != nil {
		if err := s.refs.Check(ctx, "preferredLanguageId", refdata.KindLanguage, *in.PreferredLanguageID); err != nil {
			return nil, err
		}
		p.PreferredLanguageID = *in.PreferredLanguageID
	}
	if in.ContactPreferenceID != nil {
		if err := s.refs.Check(ctx, "contactPreferenceId", refdata.KindContactPreference, *in.ContactPreferenceID); err != nil {
			return nil, err
		}
		p.ContactPreferenceID = *in.ContactPreferenceID
	}
	if in.MedicalNotes != nil {
		p.MedicalNotes = in.MedicalNotes
	}

	if err := s.patients.Update(ctx, p); err != nil {
		return nil, apperr.Wrap(err, "patient")
	}
	return p, nil
}

func authorizeUpdate(pr auth.Principal, id uuid.UUID, in UpdateInput) error {
	fields := in.provided()
	if len(fields) == 0 {
		return apperr.Validation("no fields to update")
	}
	switch {
	case auth.Can(pr.Role, auth.ActionPatientUpdateAny):
		if in.MedicalNotes != nil && !auth.Can(pr.Role, auth.ActionPatientMedicalNotes) {
			return auth.Forbidden(auth.ActionPatientMedicalNotes)
		}
	case auth.Can(pr.Role, auth.ActionPatientMedicalNotes):
		for _, f := range fields {
			if f != "medicalNotes" {
				return fieldForbidden(pr.Role, f)
			}
		}
	case auth.Can(pr.Role, auth.ActionPatientUpdateOwnProfile) && pr.OwnsPatient(id):
		for _, f := range fields {
			if !selfServiceFields[f] {
				return fieldForbidden(pr.Role, f)
			}
		}
	default:
		return auth.Forbidden(auth.ActionPatientUpdateAny)
	}
	return nil
}

func fieldForbidden(role auth.Role, field string) error {
	return apperr.Authorization(fmt.Sprintf("role %s may not change %s", role, field))
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.patients.Delete(ctx, id); err != nil {
		return apperr.Wrap(err, "patient")
	}
	return nil
}

func (s *Service) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	if _, err := s.patients.GetByID(ctx, id); err != nil {
		if db.IsNoRows(err) {
			return false, nil
		}
		return false, apperr.Wrap(err, "patient")
	}
	return true, nil
}

func (s *Service) Summary(ctx context.Context, id uuid.UUID) (*Summary, error) {
	p, err := s.patients.GetByID(ctx, id)
	if err != nil {
		return nil, apperr.Wrap(err, "patient")
	}
	return p.Summary(), nil
}

func normalizeEmail(email *string) *string {
	if email == nil {
		return nil
	}
	e := strings.ToLower(strings.TrimSpace(*email))
	if e == "" {
		return nil
	}
	return &e
}

func normalizePhone(phone *string) (*string, error) {
	if phone == nil || strings.TrimSpace(*phone) == "" {
		return nil, nil
	}
	e164, err := validate.Phone(*phone)
	if err != nil {
		return nil, apperr.Validation("invalid input: phone must be a valid phone number", "phone")
	}
	return &e164, nil
}

// -- Medical notes --

func (s *Service) AddNote(ctx context.Context, pr auth.Principal, patientID uuid.UUID, in NoteInput) (*MedicalNote, error) {
	if !auth.Can(pr.Role, auth.ActionMedicalNoteWrite) {
		return nil, auth.Forbidden(auth.ActionMedicalNoteWrite)
	}
	if strings.TrimSpace(in.Content) == "" {
		return nil, apperr.Required("content")
	}
	if _, err := s.patients.GetByID(ctx, patientID); err != nil {
		return nil, apperr.Wrap(err, "patient")
	}
	n := &MedicalNote{
		AppointmentID: in.AppointmentID,
		DoctorID:      pr.UserID,
		PatientID:     patientID,
		Content:       in.Content,
		Diagnosis:     in.Diagnosis,
		Treatment:     in.Treatment,
		IsPrivate:     in.IsPrivate,
	}
	if err := s.notes.Create(ctx, n); err != nil {
		return nil, apperr.Wrap(err, "medical note")
	}
	return n, nil
}

// ListNotes returns a doctor's own notes on the patient, or the public notes
// when the caller is that patient.
func (s *Service) ListNotes(ctx context.Context, pr auth.Principal, patientID uuid.UUID) ([]*MedicalNote, error) {
	var (
		notes []*MedicalNote
		err   error
	)
	switch {
	case auth.Can(pr.Role, auth.ActionMedicalNoteWrite):
		if _, err := s.patients.GetByID(ctx, patientID); err != nil {
			return nil, apperr.Wrap(err, "patient")
		}
		doctor := pr.UserID
		notes, err = s.notes.ListByPatient(ctx, patientID, &doctor, true)
	case auth.Can(pr.Role, auth.ActionMedicalNoteReadOwn) && pr.OwnsPatient(patientID):
		notes, err = s.notes.ListByPatient(ctx, patientID, nil, false)
	default:
		return nil, auth.Forbidden(auth.ActionMedicalNoteReadOwn)
	}
	if err != nil {
		return nil, apperr.Wrap(err, "medical note")
	}
	return notes, nil
}

func (s *Service) UpdateNote(ctx context.Context, pr auth.Principal, id uuid.UUID, in NotePatch) (*MedicalNote, error) {
	n, err := s.authoredNote(ctx, pr, id)
	if err != nil {
		return nil, err
	}
	if in.Content != nil {
		if strings.TrimSpace(*in.Content) == "" {
			return nil, apperr.Required("content")
		}
		n.Content = *in.Content
	}
	if in.Diagnosis != nil {
		n.Diagnosis = in.Diagnosis
	}
	if in.Treatment != nil {
		n.Treatment = in.Treatment
	}
	if in.IsPrivate != nil {
		n.IsPrivate = *in.IsPrivate
	}
	if err := s.notes.Update(ctx, n); err != nil {
		return nil, apperr.Wrap(err, "medical note")
	}
	return n, nil
}

func (s *Service) DeleteNote(ctx context.Context, pr auth.Principal, id uuid.UUID) error {
	if _, err := s.authoredNote(ctx, pr, id); err != nil {
		return err
	}
	if err := s.notes.Delete(ctx, id); err != nil {
		return apperr.Wrap(err, "medical note")
	}
	return nil
}

func (s *Service) authoredNote(ctx context.Context, pr auth.Principal, id uuid.UUID) (*MedicalNote, error) {
	if !auth.Can(pr.Role, auth.ActionMedicalNoteWrite) {
		return nil, auth.Forbidden(auth.ActionMedicalNoteWrite)
	}
	n, err := s.notes.GetByID(ctx, id)
	if err != nil {
		return nil, apperr.Wrap(err, "medical note")
	}
	if n.DoctorID != pr.UserID {
		return nil, apperr.Authorization("only the authoring doctor may change this note")
	}
	return n, nil
}
