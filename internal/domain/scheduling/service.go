package scheduling

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/clinic/clinic/internal/platform/apperr"
	"github.com/clinic/clinic/internal/platform/auth"
	"github.com/clinic/clinic/internal/platform/db"
	"github.com/clinic/clinic/internal/platform/settings"
	"github.com/clinic/clinic/pkg/civil"
)

// ErrSlotBooked is returned when another active appointment starts at the requested time.
var ErrSlotBooked = apperr.Conflict("slot already booked")

// PatientChecker confirms that a referenced patient exists.
type PatientChecker interface {
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
}

// DoctorChecker confirms that a user id belongs to a Doctor account.
type DoctorChecker interface {
	IsDoctor(ctx context.Context, id uuid.UUID) (bool, error)
}

type Service struct {
	appointments AppointmentRepository
	availability AvailabilityRepository
	patients     PatientChecker
	doctors      DoctorChecker
	settings     settings.Provider
	tx           db.TxRunner
	logger       zerolog.Logger
}

func NewService(appts AppointmentRepository, avail AvailabilityRepository, patients PatientChecker,
	doctors DoctorChecker, cfg settings.Provider, tx db.TxRunner, logger zerolog.Logger) *Service {
	return &Service{
		appointments: appts,
		availability: avail,
		patients:     patients,
		doctors:      doctors,
		settings:     cfg,
		tx:           tx,
		logger:       logger,
	}
}

// -- Slot engine --

// ListOpenSlots returns the day grid from settings minus the start times of
// active bookings on date.
func (s *Service) ListOpenSlots(ctx context.Context, date civil.Date) (*OpenSlots, error) {
	if date.IsZero() {
		return nil, apperr.Required("date")
	}
	cfg := s.settings.Get().Appointments
	booked, err := s.appointments.BookedTimes(ctx, date)
	if err != nil {
		return nil, apperr.Wrap(err, "appointment")
	}
	return &OpenSlots{
		Date:           date,
		AvailableSlots: FilterBooked(GenerateSlots(cfg.DayStart, cfg.DayEnd, cfg.SlotMinutes), booked),
	}, nil
}

// CheckAvailability reports whether no active appointment other than exclude
// starts at date/t.
func (s *Service) CheckAvailability(ctx context.Context, date civil.Date, t civil.Clock, exclude *uuid.UUID) (bool, error) {
	taken, err := s.appointments.ActiveAt(ctx, date, t, exclude)
	if err != nil {
		return false, apperr.Wrap(err, "appointment")
	}
	return !taken, nil
}

// -- Appointment --

func (s *Service) Create(ctx context.Context, pr auth.Principal, in CreateInput) (*Appointment, error) {
	var missing []string
	if in.PatientID == uuid.Nil {
		missing = append(missing, "patientId")
	}
	if in.Date.IsZero() {
		missing = append(missing, "date")
	}
	if in.Time == nil {
		missing = append(missing, "time")
	}
	if len(missing) > 0 {
		return nil, apperr.Required(missing...)
	}

	if in.DoctorID != nil {
		if err := s.checkDoctorAssignment(ctx, pr, *in.DoctorID); err != nil {
			return nil, err
		}
	}
	doctorID := in.DoctorID
	if doctorID == nil && pr.Role == auth.RoleDoctor {
		self := pr.UserID
		doctorID = &self
	}
	if !auth.CanManageAppointment(pr, in.PatientID, doctorID) {
		return nil, auth.Forbidden(auth.ActionAppointmentManageAny)
	}

	defaults := s.settings.Get().Appointments
	a := &Appointment{
		PatientID:       in.PatientID,
		DoctorID:        doctorID,
		Date:            in.Date,
		Time:            *in.Time,
		DurationMinutes: defaults.DefaultDurationMinutes,
		Status:          StatusScheduled,
		Notes:           in.Notes,
		CreatedBy:       &pr.UserID,
	}
	if in.DurationMinutes != nil {
		a.DurationMinutes = *in.DurationMinutes
	}
	if err := validateDuration(a.DurationMinutes); err != nil {
		return nil, err
	}
	nt := defaults.DefaultNotificationType
	if in.NotificationType != nil {
		nt = *in.NotificationType
	}
	var err error
	if a.NotificationType, err = parseNotification(nt); err != nil {
		return nil, err
	}
	if !a.Time.Valid() {
		return nil, apperr.Validation("invalid input: time must be a time in HH:MM format", "time")
	}

	if err := s.requirePatient(ctx, a.PatientID); err != nil {
		return nil, err
	}

	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.ensureFree(ctx, a.Date, a.Time, nil); err != nil {
			return err
		}
		return s.appointments.Create(ctx, a)
	})
	if err != nil {
		return nil, bookingError(err)
	}
	s.logger.Info().
		Str("appointment_id", a.ID.String()).
		Str("patient_id", a.PatientID.String()).
		Str("date", a.Date.String()).
		Str("time", a.Time.String()).
		Msg("appointment booked")
	return s.reload(ctx, a)
}

// Get returns an appointment the caller may see. Staff see every appointment;
// patients only their own.
func (s *Service) Get(ctx context.Context, pr auth.Principal, id uuid.UUID) (*Appointment, error) {
	a, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canView(pr, a) {
		return nil, auth.Forbidden(auth.ActionAppointmentManageOwn)
	}
	return a, nil
}

// Update merges in into the appointment. Provided notes always overwrite,
// including the empty string. A changed date or time is re-checked against
// other bookings; a status goes through the lifecycle rules.
func (s *Service) Update(ctx context.Context, pr auth.Principal, id uuid.UUID, in UpdateInput) (*Appointment, error) {
	a, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !auth.CanManageAppointment(pr, a.PatientID, a.DoctorID) {
		return nil, auth.Forbidden(auth.ActionAppointmentManageAny)
	}

	if in.PatientID != nil && *in.PatientID != a.PatientID {
		if !auth.CanManageAppointment(pr, *in.PatientID, a.DoctorID) {
			return nil, auth.Forbidden(auth.ActionAppointmentManageAny)
		}
		if err := s.requirePatient(ctx, *in.PatientID); err != nil {
			return nil, err
		}
		a.PatientID = *in.PatientID
	}
	if in.DoctorID != nil && (a.DoctorID == nil || *in.DoctorID != *a.DoctorID) {
		if err := s.checkDoctorAssignment(ctx, pr, *in.DoctorID); err != nil {
			return nil, err
		}
		a.DoctorID = in.DoctorID
	}

	moved := false
	if in.Date != nil && !in.Date.IsZero() && *in.Date != a.Date {
		a.Date = *in.Date
		moved = true
	}
	if in.Time != nil && *in.Time != a.Time {
		if !in.Time.Valid() {
			return nil, apperr.Validation("invalid input: time must be a time in HH:MM format", "time")
		}
		a.Time = *in.Time
		moved = true
	}
	if in.DurationMinutes != nil {
		if err := validateDuration(*in.DurationMinutes); err != nil {
			return nil, err
		}
		a.DurationMinutes = *in.DurationMinutes
	}
	if in.NotificationType != nil {
		if a.NotificationType, err = parseNotification(*in.NotificationType); err != nil {
			return nil, err
		}
	}
	if in.Notes != nil {
		a.Notes = in.Notes
	}
	if in.Status != nil {
		to, err := ParseStatus(*in.Status)
		if err != nil {
			return nil, apperr.Validation("invalid input: status must be one of Scheduled, Completed, Cancelled, NoShow", "status")
		}
		if to != a.Status {
			if err := authorizeStatus(pr, a, to); err != nil {
				return nil, err
			}
			if err := a.transition(to); err != nil {
				return nil, err
			}
		}
	}

	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if moved && a.Active() {
			if err := s.ensureFree(ctx, a.Date, a.Time, &a.ID); err != nil {
				return err
			}
		}
		return s.appointments.Update(ctx, a)
	})
	if err != nil {
		return nil, bookingError(err)
	}
	return s.reload(ctx, a)
}

// Cancel moves a scheduled appointment to Cancelled. The owning patient may
// cancel as well as staff.
func (s *Service) Cancel(ctx context.Context, pr auth.Principal, id uuid.UUID) (*Appointment, error) {
	return s.SetStatus(ctx, pr, id, StatusCancelled)
}

// SetStatus applies a lifecycle transition.
func (s *Service) SetStatus(ctx context.Context, pr auth.Principal, id uuid.UUID, to Status) (*Appointment, error) {
	a, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authorizeStatus(pr, a, to); err != nil {
		return nil, err
	}
	from := a.Status
	if err := a.transition(to); err != nil {
		return nil, err
	}
	if err := s.appointments.Update(ctx, a); err != nil {
		return nil, apperr.Wrap(err, "appointment")
	}
	s.logger.Info().
		Str("appointment_id", a.ID.String()).
		Str("from", string(from)).
		Str("to", string(to)).
		Str("user_id", pr.UserID.String()).
		Msg("appointment status changed")
	return a, nil
}

func authorizeStatus(pr auth.Principal, a *Appointment, to Status) error {
	switch to {
	case StatusCancelled:
		if !auth.CanCancelAppointment(pr, a.PatientID, a.DoctorID) {
			return auth.Forbidden(auth.ActionAppointmentCancelOwn)
		}
	case StatusCompleted, StatusNoShow:
		if !auth.Can(pr.Role, auth.ActionAppointmentSetOutcome) || !auth.CanManageAppointment(pr, a.PatientID, a.DoctorID) {
			return auth.Forbidden(auth.ActionAppointmentSetOutcome)
		}
	default:
		if !auth.CanManageAppointment(pr, a.PatientID, a.DoctorID) {
			return auth.Forbidden(auth.ActionAppointmentManageAny)
		}
	}
	return nil
}

func (s *Service) Delete(ctx context.Context, pr auth.Principal, id uuid.UUID) error {
	if !auth.Can(pr.Role, auth.ActionAppointmentDelete) {
		return auth.Forbidden(auth.ActionAppointmentDelete)
	}
	a, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if !auth.CanManageAppointment(pr, a.PatientID, a.DoctorID) {
		return auth.Forbidden(auth.ActionAppointmentDelete)
	}
	if err := s.appointments.Delete(ctx, id); err != nil {
		return apperr.Wrap(err, "appointment")
	}
	s.logger.Info().Str("appointment_id", id.String()).Str("user_id", pr.UserID.String()).Msg("appointment deleted")
	return nil
}

// ListForPatient lists a patient's appointments, optionally by status.
func (s *Service) ListForPatient(ctx context.Context, pr auth.Principal, patientID uuid.UUID, status *Status, limit, offset int) ([]*Appointment, int, error) {
	if !auth.CanReadPatient(pr, patientID) {
		return nil, 0, auth.Forbidden(auth.ActionPatientReadAny)
	}
	return s.list(ctx, ListFilter{PatientID: &patientID, Status: status}, limit, offset)
}

// ListForDoctor lists a doctor's schedule. A doctor's own schedule includes
// appointments not yet assigned to anyone.
func (s *Service) ListForDoctor(ctx context.Context, pr auth.Principal, doctorID uuid.UUID, date *civil.Date, status *Status, limit, offset int) ([]*Appointment, int, error) {
	self := pr.Role == auth.RoleDoctor && pr.UserID == doctorID
	if !self && !auth.Can(pr.Role, auth.ActionAppointmentManageAny) {
		return nil, 0, auth.Forbidden(auth.ActionAppointmentManageAny)
	}
	return s.list(ctx, ListFilter{DoctorID: &doctorID, Date: date, Status: status, IncludeUnassigned: self}, limit, offset)
}

// ListAll applies f. Patients are always narrowed to their own record.
func (s *Service) ListAll(ctx context.Context, pr auth.Principal, f ListFilter, limit, offset int) ([]*Appointment, int, error) {
	if pr.Role == auth.RolePatient {
		if pr.PatientID == nil {
			return nil, 0, auth.Forbidden(auth.ActionAppointmentManageOwn)
		}
		if f.PatientID != nil && *f.PatientID != *pr.PatientID {
			return nil, 0, auth.Forbidden(auth.ActionPatientReadAny)
		}
		own := *pr.PatientID
		f.PatientID = &own
	}
	return s.list(ctx, f, limit, offset)
}

func (s *Service) list(ctx context.Context, f ListFilter, limit, offset int) ([]*Appointment, int, error) {
	if f.StartPeriod != nil && f.EndPeriod != nil && f.EndPeriod.Before(*f.StartPeriod) {
		return nil, 0, apperr.Validation("endPeriod must not be before startPeriod", "endPeriod")
	}
	items, total, err := s.appointments.List(ctx, f, limit, offset)
	if err != nil {
		return nil, 0, apperr.Wrap(err, "appointment")
	}
	return items, total, nil
}

func (s *Service) load(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	a, err := s.appointments.GetByID(ctx, id)
	if err != nil {
		return nil, apperr.Wrap(err, "appointment")
	}
	return a, nil
}

// reload fetches a with its joined fields after a write.
func (s *Service) reload(ctx context.Context, a *Appointment) (*Appointment, error) {
	fresh, err := s.appointments.GetByID(ctx, a.ID)
	if err != nil {
		return a, nil
	}
	return fresh, nil
}

func (s *Service) requirePatient(ctx context.Context, id uuid.UUID) error {
	ok, err := s.patients.Exists(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.NotFound("patient")
	}
	return nil
}

// checkDoctorAssignment allows staff to set doctorId. Doctors may only name
// themselves, and the id must belong to a Doctor user.
func (s *Service) checkDoctorAssignment(ctx context.Context, pr auth.Principal, id uuid.UUID) error {
	switch pr.Role {
	case auth.RolePatient:
		return apperr.Authorization("patients may not assign a doctor")
	case auth.RoleDoctor:
		if id != pr.UserID {
			return apperr.Authorization("doctors may only assign appointments to themselves")
		}
		return nil
	}
	ok, err := s.doctors.IsDoctor(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.Validation("invalid input: doctorId must reference a Doctor user", "doctorId")
	}
	return nil
}

func (s *Service) ensureFree(ctx context.Context, date civil.Date, t civil.Clock, exclude *uuid.UUID) error {
	free, err := s.CheckAvailability(ctx, date, t, exclude)
	if err != nil {
		return err
	}
	if !free {
		return ErrSlotBooked
	}
	return nil
}

// bookingError maps a lost race on the active-slot index to ErrSlotBooked.
func bookingError(err error) error {
	if apperr.IsUniqueViolation(err, activeSlotConstraint) {
		return ErrSlotBooked
	}
	return apperr.Wrap(err, "appointment")
}

func canView(pr auth.Principal, a *Appointment) bool {
	if auth.CanAny(pr.Role, auth.ActionAppointmentManageAny, auth.ActionAppointmentManageOwnSchd) {
		return true
	}
	return pr.OwnsPatient(a.PatientID)
}

func validateDuration(minutes int) error {
	if minutes < MinDurationMinutes {
		return apperr.Validation("invalid input: durationMinutes must be at least 5", "durationMinutes")
	}
	return nil
}

func parseNotification(s string) (NotificationType, error) {
	nt, err := ParseNotificationType(s)
	if err != nil {
		return "", apperr.Validation("invalid input: notificationType must be one of Email, SMS, Both, None", "notificationType")
	}
	return nt, nil
}

// -- Availability --

func (s *Service) ListAvailability(ctx context.Context, f AvailabilityFilter) ([]*Availability, error) {
	items, err := s.availability.List(ctx, f)
	if err != nil {
		return nil, apperr.Wrap(err, "availability")
	}
	return items, nil
}

func (s *Service) CreateAvailability(ctx context.Context, pr auth.Principal, in AvailabilityInput) (*Availability, error) {
	if !auth.Can(pr.Role, auth.ActionAvailabilityManageOwn) {
		return nil, auth.Forbidden(auth.ActionAvailabilityManageOwn)
	}
	var missing []string
	if in.Date.IsZero() {
		missing = append(missing, "date")
	}
	if in.StartTime == nil {
		missing = append(missing, "startTime")
	}
	if in.EndTime == nil {
		missing = append(missing, "endTime")
	}
	if len(missing) > 0 {
		return nil, apperr.Required(missing...)
	}
	av := &Availability{
		DoctorID:   pr.UserID,
		Date:       in.Date,
		StartTime:  *in.StartTime,
		EndTime:    *in.EndTime,
		Recurrence: RecurrenceNone,
	}
	if in.Recurrence != nil {
		r, err := ParseRecurrence(*in.Recurrence)
		if err != nil {
			return nil, apperr.Validation("invalid input: recurrence must be one of None, Daily, Weekly, Monthly", "recurrence")
		}
		av.Recurrence = r
	}
	if err := validateWindow(av); err != nil {
		return nil, err
	}
	if err := s.availability.Create(ctx, av); err != nil {
		return nil, apperr.Wrap(err, "availability")
	}
	return av, nil
}

func (s *Service) UpdateAvailability(ctx context.Context, pr auth.Principal, id uuid.UUID, in AvailabilityPatch) (*Availability, error) {
	av, err := s.ownAvailability(ctx, pr, id)
	if err != nil {
		return nil, err
	}
	if in.Date != nil && !in.Date.IsZero() {
		av.Date = *in.Date
	}
	if in.StartTime != nil {
		av.StartTime = *in.StartTime
	}
	if in.EndTime != nil {
		av.EndTime = *in.EndTime
	}
	if in.Recurrence != nil {
		r, err := ParseRecurrence(*in.Recurrence)
		if err != nil {
			return nil, apperr.Validation("invalid input: recurrence must be one of None, Daily, Weekly, Monthly", "recurrence")
		}
		av.Recurrence = r
	}
	if err := validateWindow(av); err != nil {
		return nil, err
	}
	if err := s.availability.Update(ctx, av); err != nil {
		return nil, apperr.Wrap(err, "availability")
	}
	return av, nil
}

func (s *Service) DeleteAvailability(ctx context.Context, pr auth.Principal, id uuid.UUID) error {
	if _, err := s.ownAvailability(ctx, pr, id); err != nil {
		return err
	}
	if err := s.availability.Delete(ctx, id); err != nil {
		return apperr.Wrap(err, "availability")
	}
	return nil
}

func (s *Service) ownAvailability(ctx context.Context, pr auth.Principal, id uuid.UUID) (*Availability, error) {
	if !auth.Can(pr.Role, auth.ActionAvailabilityManageOwn) {
		return nil, auth.Forbidden(auth.ActionAvailabilityManageOwn)
	}
	av, err := s.availability.GetByID(ctx, id)
	if err != nil {
		return nil, apperr.Wrap(err, "availability")
	}
	if av.DoctorID != pr.UserID {
		return nil, apperr.Authorization("availability belongs to another doctor")
	}
	return av, nil
}

func validateWindow(av *Availability) error {
	if !av.StartTime.Valid() || !av.EndTime.Valid() {
		return apperr.Validation("invalid input: startTime and endTime must be times in HH:MM format", "startTime", "endTime")
	}
	if av.EndTime <= av.StartTime {
		return apperr.Validation("endTime must be after startTime", "endTime")
	}
	return nil
}
