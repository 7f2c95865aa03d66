package dashboard

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/clinic/clinic/internal/platform/apperr"
	"github.com/clinic/clinic/internal/platform/auth"
	"github.com/clinic/clinic/pkg/civil"
)

type Service struct {
	repo   Repository
	logger zerolog.Logger
	today  func() civil.Date
}

func NewService(repo Repository, logger zerolog.Logger) *Service {
	return &Service{repo: repo, logger: logger, today: civil.Today}
}

// View returns the summary for pr's role.
func (s *Service) View(ctx context.Context, pr auth.Principal) (interface{}, error) {
	if !auth.Can(pr.Role, auth.ActionDashboardView) {
		return nil, auth.Forbidden(auth.ActionDashboardView)
	}
	var (
		v   interface{}
		err error
	)
	switch pr.Role {
	case auth.RoleAdministrator:
		v, err = s.admin(ctx)
	case auth.RoleDoctor:
		v, err = s.doctor(ctx, pr)
	case auth.RolePatient:
		v, err = s.patient(ctx, pr)
	default:
		return nil, auth.Forbidden(auth.ActionDashboardView)
	}
	if err != nil {
		return nil, apperr.Wrap(err, "dashboard")
	}
	return v, nil
}

func (s *Service) admin(ctx context.Context) (*AdminView, error) {
	today := s.today()
	v := &AdminView{Role: string(auth.RoleAdministrator)}
	var err error
	if v.Patients, err = s.repo.CountPatients(ctx); err != nil {
		return nil, err
	}
	if v.UsersByRole, err = s.repo.CountUsersByRole(ctx); err != nil {
		return nil, err
	}
	for _, n := range v.UsersByRole {
		v.Users += n
	}
	if v.AppointmentsToday, err = s.repo.CountAppointmentsByStatus(ctx, Scope{Date: &today}); err != nil {
		return nil, err
	}
	if v.UnansweredFAQs, err = s.repo.CountUnansweredFAQs(ctx); err != nil {
		return nil, err
	}
	return v, nil
}

func (s *Service) doctor(ctx context.Context, pr auth.Principal) (*DoctorView, error) {
	today := s.today()
	self := pr.UserID
	v := &DoctorView{Role: string(auth.RoleDoctor)}
	var err error
	if v.Today, err = s.repo.CountAppointments(ctx, Scope{Date: &today, DoctorID: &self, Status: "Scheduled"}); err != nil {
		return nil, err
	}
	if v.Upcoming, err = s.repo.CountAppointments(ctx, Scope{After: &today, DoctorID: &self, Status: "Scheduled"}); err != nil {
		return nil, err
	}
	if v.Next, err = s.repo.Upcoming(ctx, Scope{From: &today, DoctorID: &self}, NextLimit); err != nil {
		return nil, err
	}
	return v, nil
}

func (s *Service) patient(ctx context.Context, pr auth.Principal) (*PatientView, error) {
	if pr.PatientID == nil {
		return nil, apperr.Authorization("account is not linked to a patient record")
	}
	today := s.today()
	own := *pr.PatientID
	v := &PatientView{Role: string(auth.RolePatient)}
	var err error
	if v.Next, err = s.repo.Upcoming(ctx, Scope{From: &today, PatientID: &own}, NextLimit); err != nil {
		return nil, err
	}
	if v.ByStatus, err = s.repo.CountAppointmentsByStatus(ctx, Scope{PatientID: &own}); err != nil {
		return nil, err
	}
	return v, nil
}
