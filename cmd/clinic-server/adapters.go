package main

import (
	"context"

	"github.com/google/uuid"

	"github.com/clinic/clinic/internal/domain/identity"
	"github.com/clinic/clinic/internal/domain/patient"
	"github.com/clinic/clinic/internal/platform/apperr"
	"github.com/clinic/clinic/internal/platform/auth"
)

// patientDirectory adapts patient.Service to identity.PatientDirectory so the
// identity package does not import patient.
type patientDirectory struct {
	svc *patient.Service
}

func (d patientDirectory) Register(ctx context.Context, in identity.PatientRegistration) (uuid.UUID, error) {
	email := in.Email
	p, err := d.svc.Create(ctx, patient.CreateInput{
		FirstName: in.FirstName,
		LastName:  in.LastName,
		Email:     &email,
		Phone:     in.Phone,
	})
	if err != nil {
		return uuid.Nil, err
	}
	return p.ID, nil
}

func (d patientDirectory) Summary(ctx context.Context, id uuid.UUID) (*identity.PatientSummary, error) {
	s, err := d.svc.Summary(ctx, id)
	if err != nil {
		return nil, err
	}
	return &identity.PatientSummary{ID: s.ID, FirstName: s.FirstName, LastName: s.LastName, Email: s.Email}, nil
}

func (d patientDirectory) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	return d.svc.Exists(ctx, id)
}

// doctorDirectory adapts identity.Service to scheduling.DoctorChecker.
type doctorDirectory struct {
	svc *identity.Service
}

func (d doctorDirectory) IsDoctor(ctx context.Context, id uuid.UUID) (bool, error) {
	u, err := d.svc.GetUser(ctx, id)
	if apperr.IsKind(err, apperr.KindNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return u.Role == auth.RoleDoctor, nil
}
