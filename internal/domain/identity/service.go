package identity

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/clinic/clinic/internal/platform/apperr"
	"github.com/clinic/clinic/internal/platform/auth"
	"github.com/clinic/clinic/internal/platform/db"
)

var (
	ErrInvalidCredentials = apperr.Authentication("invalid credentials")
	ErrEmailUsed          = apperr.Conflict("email already used")
	ErrWrongPassword      = &apperr.Error{Kind: apperr.KindValidation, Message: "current password is incorrect", Fields: []string{"oldPassword"}}
)

// PatientDirectory is the slice of the patient domain identity depends on.
type PatientDirectory interface {
	Register(ctx context.Context, in PatientRegistration) (uuid.UUID, error)
	Summary(ctx context.Context, id uuid.UUID) (*PatientSummary, error)
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
}

type TokenIssuer interface {
	Issue(p auth.Principal) (string, time.Time, error)
}

type Service struct {
	users    Repository
	patients PatientDirectory
	tokens   TokenIssuer
	hasher   Hasher
	tx       db.TxRunner
	logger   zerolog.Logger
}

func NewService(users Repository, patients PatientDirectory, tokens TokenIssuer, hasher Hasher, tx db.TxRunner, logger zerolog.Logger) *Service {
	return &Service{users: users, patients: patients, tokens: tokens, hasher: hasher, tx: tx, logger: logger}
}

// -- Authentication --

func (s *Service) Login(ctx context.Context, in LoginInput) (*AuthResponse, error) {
	username := normalizeUsername(in.Username)
	if username == "" || in.Password == "" {
		var missing []string
		if username == "" {
			missing = append(missing, "username")
		}
		if in.Password == "" {
			missing = append(missing, "password")
		}
		return nil, apperr.Required(missing...)
	}
	u, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if db.IsNoRows(err) {
			return nil, ErrInvalidCredentials
		}
		return nil, apperr.Wrap(err, "user")
	}
	if !u.CheckPassword(s.hasher, in.Password) {
		return nil, ErrInvalidCredentials
	}
	return s.issue(u)
}

// RegisterPatient creates a patient record and its Patient-role user in one
// transaction, then signs the new user in.
func (s *Service) RegisterPatient(ctx context.Context, in RegisterInput) (*AuthResponse, error) {
	username := normalizeUsername(in.Email)
	if _, err := s.users.GetByUsername(ctx, username); err == nil {
		return nil, ErrEmailUsed
	} else if !db.IsNoRows(err) {
		return nil, apperr.Wrap(err, "user")
	}

	first, last := strings.TrimSpace(in.FirstName), strings.TrimSpace(in.LastName)
	u := &User{Username: username, Role: auth.RolePatient, FirstName: &first, LastName: &last}
	if err := u.SetPassword(s.hasher, in.Password); err != nil {
		return nil, err
	}

	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		pid, err := s.patients.Register(ctx, PatientRegistration{
			FirstName: first,
			LastName:  last,
			Email:     username,
			Phone:     in.Phone,
		})
		if err != nil {
			return err
		}
		u.PatientID = &pid
		if err := s.users.Create(ctx, u); err != nil {
			if apperr.IsUniqueViolation(err, constraintUsername) {
				return ErrEmailUsed
			}
			return apperr.Wrap(err, "user")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info().Str("user_id", u.ID.String()).Str("patient_id", u.PatientID.String()).Msg("patient self-registered")
	return s.issue(u)
}

func (s *Service) issue(u *User) (*AuthResponse, error) {
	token, exp, err := s.tokens.Issue(u.Principal())
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return &AuthResponse{
		ID:        u.ID,
		Username:  u.Username,
		Role:      u.Role,
		PatientID: u.PatientID,
		Token:     token,
		ExpiresAt: exp,
	}, nil
}

func (s *Service) Me(ctx context.Context, pr auth.Principal) (*MeResponse, error) {
	u, err := s.users.GetByID(ctx, pr.UserID)
	if err != nil {
		return nil, apperr.Wrap(err, "user")
	}
	out := &MeResponse{User: u}
	if u.Role == auth.RolePatient && u.PatientID != nil {
		if out.Patient, err = s.patients.Summary(ctx, *u.PatientID); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (s *Service) ChangePassword(ctx context.Context, pr auth.Principal, in ChangePasswordInput) error {
	u, err := s.users.GetByID(ctx, pr.UserID)
	if err != nil {
		return apperr.Wrap(err, "user")
	}
	if !u.CheckPassword(s.hasher, in.OldPassword) {
		return ErrWrongPassword
	}
	if err := u.SetPassword(s.hasher, in.NewPassword); err != nil {
		return err
	}
	if err := s.users.Update(ctx, u); err != nil {
		return apperr.Wrap(err, "user")
	}
	return nil
}

// -- User administration --

func (s *Service) CreateUser(ctx context.Context, in CreateUserInput) (*User, error) {
	role, err := auth.ParseRole(in.Role)
	if err != nil {
		return nil, apperr.Validation("invalid input: role must be one of Administrator, Doctor, Patient", "role")
	}
	u := &User{
		Username:  normalizeUsername(in.Username),
		Role:      role,
		PatientID: in.PatientID,
		FirstName: in.FirstName,
		LastName:  in.LastName,
	}
	if u.Username == "" {
		return nil, apperr.Required("username")
	}
	if err := s.checkPatientLink(ctx, u); err != nil {
		return nil, err
	}
	if err := u.SetPassword(s.hasher, in.Password); err != nil {
		return nil, err
	}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, userConflict(err)
	}
	return u, nil
}

func (s *Service) GetUser(ctx context.Context, id uuid.UUID) (*User, error) {
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, apperr.Wrap(err, "user")
	}
	return u, nil
}

func (s *Service) ListUsers(ctx context.Context, role string, limit, offset int) ([]*User, int, error) {
	var filter *auth.Role
	if role != "" {
		r, err := auth.ParseRole(role)
		if err != nil {
			return nil, 0, apperr.Validation("invalid input: role must be one of Administrator, Doctor, Patient", "role")
		}
		filter = &r
	}
	items, total, err := s.users.List(ctx, filter, limit, offset)
	if err != nil {
		return nil, 0, apperr.Wrap(err, "user")
	}
	return items, total, nil
}

func (s *Service) UpdateUser(ctx context.Context, id uuid.UUID, in UpdateUserInput) (*User, error) {
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, apperr.Wrap(err, "user")
	}
	if in.Role != nil {
		role, err := auth.ParseRole(*in.Role)
		if err != nil {
			return nil, apperr.Validation("invalid input: role must be one of Administrator, Doctor, Patient", "role")
		}
		u.Role = role
		if role != auth.RolePatient {
			u.PatientID = nil
		}
	}
	if in.PatientID != nil {
		u.PatientID = in.PatientID
	}
	if in.FirstName != nil {
		u.FirstName = in.FirstName
	}
	if in.LastName != nil {
		u.LastName = in.LastName
	}
	if err := s.checkPatientLink(ctx, u); err != nil {
		return nil, err
	}
	if in.Password != nil {
		if err := u.SetPassword(s.hasher, *in.Password); err != nil {
			return nil, err
		}
	}
	if err := s.users.Update(ctx, u); err != nil {
		return nil, userConflict(err)
	}
	return u, nil
}

func (s *Service) DeleteUser(ctx context.Context, pr auth.Principal, id uuid.UUID) error {
	if id == pr.UserID {
		return apperr.Conflict("cannot delete your own account")
	}
	if err := s.users.Delete(ctx, id); err != nil {
		return apperr.Wrap(err, "user")
	}
	return nil
}

// checkPatientLink enforces that exactly the Patient role carries a patient id
// and that the id points at an existing patient.
func (s *Service) checkPatientLink(ctx context.Context, u *User) error {
	if u.Role != auth.RolePatient {
		if u.PatientID != nil {
			return apperr.Validation("patientId is only allowed for the Patient role", "patientId")
		}
		return nil
	}
	if u.PatientID == nil {
		return apperr.Required("patientId")
	}
	ok, err := s.patients.Exists(ctx, *u.PatientID)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.Validation("patientId references no patient", "patientId")
	}
	return nil
}

func userConflict(err error) error {
	switch {
	case apperr.IsUniqueViolation(err, constraintUsername):
		return apperr.Conflict("username already exists")
	case apperr.IsUniqueViolation(err, constraintPatientLink):
		return apperr.Conflict("patient already has a user account")
	}
	return apperr.Wrap(err, "user")
}

func normalizeUsername(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
