// Package identity owns user accounts: login, patient self-registration,
// password changes and user administration.
package identity

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/clinic/clinic/internal/platform/apperr"
	"github.com/clinic/clinic/internal/platform/auth"
)

type User struct {
	ID           uuid.UUID  `json:"id"`
	Username     string     `json:"username"`
	PasswordHash string     `json:"-"`
	Role         auth.Role  `json:"role"`
	PatientID    *uuid.UUID `json:"patientId,omitempty"`
	FirstName    *string    `json:"firstName,omitempty"`
	LastName     *string    `json:"lastName,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

// Hasher is the one-way password function.
type Hasher interface {
	Hash(plain string) (string, error)
	Compare(hash, plain string) bool
}

// SetPassword replaces the stored hash. It always rehashes.
func (u *User) SetPassword(h Hasher, plain string) error {
	if len(plain) < auth.MinPasswordLength {
		return apperr.Validation(fmt.Sprintf("password must be at least %d characters", auth.MinPasswordLength), "password")
	}
	hash, err := h.Hash(plain)
	if err != nil {
		return apperr.Internal(err)
	}
	u.PasswordHash = hash
	return nil
}

func (u *User) CheckPassword(h Hasher, plain string) bool {
	return u.PasswordHash != "" && h.Compare(u.PasswordHash, plain)
}

func (u *User) Principal() auth.Principal {
	return auth.Principal{UserID: u.ID, Role: u.Role, PatientID: u.PatientID}
}

// PatientSummary is the linked patient shown by /auth/me.
type PatientSummary struct {
	ID        uuid.UUID `json:"id"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
	Email     *string   `json:"email,omitempty"`
}

// PatientRegistration carries the patient half of a self-registration.
type PatientRegistration struct {
	FirstName string
	LastName  string
	Email     string
	Phone     *string
}

type LoginInput struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type RegisterInput struct {
	FirstName string  `json:"firstName" validate:"required,max=100"`
	LastName  string  `json:"lastName" validate:"required,max=100"`
	Email     string  `json:"email" validate:"required,email,max=255"`
	Phone     *string `json:"phone" validate:"omitempty,phone"`
	Password  string  `json:"password" validate:"required,min=8"`
}

// AuthResponse is returned by login and registration.
type AuthResponse struct {
	ID        uuid.UUID  `json:"id"`
	Username  string     `json:"username"`
	Role      auth.Role  `json:"role"`
	PatientID *uuid.UUID `json:"patientId,omitempty"`
	Token     string     `json:"token"`
	ExpiresAt time.Time  `json:"expiresAt"`
}

type MeResponse struct {
	*User
	Patient *PatientSummary `json:"patient,omitempty"`
}

type ChangePasswordInput struct {
	OldPassword string `json:"oldPassword" validate:"required"`
	NewPassword string `json:"newPassword" validate:"required,min=8"`
}

type CreateUserInput struct {
	Username  string     `json:"username" validate:"required,max=255"`
	Password  string     `json:"password" validate:"required,min=8"`
	Role      string     `json:"role" validate:"required"`
	PatientID *uuid.UUID `json:"patientId"`
	FirstName *string    `json:"firstName" validate:"omitempty,max=100"`
	LastName  *string    `json:"lastName" validate:"omitempty,max=100"`
}

type UpdateUserInput struct {
	Role      *string    `json:"role"`
	PatientID *uuid.UUID `json:"patientId"`
	FirstName *string    `json:"firstName" validate:"omitempty,max=100"`
	LastName  *string    `json:"lastName" validate:"omitempty,max=100"`
	Password  *string    `json:"password" validate:"omitempty,min=8"`
}
