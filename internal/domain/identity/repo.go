package identity

import (
	"context"

	"github.com/google/uuid"

	"github.com/clinic/clinic/internal/platform/auth"
)

// Constraint names surfaced as conflicts.
const (
	constraintUsername    = "users_username_key"
	constraintPatientLink = "users_patient_id_key"
)

type Repository interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	// GetByUsername matches case-insensitively.
	GetByUsername(ctx context.Context, username string) (*User, error)
	Update(ctx context.Context, u *User) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, role *auth.Role, limit, offset int) ([]*User, int, error)
}
