package auth

import (
	"context"

	"github.com/google/uuid"
)

type contextKey string

const principalKey contextKey = "principal"

// Principal is the authenticated caller attached to a request context.
type Principal struct {
	UserID    uuid.UUID
	Role      Role
	PatientID *uuid.UUID
}

func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey).(Principal)
	return p, ok
}

// UserIDFromContext returns the caller's user id, or uuid.Nil for anonymous requests.
func UserIDFromContext(ctx context.Context) uuid.UUID {
	p, _ := PrincipalFromContext(ctx)
	return p.UserID
}

// OwnsPatient reports whether the principal is the patient-role user linked to id.
func (p Principal) OwnsPatient(id uuid.UUID) bool {
	return p.Role == RolePatient && p.PatientID != nil && *p.PatientID == id
}

func (p Principal) Is(r Role) bool { return p.Role == r }
