package dashboard

import "context"

type Repository interface {
	CountPatients(ctx context.Context) (int, error)
	CountUsersByRole(ctx context.Context) (map[string]int, error)
	CountAppointments(ctx context.Context, s Scope) (int, error)
	CountAppointmentsByStatus(ctx context.Context, s Scope) (map[string]int, error)
	CountUnansweredFAQs(ctx context.Context) (int, error)
	// Upcoming returns Scheduled appointments in s ordered by date and time.
	Upcoming(ctx context.Context, s Scope, limit int) ([]*Upcoming, error)
}
