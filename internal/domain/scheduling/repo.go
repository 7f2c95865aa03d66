package scheduling

import (
	"context"

	"github.com/google/uuid"

	"github.com/clinic/clinic/pkg/civil"
)

// activeSlotConstraint is the partial unique index on (date, time) over
// non-cancelled appointments.
const activeSlotConstraint = "appointments_active_slot_key"

type AppointmentRepository interface {
	Create(ctx context.Context, a *Appointment) error
	GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	Update(ctx context.Context, a *Appointment) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, f ListFilter, limit, offset int) ([]*Appointment, int, error)
	// BookedTimes returns the start times of non-cancelled appointments on date.
	BookedTimes(ctx context.Context, date civil.Date) ([]civil.Clock, error)
	// ActiveAt reports whether a non-cancelled appointment other than exclude starts at date/t.
	ActiveAt(ctx context.Context, date civil.Date, t civil.Clock, exclude *uuid.UUID) (bool, error)
}

type AvailabilityRepository interface {
	Create(ctx context.Context, av *Availability) error
	GetByID(ctx context.Context, id uuid.UUID) (*Availability, error)
	Update(ctx context.Context, av *Availability) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, f AvailabilityFilter) ([]*Availability, error)
}
