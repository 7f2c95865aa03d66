package patient

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, p *Patient) error
	GetByID(ctx context.Context, id uuid.UUID) (*Patient, error)
	Update(ctx context.Context, p *Patient) error
	Delete(ctx context.Context, id uuid.UUID) error
	// Search matches q against names and email; an empty q lists everyone.
	Search(ctx context.Context, q string, limit, offset int) ([]*Patient, int, error)
}

type NoteRepository interface {
	Create(ctx context.Context, n *MedicalNote) error
	GetByID(ctx context.Context, id uuid.UUID) (*MedicalNote, error)
	Update(ctx context.Context, n *MedicalNote) error
	Delete(ctx context.Context, id uuid.UUID) error
	// ListByPatient returns notes on patientID, narrowed to doctorID when set and
	// to public notes unless includePrivate.
	ListByPatient(ctx context.Context, patientID uuid.UUID, doctorID *uuid.UUID, includePrivate bool) ([]*MedicalNote, error)
}
