package faq

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, f *FAQ) error
	GetByID(ctx context.Context, id uuid.UUID) (*FAQ, error)
	Update(ctx context.Context, f *FAQ) error
	Delete(ctx context.Context, id uuid.UUID) error
	// List returns matching entries newest first.
	List(ctx context.Context, f Filter, limit, offset int) ([]*FAQ, int, error)
}
