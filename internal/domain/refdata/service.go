package refdata

import (
	"context"
	"fmt"

	"github.com/clinic/clinic/internal/platform/apperr"
	"github.com/clinic/clinic/internal/platform/db"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Catalog returns every lookup table.
func (s *Service) Catalog(ctx context.Context) (Catalog, error) {
	out := make(Catalog, len(Kinds))
	for _, k := range Kinds {
		items, err := s.repo.List(ctx, k)
		if err != nil {
			return nil, apperr.Wrap(err, string(k))
		}
		out[k] = items
	}
	return out, nil
}

// Resolve maps a code to its row id. A missing default code means the database
// was never seeded, which is a server fault rather than a caller mistake.
func (s *Service) Resolve(ctx context.Context, kind Kind, code string) (int, error) {
	it, err := s.repo.GetByCode(ctx, kind, code)
	if err != nil {
		if db.IsNoRows(err) {
			return 0, apperr.Internal(fmt.Errorf("reference data %s/%s not seeded", kind, code))
		}
		return 0, apperr.Wrap(err, string(kind))
	}
	return it.ID, nil
}

func (s *Service) Exists(ctx context.Context, kind Kind, id int) (bool, error) {
	if _, err := s.repo.GetByID(ctx, kind, id); err != nil {
		if db.IsNoRows(err) {
			return false, nil
		}
		return false, apperr.Wrap(err, string(kind))
	}
	return true, nil
}

// Code maps a row id back to its code. Unknown ids are a validation error
// against field.
func (s *Service) Code(ctx context.Context, field string, kind Kind, id int) (string, error) {
	it, err := s.repo.GetByID(ctx, kind, id)
	if err != nil {
		if db.IsNoRows(err) {
			return "", apperr.Validation(fmt.Sprintf("unknown %s %d", field, id), field)
		}
		return "", apperr.Wrap(err, string(kind))
	}
	return it.Code, nil
}

// Check returns a validation error naming field when id is not a row of kind.
func (s *Service) Check(ctx context.Context, field string, kind Kind, id int) error {
	ok, err := s.Exists(ctx, kind, id)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.Validation(fmt.Sprintf("unknown %s %d", field, id), field)
	}
	return nil
}

// Seed inserts the default rows that are missing and returns how many were added.
func (s *Service) Seed(ctx context.Context) (int, error) {
	defaults := Defaults()
	added := 0
	for _, k := range Kinds {
		for _, it := range defaults[k] {
			ok, err := s.repo.Insert(ctx, k, it)
			if err != nil {
				return added, fmt.Errorf("seed %s %s: %w", k, it.Code, err)
			}
			if ok {
				added++
			}
		}
	}
	return added, nil
}
