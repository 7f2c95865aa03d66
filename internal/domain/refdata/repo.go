package refdata

import "context"

type Repository interface {
	List(ctx context.Context, kind Kind) ([]Item, error)
	GetByID(ctx context.Context, kind Kind, id int) (*Item, error)
	GetByCode(ctx context.Context, kind Kind, code string) (*Item, error)
	// Insert adds item unless its code is already present and reports whether a row was written.
	Insert(ctx context.Context, kind Kind, item Item) (bool, error)
}
