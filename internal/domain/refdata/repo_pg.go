package refdata

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinic/clinic/internal/platform/db"
)

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

func (r *repoPG) conn(ctx context.Context) db.Querier { return db.Conn(ctx, r.pool) }

func scanItem(row pgx.Row) (*Item, error) {
	var it Item
	if err := row.Scan(&it.ID, &it.Code, &it.Label); err != nil {
		return nil, err
	}
	return &it, nil
}

func (r *repoPG) List(ctx context.Context, kind Kind) ([]Item, error) {
	table, err := kind.table()
	if err != nil {
		return nil, err
	}
	rows, err := r.conn(ctx).Query(ctx, `SELECT id, code, label FROM `+table+` ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []Item{}
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *it)
	}
	return items, rows.Err()
}

func (r *repoPG) GetByID(ctx context.Context, kind Kind, id int) (*Item, error) {
	table, err := kind.table()
	if err != nil {
		return nil, err
	}
	return scanItem(r.conn(ctx).QueryRow(ctx, `SELECT id, code, label FROM `+table+` WHERE id = $1`, id))
}

func (r *repoPG) GetByCode(ctx context.Context, kind Kind, code string) (*Item, error) {
	table, err := kind.table()
	if err != nil {
		return nil, err
	}
	return scanItem(r.conn(ctx).QueryRow(ctx, `SELECT id, code, label FROM `+table+` WHERE code = $1`, code))
}

func (r *repoPG) Insert(ctx context.Context, kind Kind, item Item) (bool, error) {
	table, err := kind.table()
	if err != nil {
		return false, err
	}
	tag, err := r.conn(ctx).Exec(ctx,
		`INSERT INTO `+table+` (code, label) VALUES ($1, $2) ON CONFLICT (code) DO NOTHING`,
		item.Code, item.Label)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}
