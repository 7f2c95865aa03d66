package faq

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinic/clinic/internal/platform/db"
)

type faqRepoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &faqRepoPG{pool: pool}
}

func (r *faqRepoPG) conn(ctx context.Context) db.Querier { return db.Conn(ctx, r.pool) }

const faqCols = `id, question, answer, asked_by, answered_by, answered_at, created_at, updated_at`

func (r *faqRepoPG) scanFAQ(row pgx.Row) (*FAQ, error) {
	var f FAQ
	err := row.Scan(&f.ID, &f.Question, &f.Answer, &f.AskedBy, &f.AnsweredBy, &f.AnsweredAt, &f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &f, nil
}

func (r *faqRepoPG) Create(ctx context.Context, f *FAQ) error {
	f.ID = uuid.New()
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO faqs (id, question, asked_by)
		VALUES ($1, $2, $3)
		RETURNING created_at, updated_at`,
		f.ID, f.Question, f.AskedBy,
	).Scan(&f.CreatedAt, &f.UpdatedAt)
}

func (r *faqRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*FAQ, error) {
	return r.scanFAQ(r.conn(ctx).QueryRow(ctx, `SELECT `+faqCols+` FROM faqs WHERE id = $1`, id))
}

func (r *faqRepoPG) Update(ctx context.Context, f *FAQ) error {
	return r.conn(ctx).QueryRow(ctx, `
		UPDATE faqs SET question=$2, answer=$3, answered_by=$4, answered_at=$5, updated_at=NOW()
		WHERE id = $1
		RETURNING updated_at`,
		f.ID, f.Question, f.Answer, f.AnsweredBy, f.AnsweredAt,
	).Scan(&f.UpdatedAt)
}

func (r *faqRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM faqs WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *faqRepoPG) List(ctx context.Context, f Filter, limit, offset int) ([]*FAQ, int, error) {
	where := ` WHERE 1=1`
	if f.Answered != nil {
		if *f.Answered {
			where += ` AND answer IS NOT NULL AND answer <> ''`
		} else {
			where += ` AND (answer IS NULL OR answer = '')`
		}
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM faqs`+where).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + faqCols + ` FROM faqs` + where + ` ORDER BY created_at DESC LIMIT $1 OFFSET $2`
	rows, err := r.conn(ctx).Query(ctx, query, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	items := []*FAQ{}
	for rows.Next() {
		f, err := r.scanFAQ(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, f)
	}
	return items, total, rows.Err()
}
