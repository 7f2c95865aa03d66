package dashboard

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinic/clinic/internal/platform/db"
)

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

func (r *repoPG) conn(ctx context.Context) db.Querier { return db.Conn(ctx, r.pool) }

// where renders s as a SQL condition over appointments aliased a.
func (s Scope) where() (string, []interface{}) {
	clause := ` WHERE 1=1`
	var args []interface{}
	idx := 1
	if s.Date != nil {
		clause += fmt.Sprintf(` AND a.appointment_date = $%d`, idx)
		args = append(args, db.DateParam(*s.Date))
		idx++
	}
	if s.After != nil {
		clause += fmt.Sprintf(` AND a.appointment_date > $%d`, idx)
		args = append(args, db.DateParam(*s.After))
		idx++
	}
	if s.From != nil {
		clause += fmt.Sprintf(` AND a.appointment_date >= $%d`, idx)
		args = append(args, db.DateParam(*s.From))
		idx++
	}
	if s.PatientID != nil {
		clause += fmt.Sprintf(` AND a.patient_id = $%d`, idx)
		args = append(args, *s.PatientID)
		idx++
	}
	if s.DoctorID != nil {
		clause += fmt.Sprintf(` AND (a.doctor_id = $%d OR a.doctor_id IS NULL)`, idx)
		args = append(args, *s.DoctorID)
		idx++
	}
	if s.Status != "" {
		clause += fmt.Sprintf(` AND a.status = $%d`, idx)
		args = append(args, s.Status)
	}
	return clause, args
}

func (r *repoPG) CountPatients(ctx context.Context) (int, error) {
	var n int
	err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM patients`).Scan(&n)
	return n, err
}

func (r *repoPG) CountUsersByRole(ctx context.Context) (map[string]int, error) {
	return r.countBy(ctx, `SELECT role, COUNT(*) FROM users GROUP BY role`)
}

func (r *repoPG) CountAppointments(ctx context.Context, s Scope) (int, error) {
	where, args := s.where()
	var n int
	err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM appointments a`+where, args...).Scan(&n)
	return n, err
}

func (r *repoPG) CountAppointmentsByStatus(ctx context.Context, s Scope) (map[string]int, error) {
	where, args := s.where()
	return r.countBy(ctx, `SELECT a.status, COUNT(*) FROM appointments a`+where+` GROUP BY a.status`, args...)
}

func (r *repoPG) CountUnansweredFAQs(ctx context.Context) (int, error) {
	var n int
	err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM faqs WHERE answer IS NULL OR answer = ''`).Scan(&n)
	return n, err
}

func (r *repoPG) Upcoming(ctx context.Context, s Scope, limit int) ([]*Upcoming, error) {
	s.Status = "Scheduled"
	where, args := s.where()
	query := `SELECT a.id, a.patient_id, p.first_name || ' ' || p.last_name, a.doctor_id,
		a.appointment_date, a.appointment_time, a.duration_minutes, a.status
		FROM appointments a JOIN patients p ON p.id = a.patient_id` + where +
		fmt.Sprintf(` ORDER BY a.appointment_date, a.appointment_time LIMIT $%d`, len(args)+1)
	args = append(args, limit)

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []*Upcoming{}
	for rows.Next() {
		var (
			u     Upcoming
			date  pgtype.Date
			clock pgtype.Time
		)
		if err := rows.Scan(&u.ID, &u.PatientID, &u.PatientName, &u.DoctorID, &date, &clock, &u.DurationMinutes, &u.Status); err != nil {
			return nil, err
		}
		u.Date = db.DateValue(date)
		u.Time = db.ClockValue(clock)
		out = append(out, &u)
	}
	return out, rows.Err()
}

func (r *repoPG) countBy(ctx context.Context, query string, args ...interface{}) (map[string]int, error) {
	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[string]int)
	for rows.Next() {
		var (
			key string
			n   int
		)
		if err := rows.Scan(&key, &n); err != nil {
			return nil, err
		}
		out[key] = n
	}
	return out, rows.Err()
}
