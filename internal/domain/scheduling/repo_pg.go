package scheduling

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinic/clinic/internal/platform/db"
	"github.com/clinic/clinic/pkg/civil"
)

// =========== Appointment Repository ===========

type appointmentRepoPG struct{ pool *pgxpool.Pool }

func NewAppointmentRepoPG(pool *pgxpool.Pool) AppointmentRepository {
	return &appointmentRepoPG{pool: pool}
}

func (r *appointmentRepoPG) conn(ctx context.Context) db.Querier { return db.Conn(ctx, r.pool) }

const apptSelect = `SELECT a.id, a.patient_id, a.doctor_id, a.appointment_date, a.appointment_time,
	a.duration_minutes, a.notification_type, a.status, a.notes, a.created_by, a.created_at, a.updated_at,
	p.first_name, p.last_name, u.username
	FROM appointments a
	JOIN patients p ON p.id = a.patient_id
	LEFT JOIN users u ON u.id = a.created_by`

func (r *appointmentRepoPG) scanAppointment(row pgx.Row) (*Appointment, error) {
	var (
		a            Appointment
		date         pgtype.Date
		clock        pgtype.Time
		notify, stat string
		ref          PatientRef
	)
	err := row.Scan(&a.ID, &a.PatientID, &a.DoctorID, &date, &clock,
		&a.DurationMinutes, &notify, &stat, &a.Notes, &a.CreatedBy, &a.CreatedAt, &a.UpdatedAt,
		&ref.FirstName, &ref.LastName, &a.CreatedByUsername)
	if err != nil {
		return nil, err
	}
	a.Date = db.DateValue(date)
	a.Time = db.ClockValue(clock)
	a.NotificationType = NotificationType(notify)
	a.Status = Status(stat)
	ref.ID = a.PatientID
	a.Patient = &ref
	return &a, nil
}

func (r *appointmentRepoPG) Create(ctx context.Context, a *Appointment) error {
	a.ID = uuid.New()
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO appointments (id, patient_id, doctor_id, appointment_date, appointment_time,
			duration_minutes, notification_type, status, notes, created_by)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		RETURNING created_at, updated_at`,
		a.ID, a.PatientID, a.DoctorID, db.DateParam(a.Date), db.ClockParam(a.Time),
		a.DurationMinutes, string(a.NotificationType), string(a.Status), a.Notes, a.CreatedBy,
	).Scan(&a.CreatedAt, &a.UpdatedAt)
}

func (r *appointmentRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return r.scanAppointment(r.conn(ctx).QueryRow(ctx, apptSelect+` WHERE a.id = $1`, id))
}

func (r *appointmentRepoPG) Update(ctx context.Context, a *Appointment) error {
	return r.conn(ctx).QueryRow(ctx, `
		UPDATE appointments SET patient_id=$2, doctor_id=$3, appointment_date=$4, appointment_time=$5,
			duration_minutes=$6, notification_type=$7, status=$8, notes=$9, updated_at=NOW()
		WHERE id = $1
		RETURNING updated_at`,
		a.ID, a.PatientID, a.DoctorID, db.DateParam(a.Date), db.ClockParam(a.Time),
		a.DurationMinutes, string(a.NotificationType), string(a.Status), a.Notes,
	).Scan(&a.UpdatedAt)
}

func (r *appointmentRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM appointments WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *appointmentRepoPG) List(ctx context.Context, f ListFilter, limit, offset int) ([]*Appointment, int, error) {
	where := ` WHERE 1=1`
	var args []interface{}
	idx := 1

	if f.Date != nil {
		where += fmt.Sprintf(` AND a.appointment_date = $%d`, idx)
		args = append(args, db.DateParam(*f.Date))
		idx++
	}
	if f.PatientID != nil {
		where += fmt.Sprintf(` AND a.patient_id = $%d`, idx)
		args = append(args, *f.PatientID)
		idx++
	}
	if f.DoctorID != nil {
		if f.IncludeUnassigned {
			where += fmt.Sprintf(` AND (a.doctor_id = $%d OR a.doctor_id IS NULL)`, idx)
		} else {
			where += fmt.Sprintf(` AND a.doctor_id = $%d`, idx)
		}
		args = append(args, *f.DoctorID)
		idx++
	}
	if f.Status != nil {
		where += fmt.Sprintf(` AND a.status = $%d`, idx)
		args = append(args, string(*f.Status))
		idx++
	}
	if f.StartPeriod != nil {
		where += fmt.Sprintf(` AND a.appointment_date >= $%d`, idx)
		args = append(args, db.DateParam(*f.StartPeriod))
		idx++
	}
	if f.EndPeriod != nil {
		where += fmt.Sprintf(` AND a.appointment_date <= $%d`, idx)
		args = append(args, db.DateParam(*f.EndPeriod))
		idx++
	}

	var total int
	countQuery := `SELECT COUNT(*) FROM appointments a` + where
	if err := r.conn(ctx).QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := apptSelect + where + fmt.Sprintf(` ORDER BY a.appointment_date, a.appointment_time LIMIT $%d OFFSET $%d`, idx, idx+1)
	args = append(args, limit, offset)

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	items := []*Appointment{}
	for rows.Next() {
		a, err := r.scanAppointment(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, a)
	}
	return items, total, rows.Err()
}

func (r *appointmentRepoPG) BookedTimes(ctx context.Context, date civil.Date) ([]civil.Clock, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT appointment_time FROM appointments
		WHERE appointment_date = $1 AND status <> 'Cancelled'
		ORDER BY appointment_time`, db.DateParam(date))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []civil.Clock
	for rows.Next() {
		var t pgtype.Time
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		out = append(out, db.ClockValue(t))
	}
	return out, rows.Err()
}

func (r *appointmentRepoPG) ActiveAt(ctx context.Context, date civil.Date, t civil.Clock, exclude *uuid.UUID) (bool, error) {
	var exists bool
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM appointments
			WHERE appointment_date = $1 AND appointment_time = $2 AND status <> 'Cancelled'
				AND ($3::uuid IS NULL OR id <> $3)
		)`, db.DateParam(date), db.ClockParam(t), exclude).Scan(&exists)
	return exists, err
}

// =========== Availability Repository ===========

type availabilityRepoPG struct{ pool *pgxpool.Pool }

func NewAvailabilityRepoPG(pool *pgxpool.Pool) AvailabilityRepository {
	return &availabilityRepoPG{pool: pool}
}

func (r *availabilityRepoPG) conn(ctx context.Context) db.Querier { return db.Conn(ctx, r.pool) }

const availCols = `id, doctor_id, date, start_time, end_time, recurrence, created_at, updated_at`

func (r *availabilityRepoPG) scanAvailability(row pgx.Row) (*Availability, error) {
	var (
		av         Availability
		date       pgtype.Date
		start, end pgtype.Time
		recurrence string
	)
	if err := row.Scan(&av.ID, &av.DoctorID, &date, &start, &end, &recurrence, &av.CreatedAt, &av.UpdatedAt); err != nil {
		return nil, err
	}
	av.Date = db.DateValue(date)
	av.StartTime = db.ClockValue(start)
	av.EndTime = db.ClockValue(end)
	av.Recurrence = Recurrence(recurrence)
	return &av, nil
}

func (r *availabilityRepoPG) Create(ctx context.Context, av *Availability) error {
	av.ID = uuid.New()
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO availabilities (id, doctor_id, date, start_time, end_time, recurrence)
		VALUES ($1,$2,$3,$4,$5,$6)
		RETURNING created_at, updated_at`,
		av.ID, av.DoctorID, db.DateParam(av.Date), db.ClockParam(av.StartTime), db.ClockParam(av.EndTime),
		string(av.Recurrence),
	).Scan(&av.CreatedAt, &av.UpdatedAt)
}

func (r *availabilityRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Availability, error) {
	return r.scanAvailability(r.conn(ctx).QueryRow(ctx, `SELECT `+availCols+` FROM availabilities WHERE id = $1`, id))
}

func (r *availabilityRepoPG) Update(ctx context.Context, av *Availability) error {
	return r.conn(ctx).QueryRow(ctx, `
		UPDATE availabilities SET date=$2, start_time=$3, end_time=$4, recurrence=$5, updated_at=NOW()
		WHERE id = $1
		RETURNING updated_at`,
		av.ID, db.DateParam(av.Date), db.ClockParam(av.StartTime), db.ClockParam(av.EndTime), string(av.Recurrence),
	).Scan(&av.UpdatedAt)
}

func (r *availabilityRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM availabilities WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *availabilityRepoPG) List(ctx context.Context, f AvailabilityFilter) ([]*Availability, error) {
	query := `SELECT ` + availCols + ` FROM availabilities WHERE 1=1`
	var args []interface{}
	idx := 1

	if f.DoctorID != nil {
		query += fmt.Sprintf(` AND doctor_id = $%d`, idx)
		args = append(args, *f.DoctorID)
		idx++
	}
	if f.Date != nil {
		query += fmt.Sprintf(` AND date = $%d`, idx)
		args = append(args, db.DateParam(*f.Date))
		idx++
	}
	if f.StartPeriod != nil {
		query += fmt.Sprintf(` AND date >= $%d`, idx)
		args = append(args, db.DateParam(*f.StartPeriod))
		idx++
	}
	if f.EndPeriod != nil {
		query += fmt.Sprintf(` AND date <= $%d`, idx)
		args = append(args, db.DateParam(*f.EndPeriod))
	}
	query += ` ORDER BY date, start_time`

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []*Availability{}
	for rows.Next() {
		av, err := r.scanAvailability(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, av)
	}
	return items, rows.Err()
}
