package patient

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinic/clinic/internal/platform/db"
)

// =========== Patient Repository ===========

type patientRepoPG struct{ pool *pgxpool.Pool }

func NewPatientRepoPG(pool *pgxpool.Pool) Repository { return &patientRepoPG{pool: pool} }

func (r *patientRepoPG) conn(ctx context.Context) db.Querier { return db.Conn(ctx, r.pool) }

const patientCols = `id, first_name, last_name, email, phone, patient_type_id,
	preferred_language_id, contact_preference_id, medical_notes, created_at, updated_at`

func (r *patientRepoPG) scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	err := row.Scan(&p.ID, &p.FirstName, &p.LastName, &p.Email, &p.Phone, &p.PatientTypeID,
		&p.PreferredLanguageID, &p.ContactPreferenceID, &p.MedicalNotes, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *patientRepoPG) Create(ctx context.Context, p *Patient) error {
	p.ID = uuid.New()
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO patients (id, first_name, last_name, email, phone, patient_type_id,
			preferred_language_id, contact_preference_id, medical_notes)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		RETURNING created_at, updated_at`,
		p.ID, p.FirstName, p.LastName, p.Email, p.Phone, p.PatientTypeID,
		p.PreferredLanguageID, p.ContactPreferenceID, p.MedicalNotes,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
}

func (r *patientRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return r.scanPatient(r.conn(ctx).QueryRow(ctx, `SELECT `+patientCols+` FROM patients WHERE id = $1`, id))
}

func (r *patientRepoPG) Update(ctx context.Context, p *Patient) error {
	return r.conn(ctx).QueryRow(ctx, `
		UPDATE patients SET first_name=$2, last_name=$3, email=$4, phone=$5, patient_type_id=$6,
			preferred_language_id=$7, contact_preference_id=$8, medical_notes=$9, updated_at=NOW()
		WHERE id = $1
		RETURNING updated_at`,
		p.ID, p.FirstName, p.LastName, p.Email, p.Phone, p.PatientTypeID,
		p.PreferredLanguageID, p.ContactPreferenceID, p.MedicalNotes,
	).Scan(&p.UpdatedAt)
}

func (r *patientRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM patients WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *patientRepoPG) Search(ctx context.Context, q string, limit, offset int) ([]*Patient, int, error) {
	query := `SELECT ` + patientCols + ` FROM patients WHERE 1=1`
	countQuery := `SELECT COUNT(*) FROM patients WHERE 1=1`
	var args []interface{}
	idx := 1

	if q != "" {
		clause := fmt.Sprintf(` AND (first_name ILIKE $%d OR last_name ILIKE $%d OR email ILIKE $%d)`, idx, idx, idx)
		query += clause
		countQuery += clause
		args = append(args, "%"+q+"%")
		idx++
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query += fmt.Sprintf(` ORDER BY last_name, first_name LIMIT $%d OFFSET $%d`, idx, idx+1)
	args = append(args, limit, offset)

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Patient
	for rows.Next() {
		p, err := r.scanPatient(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, p)
	}
	return items, total, rows.Err()
}

// =========== Medical Note Repository ===========

type noteRepoPG struct{ pool *pgxpool.Pool }

func NewNoteRepoPG(pool *pgxpool.Pool) NoteRepository { return &noteRepoPG{pool: pool} }

func (r *noteRepoPG) conn(ctx context.Context) db.Querier { return db.Conn(ctx, r.pool) }

const noteCols = `id, appointment_id, doctor_id, patient_id, content, diagnosis, treatment,
	is_private, created_at, updated_at`

func (r *noteRepoPG) scanNote(row pgx.Row) (*MedicalNote, error) {
	var n MedicalNote
	err := row.Scan(&n.ID, &n.AppointmentID, &n.DoctorID, &n.PatientID, &n.Content, &n.Diagnosis,
		&n.Treatment, &n.IsPrivate, &n.CreatedAt, &n.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

func (r *noteRepoPG) Create(ctx context.Context, n *MedicalNote) error {
	n.ID = uuid.New()
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO medical_notes (id, appointment_id, doctor_id, patient_id, content, diagnosis,
			treatment, is_private)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		RETURNING created_at, updated_at`,
		n.ID, n.AppointmentID, n.DoctorID, n.PatientID, n.Content, n.Diagnosis, n.Treatment, n.IsPrivate,
	).Scan(&n.CreatedAt, &n.UpdatedAt)
}

func (r *noteRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*MedicalNote, error) {
	return r.scanNote(r.conn(ctx).QueryRow(ctx, `SELECT `+noteCols+` FROM medical_notes WHERE id = $1`, id))
}

func (r *noteRepoPG) Update(ctx context.Context, n *MedicalNote) error {
	return r.conn(ctx).QueryRow(ctx, `
		UPDATE medical_notes SET content=$2, diagnosis=$3, treatment=$4, is_private=$5, updated_at=NOW()
		WHERE id = $1
		RETURNING updated_at`,
		n.ID, n.Content, n.Diagnosis, n.Treatment, n.IsPrivate,
	).Scan(&n.UpdatedAt)
}

func (r *noteRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM medical_notes WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *noteRepoPG) ListByPatient(ctx context.Context, patientID uuid.UUID, doctorID *uuid.UUID, includePrivate bool) ([]*MedicalNote, error) {
	query := `SELECT ` + noteCols + ` FROM medical_notes WHERE patient_id = $1`
	args := []interface{}{patientID}
	if doctorID != nil {
		args = append(args, *doctorID)
		query += fmt.Sprintf(` AND doctor_id = $%d`, len(args))
	}
	if !includePrivate {
		query += ` AND is_private = FALSE`
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []*MedicalNote{}
	for rows.Next() {
		n, err := r.scanNote(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, n)
	}
	return items, rows.Err()
}
