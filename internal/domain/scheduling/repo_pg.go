package scheduling

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinic/clinic/internal/platform/db"
)

// doctorSlotConstraint is the partial unique index that stops a doctor
// holding two scheduled appointments at one slot.
const doctorSlotConstraint = "appointments_doctor_slot_key"

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

func (r *repoPG) conn(ctx context.Context) db.Querier {
	return db.Conn(ctx, r.pool)
}

const apptCols = `id, patient_id, doctor_id, clinic_id,
	to_char(appointment_date, 'YYYY-MM-DD'), to_char(appointment_time, 'HH24:MI'),
	type, status, reason, notes, created_at, updated_at`

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	err := row.Scan(&a.ID, &a.PatientID, &a.DoctorID, &a.ClinicID, &a.Date, &a.Time,
		&a.Type, &a.Status, &a.Reason, &a.Notes, &a.CreatedAt, &a.UpdatedAt)
	if db.IsNotFound(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func dateArg(s string) (time.Time, error) {
	d, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, ErrBadDate
	}
	return d, nil
}

func clockArg(s string) (pgtype.Time, error) {
	d, err := parseClock(s)
	if err != nil {
		return pgtype.Time{}, ErrBadTime
	}
	return pgtype.Time{Microseconds: d.Microseconds(), Valid: true}, nil
}

func (r *repoPG) Create(ctx context.Context, a *Appointment) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	date, err := dateArg(a.Date)
	if err != nil {
		return err
	}
	clock, err := clockArg(a.Time)
	if err != nil {
		return err
	}
	err = r.conn(ctx).QueryRow(ctx, `
		INSERT INTO appointments (id, patient_id, doctor_id, clinic_id,
			appointment_date, appointment_time, type, status, reason, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at, updated_at`,
		a.ID, a.PatientID, a.DoctorID, a.ClinicID, date, clock,
		string(a.Type), string(a.Status), a.Reason, a.Notes,
	).Scan(&a.CreatedAt, &a.UpdatedAt)
	if db.IsUniqueViolation(err, doctorSlotConstraint) {
		return ErrDoctorUnavailable
	}
	if err != nil {
		return fmt.Errorf("insert appointment: %w", err)
	}
	return nil
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return scanAppointment(r.conn(ctx).QueryRow(ctx,
		`SELECT `+apptCols+` FROM appointments WHERE id = $1`, id))
}

func (r *repoPG) UpdateStatus(ctx context.Context, id uuid.UUID, status Status) error {
	tag, err := r.conn(ctx).Exec(ctx,
		`UPDATE appointments SET status = $2, updated_at = NOW() WHERE id = $1`, id, string(status))
	if err != nil {
		return fmt.Errorf("update appointment status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repoPG) ScheduledCounts(ctx context.Context, clinicID uuid.UUID, date string) (map[string]int, error) {
	d, err := dateArg(date)
	if err != nil {
		return nil, err
	}
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT to_char(appointment_time, 'HH24:MI'), COUNT(*)
		FROM appointments
		WHERE clinic_id = $1 AND appointment_date = $2 AND status = 'scheduled'
		GROUP BY appointment_time`, clinicID, d)
	if err != nil {
		return nil, fmt.Errorf("count scheduled appointments: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var slot string
		var n int
		if err := rows.Scan(&slot, &n); err != nil {
			return nil, err
		}
		counts[slot] = n
	}
	return counts, rows.Err()
}

func (r *repoPG) DoctorBookedTimes(ctx context.Context, doctorID uuid.UUID, date string) (map[string]bool, error) {
	d, err := dateArg(date)
	if err != nil {
		return nil, err
	}
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT to_char(appointment_time, 'HH24:MI')
		FROM appointments
		WHERE doctor_id = $1 AND appointment_date = $2 AND status = 'scheduled'`, doctorID, d)
	if err != nil {
		return nil, fmt.Errorf("doctor bookings: %w", err)
	}
	defer rows.Close()

	booked := make(map[string]bool)
	for rows.Next() {
		var slot string
		if err := rows.Scan(&slot); err != nil {
			return nil, err
		}
		booked[slot] = true
	}
	return booked, rows.Err()
}

func (r *repoPG) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Appointment, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM appointments WHERE patient_id = $1`, patientID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count patient appointments: %w", err)
	}
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+apptCols+` FROM appointments
		WHERE patient_id = $1
		ORDER BY appointment_date DESC, appointment_time DESC
		LIMIT $2 OFFSET $3`, patientID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list patient appointments: %w", err)
	}
	items, err := collect(rows)
	return items, total, err
}

func (r *repoPG) ListByDoctor(ctx context.Context, doctorID uuid.UUID, date string) ([]*Appointment, error) {
	query := `SELECT ` + apptCols + ` FROM appointments WHERE doctor_id = $1`
	args := []interface{}{doctorID}
	if date != "" {
		d, err := dateArg(date)
		if err != nil {
			return nil, err
		}
		query += ` AND appointment_date = $2`
		args = append(args, d)
	}
	query += ` ORDER BY appointment_date, appointment_time`

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list doctor appointments: %w", err)
	}
	return collect(rows)
}

func collect(rows pgx.Rows) ([]*Appointment, error) {
	defer rows.Close()
	var items []*Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, a)
	}
	return items, rows.Err()
}
