package clinic

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinic/clinic/internal/platform/db"
)

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

func (r *repoPG) conn(ctx context.Context) db.Querier {
	return db.Conn(ctx, r.pool)
}

const clinicCols = `id, name, location, department_type, created_at, updated_at`

func scanClinic(row pgx.Row) (*Clinic, error) {
	var c Clinic
	err := row.Scan(&c.ID, &c.Name, &c.Location, &c.DepartmentType, &c.CreatedAt, &c.UpdatedAt)
	if db.IsNotFound(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *repoPG) Create(ctx context.Context, c *Clinic) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO clinics (id, name, location, department_type)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at, updated_at`,
		c.ID, c.Name, c.Location, c.DepartmentType,
	).Scan(&c.CreatedAt, &c.UpdatedAt)
	if db.IsUniqueViolation(err, "clinics_name_key") {
		return ErrNameTaken
	}
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Clinic, error) {
	return scanClinic(r.conn(ctx).QueryRow(ctx, `SELECT `+clinicCols+` FROM clinics WHERE id = $1`, id))
}

func (r *repoPG) GetByName(ctx context.Context, name string) (*Clinic, error) {
	return scanClinic(r.conn(ctx).QueryRow(ctx, `SELECT `+clinicCols+` FROM clinics WHERE name = $1`, name))
}

func (r *repoPG) Update(ctx context.Context, c *Clinic) error {
	err := r.conn(ctx).QueryRow(ctx, `
		UPDATE clinics SET name = $2, location = $3, department_type = $4, updated_at = NOW()
		WHERE id = $1
		RETURNING created_at, updated_at`,
		c.ID, c.Name, c.Location, c.DepartmentType,
	).Scan(&c.CreatedAt, &c.UpdatedAt)
	switch {
	case db.IsNotFound(err):
		return ErrNotFound
	case db.IsUniqueViolation(err, "clinics_name_key"):
		return ErrNameTaken
	}
	return err
}

func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM clinics WHERE id = $1`, id)
	if db.IsForeignKeyViolation(err) {
		return ErrInUse
	}
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repoPG) List(ctx context.Context, limit, offset int) ([]*Clinic, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM clinics`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count clinics: %w", err)
	}
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+clinicCols+` FROM clinics ORDER BY name LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list clinics: %w", err)
	}
	defer rows.Close()

	var items []*Clinic
	for rows.Next() {
		c, err := scanClinic(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, c)
	}
	return items, total, rows.Err()
}

func (r *repoPG) ListDoctors(ctx context.Context, clinicID uuid.UUID) ([]*Doctor, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, name, email FROM users
		WHERE role = 'doctor' AND clinic_id = $1
		ORDER BY name`, clinicID)
	if err != nil {
		return nil, fmt.Errorf("list doctors: %w", err)
	}
	defer rows.Close()

	var items []*Doctor
	for rows.Next() {
		var d Doctor
		if err := rows.Scan(&d.ID, &d.Name, &d.Email); err != nil {
			return nil, err
		}
		items = append(items, &d)
	}
	return items, rows.Err()
}

func (r *repoPG) CountDoctors(ctx context.Context, clinicID uuid.UUID) (int, error) {
	var n int
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM users WHERE role = 'doctor' AND clinic_id = $1`, clinicID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count doctors: %w", err)
	}
	return n, nil
}
