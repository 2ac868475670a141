package clinic

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, c *Clinic) error
	GetByID(ctx context.Context, id uuid.UUID) (*Clinic, error)
	GetByName(ctx context.Context, name string) (*Clinic, error)
	Update(ctx context.Context, c *Clinic) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, limit, offset int) ([]*Clinic, int, error)
	ListDoctors(ctx context.Context, clinicID uuid.UUID) ([]*Doctor, error)
	// CountDoctors returns the number of doctors whose clinic is clinicID.
	CountDoctors(ctx context.Context, clinicID uuid.UUID) (int, error)
}
