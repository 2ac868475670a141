package identity

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	List(ctx context.Context, f ListFilter) ([]*User, int, error)
}

// ClinicChecker confirms a clinic exists before a doctor is attached to it.
type ClinicChecker interface {
	ClinicExists(ctx context.Context, id uuid.UUID) (bool, error)
}
