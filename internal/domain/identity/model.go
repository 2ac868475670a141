package identity

import (
	"time"

	"github.com/google/uuid"

	"github.com/clinic/clinic/internal/platform/apperr"
	"github.com/clinic/clinic/internal/platform/auth"
)

// User is anyone who signs in to one of the portals. Only doctors carry a
// clinic.
type User struct {
	ID           uuid.UUID  `json:"id"`
	Name         string     `json:"name"`
	Email        string     `json:"email"`
	Role         auth.Role  `json:"role"`
	ClinicID     *uuid.UUID `json:"clinic_id,omitempty"`
	PasswordHash string     `json:"-"`
	CreatedAt    time.Time  `json:"created_at"`
}

func (u *User) IsDoctor() bool  { return u.Role == auth.RoleDoctor }
func (u *User) IsPatient() bool { return u.Role == auth.RolePatient }

// CreateInput is the admin request to add a user.
type CreateInput struct {
	Name     string     `json:"name" validate:"required,max=255"`
	Email    string     `json:"email" validate:"required,email,max=255"`
	Password string     `json:"password" validate:"required,min=8,max=72"`
	Role     string     `json:"role" validate:"required,oneof=admin doctor patient pharmacist receptionist"`
	ClinicID *uuid.UUID `json:"clinic_id"`
}

// ListFilter narrows List. A zero Role lists everyone.
type ListFilter struct {
	Role   auth.Role
	Limit  int
	Offset int
}

var (
	ErrNotFound        = apperr.NotFound("user not found")
	ErrEmailTaken      = apperr.Conflict("a user with this email already exists")
	ErrInvalidRole     = apperr.Validation("role is invalid")
	ErrClinicNotDoctor = apperr.Validation("only doctors can be assigned to a clinic")
	ErrUnknownClinic   = apperr.NotFound("clinic not found")
)
