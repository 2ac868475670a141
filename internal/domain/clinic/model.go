package clinic

import (
	"time"

	"github.com/google/uuid"

	"github.com/clinic/clinic/internal/platform/apperr"
)

// Clinic is a department or site where doctors see patients.
type Clinic struct {
	ID             uuid.UUID `json:"id"`
	Name           string    `json:"name"`
	Location       string    `json:"location"`
	DepartmentType string    `json:"department_type"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Doctor is the directory view of a doctor working at a clinic.
type Doctor struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Email string    `json:"email"`
}

// Input is the writable part of a clinic.
type Input struct {
	Name           string `json:"name" validate:"required,max=255"`
	Location       string `json:"location" validate:"max=255"`
	DepartmentType string `json:"department_type" validate:"max=100"`
}

var (
	ErrNotFound   = apperr.NotFound("clinic not found")
	ErrNameTaken  = apperr.Conflict("a clinic with this name already exists")
	ErrInUse      = apperr.Conflict("clinic still has appointments")
	ErrNameNeeded = apperr.Validation("name is required")
)
