package scheduling

import (
	"context"

	"github.com/google/uuid"

	"github.com/clinic/clinic/internal/domain/identity"
)

type Repository interface {
	Create(ctx context.Context, a *Appointment) error
	GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status Status) error
	// ScheduledCounts maps slot time to the number of scheduled
	// appointments at the clinic on date.
	ScheduledCounts(ctx context.Context, clinicID uuid.UUID, date string) (map[string]int, error)
	// DoctorBookedTimes is the set of slot times the doctor holds a
	// scheduled appointment for on date.
	DoctorBookedTimes(ctx context.Context, doctorID uuid.UUID, date string) (map[string]bool, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Appointment, int, error)
	// ListByDoctor returns the doctor's appointments, limited to date when
	// it is not empty.
	ListByDoctor(ctx context.Context, doctorID uuid.UUID, date string) ([]*Appointment, error)
}

// Clinics is the clinic directory as booking sees it.
type Clinics interface {
	ClinicExists(ctx context.Context, id uuid.UUID) (bool, error)
	DoctorCount(ctx context.Context, id uuid.UUID) (int, error)
}

// Users resolves patients and doctors.
type Users interface {
	Get(ctx context.Context, id uuid.UUID) (*identity.User, error)
}
