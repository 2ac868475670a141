package scheduling

import (
	"time"

	"github.com/google/uuid"

	"github.com/clinic/clinic/internal/platform/apperr"
)

type Status string

const (
	StatusScheduled Status = "scheduled"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

func (s Status) Valid() bool {
	return s == StatusScheduled || s == StatusCompleted || s == StatusCancelled
}

// Terminal statuses accept no further transitions.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// CanTransition reports whether an appointment may move from one status to
// another. Only scheduled appointments move, and only to a terminal status.
func CanTransition(from, to Status) bool {
	return from == StatusScheduled && to.Terminal()
}

type Type string

const (
	TypeInPerson     Type = "in_person"
	TypeTelemedicine Type = "telemedicine"
)

func (t Type) Valid() bool {
	return t == TypeInPerson || t == TypeTelemedicine
}

// Appointment is one patient visit at a clinic slot, optionally with a named
// doctor. Date is YYYY-MM-DD and Time is HH:MM.
type Appointment struct {
	ID        uuid.UUID  `json:"id"`
	PatientID uuid.UUID  `json:"patient_id"`
	DoctorID  *uuid.UUID `json:"doctor_id"`
	ClinicID  *uuid.UUID `json:"clinic_id"`
	Date      string     `json:"appointment_date"`
	Time      string     `json:"appointment_time"`
	Type      Type       `json:"type"`
	Status    Status     `json:"status"`
	Reason    string     `json:"reason"`
	Notes     string     `json:"notes"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// Involves reports whether id is the patient or the doctor of a.
func (a *Appointment) Involves(id uuid.UUID) bool {
	return a.PatientID == id || (a.DoctorID != nil && *a.DoctorID == id)
}

// BookingRequest is what a patient or receptionist submits.
type BookingRequest struct {
	PatientID uuid.UUID  `json:"patient_id"`
	ClinicID  *uuid.UUID `json:"clinic_id"`
	DoctorID  *uuid.UUID `json:"doctor_id"`
	Date      string     `json:"appointment_date" validate:"required,datetime=2006-01-02"`
	Time      string     `json:"appointment_time" validate:"required,datetime=15:04"`
	Type      string     `json:"type" validate:"omitempty,oneof=in_person telemedicine"`
	Reason    string     `json:"reason" validate:"max=1000"`
	Notes     string     `json:"notes" validate:"max=2000"`
}

// Slot is one row of an availability answer.
type Slot struct {
	Time           string `json:"time"`
	AvailableCount int    `json:"available_count"`
}

// Availability is the calculator's answer for one clinic and date.
type Availability struct {
	Date     string     `json:"date"`
	ClinicID uuid.UUID  `json:"clinic_id"`
	DoctorID *uuid.UUID `json:"doctor_id,omitempty"`
	Slots    []Slot     `json:"slots"`
}

// At returns the available count for hhmm, or 0 when it is not a slot.
func (a *Availability) At(hhmm string) int {
	for _, s := range a.Slots {
		if s.Time == hhmm {
			return s.AvailableCount
		}
	}
	return 0
}

var (
	ErrNotFound           = apperr.NotFound("appointment not found")
	ErrClinicNotFound     = apperr.NotFound("clinic not found")
	ErrDoctorNotFound     = apperr.NotFound("doctor not found")
	ErrDoctorNotAtClinic  = apperr.NotFound("doctor does not work at this clinic")
	ErrUnknownPatient     = apperr.Validation("patient_id does not reference a patient")
	ErrPatientRequired    = apperr.Validation("patient_id is required")
	ErrBadDate            = apperr.Validation("appointment_date must be a date in YYYY-MM-DD format")
	ErrBadTime            = apperr.Validation("appointment_time must be a time in HH:MM format")
	ErrOffSlot            = apperr.Validation("appointment_time is not a slot in the clinic's operating hours")
	ErrInPast             = apperr.Validation("appointment must be in the future")
	ErrBadType            = apperr.Validation("type must be one of [in_person telemedicine]")
	ErrBadStatus          = apperr.Validation("status must be one of [completed cancelled]")
	ErrDoctorUnavailable  = apperr.Conflict("This doctor is not available at the chosen time")
	ErrNoDoctorsAvailable = apperr.Conflict("No doctors available in this clinic at the chosen time.")
	ErrNoDefaultClinic    = apperr.Configuration("no default clinic is configured")
	ErrNotParticipant     = apperr.Forbidden("you are not a participant of this appointment")
)
