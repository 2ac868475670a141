package scheduling

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/clinic/clinic/internal/domain/identity"
)

// Calculator answers how many doctors at a clinic are free at each slot of
// a day.
type Calculator struct {
	repo    Repository
	clinics Clinics
	users   Users
	window  Window
}

func NewCalculator(repo Repository, clinics Clinics, users Users, window Window) *Calculator {
	return &Calculator{repo: repo, clinics: clinics, users: users, window: window}
}

func (c *Calculator) Window() Window { return c.window }

// Availability lists every slot of the operating window on date with the
// number of free doctors. With doctorID set the count is 1 when that doctor
// is free and the clinic still has room, else 0. Past dates are answered
// like any other.
func (c *Calculator) Availability(ctx context.Context, clinicID uuid.UUID, date string, doctorID *uuid.UUID) (*Availability, error) {
	if _, err := time.Parse(dateLayout, date); err != nil {
		return nil, ErrBadDate
	}
	ok, err := c.clinics.ClinicExists(ctx, clinicID)
	if err != nil {
		return nil, fmt.Errorf("look up clinic: %w", err)
	}
	if !ok {
		return nil, ErrClinicNotFound
	}

	var doctorBusy map[string]bool
	if doctorID != nil {
		if err := c.checkMember(ctx, *doctorID, clinicID); err != nil {
			return nil, err
		}
		doctorBusy, err = c.repo.DoctorBookedTimes(ctx, *doctorID, date)
		if err != nil {
			return nil, err
		}
	}
	return c.compute(ctx, clinicID, date, doctorID, doctorBusy)
}

// compute assumes the clinic exists.
func (c *Calculator) compute(ctx context.Context, clinicID uuid.UUID, date string, doctorID *uuid.UUID, doctorBusy map[string]bool) (*Availability, error) {
	doctors, err := c.clinics.DoctorCount(ctx, clinicID)
	if err != nil {
		return nil, fmt.Errorf("count doctors: %w", err)
	}
	booked, err := c.repo.ScheduledCounts(ctx, clinicID, date)
	if err != nil {
		return nil, err
	}

	out := &Availability{Date: date, ClinicID: clinicID, DoctorID: doctorID}
	for _, t := range c.window.Slots() {
		free := doctors - booked[t]
		if free < 0 {
			free = 0
		}
		if doctorID != nil {
			if free > 0 && !doctorBusy[t] {
				free = 1
			} else {
				free = 0
			}
		}
		out.Slots = append(out.Slots, Slot{Time: t, AvailableCount: free})
	}
	return out, nil
}

func (c *Calculator) checkMember(ctx context.Context, doctorID, clinicID uuid.UUID) error {
	u, err := c.users.Get(ctx, doctorID)
	if errors.Is(err, identity.ErrNotFound) {
		return ErrDoctorNotFound
	}
	if err != nil {
		return fmt.Errorf("look up doctor: %w", err)
	}
	if !u.IsDoctor() {
		return ErrDoctorNotFound
	}
	if u.ClinicID == nil || *u.ClinicID != clinicID {
		return ErrDoctorNotAtClinic
	}
	return nil
}
