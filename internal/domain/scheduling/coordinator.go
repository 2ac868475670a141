package scheduling

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/clinic/clinic/internal/domain/identity"
	"github.com/clinic/clinic/internal/platform/apperr"
	"github.com/clinic/clinic/internal/platform/auth"
	"github.com/clinic/clinic/internal/platform/db"
	"github.com/clinic/clinic/internal/platform/outbox"
	"github.com/clinic/clinic/internal/platform/telemetry"
)

const (
	aggregateType = "appointment"

	EventBooked    = "appointment.booked"
	EventCompleted = "appointment.completed"
	EventCancelled = "appointment.cancelled"
)

var tracer = telemetry.Tracer("github.com/clinic/clinic/internal/domain/scheduling")

// Coordinator books appointments and moves them through their lifecycle.
// Every capacity check runs in the same transaction as the write it guards.
type Coordinator struct {
	repo          Repository
	clinics       Clinics
	users         Users
	calc          *Calculator
	tx            db.Transactor
	events        outbox.Recorder
	defaultClinic *uuid.UUID
	now           func() time.Time
	loc           *time.Location
}

type Option func(*Coordinator)

// WithDefaultClinic sets the clinic used when a booking names neither a
// doctor nor a clinic.
func WithDefaultClinic(id uuid.UUID) Option {
	return func(c *Coordinator) { c.defaultClinic = &id }
}

func WithEvents(r outbox.Recorder) Option {
	return func(c *Coordinator) { c.events = r }
}

func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) { c.now = now }
}

// WithLocation sets the time zone appointment dates and times are read in.
func WithLocation(loc *time.Location) Option {
	return func(c *Coordinator) { c.loc = loc }
}

func NewCoordinator(repo Repository, clinics Clinics, users Users, calc *Calculator, tx db.Transactor, opts ...Option) *Coordinator {
	c := &Coordinator{
		repo:    repo,
		clinics: clinics,
		users:   users,
		calc:    calc,
		tx:      tx,
		events:  outbox.NopRecorder{},
		now:     time.Now,
		loc:     time.Local,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// DefaultClinic returns the configured default clinic, if any.
func (c *Coordinator) DefaultClinic() *uuid.UUID { return c.defaultClinic }

// Book validates req, resolves its clinic, checks capacity and stores a
// scheduled appointment.
func (c *Coordinator) Book(ctx context.Context, req BookingRequest) (*Appointment, error) {
	ctx, span := tracer.Start(ctx, "scheduling.Book")
	defer span.End()

	req, typ, err := c.validate(req)
	if err != nil {
		return nil, fail(span, err)
	}
	span.SetAttributes(
		attribute.String("appointment.date", req.Date),
		attribute.String("appointment.time", req.Time),
		attribute.Bool("appointment.doctor_assigned", req.DoctorID != nil),
	)

	var appt *Appointment
	err = c.tx.InTx(ctx, func(ctx context.Context) error {
		a, err := c.book(ctx, req, typ)
		if err != nil {
			return err
		}
		appt = a
		return nil
	})
	if err != nil {
		return nil, fail(span, err)
	}
	span.SetAttributes(attribute.String("appointment.id", appt.ID.String()))
	return appt, nil
}

func (c *Coordinator) validate(req BookingRequest) (BookingRequest, Type, error) {
	if req.PatientID == uuid.Nil {
		return req, "", ErrPatientRequired
	}
	if _, err := time.Parse(dateLayout, req.Date); err != nil {
		return req, "", ErrBadDate
	}
	clock, err := parseClock(req.Time)
	if err != nil {
		return req, "", ErrBadTime
	}
	req.Time = formatClock(clock)
	if !c.calc.Window().Aligned(req.Time) {
		return req, "", ErrOffSlot
	}

	at, err := time.ParseInLocation(dateLayout+" "+clockLayout, req.Date+" "+req.Time, c.loc)
	if err != nil {
		return req, "", ErrBadDate
	}
	if !at.After(c.now()) {
		return req, "", ErrInPast
	}

	typ := Type(req.Type)
	if typ == "" {
		typ = TypeInPerson
	}
	if !typ.Valid() {
		return req, "", ErrBadType
	}
	return req, typ, nil
}

func (c *Coordinator) book(ctx context.Context, req BookingRequest, typ Type) (*Appointment, error) {
	if err := c.checkPatient(ctx, req.PatientID); err != nil {
		return nil, err
	}

	clinicID := req.ClinicID
	var doctor *identity.User
	if req.DoctorID != nil {
		d, err := c.doctor(ctx, *req.DoctorID)
		if err != nil {
			return nil, err
		}
		doctor = d
		if doctor.ClinicID != nil {
			clinicID = doctor.ClinicID
		}
	}

	if doctor == nil && clinicID == nil {
		if c.defaultClinic == nil {
			return nil, ErrNoDefaultClinic
		}
		clinicID = c.defaultClinic
	}

	if clinicID != nil {
		ok, err := c.clinics.ClinicExists(ctx, *clinicID)
		if err != nil {
			return nil, fmt.Errorf("look up clinic: %w", err)
		}
		if !ok && c.isDefault(clinicID) {
			return nil, ErrNoDefaultClinic
		}
		if !ok {
			return nil, ErrClinicNotFound
		}
	}

	if doctor != nil {
		if err := c.checkDoctorFree(ctx, doctor, clinicID, req); err != nil {
			return nil, err
		}
	} else {
		avail, err := c.calc.compute(ctx, *clinicID, req.Date, nil, nil)
		if err != nil {
			return nil, err
		}
		if avail.At(req.Time) == 0 {
			return nil, ErrNoDoctorsAvailable
		}
	}

	appt := &Appointment{
		PatientID: req.PatientID,
		DoctorID:  req.DoctorID,
		ClinicID:  clinicID,
		Date:      req.Date,
		Time:      req.Time,
		Type:      typ,
		Status:    StatusScheduled,
		Reason:    req.Reason,
		Notes:     req.Notes,
	}
	if err := c.repo.Create(ctx, appt); err != nil {
		return nil, err
	}
	if err := c.record(ctx, EventBooked, appt); err != nil {
		return nil, err
	}
	return appt, nil
}

func (c *Coordinator) checkPatient(ctx context.Context, id uuid.UUID) error {
	u, err := c.users.Get(ctx, id)
	if errors.Is(err, identity.ErrNotFound) {
		return ErrUnknownPatient
	}
	if err != nil {
		return fmt.Errorf("look up patient: %w", err)
	}
	if !u.IsPatient() {
		return ErrUnknownPatient
	}
	return nil
}

func (c *Coordinator) doctor(ctx context.Context, id uuid.UUID) (*identity.User, error) {
	u, err := c.users.Get(ctx, id)
	if errors.Is(err, identity.ErrNotFound) {
		return nil, ErrDoctorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("look up doctor: %w", err)
	}
	if !u.IsDoctor() {
		return nil, ErrDoctorNotFound
	}
	return u, nil
}

// isDefault reports whether id is the startup default clinic.
func (c *Coordinator) isDefault(id *uuid.UUID) bool {
	return c.defaultClinic != nil && id != nil && *id == *c.defaultClinic
}

// checkDoctorFree rejects a slot the doctor already holds. When the booking
// lands in a clinic, that clinic also needs room at the slot.
func (c *Coordinator) checkDoctorFree(ctx context.Context, doctor *identity.User, clinicID *uuid.UUID, req BookingRequest) error {
	busy, err := c.repo.DoctorBookedTimes(ctx, doctor.ID, req.Date)
	if err != nil {
		return err
	}
	if busy[req.Time] {
		return ErrDoctorUnavailable
	}
	if clinicID == nil {
		return nil
	}
	avail, err := c.calc.compute(ctx, *clinicID, req.Date, &doctor.ID, busy)
	if err != nil {
		return err
	}
	if avail.At(req.Time) == 0 {
		return ErrDoctorUnavailable
	}
	return nil
}

// Transition moves an appointment to a terminal status.
func (c *Coordinator) Transition(ctx context.Context, id uuid.UUID, to Status) (*Appointment, error) {
	return c.transition(ctx, id, to, nil)
}

// UpdateStatus is Transition on behalf of p. Staff who may update any
// appointment can; doctors only for their own; patients may only cancel
// their own.
func (c *Coordinator) UpdateStatus(ctx context.Context, p auth.Principal, id uuid.UUID, to Status) (*Appointment, error) {
	return c.transition(ctx, id, to, func(a *Appointment) error {
		return authorizeStatusChange(p, a, to)
	})
}

func authorizeStatusChange(p auth.Principal, a *Appointment, to Status) error {
	if p.Can(auth.CapUpdateAppointment) && (p.Can(auth.CapViewAnyAppointment) || a.Involves(p.ID)) {
		return nil
	}
	if p.Can(auth.CapCancelOwn) && a.PatientID == p.ID {
		if to == StatusCancelled {
			return nil
		}
		return apperr.Forbidden("patients may only cancel their appointments")
	}
	return ErrNotParticipant
}

func (c *Coordinator) transition(ctx context.Context, id uuid.UUID, to Status, authorize func(*Appointment) error) (*Appointment, error) {
	ctx, span := tracer.Start(ctx, "scheduling.Transition",
		trace.WithAttributes(
			attribute.String("appointment.id", id.String()),
			attribute.String("appointment.status", string(to)),
		))
	defer span.End()

	if !to.Valid() {
		return nil, fail(span, ErrBadStatus)
	}

	var appt *Appointment
	err := c.tx.InTx(ctx, func(ctx context.Context) error {
		a, err := c.repo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if authorize != nil {
			if err := authorize(a); err != nil {
				return err
			}
		}
		if !CanTransition(a.Status, to) {
			return apperr.InvalidState("appointment is %s and cannot become %s", a.Status, to)
		}
		if err := c.repo.UpdateStatus(ctx, id, to); err != nil {
			return err
		}
		a.Status = to
		a.UpdatedAt = c.now()
		appt = a
		return c.record(ctx, "appointment."+string(to), a)
	})
	if err != nil {
		return nil, fail(span, err)
	}
	return appt, nil
}

// Get returns an appointment the principal may see.
func (c *Coordinator) Get(ctx context.Context, p auth.Principal, id uuid.UUID) (*Appointment, error) {
	a, err := c.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !p.Can(auth.CapViewAnyAppointment) && !a.Involves(p.ID) {
		return nil, ErrNotParticipant
	}
	return a, nil
}

func (c *Coordinator) ListForPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Appointment, int, error) {
	return c.repo.ListByPatient(ctx, patientID, limit, offset)
}

// DoctorSchedule lists the doctor's appointments, for one date when date is
// not empty.
func (c *Coordinator) DoctorSchedule(ctx context.Context, doctorID uuid.UUID, date string) ([]*Appointment, error) {
	if date != "" {
		if _, err := time.Parse(dateLayout, date); err != nil {
			return nil, ErrBadDate
		}
	}
	return c.repo.ListByDoctor(ctx, doctorID, date)
}

func (c *Coordinator) record(ctx context.Context, eventType string, a *Appointment) error {
	evt, err := outbox.NewEvent(aggregateType, a.ID.String(), eventType, a)
	if err != nil {
		return err
	}
	if err := c.events.Record(ctx, evt); err != nil {
		return fmt.Errorf("record %s: %w", eventType, err)
	}
	return nil
}

func fail(span trace.Span, err error) error {
	span.RecordError(err)
	if apperr.KindOf(err) == apperr.KindInternal {
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetAttributes(attribute.String("error.kind", apperr.KindOf(err).String()))
	}
	return err
}
