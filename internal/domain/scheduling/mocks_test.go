package scheduling

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/clinic/clinic/internal/domain/identity"
	"github.com/clinic/clinic/internal/platform/auth"
	"github.com/clinic/clinic/internal/platform/outbox"
)

// -- Mock Repository --

type mockRepo struct {
	appts map[uuid.UUID]*Appointment
}

func newMockRepo() *mockRepo {
	return &mockRepo{appts: make(map[uuid.UUID]*Appointment)}
}

func (m *mockRepo) Create(_ context.Context, a *Appointment) error {
	if a.DoctorID != nil {
		for _, existing := range m.appts {
			if existing.DoctorID != nil && *existing.DoctorID == *a.DoctorID &&
				existing.Date == a.Date && existing.Time == a.Time && existing.Status == StatusScheduled {
				return ErrDoctorUnavailable
			}
		}
	}
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	a.CreatedAt = time.Now()
	a.UpdatedAt = a.CreatedAt
	cp := *a
	m.appts[a.ID] = &cp
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id uuid.UUID) (*Appointment, error) {
	a, ok := m.appts[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *mockRepo) UpdateStatus(_ context.Context, id uuid.UUID, status Status) error {
	a, ok := m.appts[id]
	if !ok {
		return ErrNotFound
	}
	a.Status = status
	return nil
}

func (m *mockRepo) ScheduledCounts(_ context.Context, clinicID uuid.UUID, date string) (map[string]int, error) {
	counts := make(map[string]int)
	for _, a := range m.appts {
		if a.ClinicID != nil && *a.ClinicID == clinicID && a.Date == date && a.Status == StatusScheduled {
			counts[a.Time]++
		}
	}
	return counts, nil
}

func (m *mockRepo) scheduledAt(clinicID uuid.UUID, date, hhmm string) int {
	counts, _ := m.ScheduledCounts(context.Background(), clinicID, date)
	return counts[hhmm]
}

func (m *mockRepo) DoctorBookedTimes(_ context.Context, doctorID uuid.UUID, date string) (map[string]bool, error) {
	booked := make(map[string]bool)
	for _, a := range m.appts {
		if a.DoctorID != nil && *a.DoctorID == doctorID && a.Date == date && a.Status == StatusScheduled {
			booked[a.Time] = true
		}
	}
	return booked, nil
}

func (m *mockRepo) ListByPatient(_ context.Context, patientID uuid.UUID, limit, offset int) ([]*Appointment, int, error) {
	var all []*Appointment
	for _, a := range m.appts {
		if a.PatientID == patientID {
			all = append(all, a)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Date+all[i].Time > all[j].Date+all[j].Time })
	total := len(all)
	if offset >= total {
		return nil, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return all[offset:end], total, nil
}

func (m *mockRepo) ListByDoctor(_ context.Context, doctorID uuid.UUID, date string) ([]*Appointment, error) {
	var out []*Appointment
	for _, a := range m.appts {
		if a.DoctorID != nil && *a.DoctorID == doctorID && (date == "" || a.Date == date) {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date+out[i].Time < out[j].Date+out[j].Time })
	return out, nil
}

// -- Mock directory --

type mockUsers struct {
	users map[uuid.UUID]*identity.User
}

func (m *mockUsers) Get(_ context.Context, id uuid.UUID) (*identity.User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, identity.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

type mockClinics struct {
	exists map[uuid.UUID]bool
	users  *mockUsers
}

func (m *mockClinics) ClinicExists(_ context.Context, id uuid.UUID) (bool, error) {
	return m.exists[id], nil
}

func (m *mockClinics) DoctorCount(_ context.Context, id uuid.UUID) (int, error) {
	n := 0
	for _, u := range m.users.users {
		if u.Role == auth.RoleDoctor && u.ClinicID != nil && *u.ClinicID == id {
			n++
		}
	}
	return n, nil
}

// -- Transactor and outbox --

type passTx struct{ calls int }

func (p *passTx) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	p.calls++
	return fn(ctx)
}

type mockRecorder struct {
	events []outbox.Event
}

func (m *mockRecorder) Record(_ context.Context, evt outbox.Event) error {
	m.events = append(m.events, evt)
	return nil
}

func (m *mockRecorder) types() []string {
	var out []string
	for _, e := range m.events {
		out = append(out, e.EventType)
	}
	return out
}

// -- Fixture --

// testNow is a few days before the dates the tests book.
var testNow = time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)

const testDate = "2026-01-15"

type fixture struct {
	repo    *mockRepo
	users   *mockUsers
	clinics *mockClinics
	events  *mockRecorder
	tx      *passTx
	calc    *Calculator
	svc     *Coordinator
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	users := &mockUsers{users: make(map[uuid.UUID]*identity.User)}
	f := &fixture{
		repo:    newMockRepo(),
		users:   users,
		clinics: &mockClinics{exists: make(map[uuid.UUID]bool), users: users},
		events:  &mockRecorder{},
		tx:      &passTx{},
	}
	f.calc = NewCalculator(f.repo, f.clinics, f.users, DefaultWindow())
	base := []Option{WithClock(func() time.Time { return testNow }), WithLocation(time.UTC), WithEvents(f.events)}
	f.svc = NewCoordinator(f.repo, f.clinics, f.users, f.calc, f.tx, append(base, opts...)...)
	return f
}

func (f *fixture) addClinic() uuid.UUID {
	id := uuid.New()
	f.clinics.exists[id] = true
	return id
}

func (f *fixture) addUser(role auth.Role, clinicID *uuid.UUID) uuid.UUID {
	id := uuid.New()
	f.users.users[id] = &identity.User{ID: id, Name: string(role), Role: role, ClinicID: clinicID}
	return id
}

func (f *fixture) addDoctor(clinicID uuid.UUID) uuid.UUID {
	return f.addUser(auth.RoleDoctor, &clinicID)
}

func (f *fixture) addPatient() uuid.UUID {
	return f.addUser(auth.RolePatient, nil)
}

func ptr(id uuid.UUID) *uuid.UUID { return &id }
