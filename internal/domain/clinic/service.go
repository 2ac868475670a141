package clinic

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func normalize(in Input) (Input, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Location = strings.TrimSpace(in.Location)
	in.DepartmentType = strings.TrimSpace(in.DepartmentType)
	if in.Name == "" {
		return in, ErrNameNeeded
	}
	return in, nil
}

func (s *Service) Create(ctx context.Context, in Input) (*Clinic, error) {
	in, err := normalize(in)
	if err != nil {
		return nil, err
	}
	c := &Clinic{Name: in.Name, Location: in.Location, DepartmentType: in.DepartmentType}
	if err := s.repo.Create(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Clinic, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) Update(ctx context.Context, id uuid.UUID, in Input) (*Clinic, error) {
	in, err := normalize(in)
	if err != nil {
		return nil, err
	}
	c := &Clinic{ID: id, Name: in.Name, Location: in.Location, DepartmentType: in.DepartmentType}
	if err := s.repo.Update(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.repo.Delete(ctx, id)
}

func (s *Service) List(ctx context.Context, limit, offset int) ([]*Clinic, int, error) {
	return s.repo.List(ctx, limit, offset)
}

// Doctors lists the doctors at a clinic. Unknown clinics are NotFound
// rather than an empty list.
func (s *Service) Doctors(ctx context.Context, clinicID uuid.UUID) ([]*Doctor, error) {
	if _, err := s.repo.GetByID(ctx, clinicID); err != nil {
		return nil, err
	}
	return s.repo.ListDoctors(ctx, clinicID)
}

// ResolveDefault finds the clinic used for bookings that name neither a
// doctor nor a clinic. An explicit id wins over the name lookup. A nil
// clinic with a nil error means nothing is configured.
func (s *Service) ResolveDefault(ctx context.Context, id, name string) (*Clinic, error) {
	if id != "" {
		cid, err := uuid.Parse(id)
		if err != nil {
			return nil, fmt.Errorf("default clinic id %q: %w", id, err)
		}
		c, err := s.repo.GetByID(ctx, cid)
		if err != nil {
			return nil, fmt.Errorf("default clinic %s: %w", id, err)
		}
		return c, nil
	}

	name = strings.TrimSpace(name)
	if name == "" {
		return nil, nil
	}
	c, err := s.repo.GetByName(ctx, name)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("default clinic %q: %w", name, err)
	}
	return c, nil
}

// ClinicExists reports whether id names a clinic.
func (s *Service) ClinicExists(ctx context.Context, id uuid.UUID) (bool, error) {
	_, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// DoctorCount returns how many doctors work at the clinic.
func (s *Service) DoctorCount(ctx context.Context, id uuid.UUID) (int, error) {
	return s.repo.CountDoctors(ctx, id)
}
