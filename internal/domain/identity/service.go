package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/clinic/clinic/internal/platform/auth"
)

type Service struct {
	repo    Repository
	clinics ClinicChecker
	cost    int
}

func NewService(repo Repository, clinics ClinicChecker) *Service {
	return &Service{repo: repo, clinics: clinics, cost: bcrypt.DefaultCost}
}

// WithHashCost overrides the bcrypt cost. Tests use bcrypt.MinCost.
func (s *Service) WithHashCost(cost int) *Service {
	s.cost = cost
	return s
}

func (s *Service) Create(ctx context.Context, in CreateInput) (*User, error) {
	role := auth.Role(strings.ToLower(strings.TrimSpace(in.Role)))
	if !role.Valid() {
		return nil, ErrInvalidRole
	}
	if in.ClinicID != nil {
		if role != auth.RoleDoctor {
			return nil, ErrClinicNotDoctor
		}
		ok, err := s.clinics.ClinicExists(ctx, *in.ClinicID)
		if err != nil {
			return nil, fmt.Errorf("check clinic: %w", err)
		}
		if !ok {
			return nil, ErrUnknownClinic
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	u := &User{
		Name:         strings.TrimSpace(in.Name),
		Email:        strings.ToLower(strings.TrimSpace(in.Email)),
		Role:         role,
		ClinicID:     in.ClinicID,
		PasswordHash: string(hash),
	}
	if err := s.repo.Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*User, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) List(ctx context.Context, f ListFilter) ([]*User, int, error) {
	if f.Role != "" && !f.Role.Valid() {
		return nil, 0, ErrInvalidRole
	}
	return s.repo.List(ctx, f)
}

// CheckPassword reports whether password matches the stored hash for email.
// Unknown emails and wrong passwords are indistinguishable to the caller.
func (s *Service) CheckPassword(ctx context.Context, email, password string) (*User, bool, error) {
	u, err := s.repo.GetByEmail(ctx, strings.TrimSpace(email))
	if errors.Is(err, ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return nil, false, nil
	}
	return u, true, nil
}
