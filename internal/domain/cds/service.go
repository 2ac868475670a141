package cds

import (
	"context"
	"strings"

	"github.com/google/uuid"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) CreateRule(ctx context.Context, in RuleInput) (*Rule, error) {
	r := &Rule{
		Kind:     Kind(in.Kind),
		SubjectA: strings.TrimSpace(in.SubjectA),
		SubjectB: strings.TrimSpace(in.SubjectB),
		Severity: Severity(in.Severity),
		Message:  strings.TrimSpace(in.Message),
	}
	if r.SubjectB == "" && r.Kind != KindAllergy {
		return nil, ErrSubjectBNeeded
	}
	if err := s.repo.Create(ctx, r); err != nil {
		return nil, err
	}
	return r, nil
}

func (s *Service) DeleteRule(ctx context.Context, id uuid.UUID) error {
	return s.repo.Delete(ctx, id)
}

func (s *Service) ListRules(ctx context.Context) ([]*Rule, error) {
	return s.repo.List(ctx)
}

// Check loads the current rules and screens req against them.
func (s *Service) Check(ctx context.Context, req CheckRequest) (*CheckResult, error) {
	if len(req.Medications) == 0 && len(req.Allergies) == 0 && len(req.Diagnoses) == 0 {
		return nil, ErrEmptyCheck
	}
	rules, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	warnings := Match(rules, req)
	if warnings == nil {
		warnings = []Warning{}
	}
	return &CheckResult{Warnings: warnings}, nil
}
