package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinic/clinic/internal/domain/cds"
	"github.com/clinic/clinic/internal/domain/clinic"
	"github.com/clinic/clinic/internal/domain/identity"
)

type clinicStore interface {
	Create(ctx context.Context, in clinic.Input) (*clinic.Clinic, error)
	ResolveDefault(ctx context.Context, id, name string) (*clinic.Clinic, error)
}

type userStore interface {
	Create(ctx context.Context, in identity.CreateInput) (*identity.User, error)
}

type ruleStore interface {
	CreateRule(ctx context.Context, in cds.RuleInput) (*cds.Rule, error)
	ListRules(ctx context.Context) ([]*cds.Rule, error)
}

type seedTarget struct {
	clinics clinicStore
	users   userStore
	rules   ruleStore
}

func newSeedTarget(pool *pgxpool.Pool) seedTarget {
	clinicSvc := clinic.NewService(clinic.NewRepoPG(pool))
	return seedTarget{
		clinics: clinicSvc,
		users:   identity.NewService(identity.NewRepoPG(pool), clinicSvc),
		rules:   cds.NewService(cds.NewRepoPG(pool)),
	}
}

type seedUser struct {
	Name   string
	Email  string
	Role   string
	Clinic string
}

var seedClinics = []clinic.Input{
	{Name: "OPD", Location: "Ground floor", DepartmentType: "Outpatient"},
	{Name: "Cardiology", Location: "Building B", DepartmentType: "Cardiology"},
	{Name: "Pediatrics", Location: "Building C", DepartmentType: "Pediatrics"},
}

var seedUsers = []seedUser{
	{Name: "Clinic Admin", Email: "admin@clinic.local", Role: "admin"},
	{Name: "Front Desk", Email: "reception@clinic.local", Role: "receptionist"},
	{Name: "Main Pharmacy", Email: "pharmacy@clinic.local", Role: "pharmacist"},
	{Name: "Jane Patient", Email: "patient@clinic.local", Role: "patient"},
	{Name: "Dr. Osei", Email: "osei@clinic.local", Role: "doctor", Clinic: "OPD"},
	{Name: "Dr. Alvarez", Email: "alvarez@clinic.local", Role: "doctor", Clinic: "Cardiology"},
	{Name: "Dr. Brandt", Email: "brandt@clinic.local", Role: "doctor", Clinic: "Cardiology"},
	{Name: "Dr. Chen", Email: "chen@clinic.local", Role: "doctor", Clinic: "Pediatrics"},
}

var seedRules = []cds.RuleInput{
	{Kind: "drug_interaction", SubjectA: "warfarin", SubjectB: "aspirin", Severity: "high", Message: "Warfarin with aspirin increases bleeding risk"},
	{Kind: "drug_interaction", SubjectA: "simvastatin", SubjectB: "clarithromycin", Severity: "high", Message: "Clarithromycin raises simvastatin levels; risk of myopathy"},
	{Kind: "drug_interaction", SubjectA: "lisinopril", SubjectB: "spironolactone", Severity: "moderate", Message: "Combined use may cause hyperkalemia"},
	{Kind: "allergy", SubjectA: "penicillin", SubjectB: "amoxicillin", Severity: "critical", Message: "Amoxicillin is a penicillin; patient is allergic"},
	{Kind: "allergy", SubjectA: "sulfa", SubjectB: "sulfamethoxazole", Severity: "high", Message: "Sulfonamide allergy recorded"},
	{Kind: "duplicate_diagnosis", SubjectA: "type 1 diabetes", SubjectB: "type 2 diabetes", Severity: "moderate", Message: "Both diabetes types are recorded; confirm the diagnosis"},
}

type seedReport struct {
	Clinics int
	Users   int
	Rules   int
}

// seed creates the demo data. Records that already exist are left alone so
// the command can be rerun.
func seed(ctx context.Context, t seedTarget, password string) (seedReport, error) {
	var report seedReport

	clinicIDs := make(map[string]uuid.UUID, len(seedClinics))
	for _, in := range seedClinics {
		c, err := t.clinics.Create(ctx, in)
		switch {
		case err == nil:
			report.Clinics++
		case errors.Is(err, clinic.ErrNameTaken):
			c, err = t.clinics.ResolveDefault(ctx, "", in.Name)
			if err != nil {
				return report, err
			}
			if c == nil {
				return report, fmt.Errorf("clinic %q exists but could not be loaded", in.Name)
			}
		default:
			return report, fmt.Errorf("create clinic %q: %w", in.Name, err)
		}
		clinicIDs[in.Name] = c.ID
	}

	for _, u := range seedUsers {
		in := identity.CreateInput{Name: u.Name, Email: u.Email, Password: password, Role: u.Role}
		if u.Clinic != "" {
			id, ok := clinicIDs[u.Clinic]
			if !ok {
				return report, fmt.Errorf("user %s: unknown clinic %q", u.Email, u.Clinic)
			}
			in.ClinicID = &id
		}
		_, err := t.users.Create(ctx, in)
		switch {
		case err == nil:
			report.Users++
		case errors.Is(err, identity.ErrEmailTaken):
		default:
			return report, fmt.Errorf("create user %s: %w", u.Email, err)
		}
	}

	existing, err := t.rules.ListRules(ctx)
	if err != nil {
		return report, err
	}
	have := make(map[string]bool, len(existing))
	for _, r := range existing {
		have[ruleKey(string(r.Kind), r.SubjectA, r.SubjectB)] = true
	}
	for _, in := range seedRules {
		if have[ruleKey(in.Kind, in.SubjectA, in.SubjectB)] {
			continue
		}
		if _, err := t.rules.CreateRule(ctx, in); err != nil {
			return report, fmt.Errorf("create rule %s/%s: %w", in.SubjectA, in.SubjectB, err)
		}
		report.Rules++
	}
	return report, nil
}

func ruleKey(kind, a, b string) string {
	return kind + "|" + strings.ToLower(strings.TrimSpace(a)) + "|" + strings.ToLower(strings.TrimSpace(b))
}
