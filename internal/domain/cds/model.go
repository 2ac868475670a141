package cds

import (
	"time"

	"github.com/google/uuid"

	"github.com/clinic/clinic/internal/platform/apperr"
)

type Kind string

const (
	KindDrugInteraction    Kind = "drug_interaction"
	KindAllergy            Kind = "allergy"
	KindDuplicateDiagnosis Kind = "duplicate_diagnosis"
)

func (k Kind) Valid() bool {
	return k == KindDrugInteraction || k == KindAllergy || k == KindDuplicateDiagnosis
}

type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityModerate Severity = "moderate"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

var severityRank = map[Severity]int{
	SeverityLow:      1,
	SeverityModerate: 2,
	SeverityHigh:     3,
	SeverityCritical: 4,
}

func (s Severity) Valid() bool { return severityRank[s] > 0 }

// Rule is one row of cds_rule.
//
//	drug_interaction:    SubjectA and SubjectB are two medications
//	allergy:             SubjectA is an allergen, SubjectB a medication
//	                     (empty means the allergen itself)
//	duplicate_diagnosis: SubjectA and SubjectB overlap as diagnoses
type Rule struct {
	ID        uuid.UUID `json:"id"`
	Kind      Kind      `json:"kind"`
	SubjectA  string    `json:"subject_a"`
	SubjectB  string    `json:"subject_b"`
	Severity  Severity  `json:"severity"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

type RuleInput struct {
	Kind     string `json:"kind" validate:"required,oneof=drug_interaction allergy duplicate_diagnosis"`
	SubjectA string `json:"subject_a" validate:"required,max=255"`
	SubjectB string `json:"subject_b" validate:"max=255"`
	Severity string `json:"severity" validate:"required,oneof=low moderate high critical"`
	Message  string `json:"message" validate:"required"`
}

// CheckRequest is the clinical picture to screen.
type CheckRequest struct {
	Medications []string `json:"medications"`
	Allergies   []string `json:"allergies"`
	Diagnoses   []string `json:"diagnoses"`
}

// Warning is a matched rule, or a repeated diagnosis when RuleID is nil.
type Warning struct {
	RuleID   *uuid.UUID `json:"rule_id,omitempty"`
	Kind     Kind       `json:"kind"`
	Severity Severity   `json:"severity"`
	Message  string     `json:"message"`
	Subjects []string   `json:"subjects"`
}

type CheckResult struct {
	Warnings []Warning `json:"warnings"`
}

var (
	ErrRuleNotFound   = apperr.NotFound("cds rule not found")
	ErrEmptyCheck     = apperr.Validation("at least one of medications, allergies or diagnoses is required")
	ErrSubjectBNeeded = apperr.Validation("subject_b is required for this kind of rule")
)
