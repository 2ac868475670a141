package cds

import (
	"fmt"
	"sort"
	"strings"
)

type termSet map[string]string

// newTermSet indexes terms case-insensitively, keeping the first spelling.
func newTermSet(terms []string) termSet {
	set := make(termSet, len(terms))
	for _, t := range terms {
		key := normalize(t)
		if key == "" {
			continue
		}
		if _, ok := set[key]; !ok {
			set[key] = strings.TrimSpace(t)
		}
	}
	return set
}

func (s termSet) has(term string) (string, bool) {
	v, ok := s[normalize(term)]
	return v, ok
}

func normalize(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

// Match screens req against rules. Warnings come back most severe first.
func Match(rules []*Rule, req CheckRequest) []Warning {
	meds := newTermSet(req.Medications)
	allergies := newTermSet(req.Allergies)
	diagnoses := newTermSet(req.Diagnoses)

	var out []Warning
	for _, r := range rules {
		if subjects, ok := matchRule(r, meds, allergies, diagnoses); ok {
			id := r.ID
			out = append(out, Warning{
				RuleID:   &id,
				Kind:     r.Kind,
				Severity: r.Severity,
				Message:  r.Message,
				Subjects: subjects,
			})
		}
	}
	out = append(out, repeatedDiagnoses(req.Diagnoses)...)

	sort.SliceStable(out, func(i, j int) bool {
		if severityRank[out[i].Severity] != severityRank[out[j].Severity] {
			return severityRank[out[i].Severity] > severityRank[out[j].Severity]
		}
		return out[i].Message < out[j].Message
	})
	return out
}

func matchRule(r *Rule, meds, allergies, diagnoses termSet) ([]string, bool) {
	switch r.Kind {
	case KindDrugInteraction:
		return both(meds, r.SubjectA, r.SubjectB)
	case KindDuplicateDiagnosis:
		return both(diagnoses, r.SubjectA, r.SubjectB)
	case KindAllergy:
		allergen, ok := allergies.has(r.SubjectA)
		if !ok {
			return nil, false
		}
		drug := r.SubjectB
		if drug == "" {
			drug = r.SubjectA
		}
		med, ok := meds.has(drug)
		if !ok {
			return nil, false
		}
		return []string{allergen, med}, true
	}
	return nil, false
}

func both(set termSet, a, b string) ([]string, bool) {
	x, ok := set.has(a)
	if !ok {
		return nil, false
	}
	y, ok := set.has(b)
	if !ok || normalize(a) == normalize(b) {
		return nil, false
	}
	return []string{x, y}, true
}

func repeatedDiagnoses(diagnoses []string) []Warning {
	seen := make(map[string]int)
	var order []string
	for _, d := range diagnoses {
		key := normalize(d)
		if key == "" {
			continue
		}
		if seen[key] == 0 {
			order = append(order, strings.TrimSpace(d))
		}
		seen[key]++
	}

	var out []Warning
	for _, d := range order {
		if n := seen[normalize(d)]; n > 1 {
			out = append(out, Warning{
				Kind:     KindDuplicateDiagnosis,
				Severity: SeverityLow,
				Message:  fmt.Sprintf("%s is recorded %d times", d, n),
				Subjects: []string{d},
			})
		}
	}
	return out
}
