package triage

import (
	"context"
	"fmt"
	"strings"
)

// specialtyKeywords scores symptom text against each specialty. Order
// matters: on a tied score the earlier specialty wins.
var specialtyKeywords = []struct {
	specialty string
	keywords  []string
}{
	{"Cardiologist", []string{"heart", "chest pain", "palpitations", "blood pressure", "cardiovascular"}},
	{"Dermatologist", []string{"skin", "rash", "acne", "itching", "dermal"}},
	{"Neurologist", []string{"headache", "migraine", "seizure", "brain", "nervous system"}},
	{"Orthopedist", []string{"bone", "joint", "fracture", "spine", "muscle pain"}},
	{"Gastroenterologist", []string{"stomach", "digestive", "abdomen", "liver", "intestine"}},
	{"Psychiatrist", []string{"depression", "anxiety", "mental health", "mood", "psychological"}},
	{"ENT", []string{"ear", "nose", "throat", "hearing", "sinus"}},
	{"Ophthalmologist", []string{"eye", "vision", "sight", "blindness", "optical"}},
	{"General Physician", []string{"fever", "fatigue", "weakness", "general health", "unknown"}},
}

const (
	keywordHitScore = 2.0
	minScore        = 1.0
	fallback        = "General Physician"
)

// LocalAnalyzer scores symptom text against the keyword table, no external
// service involved.
type LocalAnalyzer struct{}

// NewLocalAnalyzer returns an analyzer backed by the built-in keyword table.
func NewLocalAnalyzer() *LocalAnalyzer {
	return &LocalAnalyzer{}
}

// Analyze picks the highest-scoring specialty, falling back to General
// Physician when no keyword matches.
func (a *LocalAnalyzer) Analyze(_ context.Context, symptoms string) (*Result, error) {
	text := strings.ToLower(symptoms)

	best := fallback
	bestScore := 0.0
	for _, entry := range specialtyKeywords {
		score := 0.0
		for _, kw := range entry.keywords {
			if strings.Contains(text, kw) {
				score += keywordHitScore
			}
		}
		if score > bestScore {
			best = entry.specialty
			bestScore = score
		}
	}
	if bestScore < minScore {
		best = fallback
	}

	return &Result{
		Recommendation: fmt.Sprintf("Based on your symptoms, I recommend consulting a %s.", best),
		Specialty:      best,
	}, nil
}

var _ Analyzer = (*LocalAnalyzer)(nil)
