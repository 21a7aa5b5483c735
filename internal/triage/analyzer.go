// Package triage turns a free-text symptom description into a specialty
// recommendation the chatbot can route bookings with.
package triage

import "context"

// Result is what an analysis produces: human-readable advice plus the
// specialty the advice points at.
type Result struct {
	Recommendation string `json:"recommendation"`
	Specialty      string `json:"specialty"`
}

// Analyzer maps a symptom description to a Result. Implementations may
// call out to a remote service or score keywords locally.
type Analyzer interface {
	Analyze(ctx context.Context, symptoms string) (*Result, error)
}
