// Package ledger is the durable store of committed appointment records.
// Records outlive chat sessions and are keyed by a short opaque id.
package ledger

import (
	"context"
	"errors"
	"math/rand/v2"
)

// StatusConfirmed is the only status ever persisted.
const StatusConfirmed = "Confirmed"

// ErrNotFound is returned when no appointment exists for an id.
var ErrNotFound = errors.New("ledger: appointment not found")

// Appointment is one committed booking.
type Appointment struct {
	ID     string `json:"id"`
	Doctor string `json:"doctor"`
	Day    string `json:"day"`  // capitalized weekday
	Time   string `json:"time"` // canonical slot, e.g. "9:00 AM"
	Email  string `json:"email"`
	Status string `json:"status"`
}

// Store persists appointment records.
type Store interface {
	Get(ctx context.Context, id string) (*Appointment, error)
	Create(ctx context.Context, appt *Appointment) error
	Update(ctx context.Context, appt *Appointment) error
	// Remove deletes the record and returns it, or ErrNotFound.
	Remove(ctx context.Context, id string) (*Appointment, error)
	List(ctx context.Context) ([]Appointment, error)
}

const base36 = "0123456789abcdefghijklmnopqrstuvwxyz"

// NewID generates a 9-character lower-case base-36 token. Collisions are
// statistically negligible and not checked.
func NewID() string {
	b := make([]byte, 9)
	for i := range b {
		b[i] = base36[rand.IntN(len(base36))]
	}
	return string(b)
}
