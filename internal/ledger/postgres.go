package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// querier is the subset of pgxpool.Pool the store needs; pgxmock satisfies
// it in tests.
type querier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore persists appointments to PostgreSQL.
type PostgresStore struct {
	db querier
}

// NewPostgresStore creates a store backed by a pgx pool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	if pool == nil {
		panic("ledger: pgx pool required")
	}
	return &PostgresStore{db: pool}
}

// NewPostgresStoreWithQuerier allows injecting mocks for tests.
func NewPostgresStoreWithQuerier(q querier) *PostgresStore {
	return &PostgresStore{db: q}
}

// Get loads one appointment by id.
func (s *PostgresStore) Get(ctx context.Context, id string) (*Appointment, error) {
	var appt Appointment
	err := s.db.QueryRow(ctx, `
		SELECT id, doctor_name, day, slot, email, status
		FROM appointments
		WHERE id = $1
	`, id).Scan(&appt.ID, &appt.Doctor, &appt.Day, &appt.Time, &appt.Email, &appt.Status)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("ledger: failed to load appointment: %w", err)
	}
	return &appt, nil
}

// Create inserts a new appointment row.
func (s *PostgresStore) Create(ctx context.Context, appt *Appointment) error {
	now := time.Now().UTC()
	_, err := s.db.Exec(ctx, `
		INSERT INTO appointments (id, doctor_name, day, slot, email, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
	`, appt.ID, appt.Doctor, appt.Day, appt.Time, appt.Email, appt.Status, now)
	if err != nil {
		return fmt.Errorf("ledger: failed to insert appointment: %w", err)
	}
	return nil
}

// Update rewrites the mutable fields of an existing row.
func (s *PostgresStore) Update(ctx context.Context, appt *Appointment) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE appointments
		SET day = $2, slot = $3, updated_at = $4
		WHERE id = $1
	`, appt.ID, appt.Day, appt.Time, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("ledger: failed to update appointment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Remove deletes the row and returns the removed record.
func (s *PostgresStore) Remove(ctx context.Context, id string) (*Appointment, error) {
	var appt Appointment
	err := s.db.QueryRow(ctx, `
		DELETE FROM appointments
		WHERE id = $1
		RETURNING id, doctor_name, day, slot, email, status
	`, id).Scan(&appt.ID, &appt.Doctor, &appt.Day, &appt.Time, &appt.Email, &appt.Status)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("ledger: failed to remove appointment: %w", err)
	}
	return &appt, nil
}

// List returns all appointments ordered by creation time.
func (s *PostgresStore) List(ctx context.Context) ([]Appointment, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, doctor_name, day, slot, email, status
		FROM appointments
		ORDER BY created_at ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("ledger: failed to list appointments: %w", err)
	}
	defer rows.Close()

	var out []Appointment
	for rows.Next() {
		var appt Appointment
		if err := rows.Scan(&appt.ID, &appt.Doctor, &appt.Day, &appt.Time, &appt.Email, &appt.Status); err != nil {
			return nil, fmt.Errorf("ledger: failed to scan appointment: %w", err)
		}
		out = append(out, appt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ledger: failed to read appointments: %w", err)
	}
	return out, nil
}

var _ Store = (*PostgresStore)(nil)
