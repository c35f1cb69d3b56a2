package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/andresmejia3/livecheck/internal/matcher"
	"github.com/jackc/pgx/v5"
	"github.com/pgvector/pgvector-go"
	pgxvec "github.com/pgvector/pgvector-go/pgx"
)

// EmbeddingDim is the length of the face encodings produced by the model worker.
const EmbeddingDim = 128

// ErrNotFound is returned when a named identity does not exist.
var ErrNotFound = errors.New("identity not found")

// Store manages the PostgreSQL connection and pgvector operations.
type Store struct {
	conn *pgx.Conn
}

// IdentityInfo is a listing row for an enrolled identity.
type IdentityInfo struct {
	ID         int
	Name       string
	EnrolledAt time.Time
}

// AttendanceRecord is one row of the attendance table.
type AttendanceRecord struct {
	Name     string
	Date     time.Time
	MarkedAt time.Time
	RunID    string
}

// New establishes a connection to the database and ensures the schema is initialized.
func New(ctx context.Context, connString string) (*Store, error) {
	conn, err := pgx.Connect(ctx, connString)
	if err != nil {
		return nil, err
	}

	// Initialize schema (Auto-Migration)
	if err := initSchema(ctx, conn); err != nil {
		conn.Close(ctx)
		return nil, fmt.Errorf("failed to initialize database schema: %w", err)
	}

	// The vector type only exists once the extension is created.
	if err := pgxvec.RegisterTypes(ctx, conn); err != nil {
		conn.Close(ctx)
		return nil, fmt.Errorf("failed to register vector types: %w", err)
	}

	return &Store{conn: conn}, nil
}

// initSchema creates the necessary tables and vector extension if they don't exist (Auto-Migration).
func initSchema(ctx context.Context, conn *pgx.Conn) error {
	query := fmt.Sprintf(`
		CREATE EXTENSION IF NOT EXISTS vector;
		CREATE TABLE IF NOT EXISTS known_identities (
			id SERIAL PRIMARY KEY,
			name TEXT NOT NULL UNIQUE,
			embedding VECTOR(%d) NOT NULL,
			created_at TIMESTAMPTZ DEFAULT NOW()
		);
		CREATE TABLE IF NOT EXISTS attendance (
			id BIGSERIAL PRIMARY KEY,
			name TEXT NOT NULL,
			marked_date DATE NOT NULL,
			marked_at TIMESTAMPTZ NOT NULL,
			run_id UUID NOT NULL,
			UNIQUE (name, marked_date)
		);
		CREATE INDEX IF NOT EXISTS attendance_marked_date_idx ON attendance (marked_date);
	`, EmbeddingDim)
	_, err := conn.Exec(ctx, query)
	return err
}

// Close terminates the database connection.
func (s *Store) Close(ctx context.Context) {
	s.conn.Close(ctx)
}

func toVector(vec []float64) pgvector.Vector {
	f := make([]float32, len(vec))
	for i, v := range vec {
		f[i] = float32(v)
	}
	return pgvector.NewVector(f)
}

func fromVector(v pgvector.Vector) []float64 {
	s := v.Slice()
	out := make([]float64, len(s))
	for i, f := range s {
		out[i] = float64(f)
	}
	return out
}

// UpsertIdentity enrolls name with vec, replacing the encoding if the name already exists.
func (s *Store) UpsertIdentity(ctx context.Context, name string, vec []float64) (int, error) {
	if len(vec) != EmbeddingDim {
		return 0, fmt.Errorf("embedding has %d dimensions, want %d", len(vec), EmbeddingDim)
	}
	var id int
	err := s.conn.QueryRow(ctx, `
		INSERT INTO known_identities (name, embedding)
		VALUES ($1, $2)
		ON CONFLICT (name) DO UPDATE SET embedding = EXCLUDED.embedding, created_at = NOW()
		RETURNING id
	`, name, toVector(vec)).Scan(&id)
	return id, err
}

// ListIdentities returns every enrolled identity ordered by name.
func (s *Store) ListIdentities(ctx context.Context) ([]IdentityInfo, error) {
	rows, err := s.conn.Query(ctx, "SELECT id, name, created_at FROM known_identities ORDER BY name")
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (IdentityInfo, error) {
		var i IdentityInfo
		err := row.Scan(&i.ID, &i.Name, &i.EnrolledAt)
		return i, err
	})
}

// LoadIdentities returns the enrolled set in the form the in-memory matcher consumes.
func (s *Store) LoadIdentities(ctx context.Context) ([]matcher.Identity, error) {
	rows, err := s.conn.Query(ctx, "SELECT name, embedding FROM known_identities ORDER BY id")
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (matcher.Identity, error) {
		var name string
		var vec pgvector.Vector
		if err := row.Scan(&name, &vec); err != nil {
			return matcher.Identity{}, err
		}
		return matcher.Identity{Name: name, Vec: fromVector(vec)}, nil
	})
}

// FindClosestIdentity searches for the nearest neighbor by Euclidean distance.
// Returns an empty name if no identity lies strictly within the threshold.
func (s *Store) FindClosestIdentity(ctx context.Context, vec []float64, threshold float64) (string, float64, error) {
	// <-> is the L2 distance operator in pgvector
	query := `SELECT name, embedding <-> $1 AS dist FROM known_identities ORDER BY dist ASC LIMIT 1`

	var name string
	var dist float64
	err := s.conn.QueryRow(ctx, query, toVector(vec)).Scan(&name, &dist)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", 0, nil
	}
	if err != nil {
		return "", 0, err
	}
	if dist >= threshold {
		return "", dist, nil
	}
	return name, dist, nil
}

// RenameIdentity updates the name of a known identity.
func (s *Store) RenameIdentity(ctx context.Context, oldName, newName string) error {
	tag, err := s.conn.Exec(ctx, "UPDATE known_identities SET name = $1 WHERE name = $2", newName, oldName)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, oldName)
	}
	return nil
}

// ListAttendance returns the attendance rows for the calendar date of day, earliest first.
func (s *Store) ListAttendance(ctx context.Context, day time.Time) ([]AttendanceRecord, error) {
	rows, err := s.conn.Query(ctx, `
		SELECT name, marked_date, marked_at, run_id::text
		FROM attendance WHERE marked_date = $1::text::date ORDER BY marked_at
	`, day.Format("2006-01-02"))
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (AttendanceRecord, error) {
		var r AttendanceRecord
		err := row.Scan(&r.Name, &r.Date, &r.MarkedAt, &r.RunID)
		return r, err
	})
}

// Reset drops all application tables to clear the database state.
// This is useful for development to force a schema refresh without migrations.
func (s *Store) Reset(ctx context.Context) error {
	_, err := s.conn.Exec(ctx, `
		DROP TABLE IF EXISTS attendance CASCADE;
		DROP TABLE IF EXISTS known_identities CASCADE;
	`)
	return err
}
