package store

import (
	"context"
	"time"

	"github.com/andresmejia3/livecheck/internal/liveness"
	"github.com/google/uuid"
)

// AttendanceLedger records marks in the attendance table under one run id.
type AttendanceLedger struct {
	store *Store
	runID uuid.UUID
}

// Ledger returns a liveness.Ledger writing to this store.
func (s *Store) Ledger(runID uuid.UUID) *AttendanceLedger {
	return &AttendanceLedger{store: s, runID: runID}
}

// Mark inserts (name, date of at). A row already present for that date leaves the table unchanged.
func (l *AttendanceLedger) Mark(ctx context.Context, name string, at time.Time) (liveness.MarkResult, error) {
	tag, err := l.store.conn.Exec(ctx, `
		INSERT INTO attendance (name, marked_date, marked_at, run_id)
		VALUES ($1, $2::text::date, $3, $4::text::uuid)
		ON CONFLICT (name, marked_date) DO NOTHING
	`, name, at.Format("2006-01-02"), at, l.runID.String())
	if err != nil {
		return liveness.Marked, err
	}
	if tag.RowsAffected() == 0 {
		return liveness.AlreadyMarkedToday, nil
	}
	return liveness.Marked, nil
}
