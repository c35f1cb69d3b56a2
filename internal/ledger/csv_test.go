package ledger

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/andresmejia3/livecheck/internal/liveness"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCSV_WritesHeaderOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Attendance.csv")

	_, err := NewCSV(path)
	require.NoError(t, err)
	_, err = NewCSV(path)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "Name,Time,Date\n", string(data))
}

func TestCSV_MarkDedupesPerDay(t *testing.T) {
	ctx := context.Background()
	l, err := NewCSV(filepath.Join(t.TempDir(), "Attendance.csv"))
	require.NoError(t, err)

	morning := time.Date(2026, 3, 2, 9, 15, 0, 0, time.UTC)
	res, err := l.Mark(ctx, "ALICE", morning)
	require.NoError(t, err)
	assert.Equal(t, liveness.Marked, res)

	res, err = l.Mark(ctx, "ALICE", morning.Add(3*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, liveness.AlreadyMarkedToday, res)

	res, err = l.Mark(ctx, "BOB", morning.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, liveness.Marked, res)

	res, err = l.Mark(ctx, "ALICE", morning.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.Equal(t, liveness.Marked, res)

	data, err := os.ReadFile(l.Path())
	require.NoError(t, err)
	assert.Equal(t, "Name,Time,Date\n"+
		"ALICE,09:15:00,2026-03-02\n"+
		"BOB,09:16:00,2026-03-02\n"+
		"ALICE,09:15:00,2026-03-03\n", string(data))
}

func TestCSV_Records(t *testing.T) {
	ctx := context.Background()
	l, err := NewCSV(filepath.Join(t.TempDir(), "Attendance.csv"))
	require.NoError(t, err)

	day := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	_, err = l.Mark(ctx, "ALICE", day)
	require.NoError(t, err)
	_, err = l.Mark(ctx, "BOB", day.AddDate(0, 0, 1))
	require.NoError(t, err)

	recs, err := l.Records(ctx, day)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "ALICE", recs[0].Name)
	assert.True(t, recs[0].At.Equal(day))
}

func TestCSV_ReadsExistingFileWithShortRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Attendance.csv")
	require.NoError(t, os.WriteFile(path, []byte("Name,Time,Date\nbroken\nALICE,10:00:00,2026-03-02\n"), 0644))

	l, err := NewCSV(path)
	require.NoError(t, err)

	res, err := l.Mark(context.Background(), "ALICE", time.Date(2026, 3, 2, 11, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, liveness.AlreadyMarkedToday, res)
}
