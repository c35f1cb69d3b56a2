// Package ledger records attendance in an append-only CSV file.
package ledger

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/andresmejia3/livecheck/internal/liveness"
)

const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04:05"
)

var header = []string{"Name", "Time", "Date"}

// Record is one attendance line.
type Record struct {
	Name string
	At   time.Time
}

// CSV is an attendance ledger backed by a Name,Time,Date file.
// A name is recorded at most once per calendar date.
type CSV struct {
	mu   sync.Mutex
	path string
}

// NewCSV opens the ledger at path, writing the header if the file does not exist.
func NewCSV(path string) (*CSV, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	switch {
	case err == nil:
		w := csv.NewWriter(f)
		if err := w.Write(header); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to write ledger header: %w", err)
		}
		w.Flush()
		if err := errors.Join(w.Error(), f.Close()); err != nil {
			return nil, fmt.Errorf("failed to initialize ledger: %w", err)
		}
	case errors.Is(err, os.ErrExist):
	default:
		return nil, fmt.Errorf("failed to open ledger: %w", err)
	}
	return &CSV{path: path}, nil
}

// Path returns the ledger file location.
func (l *CSV) Path() string { return l.path }

// Mark appends name for the date of at unless it is already present for that date.
func (l *CSV) Mark(_ context.Context, name string, at time.Time) (liveness.MarkResult, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	date := at.Format(DateLayout)
	rows, err := l.read()
	if err != nil {
		return liveness.Marked, err
	}
	for _, row := range rows {
		if row[0] == name && row[2] == date {
			return liveness.AlreadyMarkedToday, nil
		}
	}

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return liveness.Marked, fmt.Errorf("failed to open ledger for append: %w", err)
	}
	w := csv.NewWriter(f)
	if err := w.Write([]string{name, at.Format(TimeLayout), date}); err != nil {
		f.Close()
		return liveness.Marked, fmt.Errorf("failed to append attendance: %w", err)
	}
	w.Flush()
	if err := errors.Join(w.Error(), f.Close()); err != nil {
		return liveness.Marked, fmt.Errorf("failed to append attendance: %w", err)
	}
	return liveness.Marked, nil
}

// Records returns the attendance lines for the calendar date of day, in file order.
func (l *CSV) Records(_ context.Context, day time.Time) ([]Record, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	rows, err := l.read()
	if err != nil {
		return nil, err
	}
	date := day.Format(DateLayout)
	var out []Record
	for _, row := range rows {
		if row[2] != date {
			continue
		}
		at, err := time.ParseInLocation(DateLayout+" "+TimeLayout, row[2]+" "+row[1], day.Location())
		if err != nil {
			return nil, fmt.Errorf("malformed ledger row %v: %w", row, err)
		}
		out = append(out, Record{Name: row[0], At: at})
	}
	return out, nil
}

// read returns the data rows (header skipped). Short rows are ignored.
func (l *CSV) read() ([][]string, error) {
	f, err := os.Open(l.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	var rows [][]string
	first := true
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read ledger: %w", err)
		}
		if first {
			first = false
			if len(row) > 0 && row[0] == header[0] {
				continue
			}
		}
		if len(row) < 3 {
			continue
		}
		rows = append(rows, row)
	}
	return rows, nil
}
