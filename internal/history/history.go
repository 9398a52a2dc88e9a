package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500

	// timeFormat is fixed-width so stored timestamps sort lexically.
	timeFormat = "2006-01-02T15:04:05.000Z"
)

// ErrInvalidRecord is returned when a record is missing required fields.
var ErrInvalidRecord = errors.New("history: invalid record")

// Cycle is one telemetry cycle.
type Cycle struct {
	ID         string        `json:"id"`
	StartedAt  time.Time     `json:"started_at"`
	Duration   time.Duration `json:"duration_ns"`
	Outcome    string        `json:"outcome"`
	StationID  string        `json:"station_id,omitempty"`
	MessageID  string        `json:"message_id,omitempty"`
	FrameBytes int           `json:"frame_bytes"`
	Warnings   int           `json:"warnings"`
	Error      string        `json:"error,omitempty"`
}

// Fault is a fault raised by the telemetry service.
type Fault struct {
	ID         int64     `json:"id"`
	OccurredAt time.Time `json:"occurred_at"`
	Code       int       `json:"code"`
	Report     string    `json:"report"`
	Diagnostic string    `json:"diagnostic,omitempty"`
	CycleID    string    `json:"cycle_id,omitempty"`
}

// Repository reads and writes the history tables.
type Repository struct {
	db *sql.DB
}

// NewRepository returns a repository over an open, migrated database.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// RecordCycle stores one cycle.
func (r *Repository) RecordCycle(ctx context.Context, c Cycle) error {
	if c.ID == "" || c.Outcome == "" {
		return fmt.Errorf("%w: cycle needs an id and an outcome", ErrInvalidRecord)
	}
	if c.StartedAt.IsZero() {
		c.StartedAt = time.Now()
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO cycles (id, started_at, duration_ms, outcome, station_id, message_id, frame_bytes, warnings, error)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID,
		formatTime(c.StartedAt),
		c.Duration.Milliseconds(),
		c.Outcome,
		c.StationID,
		c.MessageID,
		c.FrameBytes,
		c.Warnings,
		c.Error,
	)
	if err != nil {
		return fmt.Errorf("inserting cycle: %w", err)
	}
	return nil
}

// ListCycles returns the most recent cycles, newest first. limit defaults
// to 50 and is capped at 500.
func (r *Repository) ListCycles(ctx context.Context, limit int) ([]Cycle, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, started_at, duration_ms, outcome, station_id, message_id, frame_bytes, warnings, error
		 FROM cycles
		 ORDER BY started_at DESC, rowid DESC
		 LIMIT ?`,
		clampLimit(limit),
	)
	if err != nil {
		return nil, fmt.Errorf("querying cycles: %w", err)
	}
	defer rows.Close()

	cycles := make([]Cycle, 0)
	for rows.Next() {
		var c Cycle
		var startedAt string
		var durationMS int64
		if err := rows.Scan(&c.ID, &startedAt, &durationMS, &c.Outcome, &c.StationID,
			&c.MessageID, &c.FrameBytes, &c.Warnings, &c.Error); err != nil {
			return nil, fmt.Errorf("scanning cycle: %w", err)
		}
		if c.StartedAt, err = parseTime(startedAt); err != nil {
			return nil, err
		}
		c.Duration = time.Duration(durationMS) * time.Millisecond
		cycles = append(cycles, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating cycles: %w", err)
	}
	return cycles, nil
}

// RecordFault stores a fault and returns its id.
func (r *Repository) RecordFault(ctx context.Context, f Fault) (int64, error) {
	if f.Code == 0 {
		return 0, fmt.Errorf("%w: fault needs a code", ErrInvalidRecord)
	}
	if f.OccurredAt.IsZero() {
		f.OccurredAt = time.Now()
	}

	result, err := r.db.ExecContext(ctx,
		`INSERT INTO faults (occurred_at, code, report, diagnostic, cycle_id) VALUES (?, ?, ?, ?, ?)`,
		formatTime(f.OccurredAt),
		f.Code,
		f.Report,
		f.Diagnostic,
		f.CycleID,
	)
	if err != nil {
		return 0, fmt.Errorf("inserting fault: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("reading fault id: %w", err)
	}
	return id, nil
}

// ListFaults returns the most recent faults, newest first.
func (r *Repository) ListFaults(ctx context.Context, limit int) ([]Fault, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, occurred_at, code, report, diagnostic, cycle_id
		 FROM faults
		 ORDER BY occurred_at DESC, id DESC
		 LIMIT ?`,
		clampLimit(limit),
	)
	if err != nil {
		return nil, fmt.Errorf("querying faults: %w", err)
	}
	defer rows.Close()

	faults := make([]Fault, 0)
	for rows.Next() {
		var f Fault
		var occurredAt string
		if err := rows.Scan(&f.ID, &occurredAt, &f.Code, &f.Report, &f.Diagnostic, &f.CycleID); err != nil {
			return nil, fmt.Errorf("scanning fault: %w", err)
		}
		if f.OccurredAt, err = parseTime(occurredAt); err != nil {
			return nil, err
		}
		faults = append(faults, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating faults: %w", err)
	}
	return faults, nil
}

// Prune deletes cycles and faults older than olderThan and returns the
// number of rows removed.
func (r *Repository) Prune(ctx context.Context, olderThan time.Duration) (int64, error) {
	if olderThan <= 0 {
		return 0, fmt.Errorf("%w: olderThan must be positive", ErrInvalidRecord)
	}
	cutoff := formatTime(time.Now().Add(-olderThan))

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning prune: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	var total int64
	for _, stmt := range []string{
		"DELETE FROM cycles WHERE started_at < ?",
		"DELETE FROM faults WHERE occurred_at < ?",
	} {
		result, err := tx.ExecContext(ctx, stmt, cutoff)
		if err != nil {
			return 0, fmt.Errorf("pruning history: %w", err)
		}
		n, err := result.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("checking rows affected: %w", err)
		}
		total += n
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing prune: %w", err)
	}
	return total, nil
}

func clampLimit(limit int) int {
	switch {
	case limit <= 0:
		return defaultListLimit
	case limit > maxListLimit:
		return maxListLimit
	}
	return limit
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeFormat)
}

func parseTime(value string) (time.Time, error) {
	t, err := time.Parse(timeFormat, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing timestamp %q: %w", value, err)
	}
	return t, nil
}
