package metrics

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// schema is the DDL for the usage_events table, applied on open.
const schema = `
CREATE TABLE IF NOT EXISTS usage_events (
    id               TEXT PRIMARY KEY,
    event_type       TEXT NOT NULL,
    timestamp        TIMESTAMP NOT NULL,
    duration_seconds REAL NOT NULL DEFAULT 0,
    input_chars      INTEGER NOT NULL DEFAULT 0,
    output_chars     INTEGER NOT NULL DEFAULT 0,
    status           TEXT NOT NULL DEFAULT '',
    target_kind      TEXT NOT NULL DEFAULT '',
    text             TEXT NOT NULL DEFAULT '',
    metadata         TEXT NOT NULL DEFAULT '{}'
);
CREATE INDEX IF NOT EXISTS idx_usage_events_timestamp ON usage_events(timestamp);
CREATE INDEX IF NOT EXISTS idx_usage_events_type ON usage_events(event_type);
`

// SQLiteStore is a [Store] backed by a local SQLite file via the pure Go
// driver. A single writer connection avoids lock contention.
type SQLiteStore struct {
	db *sql.DB

	mu     sync.RWMutex
	limits Limits

	now func() time.Time
}

// Compile-time interface check.
var _ Store = (*SQLiteStore)(nil)

// OpenSQLite opens (or creates) the events database at path and applies the
// schema. Use ":memory:" for an ephemeral store.
func OpenSQLite(path string, limits Limits) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("metrics: open sqlite %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("metrics: migrate: %w", err)
	}

	return &SQLiteStore{db: db, limits: limits, now: time.Now}, nil
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error { return s.db.Close() }

// SetLimits replaces the retention limits. Takes effect on the next insert.
func (s *SQLiteStore) SetLimits(l Limits) {
	s.mu.Lock()
	s.limits = l
	s.mu.Unlock()
}

// Record implements [Store.Record].
func (s *SQLiteStore) Record(ctx context.Context, ev Event) (Event, error) {
	if ev.EventType == "" {
		return Event{}, ErrMissingEventType
	}
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = s.now().UTC()
	}

	metaJSON := []byte("{}")
	if ev.Metadata != nil {
		var err error
		metaJSON, err = json.Marshal(ev.Metadata)
		if err != nil {
			return Event{}, fmt.Errorf("metrics: marshal metadata: %w", err)
		}
	}

	const query = `
		INSERT INTO usage_events (
			id, event_type, timestamp, duration_seconds,
			input_chars, output_chars, status, target_kind, text, metadata
		) VALUES (?,?,?,?,?,?,?,?,?,?)`

	_, err := s.db.ExecContext(ctx, query,
		ev.ID, ev.EventType, ev.Timestamp, ev.DurationSeconds,
		ev.InputChars, ev.OutputChars, ev.Status, ev.TargetKind, ev.Text, string(metaJSON),
	)
	if err != nil {
		return Event{}, fmt.Errorf("metrics: record: %w", err)
	}

	if err := s.prune(ctx); err != nil {
		return Event{}, err
	}
	return ev, nil
}

// prune drops events past the retention window, then the oldest events
// beyond the size cap.
func (s *SQLiteStore) prune(ctx context.Context) error {
	s.mu.RLock()
	limits := s.limits
	s.mu.RUnlock()

	if limits.RetentionDays > 0 {
		cutoff := s.now().UTC().AddDate(0, 0, -limits.RetentionDays)
		if _, err := s.db.ExecContext(ctx,
			`DELETE FROM usage_events WHERE timestamp < ?`, cutoff); err != nil {
			return fmt.Errorf("metrics: prune by age: %w", err)
		}
	}
	if limits.MaxEvents > 0 {
		const query = `
			DELETE FROM usage_events WHERE id NOT IN (
				SELECT id FROM usage_events ORDER BY timestamp DESC, id DESC LIMIT ?
			)`
		if _, err := s.db.ExecContext(ctx, query, limits.MaxEvents); err != nil {
			return fmt.Errorf("metrics: prune by count: %w", err)
		}
	}
	return nil
}

// rangeStart returns the inclusive lower bound for a summary range, or a
// zero time for [RangeAll].
func (s *SQLiteStore) rangeStart(r Range) time.Time {
	now := s.now().UTC()
	switch r {
	case RangeToday:
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	case Range7Days:
		return now.AddDate(0, 0, -7)
	case Range30Days:
		return now.AddDate(0, 0, -30)
	default:
		return time.Time{}
	}
}

// Summary implements [Store.Summary].
func (s *SQLiteStore) Summary(ctx context.Context, r Range) (Summary, error) {
	if !r.IsValid() {
		return Summary{}, fmt.Errorf("metrics: unknown range %q", r)
	}

	const query = `
		SELECT event_type, duration_seconds, input_chars, output_chars, status
		FROM usage_events WHERE timestamp >= ?`

	rows, err := s.db.QueryContext(ctx, query, s.rangeStart(r))
	if err != nil {
		return Summary{}, fmt.Errorf("metrics: summary: %w", err)
	}
	defer rows.Close()

	sum := Summary{Range: r, ByType: map[string]int{}}
	for rows.Next() {
		var (
			eventType, status      string
			duration               float64
			inputChars, outputChars int
		)
		if err := rows.Scan(&eventType, &duration, &inputChars, &outputChars, &status); err != nil {
			return Summary{}, fmt.Errorf("metrics: summary scan: %w", err)
		}

		sum.TotalEvents++
		sum.ByType[eventType]++
		sum.InputChars += inputChars
		sum.OutputChars += outputChars

		switch eventType {
		case EventTranscription:
			sum.ASRSeconds += duration
		case EventTTS:
			sum.TTSSeconds += duration
		case EventExportAttempt:
			if status == "success" {
				sum.ExportSuccesses++
			} else {
				sum.ExportFailures++
			}
		}
	}
	if err := rows.Err(); err != nil {
		return Summary{}, fmt.Errorf("metrics: summary: %w", err)
	}
	return sum, nil
}

// defaultHistoryLimit caps unpaginated history queries.
const defaultHistoryLimit = 100

// History implements [Store.History].
func (s *SQLiteStore) History(ctx context.Context, opts HistoryOptions) ([]Event, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = defaultHistoryLimit
	}

	var (
		rows *sql.Rows
		err  error
	)
	if opts.EventType == "" {
		const query = `
			SELECT id, event_type, timestamp, duration_seconds,
			       input_chars, output_chars, status, target_kind, text, metadata
			FROM usage_events ORDER BY timestamp DESC, id DESC LIMIT ? OFFSET ?`
		rows, err = s.db.QueryContext(ctx, query, limit, opts.Offset)
	} else {
		const query = `
			SELECT id, event_type, timestamp, duration_seconds,
			       input_chars, output_chars, status, target_kind, text, metadata
			FROM usage_events WHERE event_type = ?
			ORDER BY timestamp DESC, id DESC LIMIT ? OFFSET ?`
		rows, err = s.db.QueryContext(ctx, query, opts.EventType, limit, opts.Offset)
	}
	if err != nil {
		return nil, fmt.Errorf("metrics: history: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("metrics: history scan: %w", err)
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("metrics: history: %w", err)
	}
	return events, nil
}

// Export implements [Store.Export].
func (s *SQLiteStore) Export(ctx context.Context) (ExportDocument, error) {
	const query = `
		SELECT id, event_type, timestamp, duration_seconds,
		       input_chars, output_chars, status, target_kind, text, metadata
		FROM usage_events ORDER BY timestamp ASC, id ASC`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return ExportDocument{}, fmt.Errorf("metrics: export: %w", err)
	}
	defer rows.Close()

	doc := ExportDocument{ExportedAt: s.now().UTC(), Events: []Event{}}
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return ExportDocument{}, fmt.Errorf("metrics: export scan: %w", err)
		}
		doc.Events = append(doc.Events, ev)
	}
	if err := rows.Err(); err != nil {
		return ExportDocument{}, fmt.Errorf("metrics: export: %w", err)
	}
	return doc, nil
}

// Clear implements [Store.Clear].
func (s *SQLiteStore) Clear(ctx context.Context, textOnly bool) error {
	if textOnly {
		if _, err := s.db.ExecContext(ctx, `UPDATE usage_events SET text = ''`); err != nil {
			return fmt.Errorf("metrics: clear text: %w", err)
		}
		return nil
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM usage_events`); err != nil {
		return fmt.Errorf("metrics: clear: %w", err)
	}
	return nil
}

func scanEvent(rows *sql.Rows) (Event, error) {
	var (
		ev       Event
		metaJSON string
	)
	err := rows.Scan(
		&ev.ID, &ev.EventType, &ev.Timestamp, &ev.DurationSeconds,
		&ev.InputChars, &ev.OutputChars, &ev.Status, &ev.TargetKind, &ev.Text, &metaJSON,
	)
	if err != nil {
		return Event{}, err
	}
	if metaJSON != "" && metaJSON != "{}" {
		if err := json.Unmarshal([]byte(metaJSON), &ev.Metadata); err != nil {
			return Event{}, fmt.Errorf("unmarshal metadata: %w", err)
		}
	}
	return ev, nil
}
