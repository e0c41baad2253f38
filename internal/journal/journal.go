// Package journal keeps a SQLite log of calibration sessions and their
// trials, recorded or skipped, for diagnosing localization errors across
// runs.
package journal

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/cwbudde/algo-binaural/calibration"
)

//go:embed schema.sql
var schema string

// Trial outcomes.
const (
	OutcomeRecorded       = "recorded"
	OutcomeSkipped        = "skipped"
	OutcomeSubjectSkipped = "subject-skipped"
)

// Session outcomes.
const (
	SessionCompleted = "completed"
	SessionAborted   = "aborted"
)

// TrialRecord is one journaled trial.
type TrialRecord struct {
	SessionID int64
	Subject   string
	Index     int
	Preset    int
	// Response is valid only for recorded trials.
	Response  float64
	Outcome   string
	Error     string
	CreatedAt time.Time
}

// PresetStat summarizes recorded trials at one preset azimuth.
type PresetStat struct {
	Preset        int
	Trials        int
	MeanDeviation float64
}

// Store is a SQLite-backed journal.
type Store struct {
	db *sql.DB
}

// Open opens or creates the journal database at path.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("journal: path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("journal: open: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("journal: ping: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("journal: apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// BeginSession creates a running session and returns its id.
func (s *Store) BeginSession(ctx context.Context, subjects []string, started time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (subjects, started_at) VALUES (?, ?)`,
		strings.Join(subjects, ","), started.UTC().UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("journal: begin session: %w", err)
	}
	return res.LastInsertId()
}

// FinishSession stores the session outcome and the saved profile path.
func (s *Store) FinishSession(ctx context.Context, id int64, outcome, profilePath string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET finished_at = ?, outcome = ?, profile_path = ? WHERE id = ?`,
		time.Now().UTC().UnixMilli(), outcome, profilePath, id)
	if err != nil {
		return fmt.Errorf("journal: finish session %d: %w", id, err)
	}
	return nil
}

// RecordEvent journals trial and subject outcomes. Other events are ignored.
func (s *Store) RecordEvent(ctx context.Context, sessionID int64, ev calibration.Event) error {
	var (
		outcome  string
		response sql.NullFloat64
	)
	switch ev.Kind {
	case calibration.EventTrialRecorded:
		outcome = OutcomeRecorded
		response = sql.NullFloat64{Float64: ev.Pointer, Valid: true}
	case calibration.EventTrialSkipped:
		outcome = OutcomeSkipped
	case calibration.EventSubjectSkipped:
		outcome = OutcomeSubjectSkipped
	default:
		return nil
	}
	var errText string
	if ev.Err != nil {
		errText = ev.Err.Error()
	}

	_, err := s.db.ExecContext(ctx, `
INSERT INTO trials (session_id, subject, trial_index, preset, response, outcome, error, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
`,
		sessionID, ev.Subject, ev.Trial, ev.Preset, response, outcome, errText, time.Now().UTC().UnixMilli())
	if err != nil {
		return fmt.Errorf("journal: record %s: %w", outcome, err)
	}
	return nil
}

// Observer returns a calibration observer journaling into sessionID.
// Write failures are logged and do not interrupt the session.
func (s *Store) Observer(ctx context.Context, sessionID int64, logger *slog.Logger) calibration.Observer {
	if logger == nil {
		logger = slog.Default()
	}
	return func(ev calibration.Event) {
		if err := s.RecordEvent(ctx, sessionID, ev); err != nil {
			logger.Warn("journal write failed", "session", sessionID, "error", err)
		}
	}
}

// Trials returns the journaled trials of a session in insertion order.
func (s *Store) Trials(ctx context.Context, sessionID int64) ([]TrialRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT session_id, subject, trial_index, preset, response, outcome, error, created_at
FROM trials
WHERE session_id = ?
ORDER BY id
`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("journal: list trials: %w", err)
	}
	defer rows.Close()

	var out []TrialRecord
	for rows.Next() {
		var (
			rec      TrialRecord
			response sql.NullFloat64
			created  int64
		)
		if err := rows.Scan(&rec.SessionID, &rec.Subject, &rec.Index, &rec.Preset,
			&response, &rec.Outcome, &rec.Error, &created); err != nil {
			return nil, fmt.Errorf("journal: scan trial: %w", err)
		}
		rec.Response = response.Float64
		rec.CreatedAt = time.UnixMilli(created).UTC()
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("journal: iterate trials: %w", err)
	}
	return out, nil
}

// PresetStats returns the mean deviation of recorded trials per preset
// azimuth over all sessions, ordered by preset.
func (s *Store) PresetStats(ctx context.Context) ([]PresetStat, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT preset, COUNT(*), AVG(ABS(response - preset))
FROM trials
WHERE outcome = ?
GROUP BY preset
ORDER BY preset
`, OutcomeRecorded)
	if err != nil {
		return nil, fmt.Errorf("journal: preset stats: %w", err)
	}
	defer rows.Close()

	var out []PresetStat
	for rows.Next() {
		var st PresetStat
		if err := rows.Scan(&st.Preset, &st.Trials, &st.MeanDeviation); err != nil {
			return nil, fmt.Errorf("journal: scan preset stat: %w", err)
		}
		out = append(out, st)
	}
	return out, rows.Err()
}
