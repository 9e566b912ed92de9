package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nvandessel/selfwatch/internal/engine"

	_ "modernc.org/sqlite" // SQLite driver
)

// SQLiteRecorder implements Recorder on a SQLite database.
type SQLiteRecorder struct {
	mu     sync.Mutex
	db     *sql.DB
	dbPath string
	now    func() time.Time
}

// NewSQLiteRecorder opens or creates the database at dbPath.
func NewSQLiteRecorder(dbPath string) (*SQLiteRecorder, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0700); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1) // SQLite works best with single writer

	if err := InitSchema(context.Background(), db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteRecorder{db: db, dbPath: dbPath, now: time.Now}, nil
}

// Path returns the database file path.
func (s *SQLiteRecorder) Path() string { return s.dbPath }

// BeginRun inserts a run row.
func (s *SQLiteRecorder) BeginRun(ctx context.Context, run Run) (Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = s.now()
	}
	run.StartedAt = run.StartedAt.UTC()
	if run.Source == "" {
		run.Source = "sim"
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (id, started_at, entities, tick_rate, seed, ticks, source)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.StartedAt.Format(timeFormat), run.Entities, run.TickRate,
		strconv.FormatUint(run.Seed, 10), run.Ticks, run.Source)
	if err != nil {
		return Run{}, fmt.Errorf("failed to insert run: %w", err)
	}
	return run, nil
}

// EndRun records the finish time and tick count.
func (s *SQLiteRecorder) EndRun(ctx context.Context, runID string, ticks int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `UPDATE runs SET ended_at = ?, ticks = ? WHERE id = ?`,
		s.now().UTC().Format(timeFormat), ticks, runID)
	if err != nil {
		return fmt.Errorf("failed to end run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return nil
}

// RecordSnapshot stores a flattened snapshot. Re-recording a tick replaces it.
func (s *SQLiteRecorder) RecordSnapshot(ctx context.Context, runID string, snap engine.Snapshot) error {
	sample, err := NewSample(runID, snap, s.now())
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err = s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO snapshots (
			run_id, tick, recorded_at, entropy, trend, meta_entropy, complexity,
			meta_complexity, familiarity, mutual_information, causal_flow,
			compression_ratio, resonance, strange_loop, model_confidence,
			invariants, payload
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sample.RunID, sample.Tick, sample.RecordedAt.Format(timeFormat),
		sample.Entropy, sample.Trend, sample.MetaEntropy, sample.Complexity,
		sample.MetaComplexity, sample.Familiarity, sample.MutualInformation,
		sample.CausalFlow, sample.CompressionRatio, sample.Resonance,
		sample.StrangeLoop, sample.ModelConfidence, sample.Invariants,
		string(sample.Payload))
	if err != nil {
		return fmt.Errorf("failed to insert snapshot: %w", err)
	}
	return nil
}

// RecordEvents stores events in one transaction.
func (s *SQLiteRecorder) RecordEvents(ctx context.Context, runID string, events []engine.Event) error {
	if len(events) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, ev := range events {
		fields, err := json.Marshal(ev.Fields)
		if err != nil {
			return fmt.Errorf("failed to encode event fields: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO events (run_id, tick, kind, value, fields) VALUES (?, ?, ?, ?, ?)`,
			runID, ev.Tick, ev.Kind, ev.Value, string(fields)); err != nil {
			return fmt.Errorf("failed to insert event: %w", err)
		}
	}
	return tx.Commit()
}

// timeFormat has fixed-width fractions so stored times sort as text.
const timeFormat = "2006-01-02T15:04:05.000000000Z07:00"

const runColumns = `id, started_at, ended_at, entities, tick_rate, seed, ticks, source`

// Runs lists runs, newest first.
func (s *SQLiteRecorder) Runs(ctx context.Context) ([]Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx, `SELECT `+runColumns+` FROM runs ORDER BY started_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// GetRun returns one run.
func (s *SQLiteRecorder) GetRun(ctx context.Context, runID string) (*Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, runID)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	if err != nil {
		return nil, err
	}
	return &run, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (Run, error) {
	var (
		run           Run
		started, seed string
		ended         sql.NullString
	)
	if err := sc.Scan(&run.ID, &started, &ended, &run.Entities, &run.TickRate, &seed, &run.Ticks, &run.Source); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Run{}, err
		}
		return Run{}, fmt.Errorf("failed to scan run: %w", err)
	}

	var err error
	if run.StartedAt, err = time.Parse(timeFormat, started); err != nil {
		return Run{}, fmt.Errorf("failed to parse started_at: %w", err)
	}
	if ended.Valid {
		t, err := time.Parse(timeFormat, ended.String)
		if err != nil {
			return Run{}, fmt.Errorf("failed to parse ended_at: %w", err)
		}
		run.EndedAt = &t
	}
	if run.Seed, err = strconv.ParseUint(seed, 10, 64); err != nil {
		return Run{}, fmt.Errorf("failed to parse seed: %w", err)
	}
	return run, nil
}

// Samples returns a run's samples in tick order. With a limit, the most
// recent limit samples are returned.
func (s *SQLiteRecorder) Samples(ctx context.Context, runID string, limit int) ([]Sample, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		SELECT run_id, tick, recorded_at, entropy, trend, meta_entropy, complexity,
			meta_complexity, familiarity, mutual_information, causal_flow,
			compression_ratio, resonance, strange_loop, model_confidence,
			invariants, payload
		FROM snapshots WHERE run_id = ? ORDER BY tick DESC`
	args := []any{runID}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshots: %w", err)
	}
	defer rows.Close()

	var samples []Sample
	for rows.Next() {
		var (
			sm       Sample
			recorded string
			payload  sql.NullString
		)
		if err := rows.Scan(&sm.RunID, &sm.Tick, &recorded, &sm.Entropy, &sm.Trend,
			&sm.MetaEntropy, &sm.Complexity, &sm.MetaComplexity, &sm.Familiarity,
			&sm.MutualInformation, &sm.CausalFlow, &sm.CompressionRatio,
			&sm.Resonance, &sm.StrangeLoop, &sm.ModelConfidence, &sm.Invariants,
			&payload); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot: %w", err)
		}
		if sm.RecordedAt, err = time.Parse(timeFormat, recorded); err != nil {
			return nil, fmt.Errorf("failed to parse recorded_at: %w", err)
		}
		if payload.Valid {
			sm.Payload = json.RawMessage(payload.String)
		}
		samples = append(samples, sm)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	slices.Reverse(samples)
	return samples, nil
}

// Events returns a run's events in tick order. With a limit, the most
// recent limit events are returned.
func (s *SQLiteRecorder) Events(ctx context.Context, runID string, limit int) ([]EventRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `SELECT run_id, tick, kind, value, fields FROM events WHERE run_id = ? ORDER BY id DESC`
	args := []any{runID}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var events []EventRecord
	for rows.Next() {
		var (
			ev     EventRecord
			fields sql.NullString
		)
		if err := rows.Scan(&ev.RunID, &ev.Tick, &ev.Kind, &ev.Value, &fields); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		if fields.Valid && fields.String != "" && fields.String != "null" {
			if err := json.Unmarshal([]byte(fields.String), &ev.Fields); err != nil {
				return nil, fmt.Errorf("failed to decode event fields: %w", err)
			}
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	slices.Reverse(events)
	return events, nil
}

// Close closes the database.
func (s *SQLiteRecorder) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}
