package store

import (
	"context"
	"database/sql"
	"fmt"
)

// SchemaVersion is the current schema version.
const SchemaVersion = 1

// schemaV1 is the initial schema for the SQLite recorder.
const schemaV1 = `
CREATE TABLE IF NOT EXISTS runs (
    id TEXT PRIMARY KEY,
    started_at TEXT NOT NULL,
    ended_at TEXT,
    entities INTEGER NOT NULL DEFAULT 0,
    tick_rate INTEGER NOT NULL DEFAULT 60,
    seed TEXT NOT NULL DEFAULT '0',  -- uint64 does not fit INTEGER
    ticks INTEGER NOT NULL DEFAULT 0,
    source TEXT NOT NULL DEFAULT 'sim'
);

-- Flattened snapshot columns for querying; payload is the full snapshot JSON
CREATE TABLE IF NOT EXISTS snapshots (
    run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
    tick INTEGER NOT NULL,
    recorded_at TEXT NOT NULL,
    entropy REAL NOT NULL,
    trend REAL NOT NULL,
    meta_entropy REAL NOT NULL,
    complexity REAL NOT NULL,
    meta_complexity REAL NOT NULL,
    familiarity REAL NOT NULL,
    mutual_information REAL NOT NULL,
    causal_flow REAL NOT NULL,
    compression_ratio REAL NOT NULL,
    resonance REAL NOT NULL,
    strange_loop REAL NOT NULL,
    model_confidence REAL NOT NULL,
    invariants INTEGER NOT NULL,
    payload TEXT,
    PRIMARY KEY (run_id, tick)
);

CREATE TABLE IF NOT EXISTS events (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
    tick INTEGER NOT NULL,
    kind TEXT NOT NULL,
    value REAL NOT NULL,
    fields TEXT  -- JSON
);
CREATE INDEX IF NOT EXISTS idx_events_run_tick ON events(run_id, tick);
CREATE INDEX IF NOT EXISTS idx_events_kind ON events(kind);

CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER PRIMARY KEY,
    applied_at TEXT NOT NULL
);
`

// InitSchema creates the tables on a fresh database and checks an
// existing one.
func InitSchema(ctx context.Context, db *sql.DB) error {
	currentVersion, err := getSchemaVersion(ctx, db)
	if err != nil {
		// Schema version table doesn't exist yet, create fresh schema
		if err := createSchema(ctx, db); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
		return nil
	}

	if err := ValidateIntegrity(ctx, db); err != nil {
		return fmt.Errorf("database integrity check failed: %w", err)
	}

	if currentVersion > SchemaVersion {
		return fmt.Errorf("database schema version %d is newer than supported version %d", currentVersion, SchemaVersion)
	}
	return nil
}

// getSchemaVersion returns the current schema version from the database.
// Returns 0 and an error if the schema_version table doesn't exist.
func getSchemaVersion(ctx context.Context, db *sql.DB) (int, error) {
	var version int
	err := db.QueryRowContext(ctx, `SELECT MAX(version) FROM schema_version`).Scan(&version)
	if err != nil {
		return 0, err
	}
	return version, nil
}

func createSchema(ctx context.Context, db *sql.DB) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, schemaV1); err != nil {
		return fmt.Errorf("failed to create tables: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO schema_version (version, applied_at) VALUES (?, datetime('now'))`,
		SchemaVersion); err != nil {
		return fmt.Errorf("failed to record schema version: %w", err)
	}

	return tx.Commit()
}

// ValidateIntegrity runs PRAGMA integrity_check and PRAGMA
// foreign_key_check and returns an error if either reports a problem.
func ValidateIntegrity(ctx context.Context, db *sql.DB) error {
	rows, err := db.QueryContext(ctx, `PRAGMA integrity_check`)
	if err != nil {
		return fmt.Errorf("failed to run integrity_check: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var result string
		if err := rows.Scan(&result); err != nil {
			return fmt.Errorf("failed to scan integrity_check result: %w", err)
		}
		if result != "ok" {
			return fmt.Errorf("integrity_check failed: %s", result)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("integrity_check iteration failed: %w", err)
	}

	fkRows, err := db.QueryContext(ctx, `PRAGMA foreign_key_check`)
	if err != nil {
		return fmt.Errorf("failed to run foreign_key_check: %w", err)
	}
	defer fkRows.Close()

	if fkRows.Next() {
		return fmt.Errorf("foreign_key_check found violations")
	}
	return fkRows.Err()
}
