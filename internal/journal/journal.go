// Package journal persists a local history of capture attempts and their
// upload outcomes in an embedded SQLite database. The journal is purely
// diagnostic — nothing in the session lifecycle reads it back — so every
// write is best-effort from the caller's point of view.
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// currentSchemaVersion is the latest schema version.
// Bump this when adding migrations.
const currentSchemaVersion = 1

// Attempt is one journal row: a finished capture attempt.
type Attempt struct {
	// ID is the attempt identifier.
	ID string

	// Session names the owning session slot.
	Session string

	// Kind is the capture kind ("audio", "video", "screen").
	Kind string

	// StartedAt is when the capture began.
	StartedAt time.Time

	// FinishedAt is when the attempt reached a terminal state.
	FinishedAt time.Time

	// Bytes is the finalized payload size.
	Bytes int64

	// State is the terminal session state ("recorded" or "failed").
	State string

	// UploadOutcome is the classified upload result, empty when no
	// upload ran.
	UploadOutcome string

	// Detail carries the failure reason or application error code.
	Detail string
}

// Journal is the SQLite-backed attempt history.
type Journal struct {
	db *sql.DB
}

// Open initialises the journal database at path, creating parent
// directories and applying migrations as needed.
func Open(path string) (*Journal, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("journal: create directory: %w", err)
		}
	}

	// Pragmas in the DSN apply to every pooled connection.
	dsn := path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("journal: open database: %w", err)
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Journal{db: db}, nil
}

// Close releases the database handle.
func (j *Journal) Close() error {
	return j.db.Close()
}

// Ping verifies the database is reachable. Used as a readiness check.
func (j *Journal) Ping(ctx context.Context) error {
	return j.db.PingContext(ctx)
}

// Record inserts one finished attempt. Re-recording the same attempt ID
// overwrites the prior row (the upload outcome lands after the terminal
// state does).
func (j *Journal) Record(ctx context.Context, a Attempt) error {
	_, err := j.db.ExecContext(ctx, `
		INSERT INTO attempts (id, session, kind, started_at, finished_at, bytes, state, upload_outcome, detail)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			finished_at = excluded.finished_at,
			bytes = excluded.bytes,
			state = excluded.state,
			upload_outcome = excluded.upload_outcome,
			detail = excluded.detail`,
		a.ID, a.Session, a.Kind,
		a.StartedAt.UTC().UnixMilli(), a.FinishedAt.UTC().UnixMilli(),
		a.Bytes, a.State, a.UploadOutcome, a.Detail,
	)
	if err != nil {
		return fmt.Errorf("journal: record attempt %s: %w", a.ID, err)
	}
	return nil
}

// Recent returns up to n attempts, most recently finished first.
func (j *Journal) Recent(ctx context.Context, n int) ([]Attempt, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT id, session, kind, started_at, finished_at, bytes, state, upload_outcome, detail
		FROM attempts
		ORDER BY finished_at DESC
		LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("journal: query recent: %w", err)
	}
	defer rows.Close()

	var out []Attempt
	for rows.Next() {
		var a Attempt
		var started, finished int64
		if err := rows.Scan(&a.ID, &a.Session, &a.Kind, &started, &finished,
			&a.Bytes, &a.State, &a.UploadOutcome, &a.Detail); err != nil {
			return nil, fmt.Errorf("journal: scan attempt: %w", err)
		}
		a.StartedAt = time.UnixMilli(started).UTC()
		a.FinishedAt = time.UnixMilli(finished).UTC()
		out = append(out, a)
	}
	return out, rows.Err()
}

// migrate applies schema migrations based on user_version.
func migrate(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("journal: read schema version: %w", err)
	}
	if version >= currentSchemaVersion {
		return nil
	}

	if version < 1 {
		_, err := db.Exec(`
			CREATE TABLE IF NOT EXISTS attempts (
				id             TEXT PRIMARY KEY,
				session        TEXT NOT NULL,
				kind           TEXT NOT NULL,
				started_at     INTEGER NOT NULL,
				finished_at    INTEGER NOT NULL,
				bytes          INTEGER NOT NULL DEFAULT 0,
				state          TEXT NOT NULL,
				upload_outcome TEXT NOT NULL DEFAULT '',
				detail         TEXT NOT NULL DEFAULT ''
			);
			CREATE INDEX IF NOT EXISTS idx_attempts_finished ON attempts(finished_at);`)
		if err != nil {
			return fmt.Errorf("journal: apply schema v1: %w", err)
		}
	}

	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fmt.Errorf("journal: set schema version: %w", err)
	}
	return nil
}
