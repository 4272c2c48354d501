// Package audit persists a queryable record of transitions and hash
// warnings alongside the JSON session state. The state document stays the
// source of truth; the trail is a convenience for inspection and
// reporting, so trail write failures are logged by callers and never fail
// the workflow.
package audit

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/draftflow/draftflow/internal/workflow"
)

const schema = `
CREATE TABLE IF NOT EXISTS transitions (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id  TEXT NOT NULL,
	from_phase  TEXT NOT NULL,
	from_stage  TEXT NOT NULL,
	to_phase    TEXT NOT NULL,
	to_stage    TEXT NOT NULL,
	trigger     TEXT NOT NULL,
	iteration   INTEGER NOT NULL,
	message     TEXT NOT NULL DEFAULT '',
	occurred_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_transitions_session ON transitions(session_id);

CREATE TABLE IF NOT EXISTS hash_warnings (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id  TEXT NOT NULL,
	path        TEXT NOT NULL,
	iteration   INTEGER NOT NULL,
	expected    TEXT NOT NULL,
	actual      TEXT NOT NULL,
	observed_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_warnings_session ON hash_warnings(session_id);
`

// Trail is the sqlite-backed audit log.
type Trail struct {
	db *sql.DB
}

// Open opens (creating if needed) the trail database at path.
func Open(path string) (*Trail, error) {
	connString := fmt.Sprintf("%s?_journal_mode=WAL&_synchronous=NORMAL&_foreign_keys=ON&_busy_timeout=5000&_cache_size=-64000", path)

	db, err := sql.Open("sqlite", connString)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit database %s: %w", path, err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping audit database %s: %w", path, err)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create audit schema: %w", err)
	}

	return &Trail{db: db}, nil
}

// RecordTransition appends one completed transition.
func (t *Trail) RecordTransition(sessionID string, from, to workflow.Position, trigger workflow.Trigger, iteration int, message string, now time.Time) error {
	_, err := t.db.Exec(
		`INSERT INTO transitions (session_id, from_phase, from_stage, to_phase, to_stage, trigger, iteration, message, occurred_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sessionID,
		string(from.Phase), string(from.Stage),
		string(to.Phase), string(to.Stage),
		string(trigger), iteration, message,
		now.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("failed to record transition: %w", err)
	}
	return nil
}

// RecordWarning appends one hash divergence observation.
func (t *Trail) RecordWarning(sessionID string, w workflow.HashWarning) error {
	_, err := t.db.Exec(
		`INSERT INTO hash_warnings (session_id, path, iteration, expected, actual, observed_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		sessionID, w.Path, w.Iteration, w.Expected, w.Actual,
		w.ObservedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("failed to record hash warning: %w", err)
	}
	return nil
}

// TransitionCount returns the number of recorded transitions for a session.
func (t *Trail) TransitionCount(sessionID string) (int, error) {
	var n int
	err := t.db.QueryRow(`SELECT COUNT(*) FROM transitions WHERE session_id = ?`, sessionID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count transitions: %w", err)
	}
	return n, nil
}

// Close closes the underlying database.
func (t *Trail) Close() error {
	return t.db.Close()
}
