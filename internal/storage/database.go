package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // Registers the sqlite driver
)

// Kind names the controller a stored snapshot belongs to.
type Kind string

const (
	KindQuiz  Kind = "quiz"
	KindForm  Kind = "form"
	KindEdit  Kind = "edit"
	KindStock Kind = "stock"
)

// DB represents a wrapper around the SQL database connection.
type DB struct {
	conn *sql.DB
	now  func() time.Time
}

// Open creates a new database connection and ensures the schema is up to date.
func Open(dsn string) (*DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// An in-memory database lives per connection.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Execute the schema to create tables if they don't exist.
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &DB{conn: db, now: time.Now}, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// SaveState stores the JSON encoding of state for a session.
func (db *DB) SaveState(sessionID string, kind Kind, state any) error {
	b, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to encode %s state for session %s: %w", kind, sessionID, err)
	}
	_, err = db.conn.Exec(`
		INSERT INTO sessions (id, kind, state, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (id, kind) DO UPDATE SET state = excluded.state, updated_at = excluded.updated_at
	`, sessionID, string(kind), b, db.now().Unix())
	if err != nil {
		return fmt.Errorf("failed to save %s state for session %s: %w", kind, sessionID, err)
	}
	return nil
}

// LoadState decodes the stored state of a session into out. It reports
// false when nothing is stored.
func (db *DB) LoadState(sessionID string, kind Kind, out any) (bool, error) {
	var b []byte
	row := db.conn.QueryRow(`
		SELECT state FROM sessions WHERE id = ? AND kind = ?
	`, sessionID, string(kind))
	if err := row.Scan(&b); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("failed to load %s state for session %s: %w", kind, sessionID, err)
	}
	if err := json.Unmarshal(b, out); err != nil {
		return false, fmt.Errorf("failed to decode %s state for session %s: %w", kind, sessionID, err)
	}
	return true, nil
}

// DeleteState forgets one controller of a session.
func (db *DB) DeleteState(sessionID string, kind Kind) error {
	_, err := db.conn.Exec(`
		DELETE FROM sessions WHERE id = ? AND kind = ?
	`, sessionID, string(kind))
	if err != nil {
		return fmt.Errorf("failed to delete %s state for session %s: %w", kind, sessionID, err)
	}
	return nil
}

// PruneBefore removes every snapshot not touched since cutoff and returns
// how many were removed.
func (db *DB) PruneBefore(cutoff time.Time) (int64, error) {
	res, err := db.conn.Exec(`
		DELETE FROM sessions WHERE updated_at < ?
	`, cutoff.Unix())
	if err != nil {
		return 0, fmt.Errorf("failed to prune sessions: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count pruned sessions: %w", err)
	}
	return n, nil
}
