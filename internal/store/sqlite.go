package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"earnpulse/internal/core"

	_ "github.com/mattn/go-sqlite3"
)

// stateKey is the single durable key the whole document lives under.
const stateKey = "earnpulse_db_v1"

// Store keeps the whole application state as one JSON document in one row.
// Every save rewrites the document inside a SQL transaction, so a crash
// mid-write leaves the previous document intact.
type Store struct {
	db    *sql.DB
	state *core.State
}

// NewStore opens the database, runs migrations and loads the document.
// A missing document is seeded with defaults; a document that fails to
// deserialize is an error, not a silent reseed — the operator decides
// whether to restore a backup.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &Store{db: db}

	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	if err := s.load(); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

// migrate creates the single-key table
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS app_state (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}
	return nil
}

// load deserializes the document, seeding defaults on first open.
func (s *Store) load() error {
	var value string
	err := s.db.QueryRow("SELECT value FROM app_state WHERE key = ?", stateKey).Scan(&value)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		s.state = DefaultState()
		return s.Save()
	case err != nil:
		return fmt.Errorf("failed to read state: %w", err)
	}

	st := &core.State{}
	if err := json.Unmarshal([]byte(value), st); err != nil {
		return fmt.Errorf("%w: stored state does not deserialize: %v", core.ErrIntegrity, err)
	}
	if st.Users == nil {
		st.Users = make(map[string]*core.User)
	}
	s.state = st
	return nil
}

// State returns the live document. The owning service serializes access.
func (s *Store) State() *core.State {
	return s.state
}

// Save rewrites the whole document under the single key.
func (s *Store) Save() error {
	data, err := json.Marshal(s.state)
	if err != nil {
		return fmt.Errorf("failed to serialize state: %w", err)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin save: %w", err)
	}
	_, err = tx.Exec(
		"INSERT INTO app_state (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP) "+
			"ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP",
		stateKey, string(data),
	)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to write state: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit save: %w", err)
	}
	return nil
}

// Replace installs a new document and persists it.
func (s *Store) Replace(st *core.State) error {
	old := s.state
	s.state = st
	if err := s.Save(); err != nil {
		s.state = old
		return err
	}
	return nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}
