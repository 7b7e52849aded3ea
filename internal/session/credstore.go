package session

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/zaziork/photocat-client/internal/models"
)

const schema = `
CREATE TABLE IF NOT EXISTS credential (
	id         INTEGER PRIMARY KEY CHECK (id = 1),
	token      TEXT NOT NULL,
	username   TEXT NOT NULL,
	csrf_token TEXT NOT NULL DEFAULT '',
	saved_at   TIMESTAMP NOT NULL
);`

// CredentialStore persists the session credential across process restarts,
// the local analog of the browser's session storage.
type CredentialStore struct {
	db *sqlx.DB
}

// OpenCredentialStore opens (creating if needed) the sqlite database at path.
func OpenCredentialStore(path string) (*CredentialStore, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("creating session dir: %w", err)
		}
	}

	db, err := sqlx.Connect("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening session db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrating session db: %w", err)
	}
	return &CredentialStore{db: db}, nil
}

// Save upserts the single credential row.
func (s *CredentialStore) Save(cred models.Credential) error {
	_, err := s.db.Exec(`
		INSERT INTO credential (id, token, username, csrf_token, saved_at)
		VALUES (1, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			token = excluded.token,
			username = excluded.username,
			csrf_token = excluded.csrf_token,
			saved_at = excluded.saved_at`,
		cred.Token, cred.Username, cred.CSRFToken, time.Now().UTC())
	return err
}

// Load returns the persisted credential, reporting false when none exists.
func (s *CredentialStore) Load() (models.Credential, bool, error) {
	var cred models.Credential
	err := s.db.Get(&cred, `SELECT token, username, csrf_token FROM credential WHERE id = 1`)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Credential{}, false, nil
	}
	if err != nil {
		return models.Credential{}, false, err
	}
	return cred, true, nil
}

// Clear removes the persisted credential.
func (s *CredentialStore) Clear() error {
	_, err := s.db.Exec(`DELETE FROM credential WHERE id = 1`)
	return err
}

// Close releases the database handle.
func (s *CredentialStore) Close() error {
	return s.db.Close()
}
