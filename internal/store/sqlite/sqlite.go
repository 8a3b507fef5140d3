package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/esainane/steambridge/internal/store"
)

// SQLiteStore implements store.SessionStore for SQLite.
type SQLiteStore struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	account         TEXT PRIMARY KEY,
	token           TEXT NOT NULL DEFAULT '',
	queue_id        TEXT NOT NULL DEFAULT '',
	steamid         TEXT NOT NULL DEFAULT '',
	last_message_id INTEGER NOT NULL DEFAULT 0,
	updated_at      DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

// New creates a new SQLite session store, applying the schema if needed.
// dbPath is the path to the SQLite database file.
func New(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// SQLite works best with a single connection
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Load returns the persisted session for account, or store.ErrNotFound.
func (s *SQLiteStore) Load(ctx context.Context, account string) (*store.Record, error) {
	query := `
		SELECT account, token, queue_id, steamid, last_message_id, updated_at
		FROM sessions WHERE account = ?
	`
	rec := &store.Record{}
	err := s.db.QueryRowContext(ctx, query, account).Scan(
		&rec.Account, &rec.Token, &rec.QueueID, &rec.SteamID,
		&rec.LastMessageID, &rec.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	return rec, nil
}

// Save inserts or replaces the session for rec.Account.
func (s *SQLiteStore) Save(ctx context.Context, rec *store.Record) error {
	query := `
		INSERT INTO sessions (account, token, queue_id, steamid, last_message_id, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(account) DO UPDATE SET
			token           = excluded.token,
			queue_id        = excluded.queue_id,
			steamid         = excluded.steamid,
			last_message_id = excluded.last_message_id,
			updated_at      = excluded.updated_at
	`
	_, err := s.db.ExecContext(ctx, query,
		rec.Account, rec.Token, rec.QueueID, rec.SteamID,
		rec.LastMessageID, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// Delete removes the session for account.
func (s *SQLiteStore) Delete(ctx context.Context, account string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE account = ?`, account); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}
