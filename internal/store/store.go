package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when no session is persisted for an account.
var ErrNotFound = errors.New("session not found")

// Record is one persisted session, keyed by the local account name.
// Holding the token and queue id across restarts lets the bridge log
// back on silently instead of prompting for credentials again.
type Record struct {
	Account       string
	Token         string
	QueueID       string
	SteamID       string
	LastMessageID int64
	UpdatedAt     time.Time
}

// SessionStore persists sessions between runs.
type SessionStore interface {
	// Load returns the session for account, or ErrNotFound.
	Load(ctx context.Context, account string) (*Record, error)
	// Save inserts or replaces the session for rec.Account.
	Save(ctx context.Context, rec *Record) error
	// Delete removes the session for account; missing rows are not an error.
	Delete(ctx context.Context, account string) error
	Close() error
}
