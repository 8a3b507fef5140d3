package steamapi

import (
	"sync"

	"github.com/esainane/steambridge/internal/utils"
)

// Session holds the mutable authenticated identity shared by every
// in-flight request: the OAuth token, the session queue id the server
// correlates long polls with, the local user's steamid, and the poll
// cursor. Request builders read it from caller goroutines while
// decoders update it on the transport's completion dispatch, so all
// access goes through the mutex.
type Session struct {
	mu            sync.Mutex
	token         string
	queueID       string
	steamID       string
	lastMessageID int64
}

// NewSession creates a fresh session. An empty queueID gets a random
// one, matching a first-ever connection.
func NewSession(queueID string) *Session {
	if queueID == "" {
		queueID = utils.NewQueueID()
	}
	return &Session{queueID: queueID}
}

// RestoreSession rebuilds a session persisted by a previous run so the
// bridge can log back on without prompting for credentials.
func RestoreSession(token, queueID, steamID string, lastMessageID int64) *Session {
	s := NewSession(queueID)
	s.token = token
	s.steamID = steamID
	s.lastMessageID = lastMessageID
	return s
}

// Token returns the current OAuth access token, if any.
func (s *Session) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

// SetToken replaces the access token.
func (s *Session) SetToken(token string) {
	s.mu.Lock()
	s.token = token
	s.mu.Unlock()
}

// QueueID returns the session queue id (umqid).
func (s *Session) QueueID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queueID
}

// SteamID returns the local user's steamid, empty before first logon.
func (s *Session) SteamID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.steamID
}

// LastMessageID returns the poll cursor.
func (s *Session) LastMessageID() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastMessageID
}

// snapshot returns a consistent view for request builders.
func (s *Session) snapshot() (token, queueID, steamID string, lastMessageID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token, s.queueID, s.steamID, s.lastMessageID
}

// advanceCursor moves the poll cursor forward; it never regresses.
func (s *Session) advanceCursor(id int64) {
	s.mu.Lock()
	if id > s.lastMessageID {
		s.lastMessageID = id
	}
	s.mu.Unlock()
}

// adoptIdentity takes over the steamid and queue id the server reported
// when they differ from what is currently held.
func (s *Session) adoptIdentity(steamID, queueID string) {
	s.mu.Lock()
	if steamID != "" && steamID != s.steamID {
		s.steamID = steamID
	}
	if queueID != "" && queueID != s.queueID {
		s.queueID = queueID
	}
	s.mu.Unlock()
}
