package handlers

import (
	"sync"

	"github.com/google/uuid"

	"github.com/chrisfauries/task-tracker-sub001/board"
	"github.com/chrisfauries/task-tracker-sub001/ledger"
	"github.com/chrisfauries/task-tracker-sub001/locks"
	"github.com/chrisfauries/task-tracker-sub001/services"
	"github.com/chrisfauries/task-tracker-sub001/snapshot"
	"github.com/chrisfauries/task-tracker-sub001/store"
)

// Session is the per-user engine state: the undo/redo ledger, the locks the
// user holds, and the snapshot service watching their activity. The ledger
// is deliberately in-memory only; it dies with the session.
type Session struct {
	ID        string
	Email     string
	UserName  string
	Ledger    *ledger.Ledger
	Locks     *locks.Manager
	Snapshots *snapshot.Service
}

// SessionManager hands out one Session per signed-in user and tracks how
// many live socket connections each session has, so session-scoped cleanup
// (held locks) fires when the last one drops.
type SessionManager struct {
	store  *store.MemoryStore
	boards *board.BoardStore

	mu       sync.Mutex
	sessions map[string]*Session
	conns    map[string]int
}

func NewSessionManager(s *store.MemoryStore, boards *board.BoardStore) *SessionManager {
	return &SessionManager{
		store:    s,
		boards:   boards,
		sessions: make(map[string]*Session),
		conns:    make(map[string]int),
	}
}

// Get returns the user's session, creating and starting it on first use.
func (m *SessionManager) Get(email string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	if session, ok := m.sessions[email]; ok {
		return session
	}

	userName := services.DisplayName(email)
	sessionID := uuid.NewString()
	session := &Session{
		ID:        sessionID,
		Email:     email,
		UserName:  userName,
		Ledger:    ledger.New(m.boards),
		Locks:     locks.NewManager(m.store, sessionID, email, userName),
		Snapshots: snapshot.NewService(m.store, userName),
	}
	session.Ledger.SetActivityFunc(session.Snapshots.Activity)
	session.Snapshots.SessionStart()
	m.sessions[email] = session
	return session
}

// Attach counts one live socket connection against the user's session.
func (m *SessionManager) Attach(email string) {
	m.mu.Lock()
	m.conns[email]++
	m.mu.Unlock()
}

// Detach drops one connection. When the user's last connection is gone the
// session's disconnect hooks fire, releasing any locks still held. The
// session itself survives so a reconnect keeps its undo history.
func (m *SessionManager) Detach(email string) {
	m.mu.Lock()
	m.conns[email]--
	last := m.conns[email] <= 0
	if last {
		delete(m.conns, email)
	}
	session := m.sessions[email]
	m.mu.Unlock()

	if last && session != nil {
		m.store.FireDisconnect(session.ID)
	}
}

// End tears down the user's session: the logged-out snapshot is written
// synchronously, held locks are released, and the ledger is discarded.
func (m *SessionManager) End(email string) error {
	m.mu.Lock()
	session, ok := m.sessions[email]
	delete(m.sessions, email)
	m.mu.Unlock()

	if !ok {
		return nil
	}
	err := session.Snapshots.SessionEnd()
	m.store.FireDisconnect(session.ID)
	return err
}
