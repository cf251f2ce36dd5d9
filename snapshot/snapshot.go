// Package snapshot produces point-in-time copies of the full board and
// category state for recovery and audit. Snapshots are independent of the
// undo ledger: the ledger is per session and never persisted, a snapshot is
// durable and immutable once written.
package snapshot

import (
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/chrisfauries/task-tracker-sub001/board"
	"github.com/chrisfauries/task-tracker-sub001/store"
)

// SnapshotsPath is the top-level subtree of the append-only snapshot log.
const SnapshotsPath = "snapshots"

// MaxListed caps how many snapshots List returns.
const MaxListed = 50

// DefaultIdle is the inactivity window after which a snapshot is written.
const DefaultIdle = 5 * time.Minute

// Titles of the automatically written snapshots.
const (
	TitleInactivity = "inactivity"
	TitleLoggedIn   = "logged in"
	TitleLoggedOut  = "logged out"
)

// Service writes snapshots for one user session. It watches board and
// category state for the session-start trigger, and debounces a ledger
// activity signal for the inactivity trigger.
type Service struct {
	store    store.Store
	userName string
	idle     time.Duration
	now      func() time.Time

	mu            sync.Mutex
	timer         *time.Timer
	boardReady    bool
	categoryReady bool
	loginWritten  bool
	cancels       []func()
	ended         bool
}

// NewService binds a snapshot service to one session's user.
func NewService(s store.Store, userName string) *Service {
	return &Service{
		store:    s,
		userName: userName,
		idle:     DefaultIdle,
		now:      time.Now,
	}
}

// Activity resets the inactivity timer. The ledger calls this on every
// recorded action; when no further activity arrives for the idle window, a
// snapshot labeled with the acting user is written.
func (s *Service) Activity() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ended {
		return
	}
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(s.idle, func() {
		if _, err := s.Take(TitleInactivity); err != nil {
			log.Printf("Inactivity snapshot failed: %v", err)
		}
	})
}

// SessionStart arms the logged-in trigger: once board and category state
// have each produced a non-empty value for the first time in this session,
// one "logged in" snapshot is written.
func (s *Service) SessionStart() {
	s.cancels = append(s.cancels,
		s.store.Subscribe(board.GroupsPath, func(v any) {
			s.markLoaded(v, &s.boardReady)
		}),
		s.store.Subscribe(board.CategoriesPath, func(v any) {
			s.markLoaded(v, &s.categoryReady)
		}),
	)
}

func (s *Service) markLoaded(v any, flag *bool) {
	m, ok := v.(map[string]any)
	if !ok || len(m) == 0 {
		return
	}

	s.mu.Lock()
	*flag = true
	shouldWrite := s.boardReady && s.categoryReady && !s.loginWritten && !s.ended
	if shouldWrite {
		s.loginWritten = true
	}
	s.mu.Unlock()

	if shouldWrite {
		if _, err := s.Take(TitleLoggedIn); err != nil {
			log.Printf("Login snapshot failed: %v", err)
		}
	}
}

// SessionEnd writes the "logged out" snapshot synchronously and tears the
// service down. Nothing fires after it returns.
func (s *Service) SessionEnd() error {
	s.mu.Lock()
	if s.ended {
		s.mu.Unlock()
		return nil
	}
	s.ended = true
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	cancels := s.cancels
	s.cancels = nil
	s.mu.Unlock()

	for _, cancel := range cancels {
		cancel()
	}
	_, err := s.Take(TitleLoggedOut)
	return err
}

// Take writes one snapshot of the current board and category state.
func (s *Service) Take(title string) (board.Snapshot, error) {
	boardState, err := s.store.Get(board.GroupsPath)
	if err != nil {
		return board.Snapshot{}, fmt.Errorf("failed to read board state: %w", err)
	}
	categoryState, err := s.store.Get(board.CategoriesPath)
	if err != nil {
		return board.Snapshot{}, fmt.Errorf("failed to read category state: %w", err)
	}

	snap := board.Snapshot{
		Title:         title,
		CreatedAt:     s.now().UnixMilli(),
		CreatedBy:     s.userName,
		BoardState:    boardState,
		CategoryState: categoryState,
	}
	id, err := s.store.Push(SnapshotsPath, snap)
	if err != nil {
		return board.Snapshot{}, fmt.Errorf("failed to write snapshot: %w", err)
	}
	snap.ID = id
	if err := s.store.Update(SnapshotsPath+"/"+id, map[string]any{"id": id}); err != nil {
		return board.Snapshot{}, err
	}
	return snap, nil
}

// List returns at most MaxListed snapshots, newest first.
func (s *Service) List() ([]board.Snapshot, error) {
	v, err := s.store.Get(SnapshotsPath)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]board.Snapshot)
	if v != nil {
		if err := store.Decode(v, &byID); err != nil {
			return nil, fmt.Errorf("failed to decode snapshots: %w", err)
		}
	}

	snaps := make([]board.Snapshot, 0, len(byID))
	for id, snap := range byID {
		snap.ID = id
		snaps = append(snaps, snap)
	}
	sort.Slice(snaps, func(i, j int) bool {
		if snaps[i].CreatedAt != snaps[j].CreatedAt {
			return snaps[i].CreatedAt > snaps[j].CreatedAt
		}
		return snaps[i].ID > snaps[j].ID
	})
	if len(snaps) > MaxListed {
		snaps = snaps[:MaxListed]
	}
	return snaps, nil
}

// Get reads one snapshot by id.
func (s *Service) Get(id string) (board.Snapshot, bool, error) {
	v, err := s.store.Get(SnapshotsPath + "/" + id)
	if err != nil || v == nil {
		return board.Snapshot{}, false, err
	}
	var snap board.Snapshot
	if err := store.Decode(v, &snap); err != nil {
		return board.Snapshot{}, false, err
	}
	snap.ID = id
	return snap, true, nil
}

// Restore overwrites the current board and category state with the
// snapshot's copies. It does not merge, and it is not an invertible ledger
// action: callers clear their ledger afterwards.
func (s *Service) Restore(id string) error {
	snap, ok, err := s.Get(id)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("snapshot %s not found", id)
	}
	if err := s.setOrClear(board.GroupsPath, snap.BoardState); err != nil {
		return fmt.Errorf("failed to restore board state: %w", err)
	}
	if err := s.setOrClear(board.CategoriesPath, snap.CategoryState); err != nil {
		return fmt.Errorf("failed to restore category state: %w", err)
	}
	return nil
}

// Delete removes one snapshot from the log.
func (s *Service) Delete(id string) error {
	return s.store.Remove(SnapshotsPath + "/" + id)
}

func (s *Service) setOrClear(path string, value any) error {
	if value == nil {
		return s.store.Remove(path)
	}
	return s.store.Set(path, value)
}
