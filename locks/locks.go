// Package locks implements advisory, TTL-bounded per-item locking. Locks
// are best effort: acquisition is an unconditional write with no
// compare-and-swap, because contention is human-timescale and the race
// window between check and write is tolerable. No lock is permanent — the
// store's disconnect hook cleans up on connection loss, and the TTL window
// is the fallback when even that fails.
package locks

import (
	"sync"
	"time"

	"github.com/chrisfauries/task-tracker-sub001/store"
)

// DefaultTTL is the validity window of an unrenewed lock.
const DefaultTTL = 120 * time.Second

// LocksPath is the top-level subtree of lock records.
const LocksPath = "locks"

// Lock is the record written at locks/{itemId}. Absence means unlocked.
type Lock struct {
	ItemID     string `json:"itemId"`
	HolderID   string `json:"holderId"`
	HolderName string `json:"holderName"`
	AcquiredAt int64  `json:"acquiredAt"` // unix milliseconds
}

// Manager holds locks on behalf of one client session. It is shared by
// every request the session's user has in flight, so the hook bookkeeping
// is mutex-guarded.
type Manager struct {
	store      store.Store
	clientID   string
	holderID   string
	holderName string
	ttl        time.Duration
	now        func() time.Time

	mu      sync.Mutex
	cancels map[string]func()
}

// NewManager binds a lock manager to one client connection and holder
// identity.
func NewManager(s store.Store, clientID, holderID, holderName string) *Manager {
	return &Manager{
		store:      s,
		clientID:   clientID,
		holderID:   holderID,
		holderName: holderName,
		ttl:        DefaultTTL,
		now:        time.Now,
		cancels:    make(map[string]func()),
	}
}

func lockPath(itemID string) string {
	return LocksPath + "/" + itemID
}

// Acquire writes a fresh lock record for the item and schedules its removal
// should this client disconnect before releasing.
func (m *Manager) Acquire(itemID string) error {
	lock := Lock{
		ItemID:     itemID,
		HolderID:   m.holderID,
		HolderName: m.holderName,
		AcquiredAt: m.now().UnixMilli(),
	}
	if err := m.store.Set(lockPath(itemID), lock); err != nil {
		return err
	}
	m.mu.Lock()
	if cancel, ok := m.cancels[itemID]; ok {
		cancel()
	}
	m.cancels[itemID] = m.store.OnDisconnect(m.clientID, lockPath(itemID))
	m.mu.Unlock()
	return nil
}

// IsHeldByOther reports whether someone else currently holds the item, and
// by what display name. A lock whose window has expired counts as absent
// regardless of what the store still says.
func (m *Manager) IsHeldByOther(itemID string) (bool, string, error) {
	v, err := m.store.Get(lockPath(itemID))
	if err != nil {
		return false, "", err
	}
	if v == nil {
		return false, "", nil
	}
	var lock Lock
	if err := store.Decode(v, &lock); err != nil {
		return false, "", err
	}
	if m.now().Sub(time.UnixMilli(lock.AcquiredAt)) >= m.ttl {
		return false, "", nil
	}
	if lock.HolderID == m.holderID {
		return false, "", nil
	}
	return true, lock.HolderName, nil
}

// Renew refreshes only the lock's timestamp.
func (m *Manager) Renew(itemID string) error {
	return m.store.Update(lockPath(itemID), map[string]any{
		"acquiredAt": m.now().UnixMilli(),
	})
}

// StartRenewal renews the lock at half the TTL until the returned stop
// func is called. Used while an item stays held for interactive editing or
// dragging.
func (m *Manager) StartRenewal(itemID string) (stop func()) {
	ticker := time.NewTicker(m.ttl / 2)
	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-ticker.C:
				// A failed renew is not fatal; the TTL is the backstop.
				m.Renew(itemID)
			case <-done:
				return
			}
		}
	}()
	return func() {
		ticker.Stop()
		close(done)
	}
}

// Release removes the lock record and cancels the pending disconnect
// removal.
func (m *Manager) Release(itemID string) error {
	m.mu.Lock()
	if cancel, ok := m.cancels[itemID]; ok {
		cancel()
		delete(m.cancels, itemID)
	}
	m.mu.Unlock()
	return m.store.Remove(lockPath(itemID))
}

// Holder reads the raw lock record, if any, ignoring expiry. Used by the
// edge to surface who is editing.
func (m *Manager) Holder(itemID string) (Lock, bool, error) {
	v, err := m.store.Get(lockPath(itemID))
	if err != nil || v == nil {
		return Lock{}, false, err
	}
	var lock Lock
	if err := store.Decode(v, &lock); err != nil {
		return Lock{}, false, err
	}
	return lock, true, nil
}
