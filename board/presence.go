package board

import (
	"time"

	"github.com/chrisfauries/task-tracker-sub001/store"
)

// PresencePath is the top-level subtree of connected users.
const PresencePath = "presence"

// PresenceTracker maintains one presence record per connection, keyed by
// the connection id so a user with several tabs appears once per tab, and
// arms the store's disconnect hook so the record disappears when the
// connection drops. The record itself carries the user's real identity.
type PresenceTracker struct {
	store    store.Store
	clientID string
	now      func() time.Time
	cancel   func()
}

// NewPresenceTracker binds a tracker to one client connection.
func NewPresenceTracker(s store.Store, clientID string) *PresenceTracker {
	return &PresenceTracker{store: s, clientID: clientID, now: time.Now}
}

func (p *PresenceTracker) path() string {
	return PresencePath + "/" + p.clientID
}

// Register writes this connection's presence record and schedules its
// removal on disconnect.
func (p *PresenceTracker) Register(user Presence) error {
	user.LastActive = p.now().UnixMilli()
	user.Online = true
	if err := p.store.Set(p.path(), user); err != nil {
		return err
	}
	p.cancel = p.store.OnDisconnect(p.clientID, p.path())
	return nil
}

// Heartbeat refreshes lastActive without touching the rest of the record.
func (p *PresenceTracker) Heartbeat() error {
	return p.store.Update(p.path(), map[string]any{
		"lastActive": p.now().UnixMilli(),
	})
}

// Unregister removes the record and cancels the pending disconnect removal.
func (p *PresenceTracker) Unregister() error {
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
	return p.store.Remove(p.path())
}

// Online reads every live presence record, keyed by connection id.
func (p *PresenceTracker) Online() (map[string]Presence, error) {
	v, err := p.store.Get(PresencePath)
	if err != nil {
		return nil, err
	}
	users := make(map[string]Presence)
	if v == nil {
		return users, nil
	}
	if err := store.Decode(v, &users); err != nil {
		return nil, err
	}
	return users, nil
}
