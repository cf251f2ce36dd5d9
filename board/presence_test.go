package board

import (
	"testing"
	"time"

	"github.com/chrisfauries/task-tracker-sub001/store"
)

func TestPresenceLifecycle(t *testing.T) {
	s, err := store.NewMemoryStore(nil)
	if err != nil {
		t.Fatalf("NewMemoryStore failed: %v", err)
	}
	tracker := NewPresenceTracker(s, "conn-1")

	if err := tracker.Register(Presence{UserID: "alice@example.com", UserName: "Alice"}); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	online, err := tracker.Online()
	if err != nil {
		t.Fatalf("Online failed: %v", err)
	}
	record, ok := online["conn-1"]
	if !ok {
		t.Fatal("Registered connection not listed")
	}
	if record.UserID != "alice@example.com" {
		t.Errorf("Record should carry the real user id, got %q", record.UserID)
	}
	if !record.Online || record.LastActive == 0 {
		t.Errorf("Unexpected presence record: %+v", record)
	}

	if err := tracker.Unregister(); err != nil {
		t.Fatalf("Unregister failed: %v", err)
	}
	online, _ = tracker.Online()
	if len(online) != 0 {
		t.Errorf("Expected empty presence after unregister, got %d", len(online))
	}
}

func TestEachConnectionHasItsOwnRecord(t *testing.T) {
	s, _ := store.NewMemoryStore(nil)

	// Same user, two tabs: two records, both naming the user.
	tab1 := NewPresenceTracker(s, "conn-1")
	tab2 := NewPresenceTracker(s, "conn-2")
	tab1.Register(Presence{UserID: "alice@example.com", UserName: "Alice"})
	tab2.Register(Presence{UserID: "alice@example.com", UserName: "Alice"})

	online, _ := tab1.Online()
	if len(online) != 2 {
		t.Fatalf("Expected 2 records, got %d", len(online))
	}

	// Closing one tab leaves the other online.
	s.FireDisconnect("conn-1")
	online, _ = tab2.Online()
	if len(online) != 1 {
		t.Fatalf("Expected 1 record after one disconnect, got %d", len(online))
	}
	if online["conn-2"].UserID != "alice@example.com" {
		t.Errorf("Surviving record lost the user id: %+v", online["conn-2"])
	}
}

func TestPresenceRemovedOnDisconnect(t *testing.T) {
	s, _ := store.NewMemoryStore(nil)
	tracker := NewPresenceTracker(s, "conn-1")
	tracker.Register(Presence{UserID: "alice@example.com", UserName: "Alice"})

	s.FireDisconnect("conn-1")

	online, _ := tracker.Online()
	if len(online) != 0 {
		t.Errorf("Presence should be gone after disconnect, got %d", len(online))
	}
}

func TestHeartbeatRefreshesLastActive(t *testing.T) {
	s, _ := store.NewMemoryStore(nil)
	tracker := NewPresenceTracker(s, "conn-1")
	tracker.Register(Presence{UserID: "alice@example.com", UserName: "Alice"})

	// Pin the clock forward and heartbeat.
	first, _ := tracker.Online()
	tracker.now = func() time.Time { return time.UnixMilli(first["conn-1"].LastActive + 5000) }

	if err := tracker.Heartbeat(); err != nil {
		t.Fatalf("Heartbeat failed: %v", err)
	}
	after, _ := tracker.Online()
	if after["conn-1"].LastActive <= first["conn-1"].LastActive {
		t.Errorf("Heartbeat did not advance lastActive: %d -> %d",
			first["conn-1"].LastActive, after["conn-1"].LastActive)
	}
}
