package handlers

import (
	"net/http"
	"testing"

	"github.com/chrisfauries/task-tracker-sub001/board"
)

func TestLastConnectionCloseReleasesHeldLocks(t *testing.T) {
	ts := newTestServer(t)
	g, _ := ts.boards.AddGroup("Shared")
	ts.boards.PlaceItem(g.ID, board.Item{ID: "i1", Text: "contested", Position: 1000})

	// Alice opens two tabs and takes a lock.
	ts.sessions.Attach("alice@example.com")
	ts.sessions.Attach("alice@example.com")
	w := ts.do(t, "alice@example.com", "POST", "/api/locks/i1/acquire", nil)
	assertStatus(t, w, http.StatusOK)

	bob := ts.sessions.Get("bob@example.com")

	// Closing one tab keeps the lock.
	ts.sessions.Detach("alice@example.com")
	held, _, err := bob.Locks.IsHeldByOther("i1")
	if err != nil {
		t.Fatalf("IsHeldByOther failed: %v", err)
	}
	if !held {
		t.Fatal("Lock released while a connection was still open")
	}

	// Closing the last tab releases every lock the session held.
	ts.sessions.Detach("alice@example.com")
	held, _, _ = bob.Locks.IsHeldByOther("i1")
	if held {
		t.Error("Lock survived the user's last connection closing")
	}
}

func TestUndoHistorySurvivesReconnect(t *testing.T) {
	ts := newTestServer(t)
	g, _ := ts.boards.AddGroup("Alice")
	ts.boards.PlaceItem(g.ID, board.Item{ID: "i1", Text: "original", Position: 1000})

	ts.sessions.Attach("alice@example.com")
	ts.do(t, "alice@example.com", "PATCH", "/api/board/groups/"+g.ID+"/items/i1/text",
		map[string]string{"text": "changed"})
	ts.sessions.Detach("alice@example.com")

	// The connection is gone but the session is not; a reconnect finds the
	// same ledger and can still undo.
	ts.sessions.Attach("alice@example.com")
	w := ts.do(t, "alice@example.com", "POST", "/api/board/undo", nil)
	assertStatus(t, w, http.StatusOK)
	item, _, _ := ts.boards.Item(g.ID, "i1")
	if item.Text != "original" {
		t.Errorf("Undo after reconnect failed: %q", item.Text)
	}
}

func TestLockReacquiredAfterReconnectReleasesOnDisconnect(t *testing.T) {
	ts := newTestServer(t)
	g, _ := ts.boards.AddGroup("Shared")
	ts.boards.PlaceItem(g.ID, board.Item{ID: "i1", Text: "card", Position: 1000})
	bob := ts.sessions.Get("bob@example.com")

	// First visit: acquire, then close the tab.
	ts.sessions.Attach("alice@example.com")
	ts.do(t, "alice@example.com", "POST", "/api/locks/i1/acquire", nil)
	ts.sessions.Detach("alice@example.com")

	// Second visit: re-acquire on the same session; the fresh hook must
	// fire when this connection drops too.
	ts.sessions.Attach("alice@example.com")
	ts.do(t, "alice@example.com", "POST", "/api/locks/i1/acquire", nil)
	ts.sessions.Detach("alice@example.com")

	held, _, _ := bob.Locks.IsHeldByOther("i1")
	if held {
		t.Error("Re-acquired lock survived the second disconnect")
	}
}
