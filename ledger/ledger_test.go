package ledger

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/chrisfauries/task-tracker-sub001/board"
	"github.com/chrisfauries/task-tracker-sub001/store"
)

func newTestLedger(t *testing.T) (*Ledger, *board.BoardStore) {
	t.Helper()
	s, err := store.NewMemoryStore(nil)
	if err != nil {
		t.Fatalf("NewMemoryStore failed: %v", err)
	}
	boards := board.NewBoardStore(s)
	return New(boards), boards
}

func mustItem(t *testing.T, boards *board.BoardStore, groupID, itemID string) board.Item {
	t.Helper()
	item, ok, err := boards.Item(groupID, itemID)
	if err != nil {
		t.Fatalf("Item read failed: %v", err)
	}
	if !ok {
		t.Fatalf("Item %s missing from group %s", itemID, groupID)
	}
	return item
}

func TestRecordRejectsMalformedActions(t *testing.T) {
	l, _ := newTestLedger(t)

	cases := []struct {
		name string
		a    Action
	}{
		{"unknown kind", Action{Kind: "teleport", Move: &MoveAction{}}},
		{"no payload", Action{Kind: KindAdd}},
		{"mismatched payload", Action{Kind: KindMove, Add: &AddAction{}}},
		{"two payloads", Action{Kind: KindAdd, Add: &AddAction{}, Move: &MoveAction{}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := l.Record(tc.a); !errors.Is(err, ErrInvalidAction) {
				t.Errorf("Expected ErrInvalidAction, got %v", err)
			}
		})
	}
	if l.CanUndo() {
		t.Error("Rejected actions must not reach the history stack")
	}
}

func TestUndoRedoOnEmptyStacksIsANoOp(t *testing.T) {
	l, _ := newTestLedger(t)
	if err := l.Undo(); err != nil {
		t.Errorf("Undo on empty history should be a no-op, got %v", err)
	}
	if err := l.Redo(); err != nil {
		t.Errorf("Redo on empty future should be a no-op, got %v", err)
	}
}

func TestAddUndoRedo(t *testing.T) {
	l, boards := newTestLedger(t)
	g, _ := boards.AddGroup("Alice")
	item := board.Item{ID: "i1", Text: "hello", ColumnIndex: 0, Position: 1000}

	if err := l.AddItem(g.ID, item); err != nil {
		t.Fatalf("AddItem failed: %v", err)
	}
	mustItem(t, boards, g.ID, "i1")

	if err := l.Undo(); err != nil {
		t.Fatalf("Undo failed: %v", err)
	}
	if _, ok, _ := boards.Item(g.ID, "i1"); ok {
		t.Fatal("Undo of add should delete the item")
	}

	if err := l.Redo(); err != nil {
		t.Fatalf("Redo failed: %v", err)
	}
	got := mustItem(t, boards, g.ID, "i1")
	if got.Text != "hello" || got.Position != 1000 {
		t.Errorf("Redo did not restore the item: %+v", got)
	}
}

func TestDeleteUndoRecreatesCapturedState(t *testing.T) {
	l, boards := newTestLedger(t)
	g, _ := boards.AddGroup("Alice")
	boards.PlaceItem(g.ID, board.Item{ID: "i1", Text: "keep me", ColumnIndex: 2, ColorTag: board.ColorPink, Position: 1500})

	if err := l.DeleteItem(g.ID, "i1"); err != nil {
		t.Fatalf("DeleteItem failed: %v", err)
	}
	if _, ok, _ := boards.Item(g.ID, "i1"); ok {
		t.Fatal("Item still present after delete")
	}

	if err := l.Undo(); err != nil {
		t.Fatalf("Undo failed: %v", err)
	}
	got := mustItem(t, boards, g.ID, "i1")
	if got.Text != "keep me" || got.ColumnIndex != 2 || got.ColorTag != board.ColorPink || got.Position != 1500 {
		t.Errorf("Undo lost captured state: %+v", got)
	}

	if err := l.Redo(); err != nil {
		t.Fatalf("Redo failed: %v", err)
	}
	if _, ok, _ := boards.Item(g.ID, "i1"); ok {
		t.Error("Redo of delete should remove the item again")
	}
}

func TestEditTextUndoRedo(t *testing.T) {
	l, boards := newTestLedger(t)
	g, _ := boards.AddGroup("Alice")
	boards.PlaceItem(g.ID, board.Item{ID: "i1", Text: "before", Position: 1000})

	l.EditItemText(g.ID, "i1", "after")
	if got := mustItem(t, boards, g.ID, "i1"); got.Text != "after" {
		t.Fatalf("Edit not applied: %q", got.Text)
	}

	l.Undo()
	if got := mustItem(t, boards, g.ID, "i1"); got.Text != "before" {
		t.Errorf("Undo did not restore text: %q", got.Text)
	}

	l.Redo()
	if got := mustItem(t, boards, g.ID, "i1"); got.Text != "after" {
		t.Errorf("Redo did not reapply text: %q", got.Text)
	}
}

func TestEditColorUndoRedo(t *testing.T) {
	l, boards := newTestLedger(t)
	g, _ := boards.AddGroup("Alice")
	boards.PlaceItem(g.ID, board.Item{ID: "i1", Text: "x", ColorTag: board.ColorYellow, Position: 1000})

	l.EditItemColor(g.ID, "i1", board.ColorBlue)
	l.Undo()
	if got := mustItem(t, boards, g.ID, "i1"); got.ColorTag != board.ColorYellow {
		t.Errorf("Undo did not restore color: %q", got.ColorTag)
	}
	l.Redo()
	if got := mustItem(t, boards, g.ID, "i1"); got.ColorTag != board.ColorBlue {
		t.Errorf("Redo did not reapply color: %q", got.ColorTag)
	}
}

func TestMoveUndoRestoresPlacement(t *testing.T) {
	l, boards := newTestLedger(t)
	g1, _ := boards.AddGroup("Alice")
	g2, _ := boards.AddGroup("Bob")
	boards.PlaceItem(g1.ID, board.Item{ID: "x", Text: "card", ColumnIndex: 0, Position: 1000})

	if err := l.MoveItem(g1.ID, "x", g2.ID, 1, 2000); err != nil {
		t.Fatalf("MoveItem failed: %v", err)
	}
	if err := l.Undo(); err != nil {
		t.Fatalf("Undo failed: %v", err)
	}

	got := mustItem(t, boards, g1.ID, "x")
	if got.ColumnIndex != 0 || got.Position != 1000 {
		t.Errorf("Undo placement wrong: col=%d pos=%v", got.ColumnIndex, got.Position)
	}
	if _, ok, _ := boards.Item(g2.ID, "x"); ok {
		t.Error("Item still at move destination after undo")
	}
}

func TestMoveUndoPreservesConcurrentEdits(t *testing.T) {
	l, boards := newTestLedger(t)
	g1, _ := boards.AddGroup("Alice")
	g2, _ := boards.AddGroup("Bob")
	boards.PlaceItem(g1.ID, board.Item{ID: "x", Text: "card", ColumnIndex: 0, Position: 1000})

	l.MoveItem(g1.ID, "x", g2.ID, 1, 2000)

	// A third party recolors the card between the move and the undo. The
	// move's inverse only touches owner, column and position.
	boards.UpdateItemColor(g2.ID, "x", board.ColorGreen)

	if err := l.Undo(); err != nil {
		t.Fatalf("Undo failed: %v", err)
	}
	got := mustItem(t, boards, g1.ID, "x")
	if got.ColorTag != board.ColorGreen {
		t.Errorf("Concurrent color edit rolled back by undo: %q", got.ColorTag)
	}
	if got.ColumnIndex != 0 || got.Position != 1000 {
		t.Errorf("Undo placement wrong: col=%d pos=%v", got.ColumnIndex, got.Position)
	}
}

func TestSameGroupMoveUndoKeepsConcurrentText(t *testing.T) {
	l, boards := newTestLedger(t)
	g, _ := boards.AddGroup("Alice")
	boards.PlaceItem(g.ID, board.Item{ID: "x", Text: "old", ColumnIndex: 0, Position: 1000})

	l.MoveItem(g.ID, "x", g.ID, 1, 2000)
	boards.UpdateItemText(g.ID, "x", "edited meanwhile")

	if err := l.Undo(); err != nil {
		t.Fatalf("Undo failed: %v", err)
	}
	got := mustItem(t, boards, g.ID, "x")
	if got.Text != "edited meanwhile" {
		t.Errorf("In-place undo destroyed concurrent edit: %q", got.Text)
	}
	if got.ColumnIndex != 0 || got.Position != 1000 {
		t.Errorf("Undo placement wrong: col=%d pos=%v", got.ColumnIndex, got.Position)
	}
}

func TestForwardInverseForwardIsIdempotent(t *testing.T) {
	l, boards := newTestLedger(t)
	g1, _ := boards.AddGroup("Alice")
	g2, _ := boards.AddGroup("Bob")
	boards.PlaceItem(g1.ID, board.Item{ID: "x", Text: "card", ColorTag: board.ColorOrange, ColumnIndex: 0, Position: 1000})

	l.MoveItem(g1.ID, "x", g2.ID, 1, 2000)
	after := mustItem(t, boards, g2.ID, "x")

	if err := l.Undo(); err != nil {
		t.Fatalf("Undo failed: %v", err)
	}
	if err := l.Redo(); err != nil {
		t.Fatalf("Redo failed: %v", err)
	}

	again := mustItem(t, boards, g2.ID, "x")
	if again != after {
		t.Errorf("Forward-inverse-forward not idempotent:\n first %+v\n again %+v", after, again)
	}
	if _, ok, _ := boards.Item(g1.ID, "x"); ok {
		t.Error("Item duplicated at source after redo")
	}
}

func TestRecordClearsFuture(t *testing.T) {
	l, boards := newTestLedger(t)
	g, _ := boards.AddGroup("Alice")
	boards.PlaceItem(g.ID, board.Item{ID: "i1", Text: "one", Position: 1000})

	l.EditItemText(g.ID, "i1", "two")
	l.Undo()
	if !l.CanRedo() {
		t.Fatal("Expected redo to be available after undo")
	}

	// A new action between undo and redo branches history; the redo path
	// is discarded.
	l.EditItemText(g.ID, "i1", "three")
	if l.CanRedo() {
		t.Fatal("Record must clear the future stack")
	}

	if err := l.Redo(); err != nil {
		t.Fatalf("Redo failed: %v", err)
	}
	if got := mustItem(t, boards, g.ID, "i1"); got.Text != "three" {
		t.Errorf("No-op redo changed state: %q", got.Text)
	}
}

func TestRedoAfterUndoRestoresExactState(t *testing.T) {
	l, boards := newTestLedger(t)
	g, _ := boards.AddGroup("Alice")
	boards.PlaceItem(g.ID, board.Item{ID: "i1", Text: "one", Position: 1000})

	l.EditItemText(g.ID, "i1", "two")
	before := mustItem(t, boards, g.ID, "i1")

	l.Undo()
	l.Redo()

	if got := mustItem(t, boards, g.ID, "i1"); got != before {
		t.Errorf("Redo state mismatch:\n before %+v\n after  %+v", before, got)
	}
}

func TestActivitySignalFiresOnRecordOnly(t *testing.T) {
	l, boards := newTestLedger(t)
	g, _ := boards.AddGroup("Alice")

	activity := 0
	l.SetActivityFunc(func() { activity++ })

	l.AddItem(g.ID, board.Item{ID: "i1", Text: "x", Position: 1000})
	l.EditItemText(g.ID, "i1", "y")
	if activity != 2 {
		t.Fatalf("Expected 2 activity signals, got %d", activity)
	}

	// Undo and redo replay history; they are not new activity.
	l.Undo()
	l.Redo()
	if activity != 2 {
		t.Errorf("Undo/redo must not fire the activity signal, got %d", activity)
	}
}

func TestConcurrentMutationsAllReachHistory(t *testing.T) {
	l, boards := newTestLedger(t)
	g, _ := boards.AddGroup("Alice")

	// The ledger is shared by every in-flight request of its user; parallel
	// mutations must serialize instead of corrupting the stacks.
	const n = 16
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(k int) {
			defer wg.Done()
			id := fmt.Sprintf("i%d", k)
			if err := l.AddItem(g.ID, board.Item{ID: id, Text: id, Position: float64(1000 * (k + 1))}); err != nil {
				t.Errorf("AddItem(%s) failed: %v", id, err)
			}
			if err := l.EditItemText(g.ID, id, id+"-edited"); err != nil {
				t.Errorf("EditItemText(%s) failed: %v", id, err)
			}
		}(i)
	}
	wg.Wait()

	for i := 0; i < n; i++ {
		id := fmt.Sprintf("i%d", i)
		if got := mustItem(t, boards, g.ID, id); got.Text != id+"-edited" {
			t.Errorf("Item %s text = %q", id, got.Text)
		}
	}

	// Every mutation landed on the stack, so 2n undos empty the board.
	for i := 0; i < 2*n; i++ {
		if !l.CanUndo() {
			t.Fatalf("History exhausted after %d undos, want %d", i, 2*n)
		}
		if err := l.Undo(); err != nil {
			t.Fatalf("Undo %d failed: %v", i, err)
		}
	}
	if l.CanUndo() {
		t.Error("History should be empty after undoing every mutation")
	}
	for i := 0; i < n; i++ {
		if _, ok, _ := boards.Item(g.ID, fmt.Sprintf("i%d", i)); ok {
			t.Errorf("Item i%d survived a full undo", i)
		}
	}
}

func TestClearDropsBothStacks(t *testing.T) {
	l, boards := newTestLedger(t)
	g, _ := boards.AddGroup("Alice")
	l.AddItem(g.ID, board.Item{ID: "i1", Text: "x", Position: 1000})
	l.Undo()

	l.Clear()
	if l.CanUndo() || l.CanRedo() {
		t.Error("Clear must empty both stacks")
	}
}
