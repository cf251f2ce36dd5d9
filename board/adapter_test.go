package board

import (
	"testing"

	"github.com/chrisfauries/task-tracker-sub001/store"
)

func newTestBoard(t *testing.T) (*BoardStore, *store.MemoryStore) {
	t.Helper()
	s, err := store.NewMemoryStore(nil)
	if err != nil {
		t.Fatalf("NewMemoryStore failed: %v", err)
	}
	return NewBoardStore(s), s
}

func seedItem(t *testing.T, b *BoardStore, groupID, itemID string, column int, position float64) Item {
	t.Helper()
	item := Item{ID: itemID, Text: "item " + itemID, ColumnIndex: column, Position: position}
	if err := b.PlaceItem(groupID, item); err != nil {
		t.Fatalf("PlaceItem failed: %v", err)
	}
	return item
}

func TestAddGroupRoundTrip(t *testing.T) {
	b, _ := newTestBoard(t)

	g, err := b.AddGroup("Alice")
	if err != nil {
		t.Fatalf("AddGroup failed: %v", err)
	}

	got, ok, err := b.Group(g.ID)
	if err != nil || !ok {
		t.Fatalf("Group not readable back: ok=%v err=%v", ok, err)
	}
	if got.Name != "Alice" {
		t.Errorf("Expected name Alice, got %q", got.Name)
	}
}

func TestRemoveGroupCascadesToItems(t *testing.T) {
	b, _ := newTestBoard(t)
	g, _ := b.AddGroup("Alice")
	seedItem(t, b, g.ID, "i1", 0, 1000)
	seedItem(t, b, g.ID, "i2", 1, 1000)

	if err := b.RemoveGroup(g.ID); err != nil {
		t.Fatalf("RemoveGroup failed: %v", err)
	}

	if _, ok, _ := b.Item(g.ID, "i1"); ok {
		t.Error("Item i1 survived group delete")
	}
	if _, ok, _ := b.Group(g.ID); ok {
		t.Error("Group survived delete")
	}
}

func TestColumnItemsSortedByPositionThenID(t *testing.T) {
	b, _ := newTestBoard(t)
	g, _ := b.AddGroup("Alice")
	seedItem(t, b, g.ID, "b", 0, 2000)
	seedItem(t, b, g.ID, "a", 0, 1000)
	seedItem(t, b, g.ID, "d", 0, 2000) // position tie with b
	seedItem(t, b, g.ID, "c", 1, 500)  // different column

	items, err := b.ColumnItems(g.ID, 0)
	if err != nil {
		t.Fatalf("ColumnItems failed: %v", err)
	}
	ids := make([]string, len(items))
	for i, it := range items {
		ids[i] = it.ID
	}
	want := []string{"a", "b", "d"}
	if len(ids) != len(want) {
		t.Fatalf("Expected %v, got %v", want, ids)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("Expected %v, got %v", want, ids)
		}
	}
}

func TestInsertedBeforeFirstSortsFirst(t *testing.T) {
	b, _ := newTestBoard(t)
	g, _ := b.AddGroup("Alice")
	seedItem(t, b, g.ID, "i1", 0, 1000)
	seedItem(t, b, g.ID, "i2", 0, 2000)
	seedItem(t, b, g.ID, "i3", 0, 3000)

	positions, _ := b.ColumnPositions(g.ID, 0)
	pos, err := PlacePosition(positions, Intent{Kind: IntentBefore, Index: 0})
	if err != nil {
		t.Fatalf("PlacePosition failed: %v", err)
	}
	if pos != 500 {
		t.Fatalf("Expected 500, got %v", pos)
	}
	seedItem(t, b, g.ID, "new", 0, pos)

	items, _ := b.ColumnItems(g.ID, 0)
	if items[0].ID != "new" {
		t.Errorf("Expected new item to sort first, order head is %s", items[0].ID)
	}
}

func TestCrossGroupMoveCarriesConcurrentEdits(t *testing.T) {
	b, _ := newTestBoard(t)
	g1, _ := b.AddGroup("Alice")
	g2, _ := b.AddGroup("Bob")
	seedItem(t, b, g1.ID, "i1", 0, 1000)

	// Another user edits the color just before the move is applied; the
	// move must carry the fresh record, not a stale one.
	if err := b.UpdateItemColor(g1.ID, "i1", ColorGreen); err != nil {
		t.Fatalf("UpdateItemColor failed: %v", err)
	}
	if err := b.MoveItem(g1.ID, "i1", g2.ID, 1, 2000); err != nil {
		t.Fatalf("MoveItem failed: %v", err)
	}

	if _, ok, _ := b.Item(g1.ID, "i1"); ok {
		t.Error("Item still present at source after cross-group move")
	}
	moved, ok, _ := b.Item(g2.ID, "i1")
	if !ok {
		t.Fatal("Item missing at destination")
	}
	if moved.ColorTag != ColorGreen {
		t.Errorf("Concurrent color edit lost in move: %q", moved.ColorTag)
	}
	if moved.ColumnIndex != 1 || moved.Position != 2000 {
		t.Errorf("Unexpected placement: col=%d pos=%v", moved.ColumnIndex, moved.Position)
	}
}

func TestSameGroupMoveIsInPlace(t *testing.T) {
	b, _ := newTestBoard(t)
	g, _ := b.AddGroup("Alice")
	seedItem(t, b, g.ID, "i1", 0, 1000)

	if err := b.MoveItem(g.ID, "i1", g.ID, 2, 3000); err != nil {
		t.Fatalf("MoveItem failed: %v", err)
	}

	moved, ok, _ := b.Item(g.ID, "i1")
	if !ok {
		t.Fatal("Item vanished on same-group move")
	}
	if moved.Text != "item i1" {
		t.Errorf("In-place move clobbered text: %q", moved.Text)
	}
	if moved.ColumnIndex != 2 || moved.Position != 3000 {
		t.Errorf("Unexpected placement: col=%d pos=%v", moved.ColumnIndex, moved.Position)
	}
}

func TestMoveOfMissingItemFails(t *testing.T) {
	b, _ := newTestBoard(t)
	g1, _ := b.AddGroup("Alice")
	g2, _ := b.AddGroup("Bob")

	if err := b.MoveItem(g1.ID, "ghost", g2.ID, 0, 1000); err == nil {
		t.Error("Expected move of missing item to fail")
	}
}

func TestInsertCategoryItemsAppendsInOrder(t *testing.T) {
	b, _ := newTestBoard(t)
	g, _ := b.AddGroup("Alice")
	seedItem(t, b, g.ID, "existing", 0, 1000)
	c, err := b.AddCategory("Morning routine", []string{"standup", "email", "review"}, ColorBlue)
	if err != nil {
		t.Fatalf("AddCategory failed: %v", err)
	}

	created, err := b.InsertCategoryItems(g.ID, 0, c.ID)
	if err != nil {
		t.Fatalf("InsertCategoryItems failed: %v", err)
	}
	if len(created) != 3 {
		t.Fatalf("Expected 3 items, got %d", len(created))
	}

	items, _ := b.ColumnItems(g.ID, 0)
	if len(items) != 4 {
		t.Fatalf("Expected 4 items in column, got %d", len(items))
	}
	wantTexts := []string{"item existing", "standup", "email", "review"}
	for i, it := range items {
		if it.Text != wantTexts[i] {
			t.Errorf("Position %d: expected %q, got %q", i, wantTexts[i], it.Text)
		}
	}
	for _, it := range created {
		if it.ColorTag != ColorBlue {
			t.Errorf("Template color not applied to %s", it.ID)
		}
	}
}

func TestInsertFromMissingCategoryFails(t *testing.T) {
	b, _ := newTestBoard(t)
	g, _ := b.AddGroup("Alice")

	if _, err := b.InsertCategoryItems(g.ID, 0, "ghost"); err == nil {
		t.Error("Expected missing category to be rejected")
	}
}

func TestSubscribeGroupsStreamsChanges(t *testing.T) {
	b, _ := newTestBoard(t)

	var last map[string]Group
	cancel := b.SubscribeGroups(func(groups map[string]Group) { last = groups })
	defer cancel()

	g, _ := b.AddGroup("Alice")
	if _, ok := last[g.ID]; !ok {
		t.Error("Subscription did not observe the new group")
	}
}
