package ledger

import (
	"fmt"
	"sync"

	"github.com/chrisfauries/task-tracker-sub001/board"
)

// Ledger is the per-session undo/redo state machine: a history stack of
// applied actions and a future stack of undone ones. Recording a new action
// is the only path that clears future — redo is only valid immediately
// after an undo with no intervening new action. One ledger is shared by all
// of a user's in-flight requests, so every operation serializes on the
// mutex; each gestured mutation holds it across apply and record so the
// stacks always match the order the store saw.
type Ledger struct {
	boards     *board.BoardStore
	onActivity func()

	mu      sync.Mutex
	history []Action
	future  []Action
}

// New returns an empty ledger applying inverses through the given adapter.
func New(boards *board.BoardStore) *Ledger {
	return &Ledger{boards: boards}
}

// SetActivityFunc registers a callback fired on every Record. The snapshot
// service uses it to reset its inactivity timer.
func (l *Ledger) SetActivityFunc(fn func()) {
	l.onActivity = fn
}

// Record validates and logs an already-applied action, clearing any redo
// state. It does not re-apply the action's forward effect.
func (l *Ledger) Record(a Action) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.record(a)
}

// record is Record without the lock, for callers already holding it.
func (l *Ledger) record(a Action) error {
	if err := a.Validate(); err != nil {
		return err
	}
	l.history = append(l.history, a)
	l.future = l.future[:0]
	if l.onActivity != nil {
		l.onActivity()
	}
	return nil
}

// CanUndo reports whether history is non-empty.
func (l *Ledger) CanUndo() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.history) > 0
}

// CanRedo reports whether future is non-empty.
func (l *Ledger) CanRedo() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.future) > 0
}

// Clear drops both stacks. Called after destructive operations such as a
// snapshot restore, whose pre-state the stacks no longer describe.
func (l *Ledger) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.history = l.history[:0]
	l.future = l.future[:0]
}

// Undo pops the most recent action, applies its inverse, and parks it on
// the future stack. With empty history it is a no-op.
func (l *Ledger) Undo() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.history) == 0 {
		return nil
	}
	a := l.history[len(l.history)-1]
	if err := l.applyInverse(a); err != nil {
		return err
	}
	l.history = l.history[:len(l.history)-1]
	l.future = append(l.future, a)
	return nil
}

// Redo pops the most recently undone action, re-applies its original
// effect, and returns it to the history stack. With empty future it is a
// no-op.
func (l *Ledger) Redo() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.future) == 0 {
		return nil
	}
	a := l.future[len(l.future)-1]
	if err := l.applyForward(a); err != nil {
		return err
	}
	l.future = l.future[:len(l.future)-1]
	l.history = append(l.history, a)
	return nil
}

func (l *Ledger) applyForward(a Action) error {
	switch a.Kind {
	case KindMove:
		m := a.Move
		return l.boards.MoveItem(m.FromGroup, m.ItemID, m.ToGroup, m.ToColumn, m.ToPosition)
	case KindAdd:
		return l.boards.PlaceItem(a.Add.GroupID, a.Add.Item)
	case KindDelete:
		return l.boards.RemoveItem(a.Delete.GroupID, a.Delete.Item.ID)
	case KindEditText:
		return l.boards.UpdateItemText(a.EditText.GroupID, a.EditText.ItemID, a.EditText.NewText)
	case KindEditColor:
		return l.boards.UpdateItemColor(a.EditColor.GroupID, a.EditColor.ItemID, a.EditColor.NewColor)
	default:
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidAction, a.Kind)
	}
}

func (l *Ledger) applyInverse(a Action) error {
	switch a.Kind {
	case KindMove:
		// The adapter fetches the item's current value before any delete,
		// so concurrent field edits by other users survive the undo. Only
		// owner, column and position are rolled back.
		m := a.Move
		return l.boards.MoveItem(m.ToGroup, m.ItemID, m.FromGroup, m.FromColumn, m.FromPosition)
	case KindAdd:
		return l.boards.RemoveItem(a.Add.GroupID, a.Add.Item.ID)
	case KindDelete:
		return l.boards.PlaceItem(a.Delete.GroupID, a.Delete.Item)
	case KindEditText:
		return l.boards.UpdateItemText(a.EditText.GroupID, a.EditText.ItemID, a.EditText.PrevText)
	case KindEditColor:
		return l.boards.UpdateItemColor(a.EditColor.GroupID, a.EditColor.ItemID, a.EditColor.PrevColor)
	default:
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidAction, a.Kind)
	}
}

// The methods below are the gestured mutation surface: each applies the
// forward effect through the adapter and records the invertible action.
// Every user-visible board mutation flows through one of them.

// AddItem places a new item and records it.
func (l *Ledger) AddItem(groupID string, item board.Item) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.boards.PlaceItem(groupID, item); err != nil {
		return err
	}
	return l.record(Action{Kind: KindAdd, Add: &AddAction{GroupID: groupID, Item: item}})
}

// DeleteItem captures the item's current state, deletes it, and records the
// deletion so undo can recreate it.
func (l *Ledger) DeleteItem(groupID, itemID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	item, ok, err := l.boards.Item(groupID, itemID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("item %s not found in group %s", itemID, groupID)
	}
	if err := l.boards.RemoveItem(groupID, itemID); err != nil {
		return err
	}
	return l.record(Action{Kind: KindDelete, Delete: &DeleteAction{GroupID: groupID, Item: item}})
}

// MoveItem relocates an item and records both endpoints.
func (l *Ledger) MoveItem(fromGroup, itemID, toGroup string, toColumn int, toPosition float64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	item, ok, err := l.boards.Item(fromGroup, itemID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("item %s not found in group %s", itemID, fromGroup)
	}
	if err := l.boards.MoveItem(fromGroup, itemID, toGroup, toColumn, toPosition); err != nil {
		return err
	}
	return l.record(Action{Kind: KindMove, Move: &MoveAction{
		ItemID:       itemID,
		FromGroup:    fromGroup,
		FromColumn:   item.ColumnIndex,
		FromPosition: item.Position,
		ToGroup:      toGroup,
		ToColumn:     toColumn,
		ToPosition:   toPosition,
	}})
}

// EditItemText updates an item's text and records both values.
func (l *Ledger) EditItemText(groupID, itemID, newText string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	item, ok, err := l.boards.Item(groupID, itemID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("item %s not found in group %s", itemID, groupID)
	}
	if err := l.boards.UpdateItemText(groupID, itemID, newText); err != nil {
		return err
	}
	return l.record(Action{Kind: KindEditText, EditText: &EditTextAction{
		GroupID:  groupID,
		ItemID:   itemID,
		PrevText: item.Text,
		NewText:  newText,
	}})
}

// EditItemColor updates an item's color tag and records both values.
func (l *Ledger) EditItemColor(groupID, itemID string, newColor board.ColorTag) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	item, ok, err := l.boards.Item(groupID, itemID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("item %s not found in group %s", itemID, groupID)
	}
	if err := l.boards.UpdateItemColor(groupID, itemID, newColor); err != nil {
		return err
	}
	return l.record(Action{Kind: KindEditColor, EditColor: &EditColorAction{
		GroupID:   groupID,
		ItemID:    itemID,
		PrevColor: item.ColorTag,
		NewColor:  newColor,
	}})
}
