// Package ledger records user-initiated board mutations as invertible
// actions and replays their inverses for undo and their originals for redo.
// The ledger is per session: it is never persisted and only sees mutations
// routed through it — lock and presence churn is invisible to undo by
// design.
package ledger

import (
	"errors"
	"fmt"

	"github.com/chrisfauries/task-tracker-sub001/board"
)

// Kind tags the action variants.
type Kind string

const (
	KindMove      Kind = "move"
	KindAdd       Kind = "add"
	KindDelete    Kind = "delete"
	KindEditText  Kind = "editText"
	KindEditColor Kind = "editColor"
)

// Action is a tagged union: exactly the payload matching Kind is set. Each
// variant carries enough state to construct its own inverse.
type Action struct {
	Kind      Kind             `json:"kind"`
	Move      *MoveAction      `json:"move,omitempty"`
	Add       *AddAction       `json:"add,omitempty"`
	Delete    *DeleteAction    `json:"delete,omitempty"`
	EditText  *EditTextAction  `json:"editText,omitempty"`
	EditColor *EditColorAction `json:"editColor,omitempty"`
}

// MoveAction captures both endpoints of a relocation.
type MoveAction struct {
	ItemID       string  `json:"itemId"`
	FromGroup    string  `json:"fromGroup"`
	FromColumn   int     `json:"fromColumn"`
	FromPosition float64 `json:"fromPosition"`
	ToGroup      string  `json:"toGroup"`
	ToColumn     int     `json:"toColumn"`
	ToPosition   float64 `json:"toPosition"`
}

// AddAction captures the created item in full so undo can delete it and
// redo can recreate it.
type AddAction struct {
	GroupID string     `json:"groupId"`
	Item    board.Item `json:"item"`
}

// DeleteAction captures the item as it was just before deletion.
type DeleteAction struct {
	GroupID string     `json:"groupId"`
	Item    board.Item `json:"item"`
}

// EditTextAction captures both text values.
type EditTextAction struct {
	GroupID  string `json:"groupId"`
	ItemID   string `json:"itemId"`
	PrevText string `json:"prevText"`
	NewText  string `json:"newText"`
}

// EditColorAction captures both color values.
type EditColorAction struct {
	GroupID   string         `json:"groupId"`
	ItemID    string         `json:"itemId"`
	PrevColor board.ColorTag `json:"prevColor"`
	NewColor  board.ColorTag `json:"newColor"`
}

// ErrInvalidAction is wrapped by every validation failure.
var ErrInvalidAction = errors.New("invalid action")

// Validate rejects unknown kinds and payloads that do not match the tag.
// Actions arrive from the gesture boundary as loosely-shaped transfer
// records; nothing past this point trusts them unchecked.
func (a Action) Validate() error {
	payloads := 0
	for _, set := range []bool{a.Move != nil, a.Add != nil, a.Delete != nil, a.EditText != nil, a.EditColor != nil} {
		if set {
			payloads++
		}
	}
	if payloads != 1 {
		return fmt.Errorf("%w: expected exactly one payload, got %d", ErrInvalidAction, payloads)
	}
	switch a.Kind {
	case KindMove:
		if a.Move == nil {
			return fmt.Errorf("%w: move action without move payload", ErrInvalidAction)
		}
	case KindAdd:
		if a.Add == nil {
			return fmt.Errorf("%w: add action without add payload", ErrInvalidAction)
		}
	case KindDelete:
		if a.Delete == nil {
			return fmt.Errorf("%w: delete action without delete payload", ErrInvalidAction)
		}
	case KindEditText:
		if a.EditText == nil {
			return fmt.Errorf("%w: editText action without editText payload", ErrInvalidAction)
		}
	case KindEditColor:
		if a.EditColor == nil {
			return fmt.Errorf("%w: editColor action without editColor payload", ErrInvalidAction)
		}
	default:
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidAction, a.Kind)
	}
	return nil
}
