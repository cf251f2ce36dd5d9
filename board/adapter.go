package board

import (
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/chrisfauries/task-tracker-sub001/store"
)

// BoardStore translates board operations onto the store's path schema:
//
//	groups/{groupId}            -> Group
//	groups/{groupId}/items/{id} -> Item
//	categories/{categoryId}     -> Category
//
// It performs no locking and no history recording; callers gate mutations
// through the lock manager and route them through the ledger.
type BoardStore struct {
	store store.Store
}

// NewBoardStore returns an adapter over the given store.
func NewBoardStore(s store.Store) *BoardStore {
	return &BoardStore{store: s}
}

// GroupsPath and CategoriesPath are the top-level subtrees the adapter owns.
const (
	GroupsPath     = "groups"
	CategoriesPath = "categories"
)

func groupPath(groupID string) string {
	return GroupsPath + "/" + groupID
}

func itemPath(groupID, itemID string) string {
	return GroupsPath + "/" + groupID + "/items/" + itemID
}

// Groups reads the full board.
func (b *BoardStore) Groups() (map[string]Group, error) {
	v, err := b.store.Get(GroupsPath)
	if err != nil {
		return nil, err
	}
	groups := make(map[string]Group)
	if v == nil {
		return groups, nil
	}
	if err := store.Decode(v, &groups); err != nil {
		return nil, fmt.Errorf("failed to decode groups: %w", err)
	}
	return groups, nil
}

// Group reads one group. The second return is false when it does not exist.
func (b *BoardStore) Group(groupID string) (Group, bool, error) {
	v, err := b.store.Get(groupPath(groupID))
	if err != nil || v == nil {
		return Group{}, false, err
	}
	var g Group
	if err := store.Decode(v, &g); err != nil {
		return Group{}, false, fmt.Errorf("failed to decode group %s: %w", groupID, err)
	}
	return g, true, nil
}

// Item reads one item. The second return is false when it does not exist.
func (b *BoardStore) Item(groupID, itemID string) (Item, bool, error) {
	v, err := b.store.Get(itemPath(groupID, itemID))
	if err != nil || v == nil {
		return Item{}, false, err
	}
	var it Item
	if err := store.Decode(v, &it); err != nil {
		return Item{}, false, fmt.Errorf("failed to decode item %s: %w", itemID, err)
	}
	return it, true, nil
}

// AddGroup creates a new named group and returns it.
func (b *BoardStore) AddGroup(name string) (Group, error) {
	g := Group{ID: uuid.NewString(), Name: name}
	if err := b.store.Set(groupPath(g.ID), g); err != nil {
		return Group{}, err
	}
	return g, nil
}

// RenameGroup updates only the group's name.
func (b *BoardStore) RenameGroup(groupID, name string) error {
	return b.store.Update(groupPath(groupID), map[string]any{"name": name})
}

// RemoveGroup deletes the group and, by containment, all of its items.
// Lock and ledger entries referencing those items are left behind; locks
// age out through the TTL window and ledger entries are per-session.
func (b *BoardStore) RemoveGroup(groupID string) error {
	return b.store.Remove(groupPath(groupID))
}

// PlaceItem writes the item's full record at its destination group.
func (b *BoardStore) PlaceItem(groupID string, item Item) error {
	return b.store.Set(itemPath(groupID, item.ID), item)
}

// UpdateItemPlacement moves an item within its own group as a field merge,
// so concurrent edits to text or color are never overwritten.
func (b *BoardStore) UpdateItemPlacement(groupID, itemID string, columnIndex int, position float64) error {
	return b.store.Update(itemPath(groupID, itemID), map[string]any{
		"columnIndex": columnIndex,
		"position":    position,
	})
}

// RemoveItem deletes the item from the given group.
func (b *BoardStore) RemoveItem(groupID, itemID string) error {
	return b.store.Remove(itemPath(groupID, itemID))
}

// UpdateItemText sets only the item's text.
func (b *BoardStore) UpdateItemText(groupID, itemID, text string) error {
	return b.store.Update(itemPath(groupID, itemID), map[string]any{"text": text})
}

// UpdateItemColor sets only the item's color tag.
func (b *BoardStore) UpdateItemColor(groupID, itemID string, color ColorTag) error {
	return b.store.Update(itemPath(groupID, itemID), map[string]any{"colorTag": string(color)})
}

// MoveItem relocates an item to (toGroup, toColumn, toPosition). The current
// record is fetched fresh before anything is deleted so concurrent field
// edits by other users survive the move. Cross-group moves create at the
// destination before removing at the source, biasing a mid-move failure
// toward duplication rather than loss. Same-group moves are a field merge.
func (b *BoardStore) MoveItem(fromGroup, itemID, toGroup string, toColumn int, toPosition float64) error {
	if fromGroup == toGroup {
		return b.UpdateItemPlacement(fromGroup, itemID, toColumn, toPosition)
	}

	current, ok, err := b.Item(fromGroup, itemID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("item %s not found in group %s", itemID, fromGroup)
	}
	current.ColumnIndex = toColumn
	current.Position = toPosition

	if err := b.PlaceItem(toGroup, current); err != nil {
		return err
	}
	return b.RemoveItem(fromGroup, itemID)
}

// ColumnItems returns the items of one (group, column) ordered by position,
// ties broken by id.
func (b *BoardStore) ColumnItems(groupID string, columnIndex int) ([]Item, error) {
	g, ok, err := b.Group(groupID)
	if err != nil || !ok {
		return nil, err
	}
	items := make([]Item, 0, len(g.Items))
	for _, it := range g.Items {
		if it.ColumnIndex == columnIndex {
			items = append(items, it)
		}
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].Position != items[j].Position {
			return items[i].Position < items[j].Position
		}
		return items[i].ID < items[j].ID
	})
	return items, nil
}

// ColumnPositions returns the sorted positions of one (group, column) as
// input for the allocator.
func (b *BoardStore) ColumnPositions(groupID string, columnIndex int) ([]float64, error) {
	items, err := b.ColumnItems(groupID, columnIndex)
	if err != nil {
		return nil, err
	}
	positions := make([]float64, len(items))
	for i, it := range items {
		positions[i] = it.Position
	}
	return positions, nil
}

// SubscribeGroups streams the full board on every change.
func (b *BoardStore) SubscribeGroups(fn func(map[string]Group)) (cancel func()) {
	return b.store.Subscribe(GroupsPath, func(v any) {
		groups := make(map[string]Group)
		if v != nil {
			if err := store.Decode(v, &groups); err != nil {
				return
			}
		}
		fn(groups)
	})
}

// Categories reads all templates.
func (b *BoardStore) Categories() (map[string]Category, error) {
	v, err := b.store.Get(CategoriesPath)
	if err != nil {
		return nil, err
	}
	categories := make(map[string]Category)
	if v == nil {
		return categories, nil
	}
	if err := store.Decode(v, &categories); err != nil {
		return nil, fmt.Errorf("failed to decode categories: %w", err)
	}
	return categories, nil
}

// AddCategory creates a reusable template.
func (b *BoardStore) AddCategory(name string, itemTexts []string, color ColorTag) (Category, error) {
	c := Category{ID: uuid.NewString(), Name: name, ItemTexts: itemTexts, ColorTag: color}
	if err := b.store.Set(CategoriesPath+"/"+c.ID, c); err != nil {
		return Category{}, err
	}
	return c, nil
}

// RemoveCategory deletes a template. Items already created from it are
// untouched.
func (b *BoardStore) RemoveCategory(categoryID string) error {
	return b.store.Remove(CategoriesPath + "/" + categoryID)
}

// InsertCategoryItems appends one item per template text to the end of the
// given (group, column) and returns the created items in order.
func (b *BoardStore) InsertCategoryItems(groupID string, columnIndex int, categoryID string) ([]Item, error) {
	v, err := b.store.Get(CategoriesPath + "/" + categoryID)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, fmt.Errorf("category %s not found", categoryID)
	}
	var c Category
	if err := store.Decode(v, &c); err != nil {
		return nil, fmt.Errorf("failed to decode category %s: %w", categoryID, err)
	}

	positions, err := b.ColumnPositions(groupID, columnIndex)
	if err != nil {
		return nil, err
	}

	created := make([]Item, 0, len(c.ItemTexts))
	for _, text := range c.ItemTexts {
		pos, err := AppendPosition(positions)
		if err != nil {
			return created, err
		}
		item := Item{
			ID:          uuid.NewString(),
			Text:        text,
			ColumnIndex: columnIndex,
			ColorTag:    c.ColorTag,
			Position:    pos,
		}
		if err := b.PlaceItem(groupID, item); err != nil {
			return created, err
		}
		created = append(created, item)
		positions = append(positions, pos)
	}
	return created, nil
}
