package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/chrisfauries/task-tracker-sub001/board"
	"github.com/chrisfauries/task-tracker-sub001/ledger"
)

// BoardHandler exposes the board mutations. Every item mutation is gated on
// the soft lock manager and routed through the session's ledger so it can
// be undone.
type BoardHandler struct {
	boards   *board.BoardStore
	sessions *SessionManager
}

func NewBoardHandler(boards *board.BoardStore, sessions *SessionManager) *BoardHandler {
	return &BoardHandler{
		boards:   boards,
		sessions: sessions,
	}
}

func (h *BoardHandler) session(w http.ResponseWriter, r *http.Request) (*Session, bool) {
	email, ok := requestEmail(r)
	if !ok {
		http.Error(w, "user not found", http.StatusUnauthorized)
		return nil, false
	}
	return h.sessions.Get(email), true
}

// checkLock refuses the mutation when someone else holds the item, and
// surfaces the holder's name so the UI can show who is editing.
func (h *BoardHandler) checkLock(w http.ResponseWriter, session *Session, itemID string) bool {
	held, holder, err := session.Locks.IsHeldByOther(itemID)
	if err != nil {
		log.Printf("Error checking lock for %s: %v", itemID, err)
		http.Error(w, "Server error", http.StatusInternalServerError)
		return false
	}
	if held {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusConflict)
		json.NewEncoder(w).Encode(map[string]string{
			"status": "locked",
			"holder": holder,
		})
		return false
	}
	return true
}

// GetBoard returns all groups with their items.
func (h *BoardHandler) GetBoard(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.session(w, r); !ok {
		return
	}
	groups, err := h.boards.Groups()
	if err != nil {
		log.Printf("Error reading board: %v", err)
		http.Error(w, "Server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]any{"status": "success", "groups": groups})
}

// CreateGroup adds a new named row.
func (h *BoardHandler) CreateGroup(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.session(w, r); !ok {
		return
	}
	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
		http.Error(w, "Invalid request format", http.StatusBadRequest)
		return
	}

	g, err := h.boards.AddGroup(req.Name)
	if err != nil {
		log.Printf("Error creating group: %v", err)
		http.Error(w, "Failed to create group", http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]any{"status": "success", "group": g})
}

// RenameGroup changes a row's display name.
func (h *BoardHandler) RenameGroup(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.session(w, r); !ok {
		return
	}
	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
		http.Error(w, "Invalid request format", http.StatusBadRequest)
		return
	}
	if err := h.boards.RenameGroup(mux.Vars(r)["groupId"], req.Name); err != nil {
		log.Printf("Error renaming group: %v", err)
		http.Error(w, "Failed to rename group", http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]string{"status": "success"})
}

// DeleteGroup removes a row and all of its items.
func (h *BoardHandler) DeleteGroup(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.session(w, r); !ok {
		return
	}
	if err := h.boards.RemoveGroup(mux.Vars(r)["groupId"]); err != nil {
		log.Printf("Error deleting group: %v", err)
		http.Error(w, "Failed to delete group", http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]string{"status": "success"})
}

// CreateItem places a new card into a (group, column) at the position the
// allocator resolves from the placement intent.
func (h *BoardHandler) CreateItem(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	var req struct {
		Text        string       `json:"text"`
		ColumnIndex int          `json:"columnIndex"`
		ColorTag    string       `json:"colorTag"`
		Intent      board.Intent `json:"intent"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Text == "" {
		http.Error(w, "Invalid request format", http.StatusBadRequest)
		return
	}
	color, err := board.ParseColorTag(req.ColorTag)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.Intent.Kind == "" {
		req.Intent.Kind = board.IntentAppend
	}

	groupID := mux.Vars(r)["groupId"]
	position, err := h.placePosition(groupID, req.ColumnIndex, req.Intent)
	if err != nil {
		h.positionError(w, err)
		return
	}

	item := board.Item{
		ID:          uuid.NewString(),
		Text:        req.Text,
		ColumnIndex: req.ColumnIndex,
		ColorTag:    color,
		Position:    position,
	}
	if err := session.Ledger.AddItem(groupID, item); err != nil {
		log.Printf("Error adding item: %v", err)
		http.Error(w, "Failed to add item", http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]any{"status": "success", "item": item})
}

// MoveItem relocates a card, allocator-resolved destination included.
func (h *BoardHandler) MoveItem(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	itemID := mux.Vars(r)["itemId"]
	if !h.checkLock(w, session, itemID) {
		return
	}
	var req struct {
		FromGroup string       `json:"fromGroup"`
		ToGroup   string       `json:"toGroup"`
		ToColumn  int          `json:"toColumn"`
		Intent    board.Intent `json:"intent"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.FromGroup == "" || req.ToGroup == "" {
		http.Error(w, "Invalid request format", http.StatusBadRequest)
		return
	}
	if req.Intent.Kind == "" {
		req.Intent.Kind = board.IntentAppend
	}

	position, err := h.placePosition(req.ToGroup, req.ToColumn, req.Intent)
	if err != nil {
		h.positionError(w, err)
		return
	}

	if err := session.Ledger.MoveItem(req.FromGroup, itemID, req.ToGroup, req.ToColumn, position); err != nil {
		log.Printf("Error moving item %s: %v", itemID, err)
		http.Error(w, "Failed to move item", http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]any{"status": "success", "position": position})
}

// EditItemText rewrites a card's text.
func (h *BoardHandler) EditItemText(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	vars := mux.Vars(r)
	if !h.checkLock(w, session, vars["itemId"]) {
		return
	}
	var req struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request format", http.StatusBadRequest)
		return
	}
	if err := session.Ledger.EditItemText(vars["groupId"], vars["itemId"], req.Text); err != nil {
		log.Printf("Error editing item text: %v", err)
		http.Error(w, "Failed to edit item", http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]string{"status": "success"})
}

// EditItemColor retags a card's color.
func (h *BoardHandler) EditItemColor(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	vars := mux.Vars(r)
	if !h.checkLock(w, session, vars["itemId"]) {
		return
	}
	var req struct {
		ColorTag string `json:"colorTag"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request format", http.StatusBadRequest)
		return
	}
	color, err := board.ParseColorTag(req.ColorTag)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := session.Ledger.EditItemColor(vars["groupId"], vars["itemId"], color); err != nil {
		log.Printf("Error editing item color: %v", err)
		http.Error(w, "Failed to edit item", http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]string{"status": "success"})
}

// DeleteItem removes a card.
func (h *BoardHandler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	vars := mux.Vars(r)
	if !h.checkLock(w, session, vars["itemId"]) {
		return
	}
	if err := session.Ledger.DeleteItem(vars["groupId"], vars["itemId"]); err != nil {
		log.Printf("Error deleting item: %v", err)
		http.Error(w, "Failed to delete item", http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]string{"status": "success"})
}

// Undo reverts the session's most recent action.
func (h *BoardHandler) Undo(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	if err := session.Ledger.Undo(); err != nil {
		log.Printf("Error undoing: %v", err)
		http.Error(w, "Failed to undo", http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]any{
		"status":  "success",
		"canUndo": session.Ledger.CanUndo(),
		"canRedo": session.Ledger.CanRedo(),
	})
}

// Redo re-applies the session's most recently undone action.
func (h *BoardHandler) Redo(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	if err := session.Ledger.Redo(); err != nil {
		log.Printf("Error redoing: %v", err)
		http.Error(w, "Failed to redo", http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]any{
		"status":  "success",
		"canUndo": session.Ledger.CanUndo(),
		"canRedo": session.Ledger.CanRedo(),
	})
}

// AcquireLock takes the soft lock on an item before an edit or drag.
func (h *BoardHandler) AcquireLock(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	itemID := mux.Vars(r)["itemId"]
	if !h.checkLock(w, session, itemID) {
		return
	}
	if err := session.Locks.Acquire(itemID); err != nil {
		log.Printf("Error acquiring lock on %s: %v", itemID, err)
		http.Error(w, "Failed to acquire lock", http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]string{"status": "success"})
}

// RenewLock refreshes a held lock's timestamp.
func (h *BoardHandler) RenewLock(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	if err := session.Locks.Renew(mux.Vars(r)["itemId"]); err != nil {
		log.Printf("Error renewing lock: %v", err)
		http.Error(w, "Failed to renew lock", http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]string{"status": "success"})
}

// ReleaseLock gives an item back.
func (h *BoardHandler) ReleaseLock(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	if err := session.Locks.Release(mux.Vars(r)["itemId"]); err != nil {
		log.Printf("Error releasing lock: %v", err)
		http.Error(w, "Failed to release lock", http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]string{"status": "success"})
}

// GetCategories lists the reusable templates.
func (h *BoardHandler) GetCategories(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.session(w, r); !ok {
		return
	}
	categories, err := h.boards.Categories()
	if err != nil {
		log.Printf("Error reading categories: %v", err)
		http.Error(w, "Server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]any{"status": "success", "categories": categories})
}

// CreateCategory adds a template.
func (h *BoardHandler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.session(w, r); !ok {
		return
	}
	var req struct {
		Name      string   `json:"name"`
		ItemTexts []string `json:"itemTexts"`
		ColorTag  string   `json:"colorTag"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
		http.Error(w, "Invalid request format", http.StatusBadRequest)
		return
	}
	color, err := board.ParseColorTag(req.ColorTag)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	c, err := h.boards.AddCategory(req.Name, req.ItemTexts, color)
	if err != nil {
		log.Printf("Error creating category: %v", err)
		http.Error(w, "Failed to create category", http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]any{"status": "success", "category": c})
}

// DeleteCategory removes a template.
func (h *BoardHandler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.session(w, r); !ok {
		return
	}
	if err := h.boards.RemoveCategory(mux.Vars(r)["categoryId"]); err != nil {
		log.Printf("Error deleting category: %v", err)
		http.Error(w, "Failed to delete category", http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]string{"status": "success"})
}

// InsertCategory expands a template into new cards at the end of a
// (group, column). Each created card is recorded on the ledger so the batch
// can be undone card by card.
func (h *BoardHandler) InsertCategory(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	var req struct {
		GroupID     string `json:"groupId"`
		ColumnIndex int    `json:"columnIndex"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.GroupID == "" {
		http.Error(w, "Invalid request format", http.StatusBadRequest)
		return
	}

	created, err := h.boards.InsertCategoryItems(req.GroupID, req.ColumnIndex, mux.Vars(r)["categoryId"])
	if err != nil {
		log.Printf("Error inserting category: %v", err)
		http.Error(w, "Failed to insert category", http.StatusInternalServerError)
		return
	}
	for _, item := range created {
		if err := session.Ledger.Record(ledgerAddAction(req.GroupID, item)); err != nil {
			log.Printf("Error recording category insert: %v", err)
		}
	}
	writeJSON(w, map[string]any{"status": "success", "items": created})
}

func (h *BoardHandler) placePosition(groupID string, columnIndex int, intent board.Intent) (float64, error) {
	positions, err := h.boards.ColumnPositions(groupID, columnIndex)
	if err != nil {
		return 0, err
	}
	return board.PlacePosition(positions, intent)
}

func (h *BoardHandler) positionError(w http.ResponseWriter, err error) {
	if errors.Is(err, board.ErrNaNPosition) {
		// Malformed source data; refuse the operation rather than write a
		// garbage position.
		log.Printf("Invariant violation: %v", err)
		http.Error(w, "Corrupt position data", http.StatusInternalServerError)
		return
	}
	http.Error(w, fmt.Sprintf("Invalid placement: %v", err), http.StatusBadRequest)
}

func ledgerAddAction(groupID string, item board.Item) ledger.Action {
	return ledger.Action{Kind: ledger.KindAdd, Add: &ledger.AddAction{GroupID: groupID, Item: item}}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
