package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/chrisfauries/task-tracker-sub001/snapshot"
	"github.com/chrisfauries/task-tracker-sub001/store"
)

// SnapshotHandler exposes the snapshot log and the portable backup file.
type SnapshotHandler struct {
	store    store.Store
	sessions *SessionManager
}

func NewSnapshotHandler(s store.Store, sessions *SessionManager) *SnapshotHandler {
	return &SnapshotHandler{
		store:    s,
		sessions: sessions,
	}
}

func (h *SnapshotHandler) session(w http.ResponseWriter, r *http.Request) (*Session, bool) {
	email, ok := requestEmail(r)
	if !ok {
		http.Error(w, "user not found", http.StatusUnauthorized)
		return nil, false
	}
	return h.sessions.Get(email), true
}

// ListSnapshots returns the 50 most recent snapshots, newest first.
func (h *SnapshotHandler) ListSnapshots(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	snaps, err := session.Snapshots.List()
	if err != nil {
		log.Printf("Error listing snapshots: %v", err)
		http.Error(w, "Server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]any{"status": "success", "snapshots": snaps})
}

// TakeSnapshot writes a manual, user-titled snapshot.
func (h *SnapshotHandler) TakeSnapshot(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	var req struct {
		Title string `json:"title"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Title == "" {
		http.Error(w, "Invalid request format", http.StatusBadRequest)
		return
	}
	snap, err := session.Snapshots.Take(req.Title)
	if err != nil {
		log.Printf("Error taking snapshot: %v", err)
		http.Error(w, "Failed to take snapshot", http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]any{"status": "success", "snapshot": snap})
}

// RestoreSnapshot overwrites current board and category state with a
// snapshot's copies. The session ledger is cleared: its recorded inverses
// no longer describe the restored state.
func (h *SnapshotHandler) RestoreSnapshot(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	if err := session.Snapshots.Restore(mux.Vars(r)["snapshotId"]); err != nil {
		log.Printf("Error restoring snapshot: %v", err)
		http.Error(w, "Failed to restore snapshot", http.StatusInternalServerError)
		return
	}
	session.Ledger.Clear()
	writeJSON(w, map[string]string{"status": "success"})
}

// DeleteSnapshot removes one snapshot from the log.
func (h *SnapshotHandler) DeleteSnapshot(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	if err := session.Snapshots.Delete(mux.Vars(r)["snapshotId"]); err != nil {
		log.Printf("Error deleting snapshot: %v", err)
		http.Error(w, "Failed to delete snapshot", http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]string{"status": "success"})
}

// ExportBackup streams the portable backup file.
func (h *SnapshotHandler) ExportBackup(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.session(w, r); !ok {
		return
	}
	data, err := snapshot.ExportJSON(h.store)
	if err != nil {
		log.Printf("Error exporting backup: %v", err)
		http.Error(w, "Failed to export backup", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", `attachment; filename="board-backup.json"`)
	w.Write(data)
}

// ImportBackup applies an uploaded backup file as a full overwrite. The
// payload is validated before anything is written; a rejected import leaves
// existing state untouched.
func (h *SnapshotHandler) ImportBackup(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	data, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "Failed to read request body", http.StatusBadRequest)
		return
	}
	if err := snapshot.Import(h.store, data); err != nil {
		if errors.Is(err, snapshot.ErrEmptyBackup) {
			http.Error(w, "Backup contains no board or category state", http.StatusBadRequest)
			return
		}
		http.Error(w, "Invalid backup file", http.StatusBadRequest)
		return
	}
	// Same reasoning as restore: history no longer applies.
	session.Ledger.Clear()
	writeJSON(w, map[string]string{"status": "success"})
}
