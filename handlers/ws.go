package handlers

import (
	"log"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/chrisfauries/task-tracker-sub001/board"
	"github.com/chrisfauries/task-tracker-sub001/services"
	"github.com/chrisfauries/task-tracker-sub001/store"
)

// WSHandler upgrades connections into hub clients. Each connection gets its
// own presence record, removed server-side when the socket drops.
type WSHandler struct {
	hub      *services.Hub
	store    *store.MemoryStore
	sessions *SessionManager
}

func NewWSHandler(hub *services.Hub, s *store.MemoryStore, sessions *SessionManager) *WSHandler {
	return &WSHandler{
		hub:      hub,
		store:    s,
		sessions: sessions,
	}
}

// HandleWebSocket upgrades the HTTP connection to a WebSocket connection
func (h *WSHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	email, ok := requestEmail(r)
	if !ok {
		http.Error(w, "user not found", http.StatusUnauthorized)
		return
	}

	// Upgrade HTTP connection to WebSocket
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			return true // Allow all origins in development
		},
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("Error upgrading to WebSocket: %v", err)
		return
	}

	// A user may have multiple tabs or devices connected; every connection
	// gets its own client id and presence record carrying the real user.
	clientID := uuid.NewString()
	session := h.sessions.Get(email)

	presence := board.NewPresenceTracker(h.store, clientID)
	if err := presence.Register(board.Presence{
		UserID:   email,
		UserName: session.UserName,
	}); err != nil {
		log.Printf("Error registering presence for %s: %v", email, err)
	}

	client := h.hub.NewClient(conn, clientID, email)
	h.sessions.Attach(email)
	client.OnClose = func() { h.sessions.Detach(email) }
	h.hub.Register(client)
	log.Printf("WebSocket client registered: %s", email)

	// Start goroutines for reading and writing
	go client.WritePump()
	go client.ReadPump()
}
