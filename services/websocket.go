package services

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/chrisfauries/task-tracker-sub001/store"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 1024 * 1024 // 1MB
)

// Client represents a connected WebSocket client. Each client owns exactly
// the store subscriptions it asked for; they are disposed on disconnect,
// together with the store-side cleanup hooks registered under ClientID.
type Client struct {
	Hub      *Hub
	Conn     *websocket.Conn
	Send     chan []byte
	ClientID string // Connection identifier, scope of disconnect hooks
	Email    string // User identifier

	// OnClose, when set, runs once after the hub tears the client down.
	// The session layer uses it to notice when a user's last connection
	// is gone.
	OnClose func()

	mu            sync.Mutex
	subscriptions map[string]func()
}

// WebSocketMessage is the standard message format for WebSocket communication
type WebSocketMessage struct {
	Type string `json:"type"`
	Path string `json:"path,omitempty"`
	Data any    `json:"data,omitempty"`
	User string `json:"user,omitempty"`
}

// ReadPump pumps messages from the WebSocket connection to the hub
func (c *Client) ReadPump() {
	defer func() {
		c.Hub.Unregister(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			break
		}

		var wsMessage WebSocketMessage
		if err := json.Unmarshal(message, &wsMessage); err != nil {
			log.Printf("Error unmarshalling WebSocket message: %v", err)
			continue
		}

		switch wsMessage.Type {
		case "ping":
			// Reply with a pong directly to this client only
			c.sendMessage(WebSocketMessage{
				Type: "pong",
				Data: map[string]string{"timestamp": time.Now().Format(time.RFC3339)},
			})

		case "subscribe":
			c.subscribe(wsMessage.Path)

		case "unsubscribe":
			c.unsubscribe(wsMessage.Path)

		default:
			log.Printf("Unknown message type %q from client %s", wsMessage.Type, c.Email)
		}
	}
}

// subscribe attaches the client to a store subtree. Every change under the
// path is pushed to the client as a "change" message carrying the full
// current value, starting with an immediate replay.
func (c *Client) subscribe(path string) {
	if path == "" {
		return
	}
	c.mu.Lock()
	if _, exists := c.subscriptions[path]; exists {
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()

	cancel := c.Hub.store.Subscribe(path, func(value any) {
		c.sendMessage(WebSocketMessage{Type: "change", Path: path, Data: value})
	})

	c.mu.Lock()
	c.subscriptions[path] = cancel
	c.mu.Unlock()
	log.Printf("Client %s subscribed to %s", c.Email, path)
}

func (c *Client) unsubscribe(path string) {
	c.mu.Lock()
	cancel, ok := c.subscriptions[path]
	delete(c.subscriptions, path)
	c.mu.Unlock()
	if ok {
		cancel()
	}
}

func (c *Client) dropSubscriptions() {
	c.mu.Lock()
	cancels := make([]func(), 0, len(c.subscriptions))
	for _, cancel := range c.subscriptions {
		cancels = append(cancels, cancel)
	}
	c.subscriptions = make(map[string]func())
	c.mu.Unlock()
	for _, cancel := range cancels {
		cancel()
	}
}

func (c *Client) sendMessage(msg WebSocketMessage) {
	raw, err := json.Marshal(msg)
	if err != nil {
		log.Printf("Error marshalling WebSocket message: %v", err)
		return
	}
	select {
	case c.Send <- raw:
	default:
		// Client's send buffer is full; WritePump will notice the closed
		// connection soon enough.
		log.Printf("Client send buffer full, dropping message for %s", c.Email)
	}
}

// WritePump pumps messages from the hub to the WebSocket connection
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.Conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			// Add queued messages to the current WebSocket message
			n := len(c.Send)
			for i := 0; i < n; i++ {
				w.Write([]byte("\n"))
				w.Write(<-c.Send)
			}

			if err := w.Close(); err != nil {
				return
			}
		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Hub maintains the set of active clients. Fan-out of board changes happens
// through each client's own store subscriptions; the hub's job is lifecycle:
// registration, teardown, and firing the store's disconnect hooks when a
// connection drops.
type Hub struct {
	Clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	store      *store.MemoryStore
}

// NewHub creates a new hub instance over the given store.
func NewHub(s *store.MemoryStore) *Hub {
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		Clients:    make(map[*Client]bool),
		store:      s,
	}
}

// NewClient wires a fresh connection into the hub.
func (h *Hub) NewClient(conn *websocket.Conn, clientID, email string) *Client {
	return &Client{
		Hub:           h,
		Conn:          conn,
		Send:          make(chan []byte, 256),
		ClientID:      clientID,
		Email:         email,
		subscriptions: make(map[string]func()),
	}
}

// Register adds a client to the hub
func (h *Hub) Register(client *Client) {
	h.register <- client
}

// Unregister removes a client from the hub
func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

// Run starts the hub's main loop
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.Clients[client] = true
			log.Printf("Client connected: %s (%s)", client.Email, client.ClientID)
		case client := <-h.unregister:
			if _, ok := h.Clients[client]; ok {
				delete(h.Clients, client)
				close(client.Send)
				client.dropSubscriptions()
				// Server-side cleanup for state held by this connection.
				h.store.FireDisconnect(client.ClientID)
				if client.OnClose != nil {
					client.OnClose()
				}
				log.Printf("Client disconnected: %s (%s)", client.Email, client.ClientID)
			}
		}
	}
}
