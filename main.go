package main

import (
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/cors"

	"github.com/chrisfauries/task-tracker-sub001/board"
	"github.com/chrisfauries/task-tracker-sub001/database"
	"github.com/chrisfauries/task-tracker-sub001/handlers"
	"github.com/chrisfauries/task-tracker-sub001/services"
	"github.com/chrisfauries/task-tracker-sub001/store"
)

func main() {
	// Load configuration from .env / environment
	cfg := services.LoadConfig(".env")

	// Initialize database
	db, err := database.InitDB(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	// The realtime store: in-memory tree, persisted per subtree to SQLite
	memStore, err := store.NewMemoryStore(database.NewTreeStore(db))
	if err != nil {
		log.Fatalf("Failed to initialize store: %v", err)
	}
	boards := board.NewBoardStore(memStore)

	// Initialize services
	authService := services.NewAuthService(cfg)
	sessions := handlers.NewSessionManager(memStore, boards)

	// Initialize WebSocket hub
	hub := services.NewHub(memStore)
	go hub.Run()

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(authService, sessions)
	boardHandler := handlers.NewBoardHandler(boards, sessions)
	snapshotHandler := handlers.NewSnapshotHandler(memStore, sessions)
	wsHandler := handlers.NewWSHandler(hub, memStore, sessions)
	authMiddleware := handlers.NewAuthMiddleware(authService)

	// Setup router
	r := mux.NewRouter()

	// Auth routes
	r.HandleFunc("/api/auth/login", authHandler.Login).Methods("POST")
	r.HandleFunc("/api/auth/verify", authHandler.VerifyToken).Methods("GET")
	r.HandleFunc("/api/auth/magic-link", authHandler.HandleMagicLink).Methods("GET")

	// Protected routes
	api := r.PathPrefix("/api").Subrouter()
	api.Use(authMiddleware.Auth)

	api.HandleFunc("/auth/logout", authHandler.Logout).Methods("POST")

	// Board routes
	api.HandleFunc("/board", boardHandler.GetBoard).Methods("GET")
	api.HandleFunc("/board/groups", boardHandler.CreateGroup).Methods("POST")
	api.HandleFunc("/board/groups/{groupId}", boardHandler.RenameGroup).Methods("PATCH")
	api.HandleFunc("/board/groups/{groupId}", boardHandler.DeleteGroup).Methods("DELETE")
	api.HandleFunc("/board/groups/{groupId}/items", boardHandler.CreateItem).Methods("POST")
	api.HandleFunc("/board/groups/{groupId}/items/{itemId}/text", boardHandler.EditItemText).Methods("PATCH")
	api.HandleFunc("/board/groups/{groupId}/items/{itemId}/color", boardHandler.EditItemColor).Methods("PATCH")
	api.HandleFunc("/board/groups/{groupId}/items/{itemId}", boardHandler.DeleteItem).Methods("DELETE")
	api.HandleFunc("/board/items/{itemId}/move", boardHandler.MoveItem).Methods("POST")
	api.HandleFunc("/board/undo", boardHandler.Undo).Methods("POST")
	api.HandleFunc("/board/redo", boardHandler.Redo).Methods("POST")

	// Lock routes
	api.HandleFunc("/locks/{itemId}/acquire", boardHandler.AcquireLock).Methods("POST")
	api.HandleFunc("/locks/{itemId}/renew", boardHandler.RenewLock).Methods("POST")
	api.HandleFunc("/locks/{itemId}/release", boardHandler.ReleaseLock).Methods("POST")

	// Category routes
	api.HandleFunc("/categories", boardHandler.GetCategories).Methods("GET")
	api.HandleFunc("/categories", boardHandler.CreateCategory).Methods("POST")
	api.HandleFunc("/categories/{categoryId}", boardHandler.DeleteCategory).Methods("DELETE")
	api.HandleFunc("/categories/{categoryId}/insert", boardHandler.InsertCategory).Methods("POST")

	// Snapshot and backup routes
	api.HandleFunc("/snapshots", snapshotHandler.ListSnapshots).Methods("GET")
	api.HandleFunc("/snapshots", snapshotHandler.TakeSnapshot).Methods("POST")
	api.HandleFunc("/snapshots/{snapshotId}/restore", snapshotHandler.RestoreSnapshot).Methods("POST")
	api.HandleFunc("/snapshots/{snapshotId}", snapshotHandler.DeleteSnapshot).Methods("DELETE")
	api.HandleFunc("/backup", snapshotHandler.ExportBackup).Methods("GET")
	api.HandleFunc("/backup", snapshotHandler.ImportBackup).Methods("POST")

	// WebSocket route for real-time updates
	api.HandleFunc("/ws", wsHandler.HandleWebSocket)

	// Static file server for frontend
	r.PathPrefix("/").Handler(http.FileServer(http.Dir("./")))

	// Setup CORS
	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"}, // In production, change to your domain
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	})

	// Start server
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      c.Handler(r),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	log.Printf("Server starting on port %s", cfg.Port)
	log.Fatal(server.ListenAndServe())
}
