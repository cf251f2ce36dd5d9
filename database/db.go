package database

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log"

	_ "github.com/mattn/go-sqlite3"
)

// InitDB opens the SQLite file and creates the schema. The whole store tree
// is persisted as one row per top-level subtree (groups, categories, locks,
// presence, snapshots), mirroring how the store hands subtrees around as
// whole JSON values.
func InitDB(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS tree (
		name TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`)
	if err != nil {
		return nil, fmt.Errorf("failed to create tree table: %w", err)
	}

	log.Println("Database initialized successfully")
	return db, nil
}

// TreeStore implements the store's Persister over SQLite.
type TreeStore struct {
	db *sql.DB
}

func NewTreeStore(db *sql.DB) *TreeStore {
	return &TreeStore{db: db}
}

// SaveSubtree upserts the full JSON value of one top-level subtree. A nil
// value deletes the row.
func (s *TreeStore) SaveSubtree(name string, value any) error {
	if value == nil {
		if _, err := s.db.Exec("DELETE FROM tree WHERE name = ?", name); err != nil {
			return fmt.Errorf("failed to delete subtree %s: %w", name, err)
		}
		return nil
	}

	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal subtree %s: %w", name, err)
	}

	_, err = s.db.Exec(`
		INSERT INTO tree (name, value, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(name) DO UPDATE SET
			value = ?,
			updated_at = CURRENT_TIMESTAMP
	`, name, string(raw), string(raw))
	if err != nil {
		return fmt.Errorf("failed to upsert subtree %s: %w", name, err)
	}
	return nil
}

// LoadTree reads every persisted subtree back into memory at startup.
func (s *TreeStore) LoadTree() (map[string]any, error) {
	rows, err := s.db.Query("SELECT name, value FROM tree")
	if err != nil {
		return nil, fmt.Errorf("failed to query tree: %w", err)
	}
	defer rows.Close()

	tree := make(map[string]any)
	for rows.Next() {
		var name, raw string
		if err := rows.Scan(&name, &raw); err != nil {
			return nil, fmt.Errorf("failed to scan tree row: %w", err)
		}
		var value any
		if err := json.Unmarshal([]byte(raw), &value); err != nil {
			return nil, fmt.Errorf("failed to unmarshal subtree %s: %w", name, err)
		}
		tree[name] = value
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read tree rows: %w", err)
	}
	return tree, nil
}
