package snapshot

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/chrisfauries/task-tracker-sub001/board"
	"github.com/chrisfauries/task-tracker-sub001/store"
)

// ErrEmptyBackup is returned when an import payload carries neither board
// nor category state.
var ErrEmptyBackup = errors.New("backup contains no board or category state")

// Export captures the current board and category state as a portable file.
func Export(s store.Store) (board.Backup, error) {
	boardState, err := s.Get(board.GroupsPath)
	if err != nil {
		return board.Backup{}, fmt.Errorf("failed to read board state: %w", err)
	}
	categoryState, err := s.Get(board.CategoriesPath)
	if err != nil {
		return board.Backup{}, fmt.Errorf("failed to read category state: %w", err)
	}
	return board.Backup{
		Version:       board.BackupVersion,
		Timestamp:     time.Now().UnixMilli(),
		BoardState:    boardState,
		CategoryState: categoryState,
	}, nil
}

// ExportJSON serializes Export's result.
func ExportJSON(s store.Store) ([]byte, error) {
	backup, err := Export(s)
	if err != nil {
		return nil, err
	}
	return json.MarshalIndent(backup, "", "  ")
}

// Import validates a backup payload and applies it as a full overwrite of
// whichever states it carries. Validation happens before any write: an
// unparsable or empty payload leaves existing state untouched.
func Import(s store.Store, data []byte) error {
	var backup board.Backup
	if err := json.Unmarshal(data, &backup); err != nil {
		return fmt.Errorf("backup file is not valid JSON: %w", err)
	}
	return ImportBackup(s, backup)
}

// ImportBackup applies an already-decoded backup. At least one of board or
// category state must be present.
func ImportBackup(s store.Store, backup board.Backup) error {
	if backup.BoardState == nil && backup.CategoryState == nil {
		return ErrEmptyBackup
	}
	if backup.BoardState != nil {
		if err := s.Set(board.GroupsPath, backup.BoardState); err != nil {
			return fmt.Errorf("failed to import board state: %w", err)
		}
	}
	if backup.CategoryState != nil {
		if err := s.Set(board.CategoriesPath, backup.CategoryState); err != nil {
			return fmt.Errorf("failed to import category state: %w", err)
		}
	}
	return nil
}
