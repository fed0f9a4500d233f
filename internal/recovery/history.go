package recovery

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/edvin/drengine/internal/model"
)

// historyDocument is the persisted recovery history: every terminal
// execution, in order.
type historyDocument struct {
	Version    int                       `json:"version"`
	Executions []model.RecoveryExecution `json:"executions"`
}

const historyVersion = 1
const historyFileName = "recovery-history.json"

func loadHistory(root string) ([]model.RecoveryExecution, error) {
	path := filepath.Join(root, historyFileName)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read recovery history: %w", err)
	}

	var doc historyDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse recovery history: %w", err)
	}
	return doc.Executions, nil
}

func saveHistory(root string, executions []model.RecoveryExecution) error {
	doc := historyDocument{Version: historyVersion, Executions: executions}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal recovery history: %w", err)
	}

	path := filepath.Join(root, historyFileName)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write recovery history: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("commit recovery history: %w", err)
	}
	return nil
}
