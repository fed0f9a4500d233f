package backup

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/edvin/drengine/internal/model"
)

// catalogDocument is the persisted form of the backup catalog: the ordered
// list of records plus a format version for forward compatibility.
type catalogDocument struct {
	Version int            `json:"version"`
	Backups []model.Backup `json:"backups"`
}

const catalogVersion = 1
const catalogFileName = "catalog.json"

// loadCatalog reads the catalog file; an absent file yields an empty catalog.
func loadCatalog(root string) ([]model.Backup, error) {
	path := filepath.Join(root, catalogFileName)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read catalog: %w", err)
	}

	var doc catalogDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	return doc.Backups, nil
}

// saveCatalog persists the catalog atomically via a temp file rename.
func saveCatalog(root string, backups []model.Backup) error {
	doc := catalogDocument{Version: catalogVersion, Backups: backups}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal catalog: %w", err)
	}

	path := filepath.Join(root, catalogFileName)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write catalog: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("commit catalog: %w", err)
	}
	return nil
}
