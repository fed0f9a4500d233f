package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// LocalBackend stores payloads as files under a single root directory.
// It is the default backend.
type LocalBackend struct {
	root string
}

func NewLocalBackend(root string) (*LocalBackend, error) {
	if err := os.MkdirAll(root, 0o700); err != nil {
		return nil, fmt.Errorf("create storage root %s: %w", root, err)
	}
	return &LocalBackend{root: root}, nil
}

func (b *LocalBackend) Name() string { return "local" }

// path maps a locator to a file path, rejecting anything that would escape
// the root directory.
func (b *LocalBackend) path(locator string) (string, error) {
	if locator == "" || strings.Contains(locator, "/") || strings.Contains(locator, "..") {
		return "", fmt.Errorf("invalid locator %q", locator)
	}
	return filepath.Join(b.root, locator), nil
}

func (b *LocalBackend) Save(ctx context.Context, locator string, data []byte) error {
	p, err := b.path(locator)
	if err != nil {
		return err
	}
	// Write via a temp file so a crash never leaves a half-written payload
	// under the final locator.
	tmp := p + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write %s: %w", locator, err)
	}
	if err := os.Rename(tmp, p); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("commit %s: %w", locator, err)
	}
	return nil
}

func (b *LocalBackend) Load(ctx context.Context, locator string) ([]byte, error) {
	p, err := b.path(locator)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", locator, err)
	}
	return data, nil
}

func (b *LocalBackend) List(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(b.root)
	if err != nil {
		return nil, fmt.Errorf("list storage root: %w", err)
	}
	var locators []string
	for _, e := range entries {
		if e.IsDir() || strings.HasSuffix(e.Name(), ".tmp") {
			continue
		}
		locators = append(locators, e.Name())
	}
	return locators, nil
}

func (b *LocalBackend) Delete(ctx context.Context, locator string) error {
	p, err := b.path(locator)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil {
		return fmt.Errorf("delete %s: %w", locator, err)
	}
	return nil
}

func (b *LocalBackend) Exists(ctx context.Context, locator string) (bool, error) {
	p, err := b.path(locator)
	if err != nil {
		return false, err
	}
	if _, err := os.Stat(p); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("stat %s: %w", locator, err)
	}
	return true, nil
}
