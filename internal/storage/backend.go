// Package storage defines the pluggable byte-store abstraction backups are
// written through. Backends are addressed by opaque locators and hold no
// state beyond the underlying medium.
package storage

import "context"

type Backend interface {
	Name() string
	Save(ctx context.Context, locator string, data []byte) error
	Load(ctx context.Context, locator string) ([]byte, error)
	List(ctx context.Context) ([]string, error)
	Delete(ctx context.Context, locator string) error
	Exists(ctx context.Context, locator string) (bool, error)
}
