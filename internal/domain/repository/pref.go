// Package repository defines persistence interfaces for domain data.
package repository

import (
	"context"
	"encoding/json"
)

// PrefRepository is a durable key/value store of JSON lists, shared by the
// subsystems of one profile. Each subsystem owns and mutates its own keys.
type PrefRepository interface {
	// GetList returns the list stored under key, or nil if none.
	GetList(ctx context.Context, key string) ([]json.RawMessage, error)

	// SetList replaces the list stored under key. The write is visible to
	// GetList immediately; flushing to disk is up to the implementation.
	SetList(ctx context.Context, key string, values []json.RawMessage) error
}
