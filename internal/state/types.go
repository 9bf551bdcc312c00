package state

import (
	"context"
	"errors"
	"time"
)

var ErrDisabled = errors.New("state store disabled")

// Store is the persistence API the run controller uses. Load returns
// the previously delivered fingerprints in insertion order; Save
// replaces them wholesale. One run calls Load once at the start and
// Save at most once at the end.
type Store interface {
	Load(ctx context.Context) ([]string, error)
	Save(ctx context.Context, fingerprints []string) error
	Close() error
}

// Config configures persistence.
//
// Driver values:
//   - "file" (default): single JSON record
//   - "sqlite": SQLite database file
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite only; 0 means default
}
