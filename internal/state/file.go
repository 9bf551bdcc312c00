package state

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"

	logx "feedbot/pkg/logx"
)

// fileStore keeps the whole seen set in one JSON record:
//
//	{"seen": ["<fingerprint>", ...]}
//
// The layout round-trips losslessly and matches the state files earlier
// versions of this bot wrote. Writes go through a temp file + rename so
// a crash mid-write never leaves a torn record behind.
type fileStore struct {
	path string
	log  logx.Logger
}

type stateRecord struct {
	Seen []string `json:"seen"`
}

func openFile(cfg Config, log logx.Logger) (Store, error) {
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		return nil, errors.New("state.path is required for file driver")
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	return &fileStore{path: path, log: log}, nil
}

// Load returns the persisted fingerprints. A missing or unparseable
// file is an empty set, never an error: losing state only risks one
// round of duplicates, while aborting the run delivers nothing.
func (s *fileStore) Load(ctx context.Context) ([]string, error) {
	_ = ctx
	b, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.log.Warn("state file unreadable; starting empty", logx.String("path", s.path), logx.Err(err))
		}
		return nil, nil
	}
	var rec stateRecord
	if err := json.Unmarshal(b, &rec); err != nil {
		s.log.Warn("state file corrupt; starting empty", logx.String("path", s.path), logx.Err(err))
		return nil, nil
	}
	return rec.Seen, nil
}

func (s *fileStore) Save(ctx context.Context, fingerprints []string) error {
	_ = ctx
	rec := stateRecord{Seen: fingerprints}
	if rec.Seen == nil {
		rec.Seen = []string{}
	}
	b, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}

func (s *fileStore) Close() error { return nil }
