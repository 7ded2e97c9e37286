// Package draftstore keeps a local index of drafts created by this tool.
// Only identifying metadata is stored; bodies stay on the server.
package draftstore

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	json "github.com/goccy/go-json"
	"github.com/gofrs/flock"

	"github.com/joshsymonds/gmail-cli/internal/apperr"
)

// Record is the metadata remembered for one draft.
type Record struct {
	Subject string    `json:"subject"`
	To      string    `json:"to"`
	Created time.Time `json:"created"`
}

// Store is a JSON file mapping draft id to Record.
type Store struct {
	Path   string
	Logger *slog.Logger
	Clock  func() time.Time
}

// New returns a store backed by path.
func New(path string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, nil))
	}
	return &Store{Path: path, Logger: logger, Clock: time.Now}
}

// Load returns the current mapping. A missing or unreadable file yields an
// empty mapping.
func (s *Store) Load() map[string]Record {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			s.Logger.Warn("could not read draft store", "path", s.Path, "error", err)
		}
		return map[string]Record{}
	}
	records := map[string]Record{}
	if err := json.Unmarshal(data, &records); err != nil {
		s.Logger.Warn("ignoring corrupt draft store", "path", s.Path, "error", err)
		return map[string]Record{}
	}
	if records == nil {
		records = map[string]Record{}
	}
	return records
}

// Save inserts or overwrites the record for id.
func (s *Store) Save(id, subject, to string) error {
	return s.update(func(records map[string]Record) bool {
		records[id] = Record{Subject: subject, To: to, Created: s.Clock().UTC().Truncate(time.Second)}
		return true
	})
}

// Remove deletes ids from the store. Unknown ids are ignored and the file
// is not rewritten when nothing changed.
func (s *Store) Remove(ids ...string) error {
	return s.update(func(records map[string]Record) bool {
		changed := false
		for _, id := range ids {
			if _, ok := records[id]; ok {
				delete(records, id)
				changed = true
			}
		}
		return changed
	})
}

// update runs a read-modify-write cycle under an exclusive lock file.
func (s *Store) update(mutate func(map[string]Record) bool) error {
	dir := filepath.Dir(s.Path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return apperr.Wrap(err, apperr.KindIO, "create draft store directory")
	}
	lock := flock.New(s.Path + ".lock")
	if err := lock.Lock(); err != nil {
		return apperr.Wrap(err, apperr.KindIO, "lock draft store")
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			s.Logger.Debug("unlock draft store", "error", err)
		}
	}()

	records := s.Load()
	if !mutate(records) {
		return nil
	}
	if err := s.write(records); err != nil {
		return apperr.Wrap(err, apperr.KindIO, "save draft store")
	}
	return nil
}

func (s *Store) write(records map[string]Record) error {
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("encode drafts: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.Path), ".drafts-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(append(data, '\n')); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, s.Path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("rename to %s: %w", s.Path, err)
	}
	return nil
}
