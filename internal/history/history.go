// Package history keeps a journal of applied cache actions (loads,
// updates, deletions) in ~/.cachemgr/history.json.
package history

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"path/filepath"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/raphi011/cachemgr/internal/storage"
)

// MaxEntries bounds the journal; older entries are dropped first.
const MaxEntries = 500

// Op names a journaled action.
type Op string

const (
	OpLoad   Op = "load"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

// Entry is one applied (or failed) action.
type Entry struct {
	ID    string    `json:"id"`
	Time  time.Time `json:"time"`
	Op    Op        `json:"op"`
	Cache string    `json:"cache"`
	Token string    `json:"token,omitempty"`
	Node  string    `json:"node,omitempty"`
	From  string    `json:"from,omitempty"`
	To    string    `json:"to,omitempty"`
	Error string    `json:"error,omitempty"`
}

// History is the on-disk journal, oldest entry first.
type History struct {
	Entries []Entry `json:"entries"`
}

// DefaultPath returns ~/.cachemgr/history.json.
func DefaultPath() (string, error) {
	dir, err := storage.DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "history.json"), nil
}

// Load reads the journal. A missing or corrupted file yields an empty one.
func Load(path string) (*History, error) {
	var h History
	err := storage.LoadJSON(path, &h)
	var syntax *json.SyntaxError
	var typ *json.UnmarshalTypeError
	switch {
	case errors.Is(err, fs.ErrNotExist), errors.As(err, &syntax), errors.As(err, &typ):
		return &History{}, nil
	case err != nil:
		return nil, err
	}
	return &h, nil
}

// Recent returns up to n entries, newest first. n <= 0 returns all.
func (h *History) Recent(n int) []Entry {
	if n <= 0 || n > len(h.Entries) {
		n = len(h.Entries)
	}
	out := make([]Entry, 0, n)
	for i := len(h.Entries) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, h.Entries[i])
	}
	return out
}

// Journal appends entries to a history file.
type Journal struct {
	path string
	now  func() time.Time
}

// NewJournal returns a Journal writing to path.
func NewJournal(path string) *Journal {
	return &Journal{path: path, now: time.Now}
}

// Path returns the journal file.
func (j *Journal) Path() string { return j.path }

// Record stamps entries with an id and time and appends them under a file
// lock.
func (j *Journal) Record(ctx context.Context, entries ...Entry) error {
	if len(entries) == 0 {
		return nil
	}
	return storage.WithLock(ctx, j.path+".lock", func() error {
		h, err := Load(j.path)
		if err != nil {
			return err
		}
		for _, e := range entries {
			if e.Time.IsZero() {
				e.Time = j.now()
			}
			if e.ID == "" {
				e.ID = ulid.MustNew(ulid.Timestamp(e.Time), ulid.DefaultEntropy()).String()
			}
			h.Entries = append(h.Entries, e)
		}
		if over := len(h.Entries) - MaxEntries; over > 0 {
			h.Entries = append([]Entry(nil), h.Entries[over:]...)
		}
		return storage.SaveJSON(j.path, h)
	})
}

// Load reads the journal file.
func (j *Journal) Load() (*History, error) {
	return Load(j.path)
}
