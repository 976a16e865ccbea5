package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/tenx-dev/core/internal/types"
)

// Store persists one file per session under a per-user directory (spec §6
// Persisted state layout). JSON is the reference encoding; each file
// round-trips through Load byte-for-byte equivalently modulo whitespace.
type Store struct {
	dir string
}

// NewStore builds a Store rooted at dir, creating it if necessary.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("session store: %w", err)
	}
	return &Store{dir: dir}, nil
}

func (s *Store) path(id string) string {
	return filepath.Join(s.dir, id+".json")
}

// Save writes sess to its file, pretty-printed for readability/diffability.
func (s *Store) Save(sess *types.Session) error {
	data, err := json.MarshalIndent(sess, "", "  ")
	if err != nil {
		return fmt.Errorf("session store: marshal: %w", err)
	}
	tmp := s.path(sess.ID) + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("session store: write: %w", err)
	}
	return os.Rename(tmp, s.path(sess.ID))
}

// Load reads a session by id.
func (s *Store) Load(id string) (*types.Session, error) {
	data, err := os.ReadFile(s.path(id))
	if err != nil {
		return nil, fmt.Errorf("session store: load %s: %w", id, err)
	}
	var sess types.Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("session store: unmarshal %s: %w", id, err)
	}
	return &sess, nil
}

// Delete removes a session's file.
func (s *Store) Delete(id string) error {
	if err := os.Remove(s.path(id)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("session store: delete %s: %w", id, err)
	}
	return nil
}

// List returns a summary of every persisted session, most-recently-updated
// first.
func (s *Store) List() ([]types.Summary, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("session store: list: %w", err)
	}
	var out []types.Summary
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		id := e.Name()[:len(e.Name())-len(".json")]
		sess, err := s.Load(id)
		if err != nil {
			continue
		}
		out = append(out, types.Summary{
			ID:        sess.ID,
			Name:      sess.Name,
			UpdatedAt: sess.UpdatedAt,
			State:     sess.State,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}
