package conversation

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"

	"github.com/rs/zerolog"
)

// Store persists one JSON file per conversation, named by its decimal ID,
// inside a single directory. Listing is a directory scan, not an index.
//
// ID allocation and the initial write happen under one mutex, so two
// concurrent creates can never observe the same maximum and collide.
type Store struct {
	dir string
	log zerolog.Logger

	mu sync.Mutex // serializes allocate+write for new conversations
}

// NewStore returns a Store rooted at dir. The directory is created lazily on
// the first write.
func NewStore(dir string, log zerolog.Logger) *Store {
	return &Store{dir: dir, log: log}
}

// parseID reports whether name is a plain non-negative decimal integer.
// Leading zeros and non-numeric suffixes are rejected, so stray files like
// "12.bak" or "007" never count as conversations.
func parseID(name string) (uint64, bool) {
	if name == "" || (len(name) > 1 && name[0] == '0') {
		return 0, false
	}
	n, err := strconv.ParseUint(name, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

func (s *Store) path(id string) string {
	return filepath.Join(s.dir, id)
}

// nextID scans the storage directory and returns one greater than the
// highest existing ID, or "1" on an empty store. Callers must hold s.mu.
func (s *Store) nextID() (string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "1", nil
		}
		return "", &StorageError{Op: "scan " + s.dir, Err: err}
	}
	var max uint64
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if n, ok := parseID(e.Name()); ok && n > max {
			max = n
		}
	}
	return strconv.FormatUint(max+1, 10), nil
}

// Create allocates the next sequential ID, assigns it to c, and writes the
// record. Allocation and write are a single critical section.
func (s *Store) Create(c *Conversation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, err := s.nextID()
	if err != nil {
		return err
	}
	c.ID = id
	return s.write(c)
}

// Write serializes c to its file, replacing any previous content wholesale.
func (s *Store) Write(c *Conversation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.write(c)
}

func (s *Store) write(c *Conversation) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return &StorageError{Op: "create " + s.dir, Err: err}
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return &StorageError{Op: "encode " + c.ID, Err: err}
	}
	if err := os.WriteFile(s.path(c.ID), data, 0o644); err != nil {
		return &StorageError{Op: "write " + c.ID, Err: err}
	}
	return nil
}

// Read loads the conversation with the given ID. A missing or malformed
// file yields a NotFoundError.
func (s *Store) Read(id string) (*Conversation, error) {
	if _, ok := parseID(id); !ok {
		return nil, &NotFoundError{ID: id}
	}
	data, err := os.ReadFile(s.path(id))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, &NotFoundError{ID: id}
		}
		return nil, &StorageError{Op: "read " + id, Err: err}
	}
	var c Conversation
	if err := json.Unmarshal(data, &c); err != nil {
		s.log.Warn().Str("id", id).Err(err).Msg("conversation file is malformed")
		return nil, &NotFoundError{ID: id}
	}
	return &c, nil
}

// List enumerates every valid conversation file, sorted by updated_at
// descending. Files that fail to parse are logged and skipped rather than
// aborting the whole listing.
func (s *Store) List() ([]Summary, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []Summary{}, nil
		}
		return nil, &StorageError{Op: "scan " + s.dir, Err: err}
	}

	summaries := make([]Summary, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if _, ok := parseID(e.Name()); !ok {
			continue
		}
		c, err := s.Read(e.Name())
		if err != nil {
			s.log.Warn().Str("id", e.Name()).Err(err).Msg("skipping unreadable conversation")
			continue
		}
		summaries = append(summaries, Summarize(c))
	}

	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].UpdatedAt.After(summaries[j].UpdatedAt)
	})
	return summaries, nil
}

// Count returns the number of valid conversation files. Cheaper than List:
// it only scans names, it does not read file contents.
func (s *Store) Count() (int, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, nil
		}
		return 0, &StorageError{Op: "scan " + s.dir, Err: err}
	}
	n := 0
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if _, ok := parseID(e.Name()); ok {
			n++
		}
	}
	return n, nil
}

// Delete removes the conversation file. It reports success rather than
// returning an error: a failed remove is logged and surfaces as false.
func (s *Store) Delete(id string) bool {
	if _, ok := parseID(id); !ok {
		return false
	}
	if err := os.Remove(s.path(id)); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			s.log.Warn().Str("id", id).Err(err).Msg("failed to delete conversation file")
		}
		return false
	}
	return true
}
