package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"
)

// FileStore is a Store backed by a single JSON file holding the entry
// array. Appends rewrite the whole file under an exclusive lock; a missing
// or corrupted file is treated as an empty ledger rather than an error,
// so a damaged store never blocks validation itself.
type FileStore struct {
	path    string
	mu      sync.Mutex
	entries []Entry
	head    string
	log     *slog.Logger
}

// NewFileStore opens (or initializes) the ledger file at path.
func NewFileStore(path string, logger *slog.Logger) (*FileStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	s := &FileStore{path: path, head: genesisHash, log: logger}
	s.load()
	return s, nil
}

// load reads the backing file. Unreadable or malformed content resets the
// store to empty; the damage is logged, not propagated.
func (s *FileStore) load() {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return
	}
	if err != nil {
		s.log.Warn("ledger store unreadable, starting empty", "path", s.path, "error", err)
		return
	}

	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		s.log.Warn("ledger store corrupted, starting empty", "path", s.path, "error", err)
		return
	}

	s.entries = entries
	if n := len(entries); n > 0 {
		s.head = entries[n-1].EntryHash
	}
}

func (s *FileStore) save() error {
	data, err := json.MarshalIndent(s.entries, "", "  ")
	if err != nil {
		return fmt.Errorf("ledger: marshal entries: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0600); err != nil {
		return fmt.Errorf("ledger: write %s: %w", s.path, err)
	}
	return nil
}

// Append seals the entry, adds it to the log, and persists the whole file.
// The read-modify-write sequence runs under the store lock.
func (s *FileStore) Append(ctx context.Context, e Entry) (Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sealed, err := seal(e, uint64(len(s.entries))+1, s.head)
	if err != nil {
		return Entry{}, err
	}

	s.entries = append(s.entries, sealed)
	if err := s.save(); err != nil {
		s.entries = s.entries[:len(s.entries)-1]
		return Entry{}, err
	}
	s.head = sealed.EntryHash
	return sealed, nil
}

// Get returns the entry with the given sequence number.
func (s *FileStore) Get(ctx context.Context, seq uint64) (Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if seq == 0 || seq > uint64(len(s.entries)) {
		return Entry{}, ErrNotFound
	}
	return s.entries[seq-1], nil
}

// ReadAll returns every entry in insertion order.
func (s *FileStore) ReadAll(ctx context.Context) ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Entry(nil), s.entries...), nil
}

// ReadLast returns the most recent n entries, oldest first.
func (s *FileStore) ReadLast(ctx context.Context, n int) ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Entry(nil), lastN(s.entries, n)...), nil
}

// Len returns the number of entries.
func (s *FileStore) Len(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries), nil
}
