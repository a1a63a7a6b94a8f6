package ledger

import (
	"context"
	"sync"
)

// MemoryStore is an in-process Store used by tests and the demo command.
type MemoryStore struct {
	mu      sync.RWMutex
	entries []Entry
	head    string
}

// NewMemoryStore creates an empty in-memory ledger.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{head: genesisHash}
}

// Append seals and stores one entry.
func (s *MemoryStore) Append(ctx context.Context, e Entry) (Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sealed, err := seal(e, uint64(len(s.entries))+1, s.head)
	if err != nil {
		return Entry{}, err
	}
	s.entries = append(s.entries, sealed)
	s.head = sealed.EntryHash
	return sealed, nil
}

// Get returns the entry with the given sequence number.
func (s *MemoryStore) Get(ctx context.Context, seq uint64) (Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if seq == 0 || seq > uint64(len(s.entries)) {
		return Entry{}, ErrNotFound
	}
	return s.entries[seq-1], nil
}

// ReadAll returns every entry in insertion order.
func (s *MemoryStore) ReadAll(ctx context.Context) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Entry(nil), s.entries...), nil
}

// ReadLast returns the most recent n entries, oldest first.
func (s *MemoryStore) ReadLast(ctx context.Context, n int) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Entry(nil), lastN(s.entries, n)...), nil
}

// Len returns the number of entries.
func (s *MemoryStore) Len(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries), nil
}
