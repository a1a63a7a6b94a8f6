// Package ledger is the append-only, tamper-evident store of every
// validation attempt. Entries are immutable once appended and hash-chained
// to their predecessor; the chain can be re-verified offline at any time.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/certledger/certledger/pkg/canonical"
	"github.com/certledger/certledger/pkg/record"
	"github.com/certledger/certledger/pkg/schema"
)

var (
	// ErrNotFound is returned when a requested entry does not exist.
	ErrNotFound = errors.New("ledger: entry not found")
	// ErrChainBroken is returned by VerifyChain on any tamper evidence.
	ErrChainBroken = errors.New("ledger: hash chain is broken")
)

// genesisHash seeds the chain before the first entry.
const genesisHash = "genesis"

// Status is the validation outcome recorded in an entry.
type Status string

const (
	StatusSuccess Status = "SUCCESS"
	StatusFailed  Status = "FAILED"
)

// Mode distinguishes a fresh validation from a replay of stored input.
type Mode string

const (
	ModeNew    Mode = "NEW"
	ModeReplay Mode = "REPLAY"
)

// Entry is the persisted unit. It is immutable once appended; stores hand
// out copies, never references into their own storage.
type Entry struct {
	EntryID    string             `json:"entry_id"`
	Sequence   uint64             `json:"sequence"`
	TraceID    string             `json:"trace_id,omitempty"`
	Timestamp  time.Time          `json:"timestamp"`
	Status     Status             `json:"status"`
	Mode       Mode               `json:"type"`
	Original   record.Raw         `json:"original"`
	FinalAsset map[string]any     `json:"final_asset,omitempty"`
	Violations []schema.Violation `json:"violations,omitempty"`
	PrevHash   string             `json:"prev_hash"`
	EntryHash  string             `json:"entry_hash"`
}

// Store is the append-only log abstraction. Append persists one immutable
// entry; readers return entries in insertion order, oldest first.
type Store interface {
	Append(ctx context.Context, e Entry) (Entry, error)
	Get(ctx context.Context, seq uint64) (Entry, error)
	ReadAll(ctx context.Context) ([]Entry, error)
	ReadLast(ctx context.Context, n int) ([]Entry, error)
	Len(ctx context.Context) (int, error)
}

// seal assigns an entry its place in the chain: identity, sequence,
// predecessor hash, and its own content hash.
func seal(e Entry, seq uint64, prevHash string) (Entry, error) {
	if e.EntryID == "" {
		e.EntryID = uuid.New().String()
	}
	e.Sequence = seq
	e.PrevHash = prevHash

	h, err := entryHash(e)
	if err != nil {
		return Entry{}, err
	}
	e.EntryHash = h
	return e, nil
}

// entryHash computes the chained content hash over a canonical view of the
// entry. The entry ID is excluded: identity is not content.
func entryHash(e Entry) (string, error) {
	hashable := struct {
		Sequence   uint64             `json:"sequence"`
		TraceID    string             `json:"trace_id"`
		Timestamp  string             `json:"timestamp"`
		Status     Status             `json:"status"`
		Mode       Mode               `json:"type"`
		Original   record.Raw         `json:"original"`
		FinalAsset map[string]any     `json:"final_asset,omitempty"`
		Violations []schema.Violation `json:"violations,omitempty"`
		PrevHash   string             `json:"prev_hash"`
	}{
		Sequence:   e.Sequence,
		TraceID:    e.TraceID,
		Timestamp:  e.Timestamp.UTC().Format(time.RFC3339Nano),
		Status:     e.Status,
		Mode:       e.Mode,
		Original:   e.Original,
		FinalAsset: e.FinalAsset,
		Violations: e.Violations,
		PrevHash:   e.PrevHash,
	}

	b, err := canonical.Canonicalize(hashable)
	if err != nil {
		return "", fmt.Errorf("ledger: hash entry: %w", err)
	}
	return canonical.HashBytes(b), nil
}

// VerifyChain recomputes every entry hash and predecessor link in entries
// (insertion order expected) and returns ErrChainBroken on the first
// inconsistency found.
func VerifyChain(entries []Entry) error {
	prev := genesisHash
	for i, e := range entries {
		if e.Sequence != uint64(i)+1 {
			return fmt.Errorf("%w: entry %d has sequence %d", ErrChainBroken, i+1, e.Sequence)
		}
		if e.PrevHash != prev {
			return fmt.Errorf("%w: entry %d prev_hash %s, expected %s", ErrChainBroken, e.Sequence, e.PrevHash, prev)
		}
		computed, err := entryHash(e)
		if err != nil {
			return fmt.Errorf("%w: entry %d: %v", ErrChainBroken, e.Sequence, err)
		}
		if computed != e.EntryHash {
			return fmt.Errorf("%w: entry %d content hash mismatch", ErrChainBroken, e.Sequence)
		}
		prev = e.EntryHash
	}
	return nil
}

func lastN(entries []Entry, n int) []Entry {
	if n <= 0 || len(entries) == 0 {
		return nil
	}
	if n > len(entries) {
		n = len(entries)
	}
	return entries[len(entries)-n:]
}
