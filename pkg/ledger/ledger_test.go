package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/certledger/certledger/pkg/record"
	"github.com/certledger/certledger/pkg/schema"
)

func testEntry(status Status) Entry {
	e := Entry{
		Timestamp: time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC),
		Status:    status,
		Mode:      ModeNew,
		Original:  record.Raw{"isin": "US1234567890", "currency": "USD"},
	}
	if status == StatusSuccess {
		e.TraceID = "a-trace-id"
		e.FinalAsset = map[string]any{"isin": "US1234567890", "currency": "USD"}
	} else {
		e.Violations = []schema.Violation{{Field: "issuer", Code: schema.CodeMissing, Message: "required field \"issuer\" is missing"}}
	}
	return e
}

func TestMemoryStoreAppendAssignsChainPosition(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	first, err := s.Append(ctx, testEntry(StatusSuccess))
	require.NoError(t, err)
	second, err := s.Append(ctx, testEntry(StatusFailed))
	require.NoError(t, err)

	assert.Equal(t, uint64(1), first.Sequence)
	assert.Equal(t, uint64(2), second.Sequence)
	assert.NotEmpty(t, first.EntryID)
	assert.Equal(t, "genesis", first.PrevHash)
	assert.Equal(t, first.EntryHash, second.PrevHash)
}

func TestMemoryStoreReadBack(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	const n = 5
	for i := 0; i < n; i++ {
		_, err := s.Append(ctx, testEntry(StatusSuccess))
		require.NoError(t, err)
	}

	all, err := s.ReadAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, n)
	for i, e := range all {
		assert.Equal(t, uint64(i)+1, e.Sequence, "insertion order, oldest first")
	}

	last, err := s.ReadLast(ctx, 2)
	require.NoError(t, err)
	require.Len(t, last, 2)
	assert.Equal(t, uint64(n-1), last[0].Sequence)
	assert.Equal(t, uint64(n), last[1].Sequence)

	count, err := s.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, n, count)
}

func TestMemoryStoreGet(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	_, err := s.Append(ctx, testEntry(StatusFailed))
	require.NoError(t, err)

	e, err := s.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, e.Status)

	_, err = s.Get(ctx, 0)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.Get(ctx, 99)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestVerifyChainAcceptsHonestLedger(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	for i := 0; i < 4; i++ {
		_, err := s.Append(ctx, testEntry(StatusSuccess))
		require.NoError(t, err)
	}

	entries, err := s.ReadAll(ctx)
	require.NoError(t, err)
	assert.NoError(t, VerifyChain(entries))
	assert.NoError(t, VerifyChain(nil), "empty ledger verifies")
}

func TestVerifyChainDetectsTampering(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	for i := 0; i < 3; i++ {
		_, err := s.Append(ctx, testEntry(StatusSuccess))
		require.NoError(t, err)
	}
	entries, err := s.ReadAll(ctx)
	require.NoError(t, err)

	t.Run("edited content", func(t *testing.T) {
		tampered := append([]Entry(nil), entries...)
		tampered[1].Original = record.Raw{"isin": "XX0000000000"}
		assert.ErrorIs(t, VerifyChain(tampered), ErrChainBroken)
	})

	t.Run("dropped entry", func(t *testing.T) {
		tampered := []Entry{entries[0], entries[2]}
		assert.ErrorIs(t, VerifyChain(tampered), ErrChainBroken)
	})

	t.Run("relinked hash", func(t *testing.T) {
		tampered := append([]Entry(nil), entries...)
		tampered[2].PrevHash = "genesis"
		assert.ErrorIs(t, VerifyChain(tampered), ErrChainBroken)
	})
}

func TestEntryHashExcludesEntryID(t *testing.T) {
	e := testEntry(StatusSuccess)
	e.Sequence = 1
	e.PrevHash = "genesis"

	e.EntryID = "one"
	h1, err := entryHash(e)
	require.NoError(t, err)
	e.EntryID = "two"
	h2, err := entryHash(e)
	require.NoError(t, err)
	assert.Equal(t, h1, h2)
}
