package ledger

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore is a Store backed by a SQLite database. Suitable when the
// ledger outgrows a single JSON file; the append-only contract is enforced
// by only ever issuing INSERTs.
type SQLiteStore struct {
	db *sql.DB
	mu sync.Mutex
}

// OpenSQLite opens (creating if needed) a SQLite database at path.
func OpenSQLite(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("ledger: open sqlite %s: %w", path, err)
	}
	return db, nil
}

// NewSQLiteStore wraps db as a ledger store, running migration first.
func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	query := `
	CREATE TABLE IF NOT EXISTS certification_log (
		entry_id    TEXT PRIMARY KEY,
		sequence    INTEGER NOT NULL UNIQUE,
		trace_id    TEXT,
		timestamp   TEXT NOT NULL,
		status      TEXT NOT NULL,
		mode        TEXT NOT NULL,
		original    TEXT NOT NULL,
		final_asset TEXT,
		violations  TEXT,
		prev_hash   TEXT NOT NULL,
		entry_hash  TEXT NOT NULL
	);`
	if _, err := s.db.ExecContext(context.Background(), query); err != nil {
		return fmt.Errorf("ledger: migrate: %w", err)
	}
	return nil
}

const entryColumns = `entry_id, sequence, trace_id, timestamp, status, mode, original, final_asset, violations, prev_hash, entry_hash`

// Append seals and inserts one entry. Sequencing is derived from the
// current tail under the store lock; this assumes the single-writer model
// the rest of the system runs under.
func (s *SQLiteStore) Append(ctx context.Context, e Entry) (Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var (
		lastSeq  uint64
		lastHash string
	)
	row := s.db.QueryRowContext(ctx, `SELECT sequence, entry_hash FROM certification_log ORDER BY sequence DESC LIMIT 1`)
	if err := row.Scan(&lastSeq, &lastHash); err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			return Entry{}, fmt.Errorf("ledger: read tail: %w", err)
		}
		lastHash = genesisHash
	}

	sealed, err := seal(e, lastSeq+1, lastHash)
	if err != nil {
		return Entry{}, err
	}

	original, err := json.Marshal(sealed.Original)
	if err != nil {
		return Entry{}, fmt.Errorf("ledger: marshal original: %w", err)
	}
	finalAsset, err := marshalNullable(sealed.FinalAsset != nil, sealed.FinalAsset)
	if err != nil {
		return Entry{}, fmt.Errorf("ledger: marshal final asset: %w", err)
	}
	violations, err := marshalNullable(sealed.Violations != nil, sealed.Violations)
	if err != nil {
		return Entry{}, fmt.Errorf("ledger: marshal violations: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO certification_log (`+entryColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sealed.EntryID, sealed.Sequence, sealed.TraceID,
		sealed.Timestamp.UTC().Format(time.RFC3339Nano),
		string(sealed.Status), string(sealed.Mode),
		string(original), finalAsset, violations,
		sealed.PrevHash, sealed.EntryHash,
	)
	if err != nil {
		return Entry{}, fmt.Errorf("ledger: insert entry: %w", err)
	}
	return sealed, nil
}

func marshalNullable(present bool, v any) (sql.NullString, error) {
	if !present {
		return sql.NullString{}, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

// Get returns the entry with the given sequence number.
func (s *SQLiteStore) Get(ctx context.Context, seq uint64) (Entry, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+entryColumns+` FROM certification_log WHERE sequence = ?`, seq)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, ErrNotFound
	}
	return e, err
}

// ReadAll returns every entry in insertion order.
func (s *SQLiteStore) ReadAll(ctx context.Context) ([]Entry, error) {
	return s.query(ctx, `SELECT `+entryColumns+` FROM certification_log ORDER BY sequence ASC`)
}

// ReadLast returns the most recent n entries, oldest first.
func (s *SQLiteStore) ReadLast(ctx context.Context, n int) ([]Entry, error) {
	if n <= 0 {
		return nil, nil
	}
	entries, err := s.query(ctx,
		`SELECT `+entryColumns+` FROM certification_log ORDER BY sequence DESC LIMIT ?`, n)
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}
	return entries, nil
}

// Len returns the number of entries.
func (s *SQLiteStore) Len(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM certification_log`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("ledger: count entries: %w", err)
	}
	return n, nil
}

func (s *SQLiteStore) query(ctx context.Context, query string, args ...any) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ledger: query entries: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var entries []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ledger: iterate entries: %w", err)
	}
	return entries, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (Entry, error) {
	var (
		e          Entry
		traceID    sql.NullString
		timestamp  string
		status     string
		mode       string
		original   string
		finalAsset sql.NullString
		violations sql.NullString
	)
	err := row.Scan(&e.EntryID, &e.Sequence, &traceID, &timestamp, &status, &mode,
		&original, &finalAsset, &violations, &e.PrevHash, &e.EntryHash)
	if err != nil {
		return Entry{}, err
	}

	e.TraceID = traceID.String
	e.Status = Status(status)
	e.Mode = Mode(mode)

	ts, err := time.Parse(time.RFC3339Nano, timestamp)
	if err != nil {
		return Entry{}, fmt.Errorf("ledger: parse timestamp %q: %w", timestamp, err)
	}
	e.Timestamp = ts

	if err := json.Unmarshal([]byte(original), &e.Original); err != nil {
		return Entry{}, fmt.Errorf("ledger: decode original: %w", err)
	}
	if finalAsset.Valid {
		if err := json.Unmarshal([]byte(finalAsset.String), &e.FinalAsset); err != nil {
			return Entry{}, fmt.Errorf("ledger: decode final asset: %w", err)
		}
	}
	if violations.Valid {
		if err := json.Unmarshal([]byte(violations.String), &e.Violations); err != nil {
			return Entry{}, fmt.Errorf("ledger: decode violations: %w", err)
		}
	}
	return e, nil
}
