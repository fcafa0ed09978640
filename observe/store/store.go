// Package store persists observe.History records in SQLite.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/gnolang/rxobs/observe"
)

const schema = `
CREATE TABLE IF NOT EXISTS change_records (
	id         TEXT PRIMARY KEY,
	seq        INTEGER NOT NULL,
	ts         INTEGER NOT NULL,
	operation  TEXT NOT NULL,
	fn_name    TEXT NOT NULL,
	ident_name TEXT NOT NULL,
	value      TEXT NOT NULL,
	type_name  TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_change_records_path ON change_records(fn_name, ident_name);
`

// Store is an observe.Sink backed by a SQLite database file.
type Store struct {
	db *sql.DB
}

var _ observe.Sink = (*Store)(nil)

// Open opens or creates the database at path.
func Open(ctx context.Context, path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite3", "file:"+path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Append implements observe.Sink.
func (s *Store) Append(ctx context.Context, rec observe.ChangeRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO change_records (id, seq, ts, operation, fn_name, ident_name, value, type_name)
		VALUES (?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM change_records), ?, ?, ?, ?, ?, ?)`,
		rec.ID.String(), rec.Time.UnixNano(), rec.Op.String(), rec.Func, rec.Ident, rec.Value, rec.Type,
	)
	if err != nil {
		return fmt.Errorf("failed to insert record %s: %w", rec.ID, err)
	}
	return nil
}

// Filter narrows Records. Empty fields match everything.
type Filter struct {
	Func  string
	Ident string
}

// Records returns stored records in insertion order.
func (s *Store) Records(ctx context.Context, f Filter) ([]observe.ChangeRecord, error) {
	query := `SELECT id, ts, operation, fn_name, ident_name, value, type_name FROM change_records WHERE 1=1`
	var args []any
	if f.Func != "" {
		query += ` AND fn_name = ?`
		args = append(args, f.Func)
	}
	if f.Ident != "" {
		query += ` AND ident_name = ?`
		args = append(args, f.Ident)
	}
	query += ` ORDER BY seq`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	defer rows.Close()

	var out []observe.ChangeRecord
	for rows.Next() {
		var rec row
		if err := rows.Scan(&rec.ID, &rec.TS, &rec.Op, &rec.Func, &rec.Ident, &rec.Value, &rec.Type); err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		r, err := rec.record()
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

type row struct {
	ID    string
	TS    int64
	Op    string
	Func  string
	Ident string
	Value string
	Type  string
}

func (r row) record() (observe.ChangeRecord, error) {
	id, err := uuid.Parse(r.ID)
	if err != nil {
		return observe.ChangeRecord{}, fmt.Errorf("invalid record id %q: %w", r.ID, err)
	}
	var op observe.Op
	if err := op.UnmarshalText([]byte(r.Op)); err != nil {
		return observe.ChangeRecord{}, err
	}
	return observe.ChangeRecord{
		ID:    id,
		Time:  time.Unix(0, r.TS),
		Op:    op,
		Func:  r.Func,
		Ident: r.Ident,
		Value: r.Value,
		Type:  r.Type,
	}, nil
}

// Count returns the number of stored records.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM change_records`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count records: %w", err)
	}
	return n, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}
