// Package sqlite provides a store.Store backed by SQLite (modernc.org/sqlite,
// no cgo).
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sync/atomic"

	_ "modernc.org/sqlite"

	"github.com/xraph/dues/store"
	"github.com/xraph/dues/store/internal/sqlstore"
)

var _ store.Store = (*Store)(nil)

// Store implements store.Store using SQLite.
type Store struct {
	*sqlstore.Store
}

var memSeq atomic.Int64

// Open opens (creating if needed) the database at dsn and runs migrations.
// ":memory:" yields a private in-memory database.
func Open(ctx context.Context, dsn string) (*Store, error) {
	if dsn == ":memory:" {
		dsn = fmt.Sprintf("file:dues-mem-%d?mode=memory&cache=shared", memSeq.Add(1))
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("dues/sqlite: open: %w", err)
	}

	// SQLite allows one writer; a single connection serializes writes
	// instead of surfacing SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("dues/sqlite: %s: %w", pragma, err)
		}
	}

	s := New(db)
	if err := s.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// New wraps an already open SQLite handle. Call Migrate before use.
func New(db *sql.DB) *Store {
	return &Store{Store: sqlstore.New(db, sqlstore.SQLite)}
}
