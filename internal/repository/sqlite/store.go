// Package sqlite is the embedded Account Store backend. Every transaction
// starts with BEGIN IMMEDIATE, so writers are serialized by the database
// lock and plain reads inside a transaction behave like row locks.
package sqlite

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"tapminer/internal/store"

	"github.com/jmoiron/sqlx"
	sqlite3 "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schema string

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

var _ store.Store = (*Store)(nil)

type Store struct {
	db  *sqlx.DB
	now func() time.Time
}

// Open connects to path and creates the schema if needed.
func Open(path string) (*Store, error) {
	var dsn string
	memory := path == MemoryPath || path == ""
	if memory {
		dsn = "file::memory:?_txlock=immediate&_foreign_keys=on"
	} else {
		dsn = "file:" + path + "?_txlock=immediate&_busy_timeout=5000&_journal_mode=WAL&_foreign_keys=on"
	}

	db, err := sqlx.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if memory {
		// every new connection would get its own empty database
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		db.SetConnMaxLifetime(0)
	}

	s := &Store{db: db, now: func() time.Time { return time.Now().UTC() }}
	if err := s.InitSchema(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) InitSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("init sqlite schema: %w", err)
	}
	return nil
}

func (s *Store) InTx(ctx context.Context, fn func(tx store.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return mapError(err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(&txRepo{tx: tx, now: s.now}); err != nil {
		return mapError(err)
	}
	return mapError(tx.Commit())
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Close() {
	_ = s.db.Close()
}

type txRepo struct {
	tx  *sqlx.Tx
	now func() time.Time
}

func toNanos(t time.Time) int64 {
	return t.UTC().UnixNano()
}

func fromNanos(n int64) time.Time {
	return time.Unix(0, n).UTC()
}

func mapError(err error) error {
	if err == nil {
		return nil
	}
	var sqlErr sqlite3.Error
	if errors.As(err, &sqlErr) {
		switch {
		case sqlErr.ExtendedCode == sqlite3.ErrConstraintCheck &&
			strings.Contains(sqlErr.Error(), "accounts_balance_non_negative"):
			return fmt.Errorf("%w: %s", store.ErrInsufficientFunds, sqlErr.Error())
		case sqlErr.Code == sqlite3.ErrBusy || sqlErr.Code == sqlite3.ErrLocked:
			return fmt.Errorf("%w: %s", store.ErrConflict, sqlErr.Error())
		}
	}
	return err
}
