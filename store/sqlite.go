package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/cockroachdb/errors"
	_ "modernc.org/sqlite"
)

const sqliteQueryTimeout = 5 * time.Second

// SQLiteStore is a Store backed by a single SQLite database file. It offers a
// crash-safe alternative to the directory-per-domain file store when many
// small entries are persisted.
type SQLiteStore struct {
	db *sql.DB
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLite returns a Store backed by SQLite at dbPath.
// If dbPath is empty or ":memory:", an in-memory database is used.
func NewSQLite(ctx context.Context, dbPath string) (*SQLiteStore, error) {
	if dbPath == "" {
		dbPath = ":memory:"
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, errors.Wrap(err, "store: opening sqlite database")
	}
	// WAL mode for better concurrent read performance.
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "store: enabling WAL")
	}
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS entries (
		domain TEXT NOT NULL,
		key TEXT NOT NULL,
		value BLOB NOT NULL,
		updated_at INTEGER NOT NULL,
		PRIMARY KEY (domain, key)
	)`); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "store: creating entries table")
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) queryCtx(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, sqliteQueryTimeout)
}

func (s *SQLiteStore) Load(ctx context.Context, domain, key string) ([]byte, bool, error) {
	if err := checkPair(domain, key); err != nil {
		return nil, false, err
	}
	qctx, cancel := s.queryCtx(ctx)
	defer cancel()
	var data []byte
	err := s.db.QueryRowContext(qctx,
		"SELECT value FROM entries WHERE domain = ? AND key = ?", domain, key).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		log.Debugw("sqlite load failed, treated as miss", "domain", domain, "key", key, "err", err)
		return nil, false, nil
	}
	return data, true, nil
}

func (s *SQLiteStore) Save(ctx context.Context, domain, key string, data []byte) error {
	if err := checkPair(domain, key); err != nil {
		return err
	}
	qctx, cancel := s.queryCtx(ctx)
	defer cancel()
	_, err := s.db.ExecContext(qctx, `INSERT INTO entries (domain, key, value, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (domain, key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		domain, key, data, time.Now().Unix())
	return err
}

func (s *SQLiteStore) Delete(ctx context.Context, domain, key string) error {
	if err := checkPair(domain, key); err != nil {
		return err
	}
	qctx, cancel := s.queryCtx(ctx)
	defer cancel()
	_, err := s.db.ExecContext(qctx, "DELETE FROM entries WHERE domain = ? AND key = ?", domain, key)
	return err
}

func (s *SQLiteStore) DeleteDomain(ctx context.Context, domain string) error {
	if err := checkDomain(domain); err != nil {
		return err
	}
	qctx, cancel := s.queryCtx(ctx)
	defer cancel()
	_, err := s.db.ExecContext(qctx, "DELETE FROM entries WHERE domain = ?", domain)
	return err
}

// Close shuts down the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
