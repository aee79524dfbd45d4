// Package store is the durable, crash-safe state store: the sole
// serialization point for every mutation made by the watchtower core.
// It is backed by a single modernc.org/sqlite connection (pure Go, no
// cgo) restricted to one open connection so that SQLite's
// single-writer behaviour gives the daemon one logical writer per
// database file without an additional in-process mutex.
package store

import (
	"database/sql"
	_ "embed"
	"fmt"
	"time"

	"github.com/obycode/stackflow-sub001/internal/model"
	"github.com/obycode/stackflow-sub001/internal/wtlog"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

const currentSchemaVersion = 1

// Store is the primary datastore for the watchtower daemon.
type Store struct {
	db              *sql.DB
	maxRecentEvents int
}

// Open opens (creating if absent) the backing SQLite file at path,
// applies any pending schema migration, and primes the connection pool
// to a single writer connection.
func Open(path string, maxRecentEvents int) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=synchronous(FULL)&_pragma=foreign_keys(1)", path)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("unable to open state store: %w", err)
	}

	// SQLite only supports one writer; pinning the pool to a single
	// connection makes that writer the store's serialization point
	// without any extra locking in this package.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	s := &Store{db: db, maxRecentEvents: maxRecentEvents}

	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}

	wtlog.STRLog.Infof("state store opened at %s", path)
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	if _, err := s.db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("unable to apply schema: %w", err)
	}

	var existing string
	err := s.db.QueryRow(`SELECT value FROM schema_meta WHERE key = 'version'`).Scan(&existing)
	switch {
	case err == sql.ErrNoRows:
		_, err = s.db.Exec(
			`INSERT INTO schema_meta(key, value) VALUES ('version', ?)`,
			fmt.Sprintf("%d", currentSchemaVersion))
		return err
	case err != nil:
		return err
	default:
		// Only one schema version exists today; a future migration
		// list would walk forward from `existing` here.
		return nil
	}
}

func now() int64 { return time.Now().Unix() }
