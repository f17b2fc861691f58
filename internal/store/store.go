// Package store is the embedded persistence layer (spec §4.1, component
// C1): a single sqlite file at the OS user-config location holding
// configuration, sessions, messages, and branches. It is the only writer
// of persistent state; cross-process write contention resolves via
// sqlite's own busy timeout, surfaced here as coreerr.KindBusy.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/kyco/termai/internal/coreerr"
	"github.com/kyco/termai/internal/logging"

	_ "modernc.org/sqlite"
)

// schemaVersion is the current code-side schema version. On startup, if
// the stored version is lower, the migrations slice is applied in a single
// transaction.
const schemaVersion = 1

// schemaVersionKey is the reserved config key recording the applied schema version.
const schemaVersionKey = "__schema_version"

// busyTimeout bounds how long a writer waits on lock contention before the
// operation fails with coreerr.KindBusy.
const busyTimeout = 5 * time.Second

// Store wraps the single sqlite connection pool backing the core.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens (and if necessary creates and migrates) the store at path.
func Open(ctx context.Context, path string) (*Store, error) {
	dsn := fmt.Sprintf(
		"%s?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=foreign_keys(ON)&_pragma=busy_timeout(%d)",
		path, busyTimeout.Milliseconds(),
	)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, coreerr.Wrap(coreerr.KindIntegrityError, "open store", err)
	}
	// A single writer connection avoids SQLITE_BUSY under our own process;
	// cross-process contention still goes through busy_timeout.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		return nil, coreerr.Wrap(coreerr.KindIntegrityError, "ping store", err)
	}

	s := &Store{db: db, path: path}
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// DB exposes the underlying *sql.DB for package-internal use by sibling
// subsystems (session, branch) that live in their own packages but share
// this one store handle, per the "single owned handle" design note (§9).
func (s *Store) DB() *sql.DB {
	return s.db
}

func (s *Store) migrate(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return coreerr.Wrap(coreerr.KindBusy, "begin migration transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, baseSchema); err != nil {
		return coreerr.Wrap(coreerr.KindIntegrityError, "apply base schema", err)
	}

	var storedVersion int
	row := tx.QueryRowContext(ctx, `SELECT value FROM config WHERE key = ?`, schemaVersionKey)
	var raw string
	switch err := row.Scan(&raw); {
	case err == sql.ErrNoRows:
		storedVersion = 0
	case err != nil:
		return coreerr.Wrap(coreerr.KindIntegrityError, "read schema version", err)
	default:
		if _, err := fmt.Sscanf(raw, "%d", &storedVersion); err != nil {
			storedVersion = 0
		}
	}

	for v := storedVersion; v < schemaVersion; v++ {
		migration, ok := migrations[v]
		if !ok {
			continue
		}
		if _, err := tx.ExecContext(ctx, migration); err != nil {
			return coreerr.Wrap(coreerr.KindIntegrityError, fmt.Sprintf("apply migration %d", v), err)
		}
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO config(key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, schemaVersionKey, fmt.Sprintf("%d", schemaVersion)); err != nil {
		return coreerr.Wrap(coreerr.KindIntegrityError, "record schema version", err)
	}

	if err := tx.Commit(); err != nil {
		return coreerr.Wrap(coreerr.KindBusy, "commit migration transaction", err)
	}

	logging.Info(ctx, "store migrated", slog.Int("schema_version", schemaVersion))
	return nil
}

// baseSchema creates every table from a clean database. Existing
// deployments apply it idempotently via IF NOT EXISTS.
const baseSchema = `
CREATE TABLE IF NOT EXISTS config (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS sessions (
	id         TEXT PRIMARY KEY,
	name       TEXT UNIQUE,
	created_at INTEGER NOT NULL,
	last_activity INTEGER NOT NULL,
	current    INTEGER NOT NULL DEFAULT 0,
	temporary  INTEGER NOT NULL DEFAULT 0,
	active_branch_id TEXT
);

CREATE TABLE IF NOT EXISTS messages (
	id         TEXT PRIMARY KEY,
	session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
	role       TEXT NOT NULL,
	content    TEXT NOT NULL,
	seq        INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_messages_session_seq ON messages(session_id, seq);

CREATE TABLE IF NOT EXISTS branches (
	id               TEXT PRIMARY KEY,
	session_id       TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
	parent_branch_id TEXT,
	name             TEXT NOT NULL,
	description      TEXT NOT NULL DEFAULT '',
	status           TEXT NOT NULL DEFAULT 'active',
	from_message_seq INTEGER NOT NULL DEFAULT 0,
	created_at       INTEGER NOT NULL,
	last_activity    INTEGER NOT NULL,
	bookmark_name    TEXT
);
CREATE INDEX IF NOT EXISTS idx_branches_session ON branches(session_id);
CREATE UNIQUE INDEX IF NOT EXISTS idx_branches_session_name ON branches(session_id, name);
CREATE UNIQUE INDEX IF NOT EXISTS idx_branches_session_bookmark ON branches(session_id, bookmark_name) WHERE bookmark_name IS NOT NULL;

CREATE TABLE IF NOT EXISTS branch_messages (
	id         TEXT PRIMARY KEY,
	branch_id  TEXT NOT NULL REFERENCES branches(id) ON DELETE CASCADE,
	session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
	role       TEXT NOT NULL,
	content    TEXT NOT NULL,
	seq        INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_branch_messages_branch_seq ON branch_messages(branch_id, seq);
`

// migrations holds ordered schema deltas, keyed by the version they upgrade
// FROM. Applied in a single transaction at startup when storedVersion <
// schemaVersion. Empty for the initial release; future migrations append
// here without altering baseSchema, so existing databases upgrade in place.
var migrations = map[int]string{}
