package asset

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed memo_schema.sql
var memoSchemaSQL string

// memoSchemaVersion is bumped when the memo layout changes. A mismatched
// index is rebuilt from scratch; memo rows are only a cache.
const memoSchemaVersion = 1

// memoIndex persists the (source bytes + options) -> digest mapping.
type memoIndex struct {
	db   *sql.DB
	path string
}

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}

func openMemoIndex(path string) (*memoIndex, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open memo db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	idx := &memoIndex{db: db, path: path}
	if err := idx.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return idx, nil
}

func (m *memoIndex) initSchema(ctx context.Context) error {
	var tableExists int
	err := m.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&tableExists)
	if err != nil {
		return fmt.Errorf("check schema_version table: %w", err)
	}

	if tableExists > 0 {
		var version int
		if err := m.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version); err != nil {
			return fmt.Errorf("read memo schema version: %w", err)
		}
		if version == memoSchemaVersion {
			return nil
		}
		// Stale cache layout: drop and rebuild.
		for _, stmt := range []string{"DROP TABLE IF EXISTS memo", "DROP TABLE IF EXISTS schema_version"} {
			if _, err := m.db.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("reset memo schema: %w", err)
			}
		}
	}
	return m.createSchema(ctx)
}

func (m *memoIndex) createSchema(ctx context.Context) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin memo schema tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, memoSchemaSQL); err != nil {
		return fmt.Errorf("create memo schema: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", memoSchemaVersion); err != nil {
		return fmt.Errorf("record memo schema version: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit memo schema: %w", err)
	}
	return nil
}

// lookup returns the memoized ref for key, if any.
func (m *memoIndex) lookup(ctx context.Context, key string) (Ref, bool, error) {
	var ref Ref
	err := m.db.QueryRowContext(ctx,
		"SELECT digest, ext FROM memo WHERE key = ?", key,
	).Scan(&ref.Digest, &ref.Ext)
	if errors.Is(err, sql.ErrNoRows) {
		return Ref{}, false, nil
	}
	if err != nil {
		return Ref{}, false, fmt.Errorf("memo lookup: %w", err)
	}
	return ref, true, nil
}

// record stores the ref for key, replacing any previous row.
func (m *memoIndex) record(ctx context.Context, key string, ref Ref) error {
	return retryOnBusy(ctx, func() error {
		_, err := m.db.ExecContext(ctx,
			"INSERT OR REPLACE INTO memo (key, digest, ext) VALUES (?, ?, ?)",
			key, ref.Digest, ref.Ext,
		)
		if err != nil {
			return fmt.Errorf("memo record: %w", err)
		}
		return nil
	})
}

func (m *memoIndex) Close() error {
	if m == nil || m.db == nil {
		return nil
	}
	return m.db.Close()
}
