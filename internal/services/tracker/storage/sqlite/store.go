// Package sqlite provides the SQLite-backed failure journal.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"

	"github.com/louisbranch/pokeachieve/internal/platform/storage/sqlitemigrate"
	"github.com/louisbranch/pokeachieve/internal/services/tracker/storage"
	"github.com/louisbranch/pokeachieve/internal/services/tracker/storage/sqlite/migrations"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

// Store persists failure records in SQLite.
type Store struct {
	sqlDB *sql.DB
	now   func() time.Time
}

var _ storage.FailureStore = (*Store)(nil)

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Open opens a SQLite journal and applies embedded migrations.
func Open(ctx context.Context, path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	cleanPath := filepath.Clean(path)
	dsn := cleanPath + "?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := sqlitemigrate.Apply(ctx, sqlDB, migrations.FS, "."); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB, now: time.Now}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// RecordFailure inserts one record. Empty ids get a fresh UUID and a zero
// CreatedAt is set to now.
func (s *Store) RecordFailure(ctx context.Context, record storage.FailureRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	record.Source = strings.TrimSpace(record.Source)
	record.Kind = strings.TrimSpace(record.Kind)
	if record.Source == "" {
		return fmt.Errorf("failure source is required")
	}
	if !storage.ValidKind(record.Kind) {
		return fmt.Errorf("unknown failure kind %q", record.Kind)
	}
	if strings.TrimSpace(record.ID) == "" {
		record.ID = uuid.NewString()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = s.now()
	}

	_, err := s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO poll_failures (id, source, kind, detail, created_at) VALUES (?, ?, ?, ?, ?)`,
		record.ID,
		record.Source,
		record.Kind,
		record.Detail,
		toMillis(record.CreatedAt),
	)
	if err != nil {
		if isConstraintError(err) {
			return storage.ErrAlreadyExists
		}
		return fmt.Errorf("insert failure record: %w", err)
	}
	return nil
}

// ListFailures returns the newest records first.
func (s *Store) ListFailures(ctx context.Context, limit int) ([]storage.FailureRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	rows, err := s.sqlDB.QueryContext(
		ctx,
		`SELECT id, source, kind, detail, created_at
		 FROM poll_failures
		 ORDER BY created_at DESC, id DESC
		 LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list failure records: %w", err)
	}
	defer rows.Close()

	records := make([]storage.FailureRecord, 0, limit)
	for rows.Next() {
		var (
			record    storage.FailureRecord
			createdAt int64
		)
		if err := rows.Scan(&record.ID, &record.Source, &record.Kind, &record.Detail, &createdAt); err != nil {
			return nil, fmt.Errorf("scan failure record: %w", err)
		}
		record.CreatedAt = fromMillis(createdAt)
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate failure records: %w", err)
	}
	return records, nil
}

// PruneFailures deletes records created before the cutoff and returns how
// many were removed.
func (s *Store) PruneFailures(ctx context.Context, before time.Time) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if s == nil || s.sqlDB == nil {
		return 0, fmt.Errorf("storage is not configured")
	}
	result, err := s.sqlDB.ExecContext(ctx, `DELETE FROM poll_failures WHERE created_at < ?`, toMillis(before))
	if err != nil {
		return 0, fmt.Errorf("prune failure records: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("prune failure records: %w", err)
	}
	return n, nil
}

func isConstraintError(err error) bool {
	if err == nil {
		return false
	}
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	message := strings.ToLower(err.Error())
	return strings.Contains(message, "unique constraint failed") &&
		strings.Contains(message, "poll_failures.id")
}
