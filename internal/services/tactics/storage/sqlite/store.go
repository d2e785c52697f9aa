// Package sqlite provides a SQLite-backed snapshot store for game states.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	sqlitemigrate "github.com/louisbranch/hexfleet/internal/platform/storage/sqlitemigrate"
	"github.com/louisbranch/hexfleet/internal/services/tactics/storage"
	"github.com/louisbranch/hexfleet/internal/services/tactics/storage/snapshotcodec"
	"github.com/louisbranch/hexfleet/internal/services/tactics/storage/sqlite/migrations"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"
)

// Store persists snapshots in SQLite.
type Store struct {
	sqlDB *sql.DB
}

var _ storage.SnapshotStore = (*Store)(nil)

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Open opens a SQLite snapshot store and applies embedded migrations.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	cleanPath := filepath.Clean(path)
	dsn := cleanPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := sqlitemigrate.ApplyMigrations(context.Background(), sqlDB, migrations.FS, ""); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// PutSnapshot packs and inserts one snapshot. Versions are immutable; a
// second write of the same version returns storage.ErrAlreadyExists.
func (s *Store) PutSnapshot(ctx context.Context, snapshot storage.Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	gameID := strings.TrimSpace(snapshot.GameID)
	if gameID == "" {
		return fmt.Errorf("game id is required")
	}
	if snapshot.Version < 0 {
		return fmt.Errorf("version must not be negative")
	}
	payload, err := snapshotcodec.Pack(snapshot.State)
	if err != nil {
		return fmt.Errorf("pack snapshot: %w", err)
	}
	checksum, err := snapshotcodec.Checksum(payload)
	if err != nil {
		return fmt.Errorf("pack snapshot: %w", err)
	}
	createdAt := snapshot.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	_, err = s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO snapshots (game_id, version, payload, checksum, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		gameID,
		snapshot.Version,
		payload,
		checksum,
		toMillis(createdAt),
	)
	if err != nil {
		if isConstraintError(err) {
			return storage.ErrAlreadyExists
		}
		return fmt.Errorf("insert snapshot: %w", err)
	}
	return nil
}

// GetSnapshot fetches one snapshot version.
func (s *Store) GetSnapshot(ctx context.Context, gameID string, version int) (storage.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return storage.Snapshot{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.Snapshot{}, fmt.Errorf("storage is not configured")
	}
	row := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT game_id, version, payload, checksum, created_at
		 FROM snapshots WHERE game_id = ? AND version = ?`,
		strings.TrimSpace(gameID),
		version,
	)
	return scanSnapshot(row)
}

// LatestSnapshot fetches the highest version stored for gameID.
func (s *Store) LatestSnapshot(ctx context.Context, gameID string) (storage.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return storage.Snapshot{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.Snapshot{}, fmt.Errorf("storage is not configured")
	}
	row := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT game_id, version, payload, checksum, created_at
		 FROM snapshots WHERE game_id = ? ORDER BY version DESC LIMIT 1`,
		strings.TrimSpace(gameID),
	)
	return scanSnapshot(row)
}

func scanSnapshot(row *sql.Row) (storage.Snapshot, error) {
	var (
		snapshot  storage.Snapshot
		payload   []byte
		createdAt int64
	)
	err := row.Scan(&snapshot.GameID, &snapshot.Version, &payload, &snapshot.Checksum, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return storage.Snapshot{}, storage.ErrNotFound
	}
	if err != nil {
		return storage.Snapshot{}, fmt.Errorf("scan snapshot: %w", err)
	}
	state, err := snapshotcodec.Unpack(payload)
	if err != nil {
		return storage.Snapshot{}, err
	}
	snapshot.State = state
	snapshot.CreatedAt = fromMillis(createdAt)
	return snapshot, nil
}

func isConstraintError(err error) bool {
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}
