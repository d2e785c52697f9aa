// Package storage defines persistence contracts for tactical game state.
package storage

import (
	"context"
	"errors"
	"time"

	apperrors "github.com/louisbranch/hexfleet/internal/platform/errors"
	"github.com/louisbranch/hexfleet/internal/services/tactics/domain/galaxy"
	"github.com/louisbranch/hexfleet/internal/services/tactics/domain/tactical"
)

var (
	// ErrNotFound indicates a requested record is missing.
	ErrNotFound = apperrors.New(apperrors.CodeNotFound, "record not found")
	// ErrAlreadyExists indicates a snapshot version was already written.
	ErrAlreadyExists = errors.New("record already exists")
)

// Snapshot is one stored version of a game's state.
type Snapshot struct {
	GameID    string
	Version   int
	State     galaxy.GameState
	Checksum  string
	CreatedAt time.Time
}

// SnapshotStore persists game state snapshots.
type SnapshotStore interface {
	PutSnapshot(ctx context.Context, snapshot Snapshot) error
	GetSnapshot(ctx context.Context, gameID string, version int) (Snapshot, error)
	LatestSnapshot(ctx context.Context, gameID string) (Snapshot, error)
}

// JournalEntry records one executed tactical action and the fingerprint of
// the state it produced.
type JournalEntry struct {
	GameID      string          `json:"game_id"`
	Seq         uint64          `json:"seq"`
	BaseVersion int             `json:"base_version"`
	Action      tactical.Action `json:"action"`
	Fingerprint string          `json:"fingerprint"`
	RecordedAt  time.Time       `json:"recorded_at"`
}

// Journal is an append-only log of tactical actions per game.
type Journal interface {
	Append(ctx context.Context, entry JournalEntry) (uint64, error)
	Entries(ctx context.Context, gameID string, afterSeq uint64) ([]JournalEntry, error)
}
