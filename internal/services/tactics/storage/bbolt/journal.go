// Package bbolt provides a BoltDB-backed action journal.
package bbolt

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/louisbranch/hexfleet/internal/services/tactics/storage"
	"go.etcd.io/bbolt"
)

const journalBucket = "journal"

// Journal stores tactical actions in one nested bucket per game, keyed by
// big-endian sequence number.
type Journal struct {
	db *bbolt.DB
}

var _ storage.Journal = (*Journal)(nil)

// Open opens a BoltDB-backed journal at the provided path.
func Open(path string) (*Journal, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}

	cleanPath := filepath.Clean(path)
	db, err := bbolt.Open(cleanPath, 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open journal db: %w", err)
	}

	j := &Journal{db: db}
	if err := j.ensureBuckets(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return j, nil
}

// Close closes the underlying BoltDB database.
func (j *Journal) Close() error {
	if j == nil || j.db == nil {
		return nil
	}
	return j.db.Close()
}

// Append stores entry under the next sequence number of its game and
// returns that number. Seq on the input is ignored.
func (j *Journal) Append(ctx context.Context, entry storage.JournalEntry) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if j == nil || j.db == nil {
		return 0, fmt.Errorf("storage is not configured")
	}
	gameID := strings.TrimSpace(entry.GameID)
	if gameID == "" {
		return 0, fmt.Errorf("game id is required")
	}
	if entry.RecordedAt.IsZero() {
		entry.RecordedAt = time.Now().UTC()
	}

	var seq uint64
	err := j.db.Update(func(tx *bbolt.Tx) error {
		root := tx.Bucket([]byte(journalBucket))
		if root == nil {
			return fmt.Errorf("journal bucket is missing")
		}
		game, err := root.CreateBucketIfNotExists([]byte(gameID))
		if err != nil {
			return fmt.Errorf("create game bucket: %w", err)
		}
		seq, err = game.NextSequence()
		if err != nil {
			return fmt.Errorf("next sequence: %w", err)
		}
		entry.GameID = gameID
		entry.Seq = seq
		payload, err := json.Marshal(entry)
		if err != nil {
			return fmt.Errorf("marshal journal entry: %w", err)
		}
		return game.Put(seqKey(seq), payload)
	})
	if err != nil {
		return 0, err
	}
	return seq, nil
}

// Entries returns the entries of gameID with a sequence number above
// afterSeq, oldest first. An unknown game has no entries.
func (j *Journal) Entries(ctx context.Context, gameID string, afterSeq uint64) ([]storage.JournalEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if j == nil || j.db == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	gameID = strings.TrimSpace(gameID)
	if gameID == "" {
		return nil, fmt.Errorf("game id is required")
	}

	var entries []storage.JournalEntry
	err := j.db.View(func(tx *bbolt.Tx) error {
		root := tx.Bucket([]byte(journalBucket))
		if root == nil {
			return fmt.Errorf("journal bucket is missing")
		}
		game := root.Bucket([]byte(gameID))
		if game == nil {
			return nil
		}
		c := game.Cursor()
		for k, v := c.Seek(seqKey(afterSeq + 1)); k != nil; k, v = c.Next() {
			var entry storage.JournalEntry
			if err := json.Unmarshal(v, &entry); err != nil {
				return fmt.Errorf("unmarshal journal entry %d: %w", binary.BigEndian.Uint64(k), err)
			}
			entries = append(entries, entry)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func (j *Journal) ensureBuckets() error {
	return j.db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists([]byte(journalBucket)); err != nil {
			return fmt.Errorf("create journal bucket: %w", err)
		}
		return nil
	})
}

func seqKey(seq uint64) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, seq)
	return key
}
