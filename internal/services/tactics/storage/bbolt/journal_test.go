package bbolt

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/louisbranch/hexfleet/internal/services/tactics/domain/combat"
	"github.com/louisbranch/hexfleet/internal/services/tactics/domain/galaxy"
	"github.com/louisbranch/hexfleet/internal/services/tactics/domain/movement"
	"github.com/louisbranch/hexfleet/internal/services/tactics/domain/tactical"
	"github.com/louisbranch/hexfleet/internal/services/tactics/storage"
)

func TestOpenRequiresPath(t *testing.T) {
	if _, err := Open(" "); err == nil {
		t.Fatal("expected empty path error")
	}
}

func TestAppendAssignsSequencePerGame(t *testing.T) {
	j := openTempJournal(t)
	ctx := context.Background()

	for i, game := range []string{"g1", "g1", "g2", "g1"} {
		seq, err := j.Append(ctx, storage.JournalEntry{GameID: game, Fingerprint: "f"})
		if err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
		want := map[int]uint64{0: 1, 1: 2, 2: 1, 3: 3}[i]
		if seq != want {
			t.Fatalf("append %d seq = %d, want %d", i, seq, want)
		}
	}
}

func TestEntriesKeepActionsAndOrder(t *testing.T) {
	j := openTempJournal(t)
	ctx := context.Background()
	action := tactical.Action{
		Player: "red",
		System: "front",
		Seed:   42,
		Moves:  []movement.Move{{Unit: "c1", From: "home", To: "front"}},
		Combat: tactical.CombatChoices{Rerolls: map[int]map[galaxy.PlayerID][]combat.Reroll{
			1: {"red": {{Ability: "scramble", Die: 0}}},
		}},
		Commitments: []combat.Commitment{{Unit: "i1", Planet: "arc"}},
	}
	for i := 0; i < 3; i++ {
		a := action
		a.Seed = int64(i)
		if _, err := j.Append(ctx, storage.JournalEntry{GameID: "g1", BaseVersion: 0, Action: a, Fingerprint: "fp"}); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	all, err := j.Entries(ctx, "g1", 0)
	if err != nil {
		t.Fatalf("entries: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("entries = %d, want 3", len(all))
	}
	for i, e := range all {
		if e.Seq != uint64(i+1) || e.Action.Seed != int64(i) {
			t.Fatalf("entry %d = seq %d seed %d", i, e.Seq, e.Action.Seed)
		}
	}
	first := all[0].Action
	if first.Moves[0].To != "front" || first.Commitments[0].Planet != "arc" {
		t.Fatalf("action = %+v, want moves and commitments kept", first)
	}
	if got := first.Combat.Rerolls[1]["red"]; len(got) != 1 || got[0].Ability != "scramble" {
		t.Fatalf("rerolls = %+v, want one scramble reroll", got)
	}

	tail, err := j.Entries(ctx, "g1", 2)
	if err != nil {
		t.Fatalf("entries after 2: %v", err)
	}
	if len(tail) != 1 || tail[0].Seq != 3 {
		t.Fatalf("tail = %+v, want only seq 3", tail)
	}
}

func TestEntriesOfUnknownGameIsEmpty(t *testing.T) {
	j := openTempJournal(t)
	entries, err := j.Entries(context.Background(), "nobody", 0)
	if err != nil {
		t.Fatalf("entries: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("entries = %d, want 0", len(entries))
	}
}

func TestJournalRequiresGameID(t *testing.T) {
	j := openTempJournal(t)
	if _, err := j.Append(context.Background(), storage.JournalEntry{}); err == nil {
		t.Fatal("expected game id error")
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := j.Entries(ctx, "g1", 0); !errors.Is(err, context.Canceled) {
		t.Fatalf("entries = %v, want context.Canceled", err)
	}
}

func TestJournalSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")
	j, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := j.Append(context.Background(), storage.JournalEntry{GameID: "g1"}); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := j.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	j, err = Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer j.Close()
	seq, err := j.Append(context.Background(), storage.JournalEntry{GameID: "g1"})
	if err != nil {
		t.Fatalf("append after reopen: %v", err)
	}
	if seq != 2 {
		t.Fatalf("seq = %d, want 2", seq)
	}
}

func openTempJournal(t *testing.T) *Journal {
	t.Helper()
	j, err := Open(filepath.Join(t.TempDir(), "journal.db"))
	if err != nil {
		t.Fatalf("open journal: %v", err)
	}
	t.Cleanup(func() { _ = j.Close() })
	return j
}
