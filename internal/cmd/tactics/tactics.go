// Package tactics parses tactics command flags and runs tactical actions
// against stored game snapshots.
package tactics

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	entrypoint "github.com/louisbranch/hexfleet/internal/platform/cmd"
	apperrors "github.com/louisbranch/hexfleet/internal/platform/errors"
	"github.com/louisbranch/hexfleet/internal/platform/errors/i18n"
	"github.com/louisbranch/hexfleet/internal/platform/id"
	"github.com/louisbranch/hexfleet/internal/random"
	"github.com/louisbranch/hexfleet/internal/services/tactics/domain/catalog"
	"github.com/louisbranch/hexfleet/internal/services/tactics/domain/galaxy"
	"github.com/louisbranch/hexfleet/internal/services/tactics/domain/replay"
	"github.com/louisbranch/hexfleet/internal/services/tactics/domain/tactical"
	"github.com/louisbranch/hexfleet/internal/services/tactics/storage"
	"github.com/louisbranch/hexfleet/internal/services/tactics/storage/bbolt"
	"github.com/louisbranch/hexfleet/internal/services/tactics/storage/sqlite"
	"gopkg.in/yaml.v3"
)

// Config holds tactics command configuration.
type Config struct {
	DBPath      string `env:"TACTICS_DB_PATH"      envDefault:"data/tactics.db"`
	JournalPath string `env:"TACTICS_JOURNAL_PATH" envDefault:"data/journal.db"`
	CatalogPath string `env:"TACTICS_CATALOG_PATH"`
	Locale      string `env:"TACTICS_LOCALE"       envDefault:"en-US"`
	GameID      string `env:"TACTICS_GAME_ID"`

	Init   string
	Action string
	Seed   int64
	Verify bool
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.StringVar(&cfg.DBPath, "db", cfg.DBPath, "path to the sqlite snapshot store")
	fs.StringVar(&cfg.JournalPath, "journal", cfg.JournalPath, "path to the bbolt action journal")
	fs.StringVar(&cfg.CatalogPath, "catalog", cfg.CatalogPath, "optional YAML catalog layered over the base set")
	fs.StringVar(&cfg.Locale, "locale", cfg.Locale, "locale for report messages")
	fs.StringVar(&cfg.GameID, "game", cfg.GameID, "game id (generated by -init when empty)")
	fs.StringVar(&cfg.Init, "init", "", "YAML scenario to store as a new game")
	fs.StringVar(&cfg.Action, "action", "", "YAML tactical action to execute")
	fs.Int64Var(&cfg.Seed, "seed", 0, "dice seed overriding the action file; a fresh seed is drawn when both are 0")
	fs.BoolVar(&cfg.Verify, "verify", false, "replay the journal from the first snapshot and compare fingerprints")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	if cfg.Init == "" && cfg.Action == "" && !cfg.Verify {
		return Config{}, errors.New("one of -init, -action or -verify is required")
	}
	return cfg, nil
}

// Run executes the requested command steps in order: init, action, verify.
func Run(ctx context.Context, cfg Config, out io.Writer) error {
	if out == nil {
		out = io.Discard
	}
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceTactics, func(ctx context.Context) error {
		c, err := catalog.LoadFile(cfg.CatalogPath)
		if err != nil {
			return err
		}
		if err := c.Validate(); err != nil {
			return err
		}

		for _, path := range []string{cfg.DBPath, cfg.JournalPath} {
			if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
				return fmt.Errorf("create data dir: %w", err)
			}
		}
		snapshots, err := sqlite.Open(cfg.DBPath)
		if err != nil {
			return err
		}
		defer snapshots.Close()
		journal, err := bbolt.Open(cfg.JournalPath)
		if err != nil {
			return err
		}
		defer journal.Close()

		r := &runner{
			cfg:       cfg,
			out:       out,
			snapshots: snapshots,
			journal:   journal,
			coord:     tactical.New(c, tactical.WithLogger(log.Default())),
			messages:  i18n.GetCatalog(cfg.Locale),
		}
		if cfg.Init != "" {
			if err := r.init(ctx); err != nil {
				return err
			}
		}
		if cfg.Action != "" {
			if err := r.action(ctx); err != nil {
				return err
			}
		}
		if cfg.Verify {
			return r.verify(ctx)
		}
		return nil
	})
}

type runner struct {
	cfg       Config
	out       io.Writer
	snapshots storage.SnapshotStore
	journal   storage.Journal
	coord     *tactical.Coordinator
	messages  *i18n.Catalog
}

func (r *runner) init(ctx context.Context) error {
	data, err := os.ReadFile(r.cfg.Init)
	if err != nil {
		return fmt.Errorf("read scenario: %w", err)
	}
	state, err := galaxy.DecodeYAML(data)
	if err != nil {
		return err
	}
	if r.cfg.GameID == "" {
		if r.cfg.GameID, err = id.NewID(); err != nil {
			return err
		}
	}
	if err := r.snapshots.PutSnapshot(ctx, storage.Snapshot{GameID: r.cfg.GameID, Version: 0, State: state}); err != nil {
		return fmt.Errorf("store scenario: %w", err)
	}
	fmt.Fprintf(r.out, "game %s created at round %d\n", r.cfg.GameID, state.Round())
	return nil
}

func (r *runner) action(ctx context.Context) error {
	if r.cfg.GameID == "" {
		return errors.New("game id is required")
	}
	action, err := readAction(r.cfg.Action)
	if err != nil {
		return err
	}
	var requested *int64
	switch {
	case r.cfg.Seed != 0:
		requested = &r.cfg.Seed
	case action.Seed != 0:
		requested = &action.Seed
	}
	if action.Seed, err = random.ResolveSeed(requested); err != nil {
		return err
	}
	base, err := r.snapshots.LatestSnapshot(ctx, r.cfg.GameID)
	if err != nil {
		return fmt.Errorf("load game %s: %w", r.cfg.GameID, err)
	}

	report, next, err := r.coord.Execute(ctx, base.State, action)
	r.printReport(report)
	if err != nil {
		return fmt.Errorf("%s: %w", r.localize(err), err)
	}
	fp, err := replay.Fingerprint(next)
	if err != nil {
		return err
	}
	if _, err := r.journal.Append(ctx, storage.JournalEntry{
		GameID:      r.cfg.GameID,
		BaseVersion: base.Version,
		Action:      action,
		Fingerprint: fp,
	}); err != nil {
		return fmt.Errorf("journal action: %w", err)
	}
	if err := r.snapshots.PutSnapshot(ctx, storage.Snapshot{GameID: r.cfg.GameID, Version: base.Version + 1, State: next}); err != nil {
		return fmt.Errorf("store snapshot: %w", err)
	}
	fmt.Fprintf(r.out, "snapshot %d stored (%s)\n", base.Version+1, fp[:12])
	return nil
}

func (r *runner) verify(ctx context.Context) error {
	if r.cfg.GameID == "" {
		return errors.New("game id is required")
	}
	first, err := r.snapshots.GetSnapshot(ctx, r.cfg.GameID, 0)
	if err != nil {
		return fmt.Errorf("load game %s: %w", r.cfg.GameID, err)
	}
	journaled, err := r.journal.Entries(ctx, r.cfg.GameID, 0)
	if err != nil {
		return err
	}
	entries := make([]replay.Entry, 0, len(journaled))
	for _, e := range journaled {
		entries = append(entries, replay.Entry{Action: e.Action, Fingerprint: e.Fingerprint})
	}
	if _, err := replay.Verify(ctx, r.coord, first.State, entries); err != nil {
		return fmt.Errorf("%s: %w", r.localize(err), err)
	}
	fmt.Fprintf(r.out, "verified %d actions\n", len(entries))
	return nil
}

func readAction(path string) (tactical.Action, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return tactical.Action{}, fmt.Errorf("read action: %w", err)
	}
	var action tactical.Action
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&action); err != nil {
		return tactical.Action{}, fmt.Errorf("decode action: %w", err)
	}
	return action, nil
}

func (r *runner) localize(err error) string {
	e, ok := apperrors.As(err)
	if !ok {
		return err.Error()
	}
	return r.messages.Format(string(e.Code), e.Metadata)
}

func (r *runner) printReport(report tactical.Report) {
	fmt.Fprintf(r.out, "%s activates %s\n", report.Player, report.System)
	for _, s := range report.Steps {
		line := fmt.Sprintf("  %-13s %s", s.Step, s.Status)
		switch {
		case s.Code != "":
			line += ": " + r.messages.Format(string(s.Code), s.Metadata)
		case s.Reason != "":
			line += ": " + s.Reason
		}
		fmt.Fprintln(r.out, strings.TrimRight(line, " "))
	}
	for _, p := range report.Production {
		if p.Status == tactical.StatusSucceeded {
			fmt.Fprintf(r.out, "  produced %d unit(s) at %s for %d\n", len(p.Units), p.Request.Producer, p.Cost)
		}
	}
	if report.Aborted {
		fmt.Fprintln(r.out, "  action aborted; state restored")
	}
}
