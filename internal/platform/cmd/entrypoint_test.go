package cmd

import (
	"context"
	"errors"
	"flag"
	"testing"
)

type testConfig struct {
	DB     string `env:"CMD_TEST_DB" envDefault:"tactics.db"`
	Locale string `env:"CMD_TEST_LOCALE" envDefault:"en-US"`
}

func TestParseConfigReadsEnvAndFlags(t *testing.T) {
	t.Setenv("HEXFLEET_CMD_TEST_DB", "env.db")
	t.Setenv("HEXFLEET_CMD_TEST_LOCALE", "pt-BR")

	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	cfg := testConfig{}
	if err := ParseConfig(&cfg); err != nil {
		t.Fatalf("load config defaults: %v", err)
	}
	fs.StringVar(&cfg.DB, "db", cfg.DB, "db")
	fs.StringVar(&cfg.Locale, "locale", cfg.Locale, "locale")

	if err := ParseArgs(fs, []string{"-db", "flag.db"}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}
	if cfg.DB != "flag.db" {
		t.Fatalf("db = %q, want flag.db", cfg.DB)
	}
	if cfg.Locale != "pt-BR" {
		t.Fatalf("locale = %q, want pt-BR", cfg.Locale)
	}
}

func TestParseConfigFromArgsKeepsEnvWhenFlagsAbsent(t *testing.T) {
	t.Setenv("HEXFLEET_CMD_TEST_DB", "env.db")

	cfg := testConfig{}
	fs := flag.NewFlagSet("configargs", flag.ContinueOnError)
	fs.StringVar(&cfg.Locale, "locale", "", "locale")
	if err := ParseConfigFromArgs(&cfg, fs, []string{"-locale", "en-GB"}); err != nil {
		t.Fatalf("parse config and args: %v", err)
	}
	if cfg.DB != "env.db" || cfg.Locale != "en-GB" {
		t.Fatalf("cfg = %+v, want env db and flag locale", cfg)
	}
}

func TestParseConfigRejectsNilTarget(t *testing.T) {
	if err := ParseConfig[testConfig](nil); err == nil {
		t.Fatal("expected nil target error")
	}
	if err := ParseArgs(nil, []string{}); err == nil {
		t.Fatal("expected parse args to reject nil parser")
	}
}

func TestRunWithTelemetry(t *testing.T) {
	t.Setenv("HEXFLEET_OTEL_ENDPOINT", "")
	ctx := context.Background()

	if err := RunWithTelemetry(ctx, "", func(context.Context) error { return nil }); err == nil {
		t.Fatal("expected missing service error")
	}
	if err := RunWithTelemetry(ctx, ServiceTactics, nil); err == nil {
		t.Fatal("expected missing run function error")
	}
	want := errors.New("run failed")
	if err := RunWithTelemetry(ctx, ServiceTactics, func(context.Context) error { return want }); !errors.Is(err, want) {
		t.Fatalf("run error = %v, want %v", err, want)
	}
}
