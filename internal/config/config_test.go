package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/lumipallolabs/shr/internal/report"
	"github.com/lumipallolabs/shr/internal/scanner"
	"github.com/lumipallolabs/shr/internal/units"
)

func writeINI(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.ini")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadFile(t *testing.T) {
	path := writeINI(t, `
[scan]
workers = 3
max_depth = 2
follow_links = false
strategy = async

[output]
format = json
units = binary

[storage]
cache_dir = /tmp/shr-cache
record_history = true
`)

	cfg, err := Load(path, true)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Workers != 3 || cfg.MaxDepth != 2 || cfg.FollowLinks {
		t.Errorf("unexpected scan settings: %+v", cfg)
	}
	if cfg.Format != "json" || cfg.Units != "binary" || cfg.CacheDir != "/tmp/shr-cache" {
		t.Errorf("unexpected output settings: %+v", cfg)
	}
	if !cfg.RecordHistory {
		t.Error("expected record_history to be read")
	}

	opts, err := cfg.ScanOptions()
	if err != nil {
		t.Fatal(err)
	}
	if opts.Strategy != scanner.StrategyAsync {
		t.Errorf("expected async strategy, got %v", opts.Strategy)
	}
}

func TestLoadMissingFile(t *testing.T) {
	t.Setenv("SHR_RECORD_HISTORY", "")
	missing := filepath.Join(t.TempDir(), "nope.ini")

	cfg, err := Load(missing, false)
	if err != nil {
		t.Fatalf("optional file should be skipped: %v", err)
	}
	if cfg.MaxDepth != -1 || !cfg.FollowLinks || cfg.RecordHistory {
		t.Errorf("expected defaults, got %+v", cfg)
	}

	if _, err := Load(missing, true); err == nil {
		t.Error("expected error for a required missing file")
	}
}

func TestEnvOverridesFile(t *testing.T) {
	path := writeINI(t, "[scan]\nworkers = 3\nstrategy = async\n")
	t.Setenv("SHR_WORKERS", "7")
	t.Setenv("SHR_STRATEGY", "flat")
	t.Setenv("SHR_MAX_DEPTH", "not-a-number")

	cfg, err := Load(path, true)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Workers != 7 || cfg.Strategy != "flat" {
		t.Errorf("expected env overrides, got %+v", cfg)
	}
	if cfg.MaxDepth != -1 {
		t.Errorf("malformed env value should be ignored, got %d", cfg.MaxDepth)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{"defaults", func(*Config) {}, nil},
		{"bad strategy", func(c *Config) { c.Strategy = "threads" }, scanner.ErrUnknownStrategy},
		{"bad format", func(c *Config) { c.Format = "xml" }, report.ErrUnknownFormat},
		{"bad units", func(c *Config) { c.Units = "furlongs" }, units.ErrUnknownUnits},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == nil && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Fatalf("failed to get home dir: %v", err)
	}

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"empty", "", ""},
		{"absolute", "/var/cache/", "/var/cache"},
		{"tilde only", "~", home},
		{"tilde with path", "~/shr", filepath.Join(home, "shr")},
		{"tilde not at start", "foo/~/bar", "foo/~/bar"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExpandPath(tt.input); got != tt.want {
				t.Errorf("ExpandPath(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
