package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// setupEnv isolates config and history from the user's home
func setupEnv(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(home, "config"))
	t.Setenv("XDG_CACHE_HOME", filepath.Join(home, "cache"))
	t.Setenv("SHR_HISTORY_DB", filepath.Join(home, "history.db"))
	t.Setenv("SHR_CACHE_DIR", filepath.Join(home, "snapshots"))
	for _, key := range []string{"SHR_WORKERS", "SHR_MAX_DEPTH", "SHR_FOLLOW_LINKS", "SHR_STRATEGY", "SHR_UNITS", "SHR_RECORD_HISTORY"} {
		t.Setenv(key, "")
	}
	return home
}

func sampleDir(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	files := map[string]int{"a": 10, "b": 20, "c/d": 5}
	for name, size := range files {
		path := filepath.Join(root, name)
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, bytes.Repeat([]byte("x"), size), 0644); err != nil {
			t.Fatal(err)
		}
	}
	return root
}

func TestRunDU(t *testing.T) {
	setupEnv(t)
	root := sampleDir(t)

	var stdout, stderr bytes.Buffer
	if code := run([]string{root}, &stdout, &stderr); code != exitOK {
		t.Fatalf("exit code %d, stderr: %s", code, stderr.String())
	}

	lines := strings.Split(strings.TrimSpace(stdout.String()), "\n")
	if len(lines) != 5 {
		t.Fatalf("expected 5 lines, got %d:\n%s", len(lines), stdout.String())
	}
	if want := root + " 35B, 3 file(s)"; lines[len(lines)-1] != want {
		t.Errorf("last line = %q, want %q", lines[len(lines)-1], want)
	}
	if !strings.Contains(stdout.String(), filepath.Join(root, "c")+" 5B, 1 file(s)\n") {
		t.Errorf("missing directory line for c:\n%s", stdout.String())
	}
	if !strings.Contains(stdout.String(), filepath.Join(root, "b")+" 20B\n") {
		t.Errorf("missing file line for b:\n%s", stdout.String())
	}
}

func TestRunJSON(t *testing.T) {
	setupEnv(t)
	root := sampleDir(t)

	var stdout, stderr bytes.Buffer
	if code := run([]string{"-format", "json", "-strategy", "async", root}, &stdout, &stderr); code != exitOK {
		t.Fatalf("exit code %d, stderr: %s", code, stderr.String())
	}

	lines := strings.Split(strings.TrimSpace(stdout.String()), "\n")
	if len(lines) != 7 {
		t.Fatalf("expected 7 events, got %d", len(lines))
	}
	var last map[string]any
	if err := json.Unmarshal([]byte(lines[len(lines)-1]), &last); err != nil {
		t.Fatal(err)
	}
	if last["type"] != "dirFinish" || last["path"] != root || last["numFiles"] != float64(3) {
		t.Errorf("unexpected final event %v", last)
	}
}

func TestRunDepth(t *testing.T) {
	setupEnv(t)
	root := sampleDir(t)

	var stdout, stderr bytes.Buffer
	if code := run([]string{"-depth", "1", root}, &stdout, &stderr); code != exitOK {
		t.Fatalf("exit code %d, stderr: %s", code, stderr.String())
	}
	if got, want := strings.TrimSpace(stdout.String()), root+" 35B, 3 file(s)"; got != want {
		t.Errorf("output = %q, want %q", got, want)
	}
}

func TestRunUsageErrors(t *testing.T) {
	setupEnv(t)
	root := sampleDir(t)

	tests := []struct {
		name string
		args []string
	}{
		{"no directory", nil},
		{"two directories", []string{root, root}},
		{"bad format", []string{"-format", "xml", root}},
		{"bad strategy", []string{"-strategy", "magic", root}},
		{"bad units", []string{"-units", "furlongs", root}},
		{"unknown flag", []string{"-nope", root}},
		{"missing config", []string{"-config", filepath.Join(root, "none.ini"), root}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			if code := run(tt.args, &stdout, &stderr); code != exitUsage {
				t.Errorf("exit code %d, want %d", code, exitUsage)
			}
		})
	}
}

func TestRunConfigFileAndFlags(t *testing.T) {
	home := setupEnv(t)
	root := sampleDir(t)

	cfgPath := filepath.Join(home, "shr.ini")
	cfg := "[scan]\nmax_depth = 1\n\n[output]\nformat = json\n"
	if err := os.WriteFile(cfgPath, []byte(cfg), 0644); err != nil {
		t.Fatal(err)
	}

	var stdout, stderr bytes.Buffer
	// The file selects json at depth 1; the flag puts du back
	if code := run([]string{"-config", cfgPath, "-format", "du", root}, &stdout, &stderr); code != exitOK {
		t.Fatalf("exit code %d, stderr: %s", code, stderr.String())
	}
	if got, want := strings.TrimSpace(stdout.String()), root+" 35B, 3 file(s)"; got != want {
		t.Errorf("output = %q, want %q", got, want)
	}
}

func TestRunRecordsHistory(t *testing.T) {
	setupEnv(t)
	root := sampleDir(t)

	var stdout, stderr bytes.Buffer
	if code := run([]string{"-record", "-strategy", "flat", root}, &stdout, &stderr); code != exitOK {
		t.Fatalf("scan exit code %d, stderr: %s", code, stderr.String())
	}

	stdout.Reset()
	if code := run([]string{"-history", root}, &stdout, &stderr); code != exitOK {
		t.Fatalf("history exit code %d, stderr: %s", code, stderr.String())
	}
	out := stdout.String()
	for _, want := range []string{root, "flat", "35B"} {
		if !strings.Contains(out, want) {
			t.Errorf("history output missing %q:\n%s", want, out)
		}
	}
}

func TestRunLeavesHistoryAlone(t *testing.T) {
	home := setupEnv(t)
	root := sampleDir(t)

	var stdout, stderr bytes.Buffer
	if code := run([]string{root}, &stdout, &stderr); code != exitOK {
		t.Fatalf("exit code %d, stderr: %s", code, stderr.String())
	}
	if _, err := os.Stat(filepath.Join(home, "history.db")); !os.IsNotExist(err) {
		t.Errorf("plain scan created a history database: %v", err)
	}

	t.Setenv("SHR_RECORD_HISTORY", "true")
	if code := run([]string{root}, &stdout, &stderr); code != exitOK {
		t.Fatalf("exit code %d, stderr: %s", code, stderr.String())
	}
	if _, err := os.Stat(filepath.Join(home, "history.db")); err != nil {
		t.Errorf("expected history with SHR_RECORD_HISTORY set: %v", err)
	}
}

func TestRunSave(t *testing.T) {
	home := setupEnv(t)
	root := sampleDir(t)

	var stdout, stderr bytes.Buffer
	if code := run([]string{"-save", root}, &stdout, &stderr); code != exitOK {
		t.Fatalf("exit code %d, stderr: %s", code, stderr.String())
	}
	matches, err := filepath.Glob(filepath.Join(home, "snapshots", "*.gob.gz"))
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) != 1 {
		t.Errorf("expected one snapshot, found %v", matches)
	}
}
