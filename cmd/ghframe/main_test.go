package main

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hazyhaar/ghframe/history"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestHistoryCommands(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "ghframe.db")
	s, err := history.Open(dbPath)
	if err != nil {
		t.Fatal(err)
	}
	rec, err := s.Add(context.Background(), history.Record{URL: "https://github.com/o/r/issues/9", Name: "Slow startup", Number: "9"})
	if err != nil {
		t.Fatal(err)
	}
	s.Add(context.Background(), history.Record{URL: "https://github.com/o/r", Name: "o/r"})
	s.Close()

	out, err := execute(t, "history", "list", "--db", dbPath)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	var list []history.Record
	if err := json.Unmarshal([]byte(out), &list); err != nil || len(list) != 2 {
		t.Fatalf("list output = %s", out)
	}

	out, err = execute(t, "history", "find", "startup", "slow", "--db", dbPath)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	var found []history.Record
	json.Unmarshal([]byte(out), &found)
	if len(found) != 1 || found[0].ID != rec.ID {
		t.Fatalf("find output = %s", out)
	}

	out, err = execute(t, "history", "get", rec.ID, "--db", dbPath)
	if err != nil || !strings.Contains(out, "Slow startup") {
		t.Fatalf("get: %v %s", err, out)
	}

	if _, err := execute(t, "history", "get", "nope", "--db", dbPath); err == nil {
		t.Fatal("expected not found error")
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug": slog.LevelDebug,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
		"info":  slog.LevelInfo,
		"":      slog.LevelInfo,
		"loud":  slog.LevelInfo,
	}
	for in, want := range tests {
		if got := parseLevel(in); got != want {
			t.Errorf("parseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}
