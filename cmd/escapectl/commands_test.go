package main

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestSeedCreateAndList(t *testing.T) {
	t.Setenv("REDIS_URL", "")
	db := filepath.Join(t.TempDir(), "event.db")

	if out, err := execute(t, "seed", "--db", db, "--rooms", "4"); err != nil || !strings.Contains(out, "seeded 4 rooms") {
		t.Fatalf("seed: %q %v", out, err)
	}
	if _, err := execute(t, "team", "create", "Night Owls", "4321", "--db", db, "--rooms", "4"); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := execute(t, "team", "create", "Bad", "12", "--db", db, "--rooms", "4"); err == nil {
		t.Fatal("create with short password should fail")
	}

	out, err := execute(t, "team", "list", "--db", db, "--rooms", "4")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if !strings.Contains(out, "Night Owls") || !strings.Contains(out, "waiting") {
		t.Errorf("list output:\n%s", out)
	}

	out, err = execute(t, "leaderboard", "--db", db, "--rooms", "4")
	if err != nil || !strings.Contains(out, "Night Owls") {
		t.Errorf("leaderboard: %q %v", out, err)
	}
}

func TestResetNeedsConfirmation(t *testing.T) {
	t.Setenv("REDIS_URL", "")
	db := filepath.Join(t.TempDir(), "event.db")
	if _, err := execute(t, "seed", "--db", db); err != nil {
		t.Fatalf("seed: %v", err)
	}

	if _, err := execute(t, "reset", "all", "--db", db); err == nil {
		t.Fatal("reset without --yes should fail")
	}
	if _, err := execute(t, "reset", "sideways", "--db", db, "--yes"); err == nil {
		t.Fatal("unknown scope should fail")
	}
	out, err := execute(t, "reset", "progress", "--db", db, "--yes")
	if err != nil || !strings.Contains(out, "reset progress") {
		t.Fatalf("reset: %q %v", out, err)
	}
	out, err = execute(t, "leaderboard", "refresh", "--db", db)
	if err != nil || !strings.Contains(out, "refreshed 0 entries") {
		t.Errorf("refresh: %q %v", out, err)
	}
}
