package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/tunescope/internal/gateway"
	"github.com/desertthunder/tunescope/internal/shared"
	testutil "github.com/desertthunder/tunescope/internal/testing"
	"github.com/urfave/cli/v3"
)

func newTestRunner(t *testing.T) (*Runner, *bytes.Buffer) {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	ledger, err := gateway.NewLedger(db, 10000, nil)
	if err != nil {
		t.Fatalf("failed to create ledger: %v", err)
	}
	cache, err := gateway.NewCache(db)
	if err != nil {
		t.Fatalf("failed to create cache: %v", err)
	}

	output := &bytes.Buffer{}
	runner := NewRunner(RunnerOpts{
		Ledger: ledger,
		Cache:  cache,
		Output: output,
	})

	return runner, output
}

func run(t *testing.T, r *Runner, args ...string) error {
	t.Helper()

	app := &cli.Command{Name: "tunescope", Commands: r.register()}
	return app.Run(context.Background(), append([]string{"tunescope"}, args...))
}

func TestRunner(t *testing.T) {
	t.Run("Register Wires All Commands", func(t *testing.T) {
		runner, _ := newTestRunner(t)

		commands := runner.register()
		if len(commands) != 7 {
			t.Fatalf("expected 7 top-level commands, got %d", len(commands))
		}

		names := make(map[string]bool)
		for _, cmd := range commands {
			names[cmd.Name] = true
		}
		for _, want := range []string{"setup", "auth", "library", "search", "analyze", "quota", "cache"} {
			if !names[want] {
				t.Errorf("expected %s command to be registered", want)
			}
		}
	})

	t.Run("Require Session Without Credentials", func(t *testing.T) {
		runner, _ := newTestRunner(t)

		err := run(t, runner, "library", "playlists")
		if !errors.Is(err, shared.ErrMissingCredentials) {
			t.Errorf("expected ErrMissingCredentials, got %v", err)
		}
	})

	t.Run("Videos Command Accepts Multiple Ids", func(t *testing.T) {
		runner, _ := newTestRunner(t)

		// Parsing the variadic ids succeeds; the action then fails on the
		// missing session, which proves the arguments got through.
		err := run(t, runner, "library", "videos", "v1", "v2", "v3")
		if !errors.Is(err, shared.ErrMissingCredentials) {
			t.Errorf("expected ErrMissingCredentials after parsing, got %v", err)
		}
	})

	t.Run("WriteJSON", func(t *testing.T) {
		runner, output := newTestRunner(t)

		if err := runner.writeJSON(map[string]int{"n": 1}, false); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if got := strings.TrimSpace(output.String()); got != `{"n":1}` {
			t.Errorf("unexpected output %q", got)
		}
	})

	t.Run("WriteJSON Pretty", func(t *testing.T) {
		runner, output := newTestRunner(t)

		if err := runner.writeJSON(map[string]int{"n": 1}, true); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !strings.Contains(output.String(), "\n  \"n\": 1") {
			t.Errorf("expected indented output, got %q", output.String())
		}
	})

	t.Run("Write Failure", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{Output: &testutil.FWriter{}})

		if err := runner.writeJSON("x", false); err == nil {
			t.Error("expected an error from a failing writer")
		}
		if err := runner.writePlain("x"); err == nil {
			t.Error("expected an error from a failing writer")
		}
	})
}

func TestSetupCommand(t *testing.T) {
	t.Run("Creates Config File", func(t *testing.T) {
		runner, output := newTestRunner(t)
		path := filepath.Join(t.TempDir(), "config.toml")

		if err := run(t, runner, "setup", "--config", path); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if _, err := os.Stat(path); err != nil {
			t.Errorf("expected config file to exist, got %v", err)
		}
		if !strings.Contains(output.String(), "auth login") {
			t.Error("expected next-step guidance in the output")
		}
	})

	t.Run("Refuses Existing File", func(t *testing.T) {
		runner, _ := newTestRunner(t)
		path := filepath.Join(t.TempDir(), "config.toml")
		os.WriteFile(path, []byte("existing"), 0644)

		err := run(t, runner, "setup", "--config", path)
		if !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})
}

func TestQuotaCommand(t *testing.T) {
	t.Run("Reports Consumption", func(t *testing.T) {
		runner, output := newTestRunner(t)
		runner.ledger.Reserve("search.list")

		if err := run(t, runner, "quota", "status"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !strings.Contains(output.String(), "used:      100") {
			t.Errorf("expected usage in the output, got %q", output.String())
		}
	})

	t.Run("JSON Output", func(t *testing.T) {
		runner, output := newTestRunner(t)

		if err := run(t, runner, "quota", "status", "--json"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !strings.Contains(output.String(), `"remaining": 10000`) {
			t.Errorf("expected JSON status, got %q", output.String())
		}
	})
}

func TestCacheCommand(t *testing.T) {
	t.Run("Purge All", func(t *testing.T) {
		runner, output := newTestRunner(t)
		runner.cache.Put("fp1", []byte("x"), time.Hour)
		runner.cache.Put("fp2", []byte("y"), time.Hour)

		if err := run(t, runner, "cache", "purge", "--all"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !strings.Contains(output.String(), "Removed all 2") {
			t.Errorf("expected purge count in output, got %q", output.String())
		}
	})

	t.Run("Purge Expired Only", func(t *testing.T) {
		runner, output := newTestRunner(t)
		runner.cache.Put("live", []byte("x"), time.Hour)

		if err := run(t, runner, "cache", "purge"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !strings.Contains(output.String(), "Removed 0 expired") {
			t.Errorf("expected zero expired removals, got %q", output.String())
		}
	})
}
