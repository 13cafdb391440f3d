package extreposdk

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestOpenRequiresBaseDir(t *testing.T) {
	if _, err := Open(context.Background(), Config{}, quietLogger()); !errors.Is(err, ErrBaseDirRequired) {
		t.Fatalf("expected ErrBaseDirRequired, got %v", err)
	}
}

func TestBuildEmptyRepository(t *testing.T) {
	base := t.TempDir()
	if err := os.MkdirAll(filepath.Join(base, "manifests"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	cfg := DefaultConfig(base)
	cfg.Strategy = StrategyGit
	cfg.ExtensionsDir = "manifests"
	cfg.PublicDir = "site"

	ctx := context.Background()
	client, err := Open(ctx, cfg, quietLogger())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer client.Close()

	if client.PublicDir() != filepath.Join(base, "site") {
		t.Fatalf("public dir = %q", client.PublicDir())
	}

	result, err := client.Build(ctx)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if result.Packages != 0 || !result.IndexChanged {
		t.Fatalf("unexpected result %+v", result)
	}
	data, err := os.ReadFile(filepath.Join(base, "site", "index.json"))
	if err != nil {
		t.Fatalf("read index: %v", err)
	}
	want := "{\n    \"content_type\": \"SN|Repo\",\n    \"valid_until\": \"2030-05-16T18:35:33.000Z\",\n    \"packages\": []\n}\n"
	if string(data) != want {
		t.Fatalf("index mismatch:\n%s", data)
	}

	report, err := client.Validate(ctx)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if report.Valid != 0 || report.Invalid != 0 {
		t.Fatalf("unexpected report %+v", report)
	}

	runs, err := client.Runs(ctx, 0)
	if err != nil {
		t.Fatalf("Runs: %v", err)
	}
	if len(runs) != 1 || runs[0].ID != result.RunID {
		t.Fatalf("unexpected runs %+v", runs)
	}
}

func TestClientDisabledJournalAndClose(t *testing.T) {
	base := t.TempDir()
	if err := os.MkdirAll(filepath.Join(base, "extensions"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	cfg := DefaultConfig(base)
	cfg.Strategy = StrategyGit
	cfg.DisableJournal = true

	ctx := context.Background()
	client, err := Open(ctx, cfg, quietLogger())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := client.Runs(ctx, 0); !errors.Is(err, ErrJournalDisabled) {
		t.Fatalf("expected ErrJournalDisabled, got %v", err)
	}
	if err := client.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, err := client.Build(ctx); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}
