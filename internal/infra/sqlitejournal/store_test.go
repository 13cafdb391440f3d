package sqlitejournal

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/osvaldoandrade/extrepo/internal/app/build"
	"github.com/osvaldoandrade/extrepo/internal/app/history"
	"github.com/osvaldoandrade/extrepo/internal/domain"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "journal", "journal.db"))
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}

func sampleSummary(id string, started time.Time) build.Summary {
	record := domain.ExtensionRecord{Identifier: "org.a"}
	return build.Summary{
		RunID:      id,
		StartedAt:  started,
		FinishedAt: started.Add(3 * time.Second),
		Extensions: build.GroupSummary{Published: 1, Skipped: 1},
		Themes:     build.GroupSummary{UpToDate: 1},
		Results: []build.Result{
			{Position: 0, FileName: "a.yaml", Name: "A", RepoName: "a", Version: "1.0.0", Outcome: domain.OutcomePublished, Record: &record, Changes: []byte(`{"version":"1.0.0"}`)},
			{Position: 1, FileName: "b.yaml", Name: "B", RepoName: "b", Outcome: domain.OutcomeSkipped, Reason: domain.SkipNotFound, Err: fmt.Errorf("resolve acme/b: %w", domain.ErrReleaseNotFound)},
			{Position: 2, FileName: "c-theme.yaml", Name: "C", Theme: true, RepoName: "c", Version: "2.0.0", Outcome: domain.OutcomeUpToDate, Record: &record},
		},
		IndexChanged: true,
		IndexDigest:  "sha256:abc",
	}
}

func TestRecordRunAndReadBack(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)
	started := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	if err := store.RecordRun(ctx, sampleSummary("01HRUNA", started)); err != nil {
		t.Fatalf("RecordRun returned error: %v", err)
	}

	detail, err := store.GetRun(ctx, "01HRUNA")
	if err != nil {
		t.Fatalf("GetRun returned error: %v", err)
	}
	run := detail.Run
	if run.Packages != 2 || run.Published != 1 || run.UpToDate != 1 || run.Skipped != 1 {
		t.Fatalf("unexpected counts %+v", run)
	}
	if !run.StartedAt.Equal(started) || run.Duration() != 3*time.Second {
		t.Fatalf("unexpected timing %+v", run)
	}
	if !run.IndexChanged || run.IndexDigest != "sha256:abc" {
		t.Fatalf("unexpected index fields %+v", run)
	}
	if len(detail.Outcomes) != 3 {
		t.Fatalf("expected 3 outcomes, got %d", len(detail.Outcomes))
	}
	skipped := detail.Outcomes[1]
	if skipped.Outcome != "skipped" || skipped.Reason != "not_found" || skipped.Error == "" {
		t.Fatalf("unexpected skipped outcome %+v", skipped)
	}
	if detail.Outcomes[0].Changes != `{"version":"1.0.0"}` {
		t.Fatalf("unexpected changes %q", detail.Outcomes[0].Changes)
	}
	if !detail.Outcomes[2].Theme {
		t.Fatalf("expected theme flag")
	}
}

func TestListRunsNewestFirst(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)
	started := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	for i, id := range []string{"01HRUNA", "01HRUNB", "01HRUNC"} {
		if err := store.RecordRun(ctx, sampleSummary(id, started.Add(time.Duration(i)*time.Hour))); err != nil {
			t.Fatalf("RecordRun returned error: %v", err)
		}
	}

	runs, err := store.ListRuns(ctx, 2)
	if err != nil {
		t.Fatalf("ListRuns returned error: %v", err)
	}
	if len(runs) != 2 || runs[0].ID != "01HRUNC" || runs[1].ID != "01HRUNB" {
		t.Fatalf("unexpected runs %+v", runs)
	}
}

func TestGetRunNotFound(t *testing.T) {
	_, err := openTestStore(t).GetRun(context.Background(), "01HMISSING")
	if !errors.Is(err, history.ErrRunNotFound) {
		t.Fatalf("expected ErrRunNotFound, got %v", err)
	}
}

func TestRecordRunRejectsDuplicateID(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)
	summary := sampleSummary("01HRUNA", time.Now())
	if err := store.RecordRun(ctx, summary); err != nil {
		t.Fatalf("RecordRun returned error: %v", err)
	}
	if err := store.RecordRun(ctx, summary); err == nil {
		t.Fatalf("expected duplicate run id to fail")
	}
	detail, err := store.GetRun(ctx, "01HRUNA")
	if err != nil {
		t.Fatalf("GetRun returned error: %v", err)
	}
	if len(detail.Outcomes) != 3 {
		t.Fatalf("expected failed insert to leave the first run intact, got %d outcomes", len(detail.Outcomes))
	}
}

func TestOpenRequiresPath(t *testing.T) {
	if _, err := Open(" "); err == nil {
		t.Fatalf("expected error for empty path")
	}
}
