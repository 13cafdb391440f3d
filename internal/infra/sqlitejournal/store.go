package sqlitejournal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/osvaldoandrade/extrepo/internal/app/build"
	"github.com/osvaldoandrade/extrepo/internal/app/history"
	_ "modernc.org/sqlite"
)

// Store keeps one row per build pass and one row per manifest outcome.
type Store struct {
	db *sql.DB
}

type OpenOptions struct {
	Fast bool
}

func Open(path string) (*Store, error) {
	return OpenWithOptions(path, OpenOptions{})
}

func OpenWithOptions(path string, opts OpenOptions) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("sqlite path required")
	}

	if shouldCreateDir(path) {
		dir := filepath.Dir(path)
		if dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create sqlite dir: %w", err)
			}
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	store := &Store{db: db}
	if err := store.applyPragmas(context.Background(), opts); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) RecordRun(ctx context.Context, summary build.Summary) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin journal transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO build_runs (id, started_at, finished_at, packages, published, up_to_date, skipped, index_changed, index_digest)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		summary.RunID,
		summary.StartedAt.UTC().UnixMilli(),
		summary.FinishedAt.UTC().UnixMilli(),
		summary.Packages(),
		summary.Extensions.Published+summary.Themes.Published,
		summary.Extensions.UpToDate+summary.Themes.UpToDate,
		summary.Extensions.Skipped+summary.Themes.Skipped,
		boolInt(summary.IndexChanged),
		summary.IndexDigest,
	); err != nil {
		return fmt.Errorf("insert build run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO build_outcomes (run_id, position, file_name, name, theme, repo_name, version, outcome, reason, error, changes)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare outcome insert: %w", err)
	}
	defer stmt.Close()

	for _, result := range summary.Results {
		errText := ""
		if result.Err != nil {
			errText = result.Err.Error()
		}
		if _, err := stmt.ExecContext(ctx,
			summary.RunID,
			result.Position,
			result.FileName,
			result.Name,
			boolInt(result.Theme),
			result.RepoName,
			result.Version,
			string(result.Outcome),
			string(result.Reason),
			errText,
			string(result.Changes),
		); err != nil {
			return fmt.Errorf("insert outcome %s: %w", result.FileName, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit journal: %w", err)
	}
	return nil
}

func (s *Store) ListRuns(ctx context.Context, limit int) ([]history.Run, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, started_at, finished_at, packages, published, up_to_date, skipped, index_changed, index_digest
		FROM build_runs ORDER BY id DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list build runs: %w", err)
	}
	defer rows.Close()

	var runs []history.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate build runs: %w", err)
	}
	return runs, nil
}

func (s *Store) GetRun(ctx context.Context, id string) (history.RunDetail, error) {
	if err := ctx.Err(); err != nil {
		return history.RunDetail{}, err
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT id, started_at, finished_at, packages, published, up_to_date, skipped, index_changed, index_digest
		FROM build_runs WHERE id = ?
	`, id)
	run, err := scanRun(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return history.RunDetail{}, fmt.Errorf("%w: %s", history.ErrRunNotFound, id)
		}
		return history.RunDetail{}, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT position, file_name, name, theme, repo_name, version, outcome, reason, error, changes
		FROM build_outcomes WHERE run_id = ? ORDER BY position
	`, id)
	if err != nil {
		return history.RunDetail{}, fmt.Errorf("list outcomes: %w", err)
	}
	defer rows.Close()

	detail := history.RunDetail{Run: run}
	for rows.Next() {
		var outcome history.Outcome
		var theme int
		if err := rows.Scan(
			&outcome.Position,
			&outcome.FileName,
			&outcome.Name,
			&theme,
			&outcome.RepoName,
			&outcome.Version,
			&outcome.Outcome,
			&outcome.Reason,
			&outcome.Error,
			&outcome.Changes,
		); err != nil {
			return history.RunDetail{}, fmt.Errorf("scan outcome: %w", err)
		}
		outcome.Theme = theme != 0
		detail.Outcomes = append(detail.Outcomes, outcome)
	}
	if err := rows.Err(); err != nil {
		return history.RunDetail{}, fmt.Errorf("iterate outcomes: %w", err)
	}
	return detail, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (history.Run, error) {
	var run history.Run
	var startedAt, finishedAt int64
	var changed int
	if err := row.Scan(
		&run.ID,
		&startedAt,
		&finishedAt,
		&run.Packages,
		&run.Published,
		&run.UpToDate,
		&run.Skipped,
		&changed,
		&run.IndexDigest,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return history.Run{}, err
		}
		return history.Run{}, fmt.Errorf("scan build run: %w", err)
	}
	run.StartedAt = time.UnixMilli(startedAt).UTC()
	run.FinishedAt = time.UnixMilli(finishedAt).UTC()
	run.IndexChanged = changed != 0
	return run, nil
}

func (s *Store) initSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		return fmt.Errorf("enable foreign keys: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS build_runs (
			id TEXT PRIMARY KEY,
			started_at INTEGER NOT NULL,
			finished_at INTEGER NOT NULL,
			packages INTEGER NOT NULL,
			published INTEGER NOT NULL,
			up_to_date INTEGER NOT NULL,
			skipped INTEGER NOT NULL,
			index_changed INTEGER NOT NULL CHECK (index_changed IN (0, 1)),
			index_digest TEXT NOT NULL DEFAULT ''
		)
	`); err != nil {
		return fmt.Errorf("create runs table: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS build_outcomes (
			run_id TEXT NOT NULL REFERENCES build_runs(id) ON DELETE CASCADE,
			position INTEGER NOT NULL,
			file_name TEXT NOT NULL,
			name TEXT NOT NULL DEFAULT '',
			theme INTEGER NOT NULL CHECK (theme IN (0, 1)),
			repo_name TEXT NOT NULL DEFAULT '',
			version TEXT NOT NULL DEFAULT '',
			outcome TEXT NOT NULL,
			reason TEXT NOT NULL DEFAULT '',
			error TEXT NOT NULL DEFAULT '',
			changes TEXT NOT NULL DEFAULT '',
			PRIMARY KEY (run_id, position)
		)
	`); err != nil {
		return fmt.Errorf("create outcomes table: %w", err)
	}
	return nil
}

func (s *Store) applyPragmas(ctx context.Context, opts OpenOptions) error {
	if !opts.Fast {
		return nil
	}
	var mode string
	if err := s.db.QueryRowContext(ctx, "PRAGMA journal_mode = WAL").Scan(&mode); err != nil {
		return fmt.Errorf("set journal_mode: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, "PRAGMA synchronous = NORMAL"); err != nil {
		return fmt.Errorf("set synchronous: %w", err)
	}
	return nil
}

func boolInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

func shouldCreateDir(path string) bool {
	if path == ":memory:" {
		return false
	}
	if strings.HasPrefix(path, "file:") {
		return false
	}
	return true
}
