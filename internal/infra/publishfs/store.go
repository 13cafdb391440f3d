package publishfs

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/osvaldoandrade/extrepo/internal/domain"
	"github.com/osvaldoandrade/extrepo/internal/infra/fsx"
)

const stagingPrefix = ".staging-"

// Store materializes release trees below <public>/<repo>/<version>. A version
// directory that exists is never touched again; new versions are assembled in
// a hidden staging directory next to it and renamed into place.
type Store struct {
	logger *slog.Logger
}

func NewStore(logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{logger: logger}
}

func (s *Store) EnsurePublished(ctx context.Context, publicDir, repoName, version string, fetch domain.FetchFunc) (domain.PublishOutcome, error) {
	if err := ctx.Err(); err != nil {
		return domain.PublishUnknown, err
	}
	if err := domain.ValidateRepoName(repoName); err != nil {
		return domain.PublishUnknown, err
	}
	if err := domain.ValidateVersion(version); err != nil {
		return domain.PublishUnknown, err
	}

	repoDir := filepath.Join(publicDir, repoName)
	final := filepath.Join(repoDir, version)
	exists, err := dirExists(final)
	if err != nil {
		return domain.PublishUnknown, err
	}
	if exists {
		return domain.PublishAlreadyCurrent, nil
	}

	if err := os.MkdirAll(repoDir, 0o755); err != nil {
		return domain.PublishUnknown, fmt.Errorf("create repo dir: %w", err)
	}
	s.sweepStaging(repoDir)

	staging, err := os.MkdirTemp(repoDir, stagingPrefix+version+"-*")
	if err != nil {
		return domain.PublishUnknown, fmt.Errorf("create staging dir: %w", err)
	}
	defer func() {
		if err := os.RemoveAll(staging); err != nil {
			s.logger.Debug("remove staging dir", "path", staging, "err", err)
		}
	}()

	stage := domain.Staging{TreeDir: filepath.Join(staging, "tree"), ScratchDir: staging}
	if err := fetch(ctx, stage); err != nil {
		return domain.PublishUnknown, err
	}
	if err := ctx.Err(); err != nil {
		return domain.PublishUnknown, err
	}

	info, err := os.Stat(stage.TreeDir)
	if err != nil {
		return domain.PublishUnknown, fmt.Errorf("%w: release tree missing: %w", domain.ErrUnpack, err)
	}
	if !info.IsDir() {
		return domain.PublishUnknown, fmt.Errorf("%w: release tree is not a directory", domain.ErrUnpack)
	}
	if err := os.RemoveAll(filepath.Join(stage.TreeDir, ".git")); err != nil {
		return domain.PublishUnknown, fmt.Errorf("remove vcs metadata: %w", err)
	}

	if err := os.Rename(stage.TreeDir, final); err != nil {
		if exists, statErr := dirExists(final); statErr == nil && exists {
			return domain.PublishAlreadyCurrent, nil
		}
		return domain.PublishUnknown, fmt.Errorf("publish %s: %w", final, err)
	}
	fsx.SyncDir(repoDir)
	return domain.PublishNewlyPublished, nil
}

// Adopt moves an already materialized tree to dest. Trees on another
// filesystem are copied.
func (s *Store) Adopt(ctx context.Context, src, dest string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.Rename(src, dest); err == nil {
		return nil
	}
	if err := os.CopyFS(dest, os.DirFS(src)); err != nil {
		return fmt.Errorf("copy %s: %w", src, err)
	}
	if err := os.RemoveAll(src); err != nil {
		s.logger.Debug("remove adopted tree", "path", src, "err", err)
	}
	return nil
}

func (s *Store) Discard(ctx context.Context, path string) error {
	if strings.TrimSpace(path) == "" {
		return nil
	}
	return os.RemoveAll(path)
}

// sweepStaging removes staging directories left behind by an interrupted pass.
func (s *Store) sweepStaging(repoDir string) {
	entries, err := os.ReadDir(repoDir)
	if err != nil {
		return
	}
	for _, entry := range entries {
		if !entry.IsDir() || !strings.HasPrefix(entry.Name(), stagingPrefix) {
			continue
		}
		stale := filepath.Join(repoDir, entry.Name())
		if err := os.RemoveAll(stale); err != nil {
			s.logger.Debug("remove stale staging dir", "path", stale, "err", err)
			continue
		}
		s.logger.Debug("removed stale staging dir", "path", stale)
	}
}

func dirExists(path string) (bool, error) {
	_, err := os.Lstat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, fmt.Errorf("stat %s: %w", path, err)
}
