package archive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/mholt/archives"
	"github.com/osvaldoandrade/extrepo/internal/domain"
)

// Unpacker extracts a downloaded release archive. The format is sniffed from
// the file header, so the archive path needs no extension.
type Unpacker struct{}

func NewUnpacker() *Unpacker {
	return &Unpacker{}
}

// Unpack writes every regular file of the archive below destDir with the
// top-level directory removed. Entries whose first remaining segment is
// hidden (.git, .github) are left out. The archive is deleted on success.
func (u *Unpacker) Unpack(ctx context.Context, archivePath, destDir string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return fmt.Errorf("%w: create %s: %w", domain.ErrUnpack, destDir, err)
	}

	f, err := os.Open(archivePath)
	if err != nil {
		return fmt.Errorf("%w: open archive: %w", domain.ErrUnpack, err)
	}
	defer f.Close()

	format, _, err := archives.Identify(ctx, filepath.Base(archivePath), f)
	if err != nil {
		return fmt.Errorf("%w: identify archive: %w", domain.ErrUnpack, err)
	}
	extractor, ok := format.(archives.Extractor)
	if !ok {
		return fmt.Errorf("%w: %s is not an extractable archive", domain.ErrUnpack, format.Extension())
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("%w: rewind archive: %w", domain.ErrUnpack, err)
	}

	err = extractor.Extract(ctx, f, func(ctx context.Context, info archives.FileInfo) error {
		return writeEntry(ctx, destDir, info)
	})
	if err != nil {
		if errors.Is(err, domain.ErrUnpack) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		return fmt.Errorf("%w: extract: %w", domain.ErrUnpack, err)
	}

	if err := f.Close(); err != nil {
		return fmt.Errorf("%w: close archive: %w", domain.ErrUnpack, err)
	}
	if err := os.Remove(archivePath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove archive: %w", err)
	}
	return nil
}

func writeEntry(ctx context.Context, destDir string, info archives.FileInfo) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if info.IsDir() || info.LinkTarget != "" || !info.Mode().IsRegular() {
		return nil
	}
	rel, keep, err := EntryPath(info.NameInArchive)
	if err != nil || !keep {
		return err
	}

	src, err := info.Open()
	if err != nil {
		return fmt.Errorf("%w: open %s: %w", domain.ErrUnpack, info.NameInArchive, err)
	}
	defer src.Close()

	target := filepath.Join(destDir, rel)
	dst, err := createFile(target, fileMode(info.Mode()))
	if err != nil {
		return fmt.Errorf("%w: create %s: %w", domain.ErrUnpack, rel, err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return fmt.Errorf("%w: write %s: %w", domain.ErrUnpack, rel, err)
	}
	if err := dst.Close(); err != nil {
		return fmt.Errorf("%w: close %s: %w", domain.ErrUnpack, rel, err)
	}
	return nil
}

// createFile opens target for writing, creating missing parents when the
// archive lists a file before its directory.
func createFile(target string, mode fs.FileMode) (*os.File, error) {
	const flags = os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	f, err := os.OpenFile(target, flags, mode)
	if err == nil {
		return f, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return nil, err
	}
	return os.OpenFile(target, flags, mode)
}

func fileMode(mode fs.FileMode) fs.FileMode {
	perm := mode.Perm()
	if perm&0o200 == 0 {
		perm |= 0o200
	}
	if perm == 0o200 {
		perm = 0o644
	}
	return perm
}

// EntryPath maps an archive entry name to its path below the destination.
// keep is false for the archive root itself and for hidden top-level entries.
func EntryPath(name string) (string, bool, error) {
	name = strings.ReplaceAll(name, "\\", "/")
	name = strings.TrimPrefix(name, "./")
	name = strings.TrimLeft(name, "/")

	_, rest, found := strings.Cut(name, "/")
	if !found {
		return "", false, nil
	}
	rest = strings.Trim(rest, "/")
	if rest == "" {
		return "", false, nil
	}
	first, _, _ := strings.Cut(rest, "/")
	if strings.HasPrefix(first, ".") && first != ".." {
		return "", false, nil
	}

	rel := filepath.FromSlash(rest)
	if !filepath.IsLocal(rel) {
		return "", false, fmt.Errorf("%w: entry %q escapes the destination", domain.ErrUnpack, name)
	}
	return rel, true, nil
}
