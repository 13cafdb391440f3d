package archive

import (
	"archive/tar"
	"archive/zip"
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/osvaldoandrade/extrepo/internal/domain"
)

type entry struct {
	name string
	body string
}

func writeZip(t *testing.T, path string, entries []entry) {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, e := range entries {
		w, err := zw.Create(e.name)
		if err != nil {
			t.Fatalf("zip create %s: %v", e.name, err)
		}
		if _, err := w.Write([]byte(e.body)); err != nil {
			t.Fatalf("zip write %s: %v", e.name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("zip close: %v", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("write zip: %v", err)
	}
}

func writeTarGz(t *testing.T, path string, entries []entry) {
	t.Helper()
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)
	for _, e := range entries {
		hdr := &tar.Header{Name: e.name, Mode: 0o644, Size: int64(len(e.body)), Typeflag: tar.TypeReg}
		if err := tw.WriteHeader(hdr); err != nil {
			t.Fatalf("tar header %s: %v", e.name, err)
		}
		if _, err := tw.Write([]byte(e.body)); err != nil {
			t.Fatalf("tar write %s: %v", e.name, err)
		}
	}
	if err := tw.Close(); err != nil {
		t.Fatalf("tar close: %v", err)
	}
	if err := gz.Close(); err != nil {
		t.Fatalf("gzip close: %v", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("write tar.gz: %v", err)
	}
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return string(data)
}

func TestUnpackStripsRootAndHiddenEntries(t *testing.T) {
	dir := t.TempDir()
	archivePath := filepath.Join(dir, "release")
	dest := filepath.Join(dir, "tree")

	writeZip(t, archivePath, []entry{
		{name: "acme-ext-1a2b3c/dist/app.js", body: "app"},
		{name: "acme-ext-1a2b3c/index.html", body: "<html></html>"},
		{name: "acme-ext-1a2b3c/.git/HEAD", body: "ref: refs/heads/main"},
		{name: "acme-ext-1a2b3c/.github/workflows/ci.yml", body: "on: push"},
		{name: "acme-ext-1a2b3c/dist/.keep", body: ""},
	})

	if err := NewUnpacker().Unpack(context.Background(), archivePath, dest); err != nil {
		t.Fatalf("Unpack returned error: %v", err)
	}

	if got := readFile(t, filepath.Join(dest, "index.html")); got != "<html></html>" {
		t.Fatalf("unexpected index.html %q", got)
	}
	if got := readFile(t, filepath.Join(dest, "dist", "app.js")); got != "app" {
		t.Fatalf("unexpected app.js %q", got)
	}
	if _, err := os.Stat(filepath.Join(dest, "dist", ".keep")); err != nil {
		t.Fatalf("expected nested dotfile to be kept: %v", err)
	}
	for _, hidden := range []string{".git", ".github", "acme-ext-1a2b3c"} {
		if _, err := os.Stat(filepath.Join(dest, hidden)); !os.IsNotExist(err) {
			t.Fatalf("expected %s to be absent, got %v", hidden, err)
		}
	}
	if _, err := os.Stat(archivePath); !os.IsNotExist(err) {
		t.Fatalf("expected archive to be removed after unpack")
	}
}

func TestUnpackSniffsTarGz(t *testing.T) {
	dir := t.TempDir()
	archivePath := filepath.Join(dir, "release")
	dest := filepath.Join(dir, "tree")

	writeTarGz(t, archivePath, []entry{
		{name: "root/styles/theme.css", body: "body{}"},
		{name: "root/package.json", body: "{}"},
	})

	if err := NewUnpacker().Unpack(context.Background(), archivePath, dest); err != nil {
		t.Fatalf("Unpack returned error: %v", err)
	}
	if got := readFile(t, filepath.Join(dest, "styles", "theme.css")); got != "body{}" {
		t.Fatalf("unexpected theme.css %q", got)
	}
}

func TestUnpackRejectsGarbage(t *testing.T) {
	dir := t.TempDir()
	archivePath := filepath.Join(dir, "release")
	if err := os.WriteFile(archivePath, []byte("this is not an archive at all"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	err := NewUnpacker().Unpack(context.Background(), archivePath, filepath.Join(dir, "tree"))
	if !errors.Is(err, domain.ErrUnpack) {
		t.Fatalf("expected ErrUnpack, got %v", err)
	}
	if _, statErr := os.Stat(archivePath); statErr != nil {
		t.Fatalf("expected archive to be kept on failure: %v", statErr)
	}
}

func TestUnpackMissingArchive(t *testing.T) {
	dir := t.TempDir()
	err := NewUnpacker().Unpack(context.Background(), filepath.Join(dir, "missing"), filepath.Join(dir, "tree"))
	if !errors.Is(err, domain.ErrUnpack) {
		t.Fatalf("expected ErrUnpack, got %v", err)
	}
}

func TestUnpackHonorsCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := NewUnpacker().Unpack(ctx, "release", t.TempDir())
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestEntryPath(t *testing.T) {
	cases := []struct {
		name string
		want string
		keep bool
		err  bool
	}{
		{name: "root/", keep: false},
		{name: "root", keep: false},
		{name: "root/index.html", want: "index.html", keep: true},
		{name: "./root/a/b.txt", want: filepath.Join("a", "b.txt"), keep: true},
		{name: "root/.git/config", keep: false},
		{name: "root/a/.hidden", want: filepath.Join("a", ".hidden"), keep: true},
		{name: "root/../../evil", err: true},
		{name: "root/a/../../evil", err: true},
	}
	for _, tc := range cases {
		got, keep, err := EntryPath(tc.name)
		if tc.err {
			if !errors.Is(err, domain.ErrUnpack) {
				t.Fatalf("%s: expected ErrUnpack, got %v", tc.name, err)
			}
			continue
		}
		if err != nil {
			t.Fatalf("%s: unexpected error %v", tc.name, err)
		}
		if keep != tc.keep || got != tc.want {
			t.Fatalf("%s: expected (%q, %v), got (%q, %v)", tc.name, tc.want, tc.keep, got, keep)
		}
	}
}
