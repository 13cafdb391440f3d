package build

import (
	"context"
	"time"

	"github.com/osvaldoandrade/extrepo/internal/domain"
)

type Catalog interface {
	Load(ctx context.Context, dir string) ([]domain.ManifestEntry, error)
}

type Resolver interface {
	Resolve(ctx context.Context, upstream string) (domain.Release, error)
}

type Downloader interface {
	Download(ctx context.Context, url, dest string) (int64, error)
}

type Unpacker interface {
	Unpack(ctx context.Context, archivePath, destDir string) error
}

type Publisher interface {
	EnsurePublished(ctx context.Context, publicDir, repoName, version string, fetch domain.FetchFunc) (domain.PublishOutcome, error)
	Adopt(ctx context.Context, src, dest string) error
	Discard(ctx context.Context, path string) error
}

type IndexWriter interface {
	WriteExtension(ctx context.Context, publicDir, repoName string, record domain.ExtensionRecord) (IndexWrite, error)
	WriteRepository(ctx context.Context, publicDir string, index domain.RepositoryIndex) (IndexWrite, error)
}

type Differ interface {
	Diff(ctx context.Context, before, after []byte) ([]byte, error)
}

type Digester interface {
	Digest(ctx context.Context, document []byte) (string, error)
}

type Journal interface {
	RecordRun(ctx context.Context, summary Summary) error
}

type Clock interface {
	Now() time.Time
}

type IDGenerator interface {
	NewID() (string, error)
}
