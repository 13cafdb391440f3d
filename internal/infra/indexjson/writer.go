package indexjson

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/go-json-experiment/json"
	"github.com/go-json-experiment/json/jsontext"
	"github.com/osvaldoandrade/extrepo/internal/app/build"
	"github.com/osvaldoandrade/extrepo/internal/domain"
	"github.com/osvaldoandrade/extrepo/internal/infra/fsx"
)

const FileName = "index.json"

// Writer renders index documents with four-space indentation and sorted map
// keys. Files are only rewritten when their bytes change.
type Writer struct{}

func NewWriter() Writer {
	return Writer{}
}

func (w Writer) WriteExtension(ctx context.Context, publicDir, repoName string, record domain.ExtensionRecord) (build.IndexWrite, error) {
	if err := ctx.Err(); err != nil {
		return build.IndexWrite{}, err
	}
	if err := domain.ValidateRepoName(repoName); err != nil {
		return build.IndexWrite{}, err
	}
	return write(filepath.Join(publicDir, repoName, FileName), record)
}

func (w Writer) WriteRepository(ctx context.Context, publicDir string, index domain.RepositoryIndex) (build.IndexWrite, error) {
	if err := ctx.Err(); err != nil {
		return build.IndexWrite{}, err
	}
	if index.Packages == nil {
		index.Packages = []domain.ExtensionRecord{}
	}
	return write(filepath.Join(publicDir, FileName), index)
}

func Encode(value any) ([]byte, error) {
	payload, err := json.Marshal(value, jsontext.WithIndent("    "), json.Deterministic(true))
	if err != nil {
		return nil, err
	}
	return append(payload, '\n'), nil
}

func write(path string, value any) (build.IndexWrite, error) {
	payload, err := Encode(value)
	if err != nil {
		return build.IndexWrite{}, fmt.Errorf("encode %s: %w", path, err)
	}
	previous, changed, err := fsx.WriteIfChanged(path, payload, 0o644)
	if err != nil {
		return build.IndexWrite{}, err
	}
	return build.IndexWrite{
		Path:     path,
		Previous: previous,
		Current:  payload,
		Changed:  changed,
	}, nil
}
