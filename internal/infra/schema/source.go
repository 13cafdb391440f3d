package schema

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

var ErrSchemaFileNotFound = errors.New("manifest schema file not found")

// LoadManifestValidator builds a validator from the schema file at path.
// An empty path selects the embedded schema.
func LoadManifestValidator(ctx context.Context, path string) (*ManifestValidator, error) {
	if path == "" {
		return NewManifestValidator(), nil
	}
	data, err := ReadSchema(ctx, path)
	if err != nil {
		return nil, err
	}
	return NewManifestValidatorWithSchema(filepath.Base(path), data)
}

func ReadSchema(ctx context.Context, path string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrSchemaFileNotFound, path)
		}
		return nil, fmt.Errorf("read schema: %w", err)
	}
	return data, nil
}
