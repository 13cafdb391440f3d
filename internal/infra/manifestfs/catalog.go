package manifestfs

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-json-experiment/json"
	"github.com/osvaldoandrade/extrepo/internal/domain"
	"gopkg.in/yaml.v3"
)

var ErrExtensionsDirMissing = errors.New("extensions dir does not exist")

type Validator interface {
	Validate(ctx context.Context, document []byte) error
}

// Catalog reads extension manifests from a directory of YAML files. A file
// that cannot be parsed or validated is still listed, with Err set.
type Catalog struct {
	validator Validator
}

func NewCatalog(validator Validator) *Catalog {
	return &Catalog{validator: validator}
}

func (c *Catalog) Load(ctx context.Context, dir string) ([]domain.ManifestEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	files, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrExtensionsDirMissing, dir)
		}
		return nil, fmt.Errorf("read extensions dir: %w", err)
	}

	var names []string
	for _, file := range files {
		if !file.Type().IsRegular() || !IsManifestFile(file.Name()) {
			continue
		}
		names = append(names, file.Name())
	}
	sort.Strings(names)

	entries := make([]domain.ManifestEntry, 0, len(names))
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		entry := domain.ManifestEntry{FileName: name, Theme: domain.IsThemeFile(name)}
		manifest, err := c.loadFile(ctx, filepath.Join(dir, name))
		if err != nil {
			entry.Err = fmt.Errorf("%s: %w", name, err)
		} else {
			entry.Manifest = manifest
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func IsManifestFile(name string) bool {
	if strings.HasPrefix(name, ".") {
		return false
	}
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml":
		return true
	default:
		return false
	}
}

func (c *Catalog) loadFile(ctx context.Context, path string) (domain.Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.Manifest{}, fmt.Errorf("read manifest: %w", err)
	}
	return c.Parse(ctx, data)
}

// Parse decodes one YAML manifest. The document is converted to JSON first so
// schema validation and decoding see the same value.
func (c *Catalog) Parse(ctx context.Context, data []byte) (domain.Manifest, error) {
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return domain.Manifest{}, fmt.Errorf("%w: parse yaml: %w", domain.ErrInvalidManifest, err)
	}
	if raw == nil {
		return domain.Manifest{}, fmt.Errorf("%w: empty document", domain.ErrInvalidManifest)
	}

	document, err := json.Marshal(raw, json.Deterministic(true))
	if err != nil {
		return domain.Manifest{}, fmt.Errorf("%w: convert yaml: %w", domain.ErrInvalidManifest, err)
	}
	if c.validator != nil {
		if err := c.validator.Validate(ctx, document); err != nil {
			return domain.Manifest{}, err
		}
	}

	var manifest domain.Manifest
	if err := json.Unmarshal(document, &manifest); err != nil {
		return domain.Manifest{}, fmt.Errorf("%w: decode manifest: %w", domain.ErrInvalidManifest, err)
	}
	if _, _, err := domain.SplitUpstream(manifest.Upstream); err != nil {
		return domain.Manifest{}, err
	}
	if err := domain.ValidateRepoName(domain.RepoName(manifest.Upstream)); err != nil {
		return domain.Manifest{}, fmt.Errorf("%w: %w", domain.ErrInvalidManifest, err)
	}
	return manifest, nil
}
