package schema

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"sync"

	"github.com/go-json-experiment/json"
	"github.com/osvaldoandrade/extrepo/internal/domain"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

const manifestSchemaURL = "manifest.schema.json"

//go:embed manifest.schema.json
var manifestSchema []byte

// ManifestValidator checks decoded manifest documents against the embedded
// manifest schema, or a replacement supplied by the operator. The schema is
// compiled on first use.
type ManifestValidator struct {
	name   string
	source []byte

	once     sync.Once
	compiled *jsonschema.Schema
	err      error
}

func NewManifestValidator() *ManifestValidator {
	return &ManifestValidator{name: manifestSchemaURL, source: manifestSchema}
}

// NewManifestValidatorWithSchema compiles source up front so a broken
// replacement schema is reported before any manifest is read.
func NewManifestValidatorWithSchema(name string, source []byte) (*ManifestValidator, error) {
	v := &ManifestValidator{name: name, source: source}
	if _, err := v.schema(); err != nil {
		return nil, err
	}
	return v, nil
}

func (v *ManifestValidator) Validate(ctx context.Context, document []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	compiled, err := v.schema()
	if err != nil {
		return err
	}

	var value any
	if err := json.Unmarshal(document, &value); err != nil {
		return fmt.Errorf("%w: decode manifest: %w", domain.ErrInvalidManifest, err)
	}
	if err := compiled.Validate(value); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrInvalidManifest, err)
	}
	return nil
}

func (v *ManifestValidator) schema() (*jsonschema.Schema, error) {
	v.once.Do(func() {
		v.compiled, v.err = Compile(v.name, v.source)
	})
	return v.compiled, v.err
}

func Compile(name string, schema []byte) (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(name, bytes.NewReader(schema)); err != nil {
		return nil, fmt.Errorf("load schema: %w", err)
	}

	compiled, err := compiler.Compile(name)
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return compiled, nil
}
