package schema

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/osvaldoandrade/extrepo/internal/domain"
)

func TestManifestValidatorAcceptsMinimalManifest(t *testing.T) {
	doc := []byte(`{"id":"org.foo.bar","name":"Bar","content_type":"SN|Component","github":"foo/bar","main":"index.html"}`)
	if err := NewManifestValidator().Validate(context.Background(), doc); err != nil {
		t.Fatalf("Validate returned error: %v", err)
	}
}

func TestManifestValidatorAcceptsNullOptionals(t *testing.T) {
	doc := []byte(`{"id":"org.foo.bar","name":"Bar","content_type":"SN|Theme","github":"foo/bar","main":"dist/theme.css","description":null,"flags":null,"dock_icon":{"type":"circle"},"statusBar":{"any":"shape"}}`)
	if err := NewManifestValidator().Validate(context.Background(), doc); err != nil {
		t.Fatalf("Validate returned error: %v", err)
	}
}

func TestManifestValidatorRejectsInvalidManifests(t *testing.T) {
	validator := NewManifestValidator()
	cases := map[string]string{
		"missing main":    `{"id":"org.foo.bar","name":"Bar","content_type":"SN|Component","github":"foo/bar"}`,
		"bad upstream":    `{"id":"org.foo.bar","name":"Bar","content_type":"SN|Component","github":"bar","main":"index.html"}`,
		"flags not list":  `{"id":"org.foo.bar","name":"Bar","content_type":"SN|Component","github":"foo/bar","main":"index.html","flags":"Native"}`,
		"not an object":   `["org.foo.bar"]`,
		"malformed json":  `{"id":`,
		"bad identifier":  `{"id":"org..bar","name":"Bar","content_type":"SN|Component","github":"foo/bar","main":"index.html"}`,
		"layerable value": `{"id":"org.foo.bar","name":"Bar","content_type":"SN|Component","github":"foo/bar","main":"index.html","layerable":"yes"}`,
	}
	for name, doc := range cases {
		err := validator.Validate(context.Background(), []byte(doc))
		if !errors.Is(err, domain.ErrInvalidManifest) {
			t.Fatalf("%s: expected ErrInvalidManifest, got %v", name, err)
		}
	}
}

func TestCompileRejectsBrokenSchema(t *testing.T) {
	if _, err := Compile("broken.json", []byte(`{"type":12}`)); err == nil {
		t.Fatalf("expected compile error")
	}
}

func TestManifestValidatorHonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := NewManifestValidator().Validate(ctx, []byte(`{}`)); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestLoadManifestValidatorFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "strict.schema.json")
	strict := `{"type":"object","required":["id","name","content_type","github","main","area"]}`
	if err := os.WriteFile(path, []byte(strict), 0o644); err != nil {
		t.Fatalf("write schema: %v", err)
	}

	validator, err := LoadManifestValidator(context.Background(), path)
	if err != nil {
		t.Fatalf("LoadManifestValidator: %v", err)
	}
	doc := []byte(`{"id":"org.foo.bar","name":"Bar","content_type":"SN|Component","github":"foo/bar","main":"index.html"}`)
	if err := validator.Validate(context.Background(), doc); !errors.Is(err, domain.ErrInvalidManifest) {
		t.Fatalf("expected the replacement schema to require area, got %v", err)
	}
}

func TestLoadManifestValidatorErrors(t *testing.T) {
	dir := t.TempDir()
	if _, err := LoadManifestValidator(context.Background(), filepath.Join(dir, "missing.json")); !errors.Is(err, ErrSchemaFileNotFound) {
		t.Fatalf("expected ErrSchemaFileNotFound, got %v", err)
	}

	broken := filepath.Join(dir, "broken.json")
	if err := os.WriteFile(broken, []byte(`{"type": 12}`), 0o644); err != nil {
		t.Fatalf("write schema: %v", err)
	}
	if _, err := LoadManifestValidator(context.Background(), broken); err == nil {
		t.Fatalf("expected compile error for a broken schema")
	}

	if v, err := LoadManifestValidator(context.Background(), ""); err != nil || v == nil {
		t.Fatalf("expected embedded validator, got %v", err)
	}
}
