package digest

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/go-json-experiment/json/jsontext"
)

const Prefix = "sha256:"

var ErrEmptyDocument = errors.New("empty json document")

// Index fingerprints generated index documents. The document is reduced to
// its RFC 8785 form first, so indentation and key order never change the
// result.
type Index struct{}

func (Index) Digest(ctx context.Context, document []byte) (string, error) {
	canonical, err := Canonicalize(ctx, document)
	if err != nil {
		return "", err
	}
	return Sum(canonical), nil
}

func Canonicalize(ctx context.Context, document []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	trimmed := bytes.TrimSpace(document)
	if len(trimmed) == 0 {
		return nil, ErrEmptyDocument
	}

	value := jsontext.Value(bytes.Clone(trimmed))
	if err := value.Canonicalize(); err != nil {
		return nil, fmt.Errorf("canonicalize index: %w", err)
	}
	return []byte(value), nil
}

// Sum returns the prefixed hex sha256 of data as it is stored in the journal.
func Sum(data []byte) string {
	sum := sha256.Sum256(data)
	return Prefix + hex.EncodeToString(sum[:])
}
