package jsonpatch

import (
	"context"
	"errors"
	"fmt"

	"github.com/evanphx/json-patch/v5"
	"github.com/go-json-experiment/json/jsontext"
)

var ErrInvalidDocument = errors.New("invalid json document")

// Differ describes how one JSON document turned into another as an RFC 7386
// merge patch.
type Differ struct{}

// Diff rejects malformed input up front. A previous index left truncated on
// disk must not reach CreateMergePatch, which panics on it.
func (Differ) Diff(ctx context.Context, before, after []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !jsontext.Value(before).IsValid() {
		return nil, fmt.Errorf("%w: previous document", ErrInvalidDocument)
	}
	if !jsontext.Value(after).IsValid() {
		return nil, fmt.Errorf("%w: current document", ErrInvalidDocument)
	}

	patch, err := jsonpatch.CreateMergePatch(before, after)
	if err != nil {
		return nil, fmt.Errorf("create merge patch: %w", err)
	}
	return patch, nil
}
