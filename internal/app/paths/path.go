package paths

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

var ErrPathRequired = errors.New("path is required")

// NormalizeDir trims and absolutizes a directory parameter. required is
// returned (wrapping ErrPathRequired) when path is blank so callers can
// report which directory is missing.
func NormalizeDir(path string, required error) (string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		if required == nil {
			return "", ErrPathRequired
		}
		return "", fmt.Errorf("%w: %w", required, ErrPathRequired)
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve path: %w", err)
	}

	return absPath, nil
}
