package domain

import (
	"fmt"
	"strings"
)

// RepoName is the last segment of an owner/repo reference.
func RepoName(upstream string) string {
	upstream = strings.TrimSuffix(strings.TrimSpace(upstream), "/")
	if idx := strings.LastIndex(upstream, "/"); idx >= 0 {
		return upstream[idx+1:]
	}
	return upstream
}

func SplitUpstream(upstream string) (string, string, error) {
	parts := strings.Split(strings.TrimSpace(upstream), "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("%w: upstream %q is not owner/repo", ErrInvalidManifest, upstream)
	}
	return parts[0], parts[1], nil
}

// IsSafeSegment reports whether value can be used as a single, visible
// directory name below the public dir.
func IsSafeSegment(value string) bool {
	if value == "" || value == "." || value == ".." {
		return false
	}
	if strings.HasPrefix(value, ".") {
		return false
	}
	if strings.ContainsAny(value, "/\\\x00") {
		return false
	}
	return true
}

func ValidateVersion(version string) error {
	if !IsSafeSegment(version) {
		return fmt.Errorf("%w: %q", ErrInvalidVersion, version)
	}
	return nil
}

func ValidateRepoName(name string) error {
	if !IsSafeSegment(name) {
		return fmt.Errorf("%w: %q", ErrInvalidRepoName, name)
	}
	return nil
}
