package domain

import (
	"errors"
	"testing"
)

func TestRepoName(t *testing.T) {
	tests := map[string]string{
		"foo/bar":  "bar",
		"foo/bar/": "bar",
		" a/b-c ":  "b-c",
		"lonely":   "lonely",
	}
	for input, want := range tests {
		if got := RepoName(input); got != want {
			t.Fatalf("RepoName(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestSplitUpstreamRejectsMalformed(t *testing.T) {
	for _, input := range []string{"", "foo", "foo/", "/bar", "a/b/c"} {
		if _, _, err := SplitUpstream(input); !errors.Is(err, ErrInvalidManifest) {
			t.Fatalf("expected ErrInvalidManifest for %q, got %v", input, err)
		}
	}
	owner, repo, err := SplitUpstream("foo/bar")
	if err != nil || owner != "foo" || repo != "bar" {
		t.Fatalf("unexpected split: %q %q %v", owner, repo, err)
	}
}

func TestValidateVersion(t *testing.T) {
	for _, bad := range []string{"", ".", "..", ".hidden", "a/b", `a\b`, "release/1.0"} {
		if err := ValidateVersion(bad); !errors.Is(err, ErrInvalidVersion) {
			t.Fatalf("expected ErrInvalidVersion for %q, got %v", bad, err)
		}
	}
	for _, good := range []string{"1.3.0", "v2.0.0-beta.1", "release-7"} {
		if err := ValidateVersion(good); err != nil {
			t.Fatalf("unexpected error for %q: %v", good, err)
		}
	}
}
