package cli

import (
	"bytes"
	"testing"

	"github.com/osvaldoandrade/extrepo/internal/app/build"
)

func TestOutcomeBarWithoutColor(t *testing.T) {
	ui := renderer{}
	tests := []struct {
		published, current, skipped int
		want                        string
	}{
		{0, 0, 0, "[          ]"},
		{1, 1, 0, "[+++++=====]"},
		{0, 3, 0, "[==========]"},
		{1, 2, 1, "[++=====!!!]"},
	}
	for _, tt := range tests {
		if got := ui.outcomeBar(10, tt.published, tt.current, tt.skipped); got != tt.want {
			t.Fatalf("outcomeBar(%d,%d,%d) = %q, want %q", tt.published, tt.current, tt.skipped, got, tt.want)
		}
	}
}

func TestInteractiveIsOffForBuffersAndJSON(t *testing.T) {
	if interactive(&bytes.Buffer{}, false) {
		t.Fatalf("a buffer is not a terminal")
	}
	if newRenderer(&bytes.Buffer{}, true).color {
		t.Fatalf("JSON output must not be colored")
	}
}

func TestGroupLineLeadsWithTotal(t *testing.T) {
	got := groupLine(renderer{}, build.GroupSummary{Published: 2, UpToDate: 3, Skipped: 1})
	want := "6: 2 published, 3 up to date, 1 skipped"
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}
