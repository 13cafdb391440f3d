package build

import (
	"time"

	"github.com/osvaldoandrade/extrepo/internal/domain"
)

const DefaultTimeout = 2 * time.Minute

type Options struct {
	PublicDir     string
	ExtensionsDir string
	Record        domain.RecordOptions
	Legacy        domain.LegacyIDRule
	Concurrency   int
	Timeout       time.Duration
}

type IndexWrite struct {
	Path     string
	Previous []byte
	Current  []byte
	Changed  bool
}

type Result struct {
	Position   int
	FileName   string
	Theme      bool
	Name       string
	RepoName   string
	Version    string
	Outcome    domain.Outcome
	Reason     domain.SkipReason
	Err        error
	Record     *domain.ExtensionRecord
	Changes    []byte
	Downloaded int64
}

type GroupSummary struct {
	Published int
	UpToDate  int
	Skipped   int
}

func (g GroupSummary) Total() int {
	return g.Published + g.UpToDate + g.Skipped
}

func (g *GroupSummary) add(outcome domain.Outcome) {
	switch outcome {
	case domain.OutcomePublished:
		g.Published++
	case domain.OutcomeUpToDate:
		g.UpToDate++
	default:
		g.Skipped++
	}
}

type Summary struct {
	RunID        string
	StartedAt    time.Time
	FinishedAt   time.Time
	Extensions   GroupSummary
	Themes       GroupSummary
	Results      []Result
	IndexPath    string
	IndexChanged bool
	IndexDigest  string
	JournalErr   error
}

func (s Summary) Packages() int {
	count := 0
	for _, result := range s.Results {
		if result.Record != nil {
			count++
		}
	}
	return count
}
