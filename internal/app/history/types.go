package history

import "time"

const DefaultLimit = 20

type Run struct {
	ID           string
	StartedAt    time.Time
	FinishedAt   time.Time
	Packages     int
	Published    int
	UpToDate     int
	Skipped      int
	IndexChanged bool
	IndexDigest  string
}

func (r Run) Duration() time.Duration {
	if r.FinishedAt.Before(r.StartedAt) {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

type Outcome struct {
	Position int
	FileName string
	Name     string
	Theme    bool
	RepoName string
	Version  string
	Outcome  string
	Reason   string
	Error    string
	Changes  string
}

type RunDetail struct {
	Run      Run
	Outcomes []Outcome
}

type ListOptions struct {
	Limit int
}
