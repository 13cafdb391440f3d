package extreposdk

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/osvaldoandrade/extrepo/internal/app/history"
	"github.com/osvaldoandrade/extrepo/internal/bootstrap"
	"github.com/osvaldoandrade/extrepo/internal/domain"
)

// Client runs build passes against one repository layout.
type Client struct {
	mu sync.Mutex
	rt *bootstrap.Runtime
}

type Outcome string

const (
	OutcomePublished Outcome = Outcome(domain.OutcomePublished)
	OutcomeUpToDate  Outcome = Outcome(domain.OutcomeUpToDate)
	OutcomeSkipped   Outcome = Outcome(domain.OutcomeSkipped)
)

type ExtensionResult struct {
	Manifest   string
	Name       string
	Repo       string
	Version    string
	Theme      bool
	Outcome    Outcome
	Reason     string
	Err        error
	Downloaded int64
	Changes    []byte
}

type BuildResult struct {
	RunID        string
	StartedAt    time.Time
	FinishedAt   time.Time
	Packages     int
	Published    int
	UpToDate     int
	Skipped      int
	IndexPath    string
	IndexChanged bool
	IndexDigest  string
	Extensions   []ExtensionResult
}

type Release struct {
	Version    string
	ArchiveURL string
}

type ManifestStatus struct {
	File     string
	ID       string
	Upstream string
	Theme    bool
	Err      error
}

type ValidationReport struct {
	Valid     int
	Invalid   int
	Manifests []ManifestStatus
}

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

// Open loads configuration and wires the build services. A nil logger
// means slog.Default.
func Open(ctx context.Context, cfg Config, logger *slog.Logger) (*Client, error) {
	resolved, err := loadConfig(cfg)
	if err != nil {
		return nil, err
	}
	if err := resolved.RequireExtensionsDir(); err != nil {
		return nil, err
	}
	rt, err := bootstrap.Open(ctx, resolved, logger, bootstrap.Options{VerifyCredentials: cfg.VerifyCredentials})
	if err != nil {
		return nil, err
	}
	return &Client{rt: rt}, nil
}

func (c *Client) Close() error {
	c.mu.Lock()
	rt := c.rt
	c.rt = nil
	c.mu.Unlock()
	return rt.Close()
}

// PublicDir returns the resolved output directory.
func (c *Client) PublicDir() string {
	rt, err := c.runtime()
	if err != nil {
		return ""
	}
	return rt.Config.PublicDir
}

func (c *Client) runtime() (*bootstrap.Runtime, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.rt == nil {
		return nil, ErrClosed
	}
	return c.rt, nil
}

// Build runs one full pass. Per-extension failures are reported in the
// result, not as an error.
func (c *Client) Build(ctx context.Context) (BuildResult, error) {
	rt, err := c.runtime()
	if err != nil {
		return BuildResult{}, err
	}
	summary, err := rt.Build.Run(ctx, rt.BuildOptions())
	if err != nil {
		return BuildResult{}, err
	}
	result := BuildResult{
		RunID:        summary.RunID,
		StartedAt:    summary.StartedAt,
		FinishedAt:   summary.FinishedAt,
		Packages:     summary.Packages(),
		Published:    summary.Extensions.Published + summary.Themes.Published,
		UpToDate:     summary.Extensions.UpToDate + summary.Themes.UpToDate,
		Skipped:      summary.Extensions.Skipped + summary.Themes.Skipped,
		IndexPath:    summary.IndexPath,
		IndexChanged: summary.IndexChanged,
		IndexDigest:  summary.IndexDigest,
		Extensions:   make([]ExtensionResult, 0, len(summary.Results)),
	}
	for _, r := range summary.Results {
		result.Extensions = append(result.Extensions, ExtensionResult{
			Manifest:   r.FileName,
			Name:       r.Name,
			Repo:       r.RepoName,
			Version:    r.Version,
			Theme:      r.Theme,
			Outcome:    Outcome(r.Outcome),
			Reason:     string(r.Reason),
			Err:        r.Err,
			Downloaded: r.Downloaded,
			Changes:    r.Changes,
		})
	}
	return result, nil
}

// Resolve reports the latest release of an owner/repo reference.
func (c *Client) Resolve(ctx context.Context, upstream string) (Release, error) {
	rt, err := c.runtime()
	if err != nil {
		return Release{}, err
	}
	release, err := rt.Build.Resolve(ctx, upstream, rt.Config.NetworkTimeout)
	if err != nil {
		return Release{}, mapErr(err)
	}
	return Release{Version: release.Version, ArchiveURL: release.ArchiveURL}, nil
}

func (c *Client) Validate(ctx context.Context) (ValidationReport, error) {
	rt, err := c.runtime()
	if err != nil {
		return ValidationReport{}, err
	}
	report, err := rt.Build.ValidateManifests(ctx, rt.Config.ExtensionsDir)
	if err != nil {
		return ValidationReport{}, err
	}
	out := ValidationReport{
		Valid:     report.Valid,
		Invalid:   report.Invalid,
		Manifests: make([]ManifestStatus, 0, len(report.Entries)),
	}
	for _, entry := range report.Entries {
		out.Manifests = append(out.Manifests, ManifestStatus{
			File:     entry.FileName,
			ID:       entry.Manifest.ID,
			Upstream: entry.Manifest.Upstream,
			Theme:    entry.Theme,
			Err:      entry.Err,
		})
	}
	return out, nil
}

// Runs lists journaled build passes, newest first.
func (c *Client) Runs(ctx context.Context, limit int) ([]Run, error) {
	rt, err := c.runtime()
	if err != nil {
		return nil, err
	}
	runs, err := rt.History.List(ctx, history.ListOptions{Limit: limit})
	if err != nil {
		return nil, mapErr(err)
	}
	out := make([]Run, 0, len(runs))
	for _, run := range runs {
		out = append(out, Run(run))
	}
	return out, nil
}

func mapErr(err error) error {
	switch {
	case errors.Is(err, domain.ErrReleaseNotFound), errors.Is(err, history.ErrRunNotFound):
		return errors.Join(ErrNotFound, err)
	case errors.Is(err, history.ErrJournalDisabled):
		return errors.Join(ErrJournalDisabled, err)
	default:
		return err
	}
}
