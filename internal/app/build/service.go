package build

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/osvaldoandrade/extrepo/internal/app/paths"
	"github.com/osvaldoandrade/extrepo/internal/domain"
)

type Deps struct {
	Catalog    Catalog
	Resolver   Resolver
	Downloader Downloader
	Unpacker   Unpacker
	Publisher  Publisher
	Writer     IndexWriter
	Differ     Differ
	Digester   Digester
	Journal    Journal
	Clock      Clock
	IDGen      IDGenerator
	Logger     *slog.Logger
}

type Service struct {
	catalog    Catalog
	resolver   Resolver
	downloader Downloader
	unpacker   Unpacker
	publisher  Publisher
	writer     IndexWriter
	differ     Differ
	digester   Digester
	journal    Journal
	clock      Clock
	idGen      IDGenerator
	logger     *slog.Logger
}

func NewService(deps Deps) *Service {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		catalog:    deps.Catalog,
		resolver:   deps.Resolver,
		downloader: deps.Downloader,
		unpacker:   deps.Unpacker,
		publisher:  deps.Publisher,
		writer:     deps.Writer,
		differ:     deps.Differ,
		digester:   deps.Digester,
		journal:    deps.Journal,
		clock:      deps.Clock,
		idGen:      deps.IDGen,
		logger:     logger,
	}
}

// Run executes one pass over every manifest in opts.ExtensionsDir. Per-manifest
// failures are reported in the summary; only configuration problems, catalog
// failures, cancellation and the final index write abort the pass.
func (s *Service) Run(ctx context.Context, opts Options) (Summary, error) {
	opts, err := normalizeOptions(opts)
	if err != nil {
		return Summary{}, err
	}

	runID, err := s.idGen.NewID()
	if err != nil {
		return Summary{}, err
	}
	summary := Summary{RunID: runID, StartedAt: s.clock.Now().UTC()}

	entries, err := s.catalog.Load(ctx, opts.ExtensionsDir)
	if err != nil {
		return Summary{}, err
	}
	domain.SortEntries(entries)
	claimRepoNames(entries)

	s.logger.Info("build pass started", "run", runID, "manifests", len(entries), "public", opts.PublicDir)

	results := s.processAll(ctx, entries, opts)
	if err := ctx.Err(); err != nil {
		return Summary{}, fmt.Errorf("build pass interrupted: %w", err)
	}

	index := domain.RepositoryIndex{
		ContentType: domain.RepoContentType,
		ValidUntil:  opts.Record.ValidUntil,
		Packages:    make([]domain.ExtensionRecord, 0, len(results)),
	}
	for _, result := range results {
		if result.Theme {
			summary.Themes.add(result.Outcome)
		} else {
			summary.Extensions.add(result.Outcome)
		}
		if result.Record != nil {
			index.Packages = append(index.Packages, *result.Record)
		}
	}
	summary.Results = results

	write, err := s.writer.WriteRepository(ctx, opts.PublicDir, index)
	if err != nil {
		return Summary{}, fmt.Errorf("write repository index: %w", err)
	}
	summary.IndexPath = write.Path
	summary.IndexChanged = write.Changed
	summary.IndexDigest = s.digest(ctx, write.Current)
	summary.FinishedAt = s.clock.Now().UTC()

	if s.journal != nil {
		if err := s.journal.RecordRun(ctx, summary); err != nil {
			summary.JournalErr = err
			s.logger.Warn("record build journal", "run", runID, "err", err)
		}
	}

	s.logger.Info("build pass finished",
		"run", runID,
		"packages", len(index.Packages),
		"published", summary.Extensions.Published+summary.Themes.Published,
		"up_to_date", summary.Extensions.UpToDate+summary.Themes.UpToDate,
		"skipped", summary.Extensions.Skipped+summary.Themes.Skipped,
		"index_changed", summary.IndexChanged,
	)
	return summary, nil
}

func normalizeOptions(opts Options) (Options, error) {
	publicDir, err := paths.NormalizeDir(opts.PublicDir, ErrPublicDirRequired)
	if err != nil {
		return Options{}, err
	}
	extensionsDir, err := paths.NormalizeDir(opts.ExtensionsDir, ErrExtensionsDirRequired)
	if err != nil {
		return Options{}, err
	}
	opts.PublicDir = publicDir
	opts.ExtensionsDir = extensionsDir

	if opts.Concurrency == 0 {
		opts.Concurrency = 1
	}
	if opts.Concurrency < 1 {
		return Options{}, ErrInvalidConcurrency
	}
	if opts.Timeout == 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Timeout < 0 {
		return Options{}, ErrInvalidTimeout
	}
	if opts.Record.ValidUntil == "" {
		opts.Record.ValidUntil = domain.DefaultValidUntil
	}
	opts.Record.BaseURL = domain.TrimBaseURL(opts.Record.BaseURL)
	return opts, nil
}

// claimRepoNames marks every manifest whose repo directory is already owned
// by an earlier manifest, so no two manifests write below the same path.
func claimRepoNames(entries []domain.ManifestEntry) {
	owners := make(map[string]string, len(entries))
	for i := range entries {
		if entries[i].Err != nil {
			continue
		}
		name := domain.RepoName(entries[i].Manifest.Upstream)
		if owner, ok := owners[name]; ok {
			entries[i].Err = fmt.Errorf("%w: %w: %s is used by %s", domain.ErrInvalidManifest, ErrDuplicateRepo, name, owner)
			continue
		}
		owners[name] = entries[i].FileName
	}
}

func (s *Service) processAll(ctx context.Context, entries []domain.ManifestEntry, opts Options) []Result {
	results := make([]Result, len(entries))
	workers := min(opts.Concurrency, len(entries))

	if workers <= 1 {
		for i, entry := range entries {
			if ctx.Err() != nil {
				break
			}
			results[i] = s.process(ctx, i, entry, opts)
		}
		return results
	}

	jobs := make(chan int)
	var wg sync.WaitGroup
	for range workers {
		wg.Go(func() {
			for i := range jobs {
				results[i] = s.process(ctx, i, entries[i], opts)
			}
		})
	}

feed:
	for i := range entries {
		select {
		case jobs <- i:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()
	return results
}

func (s *Service) process(ctx context.Context, position int, entry domain.ManifestEntry, opts Options) Result {
	result := Result{
		Position: position,
		FileName: entry.FileName,
		Theme:    entry.Theme,
		Name:     entry.Label(),
	}
	if entry.Err != nil {
		return s.skip(result, entry.Err)
	}

	manifest := entry.Manifest
	result.RepoName = domain.RepoName(manifest.Upstream)

	release, err := s.resolve(ctx, manifest.Upstream, opts.Timeout)
	if err != nil {
		return s.skip(result, fmt.Errorf("resolve %s: %w", manifest.Upstream, err))
	}
	defer s.discard(ctx, release)
	result.Version = release.Version

	outcome, err := s.publish(ctx, opts, result.RepoName, release, &result)
	if err != nil {
		return s.skip(result, fmt.Errorf("publish %s@%s: %w", result.RepoName, release.Version, err))
	}

	identifier := opts.Legacy.Apply(entry.FileName, manifest.ID)
	record := domain.NewExtensionRecord(manifest, identifier, release.Version, opts.Record)
	write, err := s.writer.WriteExtension(ctx, opts.PublicDir, result.RepoName, record)
	if err != nil {
		return s.skip(result, fmt.Errorf("write extension index: %w", err))
	}
	if write.Changed && len(write.Previous) > 0 && s.differ != nil {
		changes, err := s.differ.Diff(ctx, write.Previous, write.Current)
		if err != nil {
			s.logger.Debug("diff extension index", "manifest", entry.FileName, "err", err)
		} else {
			result.Changes = changes
		}
	}

	result.Record = &record
	switch outcome {
	case domain.PublishNewlyPublished:
		result.Outcome = domain.OutcomePublished
		s.logger.Info("published extension",
			"manifest", entry.FileName,
			"repo", result.RepoName,
			"version", release.Version,
			"size", humanize.Bytes(uint64(max(result.Downloaded, 0))),
		)
	default:
		result.Outcome = domain.OutcomeUpToDate
		s.logger.Info("extension up to date", "manifest", entry.FileName, "repo", result.RepoName, "version", release.Version)
	}
	if len(result.Changes) > 0 {
		s.logger.Debug("extension record changed", "manifest", entry.FileName, "patch", string(result.Changes))
	}
	return result
}

func (s *Service) resolve(ctx context.Context, upstream string, timeout time.Duration) (domain.Release, error) {
	if _, _, err := domain.SplitUpstream(upstream); err != nil {
		return domain.Release{}, err
	}
	resolveCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	release, err := s.resolver.Resolve(resolveCtx, upstream)
	if err != nil {
		return domain.Release{}, err
	}
	if err := domain.ValidateVersion(release.Version); err != nil {
		s.discard(ctx, release)
		return domain.Release{}, err
	}
	return release, nil
}

func (s *Service) publish(ctx context.Context, opts Options, repoName string, release domain.Release, result *Result) (domain.PublishOutcome, error) {
	publishCtx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()
	return s.publisher.EnsurePublished(publishCtx, opts.PublicDir, repoName, release.Version, s.fetchFunc(release, result))
}

func (s *Service) fetchFunc(release domain.Release, result *Result) domain.FetchFunc {
	return func(ctx context.Context, stage domain.Staging) error {
		if release.IsCheckout() {
			return s.publisher.Adopt(ctx, release.CheckoutPath, stage.TreeDir)
		}
		if release.ArchiveURL == "" {
			return fmt.Errorf("%w: release %s has no archive location", domain.ErrReleaseNotFound, release.Version)
		}
		archivePath := filepath.Join(stage.ScratchDir, "release")
		size, err := s.downloader.Download(ctx, release.ArchiveURL, archivePath)
		if err != nil {
			return err
		}
		result.Downloaded = size
		return s.unpacker.Unpack(ctx, archivePath, stage.TreeDir)
	}
}

func (s *Service) discard(ctx context.Context, release domain.Release) {
	if !release.IsCheckout() {
		return
	}
	if err := s.publisher.Discard(context.WithoutCancel(ctx), release.CheckoutPath); err != nil {
		s.logger.Debug("discard checkout", "path", release.CheckoutPath, "err", err)
	}
}

func (s *Service) skip(result Result, err error) Result {
	result.Outcome = domain.OutcomeSkipped
	result.Reason = domain.ClassifyFailure(err)
	result.Err = err

	attrs := []any{"manifest", result.FileName, "reason", string(result.Reason), "err", err}
	if result.RepoName != "" {
		attrs = append(attrs, "repo", result.RepoName)
	}
	switch result.Reason {
	case domain.SkipNotFound:
		s.logger.Info("no release found, skipping", attrs...)
	case domain.SkipTransport, domain.SkipTimeout:
		s.logger.Warn("transport failure, skipping", attrs...)
	default:
		s.logger.Warn("skipping manifest", attrs...)
	}
	return result
}

func (s *Service) digest(ctx context.Context, document []byte) string {
	if s.digester == nil || len(document) == 0 {
		return ""
	}
	sum, err := s.digester.Digest(ctx, document)
	if err != nil {
		s.logger.Debug("digest repository index", "err", err)
		return ""
	}
	return sum
}

// Resolve exposes the configured strategy for one upstream reference. Any
// checkout produced by the VCS strategy is discarded before returning.
func (s *Service) Resolve(ctx context.Context, upstream string, timeout time.Duration) (domain.Release, error) {
	if s.resolver == nil {
		return domain.Release{}, ErrNoResolver
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	release, err := s.resolve(ctx, upstream, timeout)
	if err != nil {
		return domain.Release{}, err
	}
	s.discard(ctx, release)
	release.CheckoutPath = ""
	return release, nil
}
