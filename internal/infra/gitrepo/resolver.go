package gitrepo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/osvaldoandrade/extrepo/internal/domain"
)

const DefaultBaseURL = "https://github.com"

type ResolverOptions struct {
	// BaseURL prefixes owner/repo to form the clone URL.
	BaseURL     string
	WorkDir     string
	Credentials Credentials
	Logger      *slog.Logger
}

// Resolver finds the newest tagged commit of a repository by cloning it. The
// release it returns is a checkout that the caller must adopt or discard.
type Resolver struct {
	baseURL string
	workDir string
	creds   Credentials
	logger  *slog.Logger
}

func NewResolver(opts ResolverOptions) *Resolver {
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		baseURL: baseURL,
		workDir: opts.WorkDir,
		creds:   opts.Credentials,
		logger:  logger,
	}
}

func (r *Resolver) CloneURL(owner, repo string) string {
	return r.baseURL + "/" + owner + "/" + repo + ".git"
}

func (r *Resolver) Resolve(ctx context.Context, upstream string) (domain.Release, error) {
	if err := ctx.Err(); err != nil {
		return domain.Release{}, err
	}
	owner, name, err := domain.SplitUpstream(upstream)
	if err != nil {
		return domain.Release{}, err
	}
	if strings.TrimSpace(r.workDir) == "" {
		return domain.Release{}, fmt.Errorf("clone %s: work dir is required", upstream)
	}

	repo, path, err := clone(ctx, r.workDir, name, r.CloneURL(owner, name), r.creds)
	if err != nil {
		return domain.Release{}, err
	}
	keep := false
	defer func() {
		if !keep {
			_ = os.RemoveAll(path)
		}
	}()

	tag, err := latestTag(repo)
	if err != nil {
		return domain.Release{}, fmt.Errorf("%s: %w", upstream, err)
	}
	if err := ctx.Err(); err != nil {
		return domain.Release{}, err
	}

	wt, err := repo.Worktree()
	if err != nil {
		return domain.Release{}, fmt.Errorf("open worktree: %w", err)
	}
	if err := wt.Checkout(&git.CheckoutOptions{Hash: tag.commit, Force: true}); err != nil {
		return domain.Release{}, fmt.Errorf("checkout %s: %w", tag.name, err)
	}

	r.logger.Debug("resolved tag from clone", "upstream", upstream, "tag", tag.name, "commit", tag.commit.String())
	keep = true
	return domain.Release{Version: tag.name, CheckoutPath: path}, nil
}

type tagCandidate struct {
	name       string
	commit     plumbing.Hash
	committed  time.Time
	annotated  bool
	taggerWhen time.Time
}

// latestTag picks the tagged commit with the newest committer time and names
// it by the tag that describes it best: annotated over lightweight, then the
// newest tagger date, then the smallest name.
func latestTag(repo *git.Repository) (tagCandidate, error) {
	refs, err := repo.Tags()
	if err != nil {
		return tagCandidate{}, fmt.Errorf("list tags: %w", err)
	}
	defer refs.Close()

	var candidates []tagCandidate
	err = refs.ForEach(func(ref *plumbing.Reference) error {
		candidate, ok, err := resolveTag(repo, ref)
		if err != nil {
			return err
		}
		if ok {
			candidates = append(candidates, candidate)
		}
		return nil
	})
	if err != nil {
		return tagCandidate{}, err
	}
	if len(candidates) == 0 {
		return tagCandidate{}, fmt.Errorf("%w: repository has no tags", domain.ErrReleaseNotFound)
	}

	newest := candidates[0]
	for _, c := range candidates[1:] {
		if c.committed.After(newest.committed) {
			newest = c
		}
	}

	best := newest
	for _, c := range candidates {
		if c.commit != newest.commit {
			continue
		}
		if describesBetter(c, best) {
			best = c
		}
	}
	return best, nil
}

func describesBetter(a, b tagCandidate) bool {
	if a.annotated != b.annotated {
		return a.annotated
	}
	if !a.taggerWhen.Equal(b.taggerWhen) {
		return a.taggerWhen.After(b.taggerWhen)
	}
	return a.name < b.name
}

func resolveTag(repo *git.Repository, ref *plumbing.Reference) (tagCandidate, bool, error) {
	candidate := tagCandidate{name: ref.Name().Short()}

	tagObj, err := repo.TagObject(ref.Hash())
	switch {
	case err == nil:
		commit, err := tagObj.Commit()
		if err != nil {
			// Tags on trees or blobs never describe a release.
			if errors.Is(err, object.ErrUnsupportedObject) {
				return tagCandidate{}, false, nil
			}
			return tagCandidate{}, false, fmt.Errorf("resolve tag %s: %w", candidate.name, err)
		}
		candidate.annotated = true
		candidate.taggerWhen = tagObj.Tagger.When
		candidate.commit = commit.Hash
		candidate.committed = commit.Committer.When
		return candidate, true, nil
	case errors.Is(err, plumbing.ErrObjectNotFound):
		commit, err := repo.CommitObject(ref.Hash())
		if err != nil {
			if errors.Is(err, plumbing.ErrObjectNotFound) {
				return tagCandidate{}, false, nil
			}
			return tagCandidate{}, false, fmt.Errorf("resolve tag %s: %w", candidate.name, err)
		}
		candidate.commit = commit.Hash
		candidate.committed = commit.Committer.When
		return candidate, true, nil
	default:
		return tagCandidate{}, false, fmt.Errorf("resolve tag %s: %w", candidate.name, err)
	}
}
