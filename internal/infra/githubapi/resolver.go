package githubapi

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/google/go-github/v74/github"
	"github.com/osvaldoandrade/extrepo/internal/domain"
)

// Resolver asks the forge for the latest published release of a repository.
type Resolver struct {
	client *github.Client
}

func NewResolver(client *github.Client) *Resolver {
	return &Resolver{client: client}
}

func (r *Resolver) Resolve(ctx context.Context, upstream string) (domain.Release, error) {
	if err := ctx.Err(); err != nil {
		return domain.Release{}, err
	}
	owner, repo, err := domain.SplitUpstream(upstream)
	if err != nil {
		return domain.Release{}, err
	}

	release, _, err := r.client.Repositories.GetLatestRelease(ctx, owner, repo)
	if err != nil {
		return domain.Release{}, classify(err, "latest release of "+upstream)
	}

	tag := strings.TrimSpace(release.GetTagName())
	if tag == "" {
		return domain.Release{}, fmt.Errorf("%w: latest release of %s has no tag", domain.ErrReleaseNotFound, upstream)
	}
	archiveURL := release.GetZipballURL()
	if archiveURL == "" {
		archiveURL = fmt.Sprintf("repos/%s/%s/zipball/%s", owner, repo, url.PathEscape(tag))
	}
	return domain.Release{Version: tag, ArchiveURL: archiveURL}, nil
}
