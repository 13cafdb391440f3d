package gitrepo

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/osvaldoandrade/extrepo/internal/domain"
)

// clone fetches url with every tag into a fresh directory below workDir
// without checking anything out.
func clone(ctx context.Context, workDir, name, url string, creds Credentials) (*git.Repository, string, error) {
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return nil, "", fmt.Errorf("create work dir: %w", err)
	}
	auth, err := authForURL(url, creds)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %w", domain.ErrInvalidManifest, err)
	}

	path, err := os.MkdirTemp(workDir, name+"-*")
	if err != nil {
		return nil, "", fmt.Errorf("create clone dir: %w", err)
	}

	repo, err := git.PlainCloneContext(ctx, path, false, &git.CloneOptions{
		URL:        url,
		Auth:       auth,
		NoCheckout: true,
		Tags:       git.AllTags,
	})
	if err != nil {
		_ = os.RemoveAll(path)
		return nil, "", classifyClone(ctx, url, err)
	}
	return repo, path, nil
}

func classifyClone(ctx context.Context, url string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("clone %s: %w", url, ctxErr)
	}
	switch {
	case errors.Is(err, transport.ErrRepositoryNotFound),
		errors.Is(err, transport.ErrEmptyRemoteRepository),
		errors.Is(err, transport.ErrAuthenticationRequired):
		return fmt.Errorf("%w: clone %s: %w", domain.ErrReleaseNotFound, url, err)
	default:
		return fmt.Errorf("%w: clone %s: %w", domain.ErrTransport, url, err)
	}
}
