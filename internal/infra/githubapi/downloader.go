package githubapi

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/google/go-github/v74/github"
	"github.com/osvaldoandrade/extrepo/internal/domain"
)

// Downloader streams release archives through the authenticated client.
// Relative locations are resolved against the API root.
type Downloader struct {
	client *github.Client
}

func NewDownloader(client *github.Client) *Downloader {
	return &Downloader{client: client}
}

func (d *Downloader) Download(ctx context.Context, archiveURL, dest string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	req, err := d.client.NewRequest(http.MethodGet, archiveURL, nil)
	if err != nil {
		return 0, fmt.Errorf("%w: build request for %s: %w", domain.ErrTransport, archiveURL, err)
	}

	resp, err := d.client.BareDo(ctx, req)
	if err != nil {
		return 0, classify(err, "download "+archiveURL)
	}
	defer resp.Body.Close()

	f, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return 0, fmt.Errorf("create %s: %w", dest, err)
	}
	size, err := io.Copy(f, resp.Body)
	if err != nil {
		f.Close()
		if ctxErr := ctx.Err(); ctxErr != nil {
			return 0, fmt.Errorf("download %s: %w", archiveURL, ctxErr)
		}
		return 0, fmt.Errorf("%w: download %s: %w", domain.ErrTransport, archiveURL, err)
	}
	if err := f.Close(); err != nil {
		return 0, fmt.Errorf("close %s: %w", dest, err)
	}
	return size, nil
}
