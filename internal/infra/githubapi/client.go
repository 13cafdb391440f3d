package githubapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/go-github/v74/github"
	"github.com/osvaldoandrade/extrepo/internal/domain"
)

type ClientOptions struct {
	// BaseURL is the REST API root. Empty means api.github.com.
	BaseURL    string
	Username   string
	Token      string
	UserAgent  string
	HTTPClient *http.Client
}

// NewClient builds a go-github client. A username together with a token
// authenticates with basic auth; a token alone is sent as a bearer token.
func NewClient(opts ClientOptions) (*github.Client, error) {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}

	username := strings.TrimSpace(opts.Username)
	token := strings.TrimSpace(opts.Token)
	if username != "" && token != "" {
		transport := &github.BasicAuthTransport{
			Username:  username,
			Password:  token,
			Transport: httpClient.Transport,
		}
		httpClient = &http.Client{
			Transport:     transport,
			CheckRedirect: httpClient.CheckRedirect,
			Timeout:       httpClient.Timeout,
		}
	}

	client := github.NewClient(httpClient)
	if username == "" && token != "" {
		client = client.WithAuthToken(token)
	}
	if base := strings.TrimSpace(opts.BaseURL); base != "" {
		parsed, err := url.Parse(strings.TrimRight(base, "/") + "/")
		if err != nil {
			return nil, fmt.Errorf("parse api url: %w", err)
		}
		client.BaseURL = parsed
	}
	if ua := strings.TrimSpace(opts.UserAgent); ua != "" {
		client.UserAgent = ua
	}
	return client, nil
}

func statusCode(err error) int {
	var respErr *github.ErrorResponse
	if errors.As(err, &respErr) && respErr.Response != nil {
		return respErr.Response.StatusCode
	}
	var rateErr *github.RateLimitError
	if errors.As(err, &rateErr) && rateErr.Response != nil {
		return rateErr.Response.StatusCode
	}
	return 0
}

// classify maps a go-github failure onto the domain taxonomy. Context errors
// pass through unchanged so deadlines are reported as timeouts.
func classify(err error, what string) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%s: %w", what, err)
	}
	if statusCode(err) == http.StatusNotFound {
		return fmt.Errorf("%w: %s", domain.ErrReleaseNotFound, what)
	}
	return fmt.Errorf("%w: %s: %w", domain.ErrTransport, what, err)
}
