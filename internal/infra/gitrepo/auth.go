package gitrepo

import (
	"fmt"
	"strings"

	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/go-git/go-git/v5/plumbing/transport/http"
)

const defaultUser = "x-access-token"

type Credentials struct {
	Username string
	Token    string
}

func authForURL(rawURL string, creds Credentials) (transport.AuthMethod, error) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return nil, nil
	}

	ep, err := transport.NewEndpoint(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse remote URL: %w", err)
	}

	switch ep.Protocol {
	case "http", "https":
		token := strings.TrimSpace(creds.Token)
		if token == "" {
			return nil, nil
		}
		user := strings.TrimSpace(creds.Username)
		if user == "" {
			user = defaultUser
		}
		return &http.BasicAuth{
			Username: user,
			Password: token,
		}, nil
	default:
		return nil, nil
	}
}
