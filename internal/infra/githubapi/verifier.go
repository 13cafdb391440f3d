package githubapi

import (
	"context"
	"fmt"
	"net/http"

	"github.com/google/go-github/v74/github"
	"github.com/osvaldoandrade/extrepo/internal/domain"
)

type Verifier struct {
	client *github.Client
}

func NewVerifier(client *github.Client) *Verifier {
	return &Verifier{client: client}
}

// Verify checks the configured credentials against the authenticated user
// endpoint and returns the login they belong to.
func (v *Verifier) Verify(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	user, _, err := v.client.Users.Get(ctx, "")
	if err != nil {
		if statusCode(err) == http.StatusUnauthorized {
			return "", fmt.Errorf("%w: %w", domain.ErrUnauthorized, err)
		}
		return "", fmt.Errorf("%w: verify credentials: %w", domain.ErrTransport, err)
	}
	return user.GetLogin(), nil
}
