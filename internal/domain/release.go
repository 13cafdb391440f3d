package domain

import "context"

type Release struct {
	Version    string
	ArchiveURL string
	// CheckoutPath is set by the VCS strategy: the release tree is already
	// materialized there and only needs to be adopted into staging.
	CheckoutPath string
}

func (r Release) IsCheckout() bool {
	return r.CheckoutPath != ""
}

type PublishOutcome int

const (
	PublishUnknown PublishOutcome = iota
	PublishAlreadyCurrent
	PublishNewlyPublished
)

// Staging is handed to a FetchFunc. TreeDir does not exist yet; the fetch must
// create it. ScratchDir exists and is removed together with the staging area.
type Staging struct {
	TreeDir    string
	ScratchDir string
}

type FetchFunc func(ctx context.Context, stage Staging) error
