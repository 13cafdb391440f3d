package domain

import (
	"context"
	"errors"
)

type Outcome string

const (
	OutcomePublished Outcome = "published"
	OutcomeUpToDate  Outcome = "up_to_date"
	OutcomeSkipped   Outcome = "skipped"
)

type SkipReason string

const (
	SkipNone      SkipReason = ""
	SkipNotFound  SkipReason = "not_found"
	SkipTransport SkipReason = "transport"
	SkipUnpack    SkipReason = "unpack"
	SkipTimeout   SkipReason = "timeout"
	SkipInvalid   SkipReason = "invalid"
	SkipInternal  SkipReason = "internal"
)

func ClassifyFailure(err error) SkipReason {
	switch {
	case err == nil:
		return SkipNone
	case errors.Is(err, context.DeadlineExceeded):
		return SkipTimeout
	case errors.Is(err, ErrReleaseNotFound):
		return SkipNotFound
	case errors.Is(err, ErrTransport):
		return SkipTransport
	case errors.Is(err, ErrUnpack):
		return SkipUnpack
	case errors.Is(err, ErrInvalidManifest),
		errors.Is(err, ErrInvalidVersion),
		errors.Is(err, ErrInvalidRepoName):
		return SkipInvalid
	default:
		return SkipInternal
	}
}
