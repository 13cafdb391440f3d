package domain

import "errors"

var (
	ErrReleaseNotFound = errors.New("release not found")
	ErrTransport       = errors.New("transport failure")
	ErrUnpack          = errors.New("unpack failure")
	ErrInvalidManifest = errors.New("invalid manifest")
	ErrInvalidVersion  = errors.New("invalid version identifier")
	ErrInvalidRepoName = errors.New("invalid repo name")
	ErrUnauthorized    = errors.New("forge credentials rejected")
)
