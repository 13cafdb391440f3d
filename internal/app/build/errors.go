package build

import "errors"

var ErrPublicDirRequired = errors.New("public dir is required")
var ErrExtensionsDirRequired = errors.New("extensions dir is required")
var ErrInvalidConcurrency = errors.New("concurrency must be at least 1")
var ErrInvalidTimeout = errors.New("network timeout must be positive")
var ErrDuplicateRepo = errors.New("repo name already claimed by another manifest")
var ErrNoResolver = errors.New("no release resolver configured")
