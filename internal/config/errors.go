package config

import "errors"

var (
	ErrConfigFileNotFound   = errors.New("config file not found")
	ErrInvalidConfig        = errors.New("invalid config")
	ErrTokenRequired        = errors.New("api strategy requires github.token")
	ErrInvalidConcurrency   = errors.New("concurrency must be at least 1")
	ErrInvalidTimeout       = errors.New("network_timeout must be positive")
	ErrInvalidDomain        = errors.New("domain must be an absolute http(s) url")
	ErrExtensionsDirMissing = errors.New("extensions dir does not exist")
)
