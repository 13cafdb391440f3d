package domain

import (
	"errors"
	"fmt"
	"strings"
)

var ErrInvalidStrategy = errors.New("invalid resolve strategy")

type Strategy string

const (
	StrategyAuto Strategy = "auto"
	StrategyAPI  Strategy = "api"
	StrategyGit  Strategy = "git"
)

const DefaultStrategy = StrategyAuto

func (s Strategy) IsValid() bool {
	return s == StrategyAuto || s == StrategyAPI || s == StrategyGit
}

func ParseStrategy(value string) (Strategy, error) {
	parsed := Strategy(strings.ToLower(strings.TrimSpace(value)))
	if parsed == "" {
		return DefaultStrategy, nil
	}
	if !parsed.IsValid() {
		return "", fmt.Errorf("%w: %s", ErrInvalidStrategy, value)
	}
	return parsed, nil
}

// Select resolves auto to a concrete strategy. The choice depends only on
// whether forge credentials are present, never on the manifest.
func (s Strategy) Select(hasCredentials bool) Strategy {
	if s != StrategyAuto {
		return s
	}
	if hasCredentials {
		return StrategyAPI
	}
	return StrategyGit
}
