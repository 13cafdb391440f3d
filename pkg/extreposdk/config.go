package extreposdk

import (
	"strings"
	"time"

	"github.com/osvaldoandrade/extrepo/internal/config"
)

type Strategy string

const (
	StrategyAuto Strategy = "auto"
	StrategyAPI  Strategy = "api"
	StrategyGit  Strategy = "git"
)

// Config selects the repository to build. Zero-valued fields keep whatever
// the config file and EXTREPO_ environment provide.
type Config struct {
	BaseDir       string
	ConfigFile    string
	Domain        string
	ExtensionsDir string
	PublicDir     string
	WorkDir       string
	Strategy      Strategy
	Token         string
	Username      string
	Concurrency   int
	Timeout       time.Duration
	// DisableJournal turns off run recording for this client.
	DisableJournal bool
	// VerifyCredentials checks the forge token once when the client opens.
	VerifyCredentials bool
}

func DefaultConfig(baseDir string) Config {
	return Config{
		BaseDir:           baseDir,
		VerifyCredentials: true,
	}
}

func loadConfig(cfg Config) (config.Config, error) {
	if strings.TrimSpace(cfg.BaseDir) == "" {
		return config.Config{}, ErrBaseDirRequired
	}
	return config.Load(config.LoadOptions{
		Base:      cfg.BaseDir,
		File:      cfg.ConfigFile,
		Overrides: overrides(cfg),
	})
}

func overrides(cfg Config) map[string]any {
	values := map[string]any{}
	setString := func(key, value string) {
		if value = strings.TrimSpace(value); value != "" {
			values[key] = value
		}
	}
	setString("domain", cfg.Domain)
	setString("extensions_dir", cfg.ExtensionsDir)
	setString("public_dir", cfg.PublicDir)
	setString("work_dir", cfg.WorkDir)
	setString("strategy", string(cfg.Strategy))
	setString("github.token", cfg.Token)
	setString("github.username", cfg.Username)
	if cfg.Concurrency != 0 {
		values["concurrency"] = cfg.Concurrency
	}
	if cfg.Timeout != 0 {
		values["network_timeout"] = cfg.Timeout
	}
	if cfg.DisableJournal {
		values["journal"] = ""
	}
	return values
}
