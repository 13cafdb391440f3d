package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/osvaldoandrade/extrepo/internal/domain"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	EnvPrefix         = "EXTREPO"
	DefaultConfigFile = ".env"
	DefaultDomain     = "https://domain.com/extensions"
	DefaultGitURL     = "https://github.com"
	DefaultTimeout    = 2 * time.Minute
)

type GitHub struct {
	Username string `mapstructure:"username"`
	Token    string `mapstructure:"token"`
}

type Legacy struct {
	Files         []string `mapstructure:"files"`
	Disambiguator string   `mapstructure:"disambiguator"`
}

type Config struct {
	Domain         string        `mapstructure:"domain"`
	GitHub         GitHub        `mapstructure:"github"`
	ExtensionsDir  string        `mapstructure:"extensions_dir"`
	ManifestSchema string        `mapstructure:"manifest_schema"`
	PublicDir      string        `mapstructure:"public_dir"`
	WorkDir        string        `mapstructure:"work_dir"`
	Journal        string        `mapstructure:"journal"`
	Strategy       string        `mapstructure:"strategy"`
	APIURL         string        `mapstructure:"api_url"`
	GitURL         string        `mapstructure:"git_url"`
	ForgeHost      string        `mapstructure:"forge_host"`
	Concurrency    int           `mapstructure:"concurrency"`
	NetworkTimeout time.Duration `mapstructure:"network_timeout"`
	ValidUntil     string        `mapstructure:"valid_until"`
	Legacy         Legacy        `mapstructure:"legacy"`

	// Base and File are resolved by Load and never read from the config file.
	Base string `mapstructure:"-"`
	File string `mapstructure:"-"`
}

type LoadOptions struct {
	// Base anchors every relative directory. Empty means the working directory.
	Base string
	// File is an explicit config file; it must exist. Empty means <base>/.env
	// when present.
	File string
	// Flags maps config keys to command-line flags. Only flags set by the
	// user override the file and environment.
	Flags map[string]*pflag.Flag
	// Overrides take precedence over every other source.
	Overrides map[string]any
	// Getenv is used for the token fallbacks. Nil means os.Getenv.
	Getenv func(string) string
}

func Load(opts LoadOptions) (Config, error) {
	base, err := resolveBase(opts.Base)
	if err != nil {
		return Config{}, err
	}
	getenv := opts.Getenv
	if getenv == nil {
		getenv = os.Getenv
	}

	v := viper.New()
	setDefaults(v, base)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	file, err := readConfigFile(v, base, opts.File)
	if err != nil {
		return Config{}, err
	}

	for key, flag := range opts.Flags {
		if flag == nil {
			continue
		}
		if err := v.BindPFlag(key, flag); err != nil {
			return Config{}, fmt.Errorf("bind flag %s: %w", flag.Name, err)
		}
	}

	for key, value := range opts.Overrides {
		v.Set(key, value)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	cfg.Base = base
	cfg.File = file

	if strings.TrimSpace(cfg.GitHub.Token) == "" {
		cfg.GitHub.Token = firstNonEmpty(getenv("GITHUB_TOKEN"), getenv("GH_TOKEN"))
	}
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper, base string) {
	v.SetDefault("domain", DefaultDomain)
	v.SetDefault("github.username", "")
	v.SetDefault("github.token", "")
	v.SetDefault("extensions_dir", filepath.Join(base, "extensions"))
	v.SetDefault("manifest_schema", "")
	v.SetDefault("public_dir", filepath.Join(base, "public"))
	v.SetDefault("work_dir", filepath.Join(base, ".extrepo-work"))
	v.SetDefault("journal", filepath.Join(base, ".extrepo", "journal.db"))
	v.SetDefault("strategy", string(domain.DefaultStrategy))
	v.SetDefault("api_url", "")
	v.SetDefault("git_url", DefaultGitURL)
	v.SetDefault("forge_host", domain.DefaultForgeHost)
	v.SetDefault("concurrency", 1)
	v.SetDefault("network_timeout", DefaultTimeout)
	v.SetDefault("valid_until", domain.DefaultValidUntil)
	v.SetDefault("legacy.files", []string{})
	v.SetDefault("legacy.disambiguator", "")
}

// readConfigFile loads the YAML config. The default file is optional; an
// explicit one is not.
func readConfigFile(v *viper.Viper, base, explicit string) (string, error) {
	path := strings.TrimSpace(explicit)
	required := path != ""
	if !required {
		path = filepath.Join(base, DefaultConfigFile)
	} else if !filepath.IsAbs(path) {
		abs, err := filepath.Abs(path)
		if err != nil {
			return "", fmt.Errorf("resolve config path: %w", err)
		}
		path = abs
	}

	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			if required {
				return "", fmt.Errorf("%w: %s", ErrConfigFileNotFound, path)
			}
			return "", nil
		}
		return "", fmt.Errorf("stat config file: %w", err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("%w: %s is a directory", ErrInvalidConfig, path)
	}

	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return "", fmt.Errorf("%w: read %s: %w", ErrInvalidConfig, path, err)
	}
	return path, nil
}

func (c *Config) normalize() {
	c.Domain = domain.TrimBaseURL(c.Domain)
	c.ExtensionsDir = c.resolvePath(c.ExtensionsDir)
	c.PublicDir = c.resolvePath(c.PublicDir)
	c.WorkDir = c.resolvePath(c.WorkDir)
	if strings.TrimSpace(c.ManifestSchema) != "" {
		c.ManifestSchema = c.resolvePath(c.ManifestSchema)
	}
	if strings.TrimSpace(c.Journal) != "" {
		c.Journal = c.resolvePath(c.Journal)
	}
	c.Strategy = strings.ToLower(strings.TrimSpace(c.Strategy))
	c.APIURL = strings.TrimSpace(c.APIURL)
	c.GitURL = strings.TrimRight(strings.TrimSpace(c.GitURL), "/")
	c.ForgeHost = strings.TrimSpace(c.ForgeHost)
	c.GitHub.Username = strings.TrimSpace(c.GitHub.Username)
	c.GitHub.Token = strings.TrimSpace(c.GitHub.Token)

	files := c.Legacy.Files[:0]
	for _, file := range c.Legacy.Files {
		if file = strings.TrimSpace(file); file != "" {
			files = append(files, file)
		}
	}
	c.Legacy.Files = files
	c.Legacy.Disambiguator = strings.TrimSpace(c.Legacy.Disambiguator)
	if c.Legacy.Disambiguator == "" {
		if parsed, err := url.Parse(c.Domain); err == nil {
			c.Legacy.Disambiguator = domain.DisambiguatorForHost(parsed.Host)
		}
	}
}

func (c Config) resolvePath(path string) string {
	path = strings.TrimSpace(path)
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(c.Base, path)
}

func (c Config) Validate() error {
	parsed, err := url.Parse(c.Domain)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return fmt.Errorf("%w: %q", ErrInvalidDomain, c.Domain)
	}
	strategy, err := domain.ParseStrategy(c.Strategy)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if strategy == domain.StrategyAPI && !c.HasCredentials() {
		return ErrTokenRequired
	}
	if c.Concurrency < 1 {
		return fmt.Errorf("%w: %d", ErrInvalidConcurrency, c.Concurrency)
	}
	if c.NetworkTimeout <= 0 {
		return fmt.Errorf("%w: %s", ErrInvalidTimeout, c.NetworkTimeout)
	}
	for name, dir := range map[string]string{"extensions_dir": c.ExtensionsDir, "public_dir": c.PublicDir, "work_dir": c.WorkDir} {
		if dir == "" {
			return fmt.Errorf("%w: %s is required", ErrInvalidConfig, name)
		}
	}
	return nil
}

// RequireExtensionsDir reports a missing manifest directory as a
// configuration problem rather than a build failure.
func (c Config) RequireExtensionsDir() error {
	info, err := os.Stat(c.ExtensionsDir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrExtensionsDirMissing, c.ExtensionsDir)
		}
		return fmt.Errorf("stat extensions dir: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s is not a directory", ErrExtensionsDirMissing, c.ExtensionsDir)
	}
	return nil
}

func (c Config) HasCredentials() bool {
	return strings.TrimSpace(c.GitHub.Token) != ""
}

func (c Config) ResolvedStrategy() domain.Strategy {
	strategy, err := domain.ParseStrategy(c.Strategy)
	if err != nil {
		strategy = domain.DefaultStrategy
	}
	return strategy.Select(c.HasCredentials())
}

func (c Config) RecordOptions() domain.RecordOptions {
	return domain.RecordOptions{
		BaseURL:    c.Domain,
		ForgeHost:  c.ForgeHost,
		ValidUntil: c.ValidUntil,
	}
}

func (c Config) LegacyRule() domain.LegacyIDRule {
	return domain.NewLegacyIDRule(c.Legacy.Files, c.Legacy.Disambiguator)
}

func resolveBase(base string) (string, error) {
	base = strings.TrimSpace(base)
	if base == "" {
		base = "."
	}
	abs, err := filepath.Abs(base)
	if err != nil {
		return "", fmt.Errorf("resolve base dir: %w", err)
	}
	return abs, nil
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			return value
		}
	}
	return ""
}
