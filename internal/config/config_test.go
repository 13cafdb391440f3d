package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/osvaldoandrade/extrepo/internal/domain"
	"github.com/spf13/pflag"
)

func noEnv(string) string { return "" }

func TestLoadDefaults(t *testing.T) {
	base := t.TempDir()
	cfg, err := Load(LoadOptions{Base: base, Getenv: noEnv})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Domain != DefaultDomain {
		t.Fatalf("domain = %q", cfg.Domain)
	}
	if cfg.ExtensionsDir != filepath.Join(base, "extensions") {
		t.Fatalf("extensions dir = %q", cfg.ExtensionsDir)
	}
	if cfg.PublicDir != filepath.Join(base, "public") {
		t.Fatalf("public dir = %q", cfg.PublicDir)
	}
	if cfg.Concurrency != 1 {
		t.Fatalf("concurrency = %d", cfg.Concurrency)
	}
	if cfg.NetworkTimeout != DefaultTimeout {
		t.Fatalf("timeout = %s", cfg.NetworkTimeout)
	}
	if cfg.File != "" {
		t.Fatalf("expected no config file, got %q", cfg.File)
	}
	if cfg.Legacy.Disambiguator != "domain-com" {
		t.Fatalf("disambiguator = %q", cfg.Legacy.Disambiguator)
	}
	if got := cfg.ResolvedStrategy(); got != domain.StrategyGit {
		t.Fatalf("strategy = %s", got)
	}
}

func TestLoadReadsDotEnvFile(t *testing.T) {
	base := t.TempDir()
	content := `domain: https://ext.example.com/repo/
github:
  username: octo
  token: secret
public_dir: out
concurrency: 4
network_timeout: 30s
legacy:
  files: [bold-editor, " "]
`
	if err := os.WriteFile(filepath.Join(base, DefaultConfigFile), []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(LoadOptions{Base: base, Getenv: noEnv})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Domain != "https://ext.example.com/repo" {
		t.Fatalf("domain = %q", cfg.Domain)
	}
	if cfg.GitHub.Username != "octo" || cfg.GitHub.Token != "secret" {
		t.Fatalf("github = %+v", cfg.GitHub)
	}
	if cfg.PublicDir != filepath.Join(base, "out") {
		t.Fatalf("public dir = %q", cfg.PublicDir)
	}
	if cfg.Concurrency != 4 || cfg.NetworkTimeout != 30*time.Second {
		t.Fatalf("concurrency=%d timeout=%s", cfg.Concurrency, cfg.NetworkTimeout)
	}
	if len(cfg.Legacy.Files) != 1 || cfg.Legacy.Files[0] != "bold-editor" {
		t.Fatalf("legacy files = %v", cfg.Legacy.Files)
	}
	if cfg.Legacy.Disambiguator != "ext-example-com" {
		t.Fatalf("disambiguator = %q", cfg.Legacy.Disambiguator)
	}
	if got := cfg.ResolvedStrategy(); got != domain.StrategyAPI {
		t.Fatalf("strategy = %s", got)
	}
	rule := cfg.LegacyRule()
	if got := rule.Apply("bold-editor.yaml", "org.standardnotes.bold-editor"); got != "org.standardnotes.ext-example-com" {
		t.Fatalf("legacy rewrite = %q", got)
	}
	if cfg.File != filepath.Join(base, DefaultConfigFile) {
		t.Fatalf("file = %q", cfg.File)
	}
}

func TestLoadExplicitFileMustExist(t *testing.T) {
	base := t.TempDir()
	_, err := Load(LoadOptions{Base: base, File: filepath.Join(base, "missing.yaml"), Getenv: noEnv})
	if !errors.Is(err, ErrConfigFileNotFound) {
		t.Fatalf("expected ErrConfigFileNotFound, got %v", err)
	}
}

func TestLoadRejectsMalformedFile(t *testing.T) {
	base := t.TempDir()
	path := filepath.Join(base, "bad.yaml")
	if err := os.WriteFile(path, []byte("domain: [unterminated\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	_, err := Load(LoadOptions{Base: base, File: path, Getenv: noEnv})
	if !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestLoadEnvironmentOverridesFile(t *testing.T) {
	base := t.TempDir()
	if err := os.WriteFile(filepath.Join(base, DefaultConfigFile), []byte("concurrency: 2\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("EXTREPO_CONCURRENCY", "6")
	t.Setenv("EXTREPO_GITHUB_USERNAME", "envuser")

	cfg, err := Load(LoadOptions{Base: base, Getenv: noEnv})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Concurrency != 6 {
		t.Fatalf("concurrency = %d", cfg.Concurrency)
	}
	if cfg.GitHub.Username != "envuser" {
		t.Fatalf("username = %q", cfg.GitHub.Username)
	}
}

func TestLoadTokenFallback(t *testing.T) {
	env := map[string]string{"GH_TOKEN": "from-gh"}
	cfg, err := Load(LoadOptions{Base: t.TempDir(), Getenv: func(key string) string { return env[key] }})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.GitHub.Token != "from-gh" {
		t.Fatalf("token = %q", cfg.GitHub.Token)
	}

	env["GITHUB_TOKEN"] = "from-github"
	cfg, err = Load(LoadOptions{Base: t.TempDir(), Getenv: func(key string) string { return env[key] }})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.GitHub.Token != "from-github" {
		t.Fatalf("token = %q", cfg.GitHub.Token)
	}
}

func TestLoadChangedFlagsWin(t *testing.T) {
	base := t.TempDir()
	if err := os.WriteFile(filepath.Join(base, DefaultConfigFile), []byte("concurrency: 2\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.Int("concurrency", 1, "")
	flags.String("strategy", "auto", "")
	if err := flags.Parse([]string{"--concurrency=8"}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}

	cfg, err := Load(LoadOptions{
		Base:   base,
		Getenv: noEnv,
		Flags: map[string]*pflag.Flag{
			"concurrency": flags.Lookup("concurrency"),
			"strategy":    flags.Lookup("strategy"),
		},
	})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Concurrency != 8 {
		t.Fatalf("concurrency = %d", cfg.Concurrency)
	}
}

func TestValidate(t *testing.T) {
	valid := Config{
		Domain:         "https://domain.com/extensions",
		ExtensionsDir:  "/x/extensions",
		PublicDir:      "/x/public",
		WorkDir:        "/x/work",
		Strategy:       "auto",
		Concurrency:    1,
		NetworkTimeout: time.Minute,
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	cases := []struct {
		name   string
		mutate func(*Config)
		want   error
	}{
		{"relative domain", func(c *Config) { c.Domain = "/extensions" }, ErrInvalidDomain},
		{"ftp domain", func(c *Config) { c.Domain = "ftp://domain.com" }, ErrInvalidDomain},
		{"bad strategy", func(c *Config) { c.Strategy = "svn" }, domain.ErrInvalidStrategy},
		{"api without token", func(c *Config) { c.Strategy = "api" }, ErrTokenRequired},
		{"zero concurrency", func(c *Config) { c.Concurrency = 0 }, ErrInvalidConcurrency},
		{"zero timeout", func(c *Config) { c.NetworkTimeout = 0 }, ErrInvalidTimeout},
		{"missing public dir", func(c *Config) { c.PublicDir = "" }, ErrInvalidConfig},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := valid
			tc.mutate(&cfg)
			if err := cfg.Validate(); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestRequireExtensionsDir(t *testing.T) {
	base := t.TempDir()
	cfg := Config{ExtensionsDir: filepath.Join(base, "extensions")}
	if err := cfg.RequireExtensionsDir(); !errors.Is(err, ErrExtensionsDirMissing) {
		t.Fatalf("expected ErrExtensionsDirMissing, got %v", err)
	}
	if err := os.WriteFile(cfg.ExtensionsDir, nil, 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	if err := cfg.RequireExtensionsDir(); !errors.Is(err, ErrExtensionsDirMissing) {
		t.Fatalf("expected ErrExtensionsDirMissing for a file, got %v", err)
	}
	if err := os.Remove(cfg.ExtensionsDir); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err := os.Mkdir(cfg.ExtensionsDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := cfg.RequireExtensionsDir(); err != nil {
		t.Fatalf("RequireExtensionsDir: %v", err)
	}
}

func TestLoadOverridesWin(t *testing.T) {
	base := t.TempDir()
	if err := os.WriteFile(filepath.Join(base, DefaultConfigFile), []byte("strategy: api\njournal: j.db\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := Load(LoadOptions{
		Base:   base,
		Getenv: noEnv,
		Overrides: map[string]any{
			"github.token": "override",
			"public_dir":   "site",
			"journal":      "",
		},
	})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.GitHub.Token != "override" {
		t.Fatalf("token = %q", cfg.GitHub.Token)
	}
	if cfg.PublicDir != filepath.Join(base, "site") {
		t.Fatalf("public dir = %q", cfg.PublicDir)
	}
	if cfg.Journal != "" {
		t.Fatalf("expected journal disabled, got %q", cfg.Journal)
	}
}
