package cli

import (
	"context"
	"log/slog"
	"os"
	"strings"

	"github.com/osvaldoandrade/extrepo/internal/bootstrap"
	"github.com/osvaldoandrade/extrepo/internal/config"
	"github.com/osvaldoandrade/extrepo/internal/platform"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

type RootOptions struct {
	ConfigPath string
	BaseDir    string
	JSONOutput bool
	LogLevel   string
	LogFormat  string
}

func newRootCmd() *cobra.Command {
	opts := &RootOptions{
		LogLevel:  envDefault("EXTREPO_LOG_LEVEL", "info"),
		LogFormat: envDefault("EXTREPO_LOG_FORMAT", "text"),
	}
	cmd := &cobra.Command{
		Use:           "extrepo",
		Short:         "Build a static extension repository from manifests",
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			_, err := platform.ConfigureLogger(opts.LogLevel, opts.LogFormat, cmd.ErrOrStderr())
			return err
		},
	}

	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "Path to the YAML config file (default <base>/.env)")
	cmd.PersistentFlags().StringVar(&opts.BaseDir, "base", ".", "Directory that relative paths resolve against")
	cmd.PersistentFlags().BoolVar(&opts.JSONOutput, "json", false, "Emit JSON output")
	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", opts.LogLevel, "Log level (debug, info, warn, error)")
	cmd.PersistentFlags().StringVar(&opts.LogFormat, "log-format", opts.LogFormat, "Log format (text, json, pretty)")

	cmd.AddCommand(
		newBuildCmd(opts),
		newResolveCmd(opts),
		newValidateCmd(opts),
		newHistoryCmd(opts),
	)

	return cmd
}

type runtimeOptions struct {
	// flags maps config keys to command flags; only changed flags are used.
	flags             map[string]string
	requireExtensions bool
	verify            bool
}

func loadConfig(cmd *cobra.Command, opts *RootOptions, flags map[string]string) (config.Config, error) {
	bound := make(map[string]*pflag.Flag, len(flags))
	for key, name := range flags {
		flag := cmd.Flags().Lookup(name)
		if flag != nil && flag.Changed {
			bound[key] = flag
		}
	}
	return config.Load(config.LoadOptions{
		Base:  opts.BaseDir,
		File:  opts.ConfigPath,
		Flags: bound,
	})
}

func openRuntime(ctx context.Context, cmd *cobra.Command, opts *RootOptions, ro runtimeOptions) (*bootstrap.Runtime, error) {
	cfg, err := loadConfig(cmd, opts, ro.flags)
	if err != nil {
		return nil, err
	}
	if ro.requireExtensions {
		if err := cfg.RequireExtensionsDir(); err != nil {
			return nil, err
		}
	}
	return bootstrap.Open(ctx, cfg, slog.Default(), bootstrap.Options{VerifyCredentials: ro.verify})
}

func envDefault(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return fallback
}
