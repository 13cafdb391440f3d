package cli

import (
	"fmt"
	"strconv"
	"time"

	"github.com/osvaldoandrade/extrepo/internal/app/history"
	"github.com/spf13/cobra"
)

// buildFlags maps config keys to the build command flags that override them.
var buildFlags = map[string]string{
	"public_dir":      "public",
	"extensions_dir":  "extensions",
	"domain":          "domain",
	"strategy":        "strategy",
	"concurrency":     "concurrency",
	"network_timeout": "timeout",
}

func newBuildCmd(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Resolve, publish and index every extension manifest",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			rt, err := openRuntime(ctx, cmd, opts, runtimeOptions{
				flags:             buildFlags,
				requireExtensions: true,
				verify:            true,
			})
			if err != nil {
				return err
			}
			defer rt.Close()

			var summary buildSummary
			err = withSpinner(ctx, cmd.ErrOrStderr(), interactive(cmd.ErrOrStderr(), opts.JSONOutput), "building repository", func() error {
				result, runErr := rt.Build.Run(ctx, rt.BuildOptions())
				summary = buildSummary{Summary: result, Strategy: string(rt.Strategy)}
				return runErr
			})
			if err != nil {
				return err
			}
			return writeBuildSummary(cmd, summary, opts.JSONOutput)
		},
	}
	cmd.Flags().String("public", "", "Public output directory")
	cmd.Flags().String("extensions", "", "Directory holding extension manifests")
	cmd.Flags().String("domain", "", "Base URL the repository is served from")
	cmd.Flags().String("strategy", "", "Release resolution strategy (auto, api, git)")
	cmd.Flags().Int("concurrency", 1, "Manifests processed in parallel")
	cmd.Flags().Duration("timeout", 0, "Network timeout per resolve and per fetch")
	return cmd
}

func newResolveCmd(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "resolve <owner/repo>",
		Short: "Show the latest release the configured strategy sees",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			rt, err := openRuntime(ctx, cmd, opts, runtimeOptions{
				flags:  map[string]string{"strategy": "strategy"},
				verify: true,
			})
			if err != nil {
				return err
			}
			defer rt.Close()

			release, err := rt.Build.Resolve(ctx, args[0], rt.Config.NetworkTimeout)
			if err != nil {
				return err
			}
			return writeResolveResult(cmd, args[0], string(rt.Strategy), release, opts.JSONOutput)
		},
	}
	cmd.Flags().String("strategy", "", "Release resolution strategy (auto, api, git)")
	return cmd
}

func newValidateCmd(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Parse and schema-check every manifest without network access",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			rt, err := openRuntime(ctx, cmd, opts, runtimeOptions{
				flags:             map[string]string{"extensions_dir": "extensions"},
				requireExtensions: true,
			})
			if err != nil {
				return err
			}
			defer rt.Close()

			report, err := rt.Build.ValidateManifests(ctx, rt.Config.ExtensionsDir)
			if err != nil {
				return err
			}
			if err := writeValidateReport(cmd, report, opts.JSONOutput); err != nil {
				return err
			}
			if report.Invalid > 0 {
				return ExitError{
					Code:    ExitInvalid,
					Kind:    KindValidation,
					Message: fmt.Sprintf("%d of %d manifests are invalid", report.Invalid, len(report.Entries)),
				}
			}
			return nil
		},
	}
	cmd.Flags().String("extensions", "", "Directory holding extension manifests")
	return cmd
}

func newHistoryCmd(opts *RootOptions) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded build passes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			rt, err := openRuntime(ctx, cmd, opts, runtimeOptions{})
			if err != nil {
				return err
			}
			defer rt.Close()

			runs, err := rt.History.List(ctx, history.ListOptions{Limit: limit})
			if err != nil {
				return err
			}
			return writeHistory(cmd, runs, time.Now(), opts.JSONOutput)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", history.DefaultLimit, "Maximum number of runs to list")
	cmd.AddCommand(newHistoryShowCmd(opts))
	return cmd
}

func newHistoryShowCmd(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show the per-manifest outcomes of one build pass",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			rt, err := openRuntime(ctx, cmd, opts, runtimeOptions{})
			if err != nil {
				return err
			}
			defer rt.Close()

			detail, err := rt.History.Show(ctx, args[0])
			if err != nil {
				return err
			}
			return writeRunDetail(cmd, detail, opts.JSONOutput)
		},
	}
}

func countLabel(n int, noun string) string {
	return strconv.Itoa(n) + " " + noun
}
