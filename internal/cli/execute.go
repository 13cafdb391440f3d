package cli

import (
	"context"
	"errors"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"
)

// Execute runs the command line against the process arguments and returns
// the exit code. SIGINT and SIGTERM cancel the pass in flight.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return run(ctx, os.Args[1:], os.Stdout, os.Stderr)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	err := cmd.ExecuteContext(ctx)
	if err == nil || errors.Is(err, pflag.ErrHelp) {
		return 0
	}

	// --json is persistent, so the root flag set holds the parsed value even
	// when a subcommand failed.
	asJSON, _ := cmd.PersistentFlags().GetBool("json")
	exitErr := NormalizeError(err)
	_ = writeCLIError(stderr, exitErr, asJSON)
	return exitErr.Code
}
