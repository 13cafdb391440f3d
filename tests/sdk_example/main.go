package main

import (
	"context"
	"fmt"
	"os"

	"github.com/osvaldoandrade/extrepo/pkg/extreposdk"
)

func main() {
	base := os.Getenv("EXTREPO_BASE")
	if base == "" {
		fmt.Fprintln(os.Stderr, "EXTREPO_BASE is required (directory holding extensions/ and .env)")
		os.Exit(1)
	}

	ctx := context.Background()
	client, err := extreposdk.Open(ctx, extreposdk.DefaultConfig(base), nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open: %v\n", err)
		os.Exit(1)
	}
	defer client.Close()

	report, err := client.Validate(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "validate: %v\n", err)
		os.Exit(1)
	}
	for _, manifest := range report.Manifests {
		if manifest.Err != nil {
			fmt.Printf("invalid manifest=%s err=%v\n", manifest.File, manifest.Err)
		}
	}

	result, err := client.Build(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "build: %v\n", err)
		os.Exit(1)
	}
	for _, ext := range result.Extensions {
		fmt.Printf("extension manifest=%s repo=%s version=%s outcome=%s reason=%s\n",
			ext.Manifest, ext.Repo, ext.Version, ext.Outcome, ext.Reason)
	}
	fmt.Printf("run=%s packages=%d index_changed=%t digest=%s\n",
		result.RunID, result.Packages, result.IndexChanged, result.IndexDigest)

	runs, err := client.Runs(ctx, 5)
	if err != nil {
		fmt.Fprintf(os.Stderr, "runs: %v\n", err)
		return
	}
	for _, run := range runs {
		fmt.Printf("history run=%s published=%d up_to_date=%d skipped=%d\n",
			run.ID, run.Published, run.UpToDate, run.Skipped)
	}
}
