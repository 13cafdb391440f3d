package extrepo

import "github.com/osvaldoandrade/extrepo/internal/cli"

// Execute runs the extrepo CLI entrypoint.
func Execute() int {
	return cli.Execute()
}
