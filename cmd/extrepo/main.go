package main

import (
	"os"

	"github.com/osvaldoandrade/extrepo/pkg/extrepo"
)

func main() {
	os.Exit(extrepo.Execute())
}
