package main

import (
	"os"

	"congen/internal/cli"
)

// Build metadata, injected via -ldflags.
var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	cli.Version = version
	cli.Commit = commit
	os.Exit(cli.Execute())
}
