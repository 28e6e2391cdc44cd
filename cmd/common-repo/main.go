package main

import (
	"fmt"
	"os"

	"github.com/edelwud/common-repo/cmd/common-repo/cmd"
	"github.com/edelwud/common-repo/internal/runerr"
)

// Version information (set via ldflags)
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	cmd.SetVersion(version, commit, date)

	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(runerr.ExitCode(err))
	}
}
