package main

import (
	"os"

	"github.com/truvi/booking-etl/internal/cli/cmd"
)

// Build information, injected at link time.
var (
	version   = "dev"
	gitCommit = ""
	buildDate = ""
)

func main() {
	cmd.SetVersionInfo(version, gitCommit, buildDate)
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
