// Command flowctl runs a declarative job file as a sequential shell
// pipeline: see internal/cmd for the subcommand tree and internal/flow,
// internal/executor, internal/output, and internal/logger for the
// execution engine itself.
package main

import (
	"fmt"
	"os"

	"github.com/harrison/flowctl/internal/cmd"
)

// Version is the current version of the flowctl CLI, copied into
// cmd.Version at startup.
const Version = "1.0.0"

func main() {
	cmd.Version = Version
	rootCmd := cmd.NewRootCommand()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
