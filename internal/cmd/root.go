// Package cmd wires the cobra command tree that sits in front of the
// core engine: run, validate, and history. Parsing the job file and
// merging CLI flags over it happens here, out of the core's scope; the
// core never sees anything but an already-built flow.Job.
package cmd

import (
	"github.com/spf13/cobra"
)

// Version is injected at build time via -ldflags.
var Version = "dev"

// NewRootCommand creates and returns the root "flowctl" cobra command.
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "flowctl",
		Short: "flowctl runs declarative job files as sequential shell pipelines",
		Long: `flowctl executes a named job's tasks as child shell processes in a
single sequential pipeline, capturing their output to one or more sinks
and emitting structured status events as each task starts, ends,
succeeds, fails, or is skipped.`,
		Version:      Version,
		SilenceUsage: true,
	}

	cmd.AddCommand(NewRunCommand())
	cmd.AddCommand(NewValidateCommand())
	cmd.AddCommand(NewHistoryCommand())

	return cmd
}
