package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/harrison/flowctl/internal/config"
	"github.com/harrison/flowctl/internal/flow"
)

// NewValidateCommand builds the "flowctl validate <job-file>" subcommand:
// it runs flow.Parse and reports construction errors without executing
// anything.
func NewValidateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <job-file>",
		Short: "Parse a job file and report flow construction errors",
		Long: `validate loads a job file and runs it through flow.Parse without
executing a single task. It catches duplicate command ids and hooks
that illegally declare their own hooks before anything would be spawned.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return validateJobFile(args[0], cmd.OutOrStdout())
		},
	}
	return cmd
}

func validateJobFile(path string, out io.Writer) error {
	jf, err := config.LoadJob(path)
	if err != nil {
		fmt.Fprintf(out, "✗ failed to load job file: %v\n", err)
		return err
	}

	opts := config.MergeOptions(jf.Options, nil)
	job, err := jf.ToJob(opts)
	if err != nil {
		fmt.Fprintf(out, "✗ failed to build job: %v\n", err)
		return err
	}

	f, err := flow.Parse(job)
	if err != nil {
		fmt.Fprintf(out, "✗ invalid flow: %v\n", err)
		return err
	}

	mainRoutine := f.Routines["main"]
	fmt.Fprintf(out, "✓ flow %q (%d main tasks) is valid\n", f.ID, len(mainRoutine.Commands))
	return nil
}
