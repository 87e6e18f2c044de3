package cmd

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/harrison/flowctl/internal/history"
)

// NewHistoryCommand builds the "flowctl history" subcommand and its
// "show" child: both read-only views over the sqlite history database
// flowctl run writes to after each flow execution.
func NewHistoryCommand() *cobra.Command {
	var (
		dbPath string
		limit  int
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent flow runs recorded in the history database",
		RunE: func(cmd *cobra.Command, args []string) error {
			return listRuns(cmd, dbPath, limit)
		},
	}
	cmd.PersistentFlags().StringVar(&dbPath, "history-db", filepath.Join(".flowctl", "history.db"), "sqlite history database path")
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of runs to list")

	cmd.AddCommand(newHistoryShowCommand(&dbPath))

	return cmd
}

func newHistoryShowCommand(dbPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "show <run-id>",
		Short: "Print one run's per-task detail",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return showRun(cmd, *dbPath, args[0])
		},
	}
}

func listRuns(cmd *cobra.Command, dbPath string, limit int) error {
	store, err := history.Open(dbPath)
	if err != nil {
		return fmt.Errorf("open history database: %w", err)
	}
	defer store.Close()

	runs, err := store.ListRuns(cmd.Context(), limit)
	if err != nil {
		return fmt.Errorf("list runs: %w", err)
	}

	out := cmd.OutOrStdout()
	if len(runs) == 0 {
		fmt.Fprintln(out, "no runs recorded")
		return nil
	}
	printRunsTable(out, runs)
	return nil
}

func printRunsTable(out io.Writer, runs []history.RunRecord) {
	fmt.Fprintf(out, "%-24s %-20s %-10s %6s %6s %s\n", "ID", "JOB", "STATE", "TASKS", "FAILED", "STARTED")
	for _, r := range runs {
		fmt.Fprintf(out, "%-24s %-20s %-10s %6d %6d %s\n",
			r.ID, r.JobName, r.FinalState, r.TotalTasks, r.FailedTasks, r.StartedAt.Format("2006-01-02T15:04:05"))
	}
}

func showRun(cmd *cobra.Command, dbPath, runID string) error {
	store, err := history.Open(dbPath)
	if err != nil {
		return fmt.Errorf("open history database: %w", err)
	}
	defer store.Close()

	run, tasks, err := store.RunDetail(cmd.Context(), runID)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "run %s (flow %s, job %q)\n", run.ID, run.FlowID, run.JobName)
	fmt.Fprintf(out, "  state: %s  tasks: %d  failed: %d  log dir: %s\n", run.FinalState, run.TotalTasks, run.FailedTasks, run.LogDir)
	fmt.Fprintf(out, "  started: %s  finished: %s  duration: %dms\n", run.StartedAt.Format("2006-01-02T15:04:05"), run.FinishedAt.Format("2006-01-02T15:04:05"), run.DurationMs)
	fmt.Fprintln(out)
	fmt.Fprintf(out, "%-30s %6s %8s %8s\n", "COMMAND", "EXIT", "ABORTED", "MS")
	for _, t := range tasks {
		fmt.Fprintf(out, "%-30s %6d %8t %8d\n", t.CommandID, t.ExitCode, t.Aborted, t.DurationMs)
	}
	return nil
}
