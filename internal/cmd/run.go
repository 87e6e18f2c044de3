package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/harrison/flowctl/internal/config"
	"github.com/harrison/flowctl/internal/executor"
	"github.com/harrison/flowctl/internal/filelock"
	"github.com/harrison/flowctl/internal/flow"
	"github.com/harrison/flowctl/internal/history"
	"github.com/harrison/flowctl/internal/logger"
	"github.com/harrison/flowctl/internal/report"
)

// NewRunCommand builds the "flowctl run <job-file>" subcommand: the
// primary entry point that loads a job file, merges CLI flags over its
// options, and drives the core engine to completion.
func NewRunCommand() *cobra.Command {
	var (
		level      string
		dryRun     bool
		ansi       bool
		logDir     string
		systemEnv  bool
		dotenv     string
		envPairs   []string
		historyDB  string
		noHistory  bool
		configPath string
	)

	cmd := &cobra.Command{
		Use:   "run <job-file>",
		Short: "Run a job file's tasks as a sequential shell pipeline",
		Long: `run loads a job file, merges CLI flags over its options and job-level
env, then executes every task as a child shell process in order,
streaming output to the configured sinks and printing a summary once
the flow finishes.

Exit code 0 means the flow ran to completion, even if individual tasks
failed — a failed task is data the flow reports, not an engine error.
Exit code 1 means the engine itself could not run the flow at all.`,
		Args: cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			jf, err := config.LoadJob(args[0])
			if err != nil {
				return err
			}

			var configOpts *config.FileOptions
			if configPath != "" {
				configOpts, err = config.LoadOptionsFile(configPath)
				if err != nil {
					return err
				}
			}

			flagOpts := &config.FlagOptions{}
			if c.Flags().Changed("level") {
				flagOpts.LogLevel = &level
			}
			if c.Flags().Changed("dry-run") {
				flagOpts.DryRun = &dryRun
			}
			if c.Flags().Changed("ansi") {
				flagOpts.Ansi = &ansi
			} else if (jf.Options == nil || jf.Options.Ansi == nil) && (configOpts == nil || configOpts.Ansi == nil) {
				// Neither the flag, the --config file, nor the job file
				// named an ansi preference: fall back to whether stdout is
				// actually a terminal instead of the engine's hardcoded true.
				auto := isatty.IsTerminal(os.Stdout.Fd())
				flagOpts.Ansi = &auto
			}
			if c.Flags().Changed("log-dir") {
				flagOpts.LogDir = &logDir
			}
			if c.Flags().Changed("system-env") {
				flagOpts.SystemEnv = &systemEnv
			}
			if c.Flags().Changed("dotenv") {
				flagOpts.Dotenv = &dotenv
			}

			extraEnv, err := parseEnvPairs(envPairs)
			if err != nil {
				return err
			}

			return runJob(c, jf, configOpts, flagOpts, extraEnv, historyDB, noHistory)
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "path to a standalone options YAML file, layered under the job file's own options")
	cmd.Flags().StringVar(&level, "level", "", "log verbosity: debug|info|warn|error")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "announce tasks without spawning child processes")
	cmd.Flags().BoolVar(&ansi, "ansi", true, "enable ANSI color in rendered actions")
	cmd.Flags().StringVar(&logDir, "log-dir", "", "directory the run's log directory is created under")
	cmd.Flags().BoolVar(&systemEnv, "system-env", true, "seed task env from the process environment")
	cmd.Flags().StringVar(&dotenv, "dotenv", "", "path to a dotenv file overlaid onto the seeded env")
	cmd.Flags().StringArrayVarP(&envPairs, "env", "e", nil, "KEY=VALUE pairs merged into the job's env, repeatable")
	cmd.Flags().StringVar(&historyDB, "history-db", filepath.Join(".flowctl", "history.db"), "sqlite history database path")
	cmd.Flags().BoolVar(&noHistory, "no-history", false, "skip persisting this run to the history database")

	return cmd
}

func parseEnvPairs(pairs []string) (map[string]string, error) {
	env := make(map[string]string, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if !ok {
			return nil, fmt.Errorf("invalid -e value %q: expected KEY=VALUE", p)
		}
		env[k] = v
	}
	return env, nil
}

func runJob(c *cobra.Command, jf *config.JobFile, configOpts, flagOpts *config.FlagOptions, extraEnv map[string]string, historyDB string, noHistory bool) error {
	opts := config.MergeOptionsWithConfig(configOpts, jf.Options, flagOpts)
	color.NoColor = !opts.Ansi

	job, err := jf.ToJob(opts)
	if err != nil {
		return err
	}
	for k, v := range extraEnv {
		job.Env[k] = v
	}

	f, err := flow.Parse(job)
	if err != nil {
		return fmt.Errorf("parse flow: %w", err)
	}

	handlers, err := jf.ToHandlers()
	if err != nil {
		return err
	}

	level, err := logger.ParseLevel(opts.LogLevel)
	if err != nil {
		return err
	}
	lg := logger.New(level, handlers)

	execOpts := executor.Options{
		SystemEnv: opts.SystemEnv,
		LogDir:    opts.LogDir,
		Shell:     opts.Shell,
		ShellPath: opts.ShellPath,
		DryRun:    opts.DryRun,
	}
	ex, ec := executor.NewExecutor(execOpts, f)

	startedAt := time.Now()
	result, err := ex.Execute(c.Context(), &ec, lg)
	_ = lg.Close()
	if err != nil {
		return fmt.Errorf("execute flow: %w", err)
	}
	finishedAt := time.Now()

	if rerr := report.Write(result.LogDir, result.TaskResults); rerr != nil {
		fmt.Fprintf(c.ErrOrStderr(), "warning: failed to write run report: %v\n", rerr)
	}

	if !noHistory {
		if rerr := recordHistory(c.Context(), historyDB, f, result, startedAt, finishedAt); rerr != nil {
			fmt.Fprintf(c.ErrOrStderr(), "warning: failed to record run history: %v\n", rerr)
		}
	}

	return nil
}

// recordHistory persists the run under an advisory file lock so two
// concurrent flowctl invocations sharing a history database don't race
// opening or writing it. Any failure here is the caller's to log as a
// warning; it never turns a completed run into a CLI error.
func recordHistory(ctx context.Context, dbPath string, f *flow.Flow, result executor.Result, startedAt, finishedAt time.Time) error {
	lock := filelock.NewFileLock(dbPath + ".lock")
	if err := lock.Lock(); err != nil {
		return err
	}
	defer lock.Unlock()

	store, err := history.Open(dbPath)
	if err != nil {
		return err
	}
	defer store.Close()

	failed := 0
	taskRecords := make([]history.TaskRecord, len(result.TaskResults))
	for i, tr := range result.TaskResults {
		if !tr.Result.IsSuccess() && !tr.Result.Aborted {
			failed++
		}
		durMs := int64(0)
		if tr.Result.Duration != nil {
			durMs = tr.Result.Duration.Milliseconds()
		}
		taskRecords[i] = history.TaskRecord{
			CommandID:  tr.CommandID,
			FocusID:    tr.Result.FocusID,
			IsHook:     false,
			ExitCode:   tr.Result.ExitCode,
			Aborted:    tr.Result.Aborted,
			DurationMs: durMs,
			StartedAt:  startedAt,
		}
	}

	finalState := "completed"
	if result.FinalState == executor.Failed {
		finalState = "failed"
	}

	run := history.RunRecord{
		ID:          uuid.NewString(),
		FlowID:      f.ID,
		JobName:     f.Name,
		StartedAt:   startedAt,
		FinishedAt:  finishedAt,
		DurationMs:  finishedAt.Sub(startedAt).Milliseconds(),
		FinalState:  finalState,
		TotalTasks:  len(result.TaskResults),
		FailedTasks: failed,
		LogDir:      result.LogDir,
	}
	for i := range taskRecords {
		taskRecords[i].RunID = run.ID
	}

	return store.RecordRun(ctx, run, taskRecords)
}
