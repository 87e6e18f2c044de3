package executor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/harrison/flowctl/internal/flow"
	"github.com/harrison/flowctl/internal/logger"
	"github.com/harrison/flowctl/internal/output"
)

// Options configures one Execute run: the engine-level knobs
// (system_env, log_dir, default shell, dry_run). The handler list the
// Logger rebuilds its MultiOutput from lives on the Logger itself.
type Options struct {
	SystemEnv bool
	LogDir    string
	Shell     flow.ShellType
	ShellPath string
	DryRun    bool
}

// Executor walks a Flow with a FlowIterator, running each yielded step
// through its Handler and feeding the result back so reactive hooks get
// enqueued.
type Executor struct {
	opts Options
	flow *flow.Flow
}

// NewExecutor builds the initial ExecutionContext: env seeded from the
// process environment when opts.SystemEnv, extended with flow.Env, and
// cwd resolved against the process's current directory.
func NewExecutor(opts Options, f *flow.Flow) (*Executor, ExecutionContext) {
	env := map[string]string{}
	if opts.SystemEnv {
		for _, kv := range os.Environ() {
			for i := 0; i < len(kv); i++ {
				if kv[i] == '=' {
					env[kv[:i]] = kv[i+1:]
					break
				}
			}
		}
	}
	for k, v := range f.Env {
		env[k] = v
	}

	cwd, err := os.Getwd()
	if err != nil {
		cwd = "."
	}
	cwd = output.ResolveCwd(cwd, f.Cwd)

	return &Executor{opts: opts, flow: f}, ExecutionContext{
		Env:         env,
		Cwd:         cwd,
		State:       Running,
		WillExecute: true,
	}
}

// Result is the outcome of one full flow run: every main-task result in
// iteration order, and the resolved log directory that run's per-task
// files (and later, the run report) live under.
type Result struct {
	LogDir      string
	TaskResults []TaskResult
	FinalState  PipelineState
}

// TaskResult pairs a main task's identity with the result it produced,
// for the Summary action and the run report.
type TaskResult struct {
	CommandID flow.CommandId
	Name      string
	Result    flow.ExecutionResult
}

// Execute drives the full flow to completion: resolves the log
// directory, seeds the job-level ambient env, then loops the iterator
// until it is exhausted, finally emitting the Summary action.
func (e *Executor) Execute(ctx context.Context, ec *ExecutionContext, lg *logger.Logger) (Result, error) {
	logDir, err := e.resolveLogDir(ec.Cwd)
	if err != nil {
		return Result{}, fmt.Errorf("resolve log directory: %w", err)
	}
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return Result{}, fmt.Errorf("create log directory %s: %w", logDir, err)
	}
	ec.LogDir = logDir

	ec.Env["FLOWCTL_JOB_NAME"] = e.flow.Name
	ec.Env["FLOWCTL_JOB_ID"] = e.flow.ID

	it := flow.NewIterator(e.flow)
	var results []TaskResult

	for {
		step, ok := it.Next()
		if !ok {
			break
		}

		result, err := e.executeStep(ctx, step, ec, lg)
		if err != nil {
			return Result{LogDir: logDir, TaskResults: results, FinalState: ec.State}, err
		}

		it.PushResult(step.Command, result)

		if !step.Command.IsHook {
			results = append(results, TaskResult{
				CommandID: step.Command.ID,
				Name:      step.Command.Name,
				Result:    result,
			})
		}
	}

	rows := make([]logger.SummaryRow, len(results))
	for i, r := range results {
		rows[i] = logger.SummaryRow{Number: i + 1, Name: r.Name, Result: r.Result}
	}
	_ = lg.LogAction(logger.Summary{Rows: rows})

	return Result{LogDir: logDir, TaskResults: results, FinalState: ec.State}, nil
}

// executeStep runs one scheduler step: resolve WillExecute from the
// command's ExecutionPolicy, switch the output pipeline, emit TaskStart,
// dispatch the handler (or synthesize an aborted result), emit TaskEnd,
// and thread pipeline state forward.
func (e *Executor) executeStep(ctx context.Context, step flow.Step, ec *ExecutionContext, lg *logger.Logger) (flow.ExecutionResult, error) {
	ec.CurrentID = step.CommandID
	ec.Current = step.Command
	ec.Focus = step.Focus

	ec.WillExecute = e.willExecute(step.Command.Policy, ec)

	outCtx := output.Context{
		CurrentCommandID: step.CommandID,
		IsHook:           step.Command.IsHook,
		FocusID:          focusOf(step.Focus),
		DryRun:           e.opts.DryRun,
		LogDir:           ec.LogDir,
	}
	if err := lg.Switch(outCtx); err != nil {
		return flow.ExecutionResult{}, fmt.Errorf("switch logging pipeline: %w", err)
	}

	var result flow.ExecutionResult
	if ec.WillExecute {
		if err := lg.LogAction(logger.TaskStart{Name: step.Command.Name, IsHook: step.Command.IsHook}); err != nil {
			return flow.ExecutionResult{}, err
		}

		e.injectStepEnv(ec, step.Command)

		var err error
		if step.Command.Handler.Shell != nil {
			result, err = e.executeShell(ctx, step.Command, ec, lg)
		} else {
			err = fmt.Errorf("command %s: no handler configured", step.Command.ID)
		}
		if err != nil {
			return flow.ExecutionResult{}, err
		}
	} else {
		result = flow.ExecutionResult{CommandID: step.CommandID, FocusID: focusOf(step.Focus), Aborted: true}
	}

	if err := lg.LogAction(logger.TaskEnd{
		Name:   step.Command.Name,
		IsHook: step.Command.IsHook,
		Result: result,
		Policy: step.Command.Policy,
	}); err != nil {
		return flow.ExecutionResult{}, err
	}

	if !step.Command.IsHook {
		if !result.IsSuccess() && !result.Aborted {
			ec.State = Failed
		}
		ec.Previous = &result
	}

	return result, nil
}

func (e *Executor) willExecute(policy flow.ExecutionPolicy, ec *ExecutionContext) bool {
	switch policy {
	case flow.PriorSuccess:
		return ec.Previous == nil || ec.Previous.IsSuccess()
	case flow.Always:
		return true
	default: // NoPriorFailed
		return ec.State != Failed
	}
}

// injectStepEnv sets the per-step ambient env variables this command's
// handler will see: the previous main task's identity/result (if any),
// then this task's own name/id.
func (e *Executor) injectStepEnv(ec *ExecutionContext, cmd *flow.Command) {
	if ec.Previous != nil {
		if prevCmd, ok := e.flow.Dependencies[ec.Previous.CommandID]; ok {
			ec.Env["FLOWCTL_PREV_NAME"] = prevCmd.Name
		}
		ec.Env["FLOWCTL_PREV_ID"] = ec.Previous.CommandID
		ec.Env["FLOWCTL_PREV_CODE"] = fmt.Sprintf("%d", ec.Previous.ExitCode)
	}
	ec.Env["FLOWCTL_TASK_NAME"] = cmd.Name
	ec.Env["FLOWCTL_TASK_ID"] = cmd.ID
}

func (e *Executor) resolveLogDir(cwd string) (string, error) {
	base := output.ResolveCwd(cwd, e.opts.LogDir)
	stamp := time.Now().Format("20060102T150405")
	return filepath.Join(base, fmt.Sprintf("%s_%s", e.flow.ID, stamp)), nil
}
