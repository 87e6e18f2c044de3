package executor

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harrison/flowctl/internal/flow"
	"github.com/harrison/flowctl/internal/logger"
	"github.com/harrison/flowctl/internal/output"
)

func shellTask(id, name, run string) flow.TaskSpec {
	return flow.TaskSpec{ID: id, Name: name, Handler: flow.Handler{Shell: &flow.ShellHandler{Run: run}}}
}

func consoleHandlers() []output.Handler {
	return []output.Handler{{Kind: output.HandlerConsole, Options: output.DefaultHandlerOptions()}}
}

func newTestExecutor(t *testing.T, job flow.Job, opts Options) (*Executor, ExecutionContext) {
	t.Helper()
	f, err := flow.Parse(job)
	require.NoError(t, err)
	if opts.Shell == "" {
		opts.Shell = flow.ShellSh
	}
	opts.LogDir = t.TempDir()
	e, ec := NewExecutor(opts, f)
	return e, ec
}

func TestExecute_RunsTasksInOrderAndSucceeds(t *testing.T) {
	job := flow.Job{
		Name: "Pipeline",
		Tasks: []flow.TaskSpec{
			shellTask("", "Build", "exit 0"),
			shellTask("", "Test", "exit 0"),
		},
	}
	e, ec := newTestExecutor(t, job, Options{})
	lg := logger.New(logger.LevelDebug, consoleHandlers())

	result, err := e.Execute(context.Background(), &ec, lg)
	require.NoError(t, err)
	require.Len(t, result.TaskResults, 2)
	assert.Equal(t, "Build", result.TaskResults[0].Name)
	assert.Equal(t, "Test", result.TaskResults[1].Name)
	assert.True(t, result.TaskResults[0].Result.IsSuccess())
	assert.True(t, result.TaskResults[1].Result.IsSuccess())
	assert.Equal(t, Running, result.FinalState)

	info, statErr := os.Stat(result.LogDir)
	require.NoError(t, statErr)
	assert.True(t, info.IsDir())
}

func TestExecute_NoPriorFailedSkipsSubsequentTasks(t *testing.T) {
	job := flow.Job{
		Name: "Pipeline",
		Tasks: []flow.TaskSpec{
			shellTask("", "Build", "exit 1"),
			shellTask("", "Deploy", "exit 0"),
		},
	}
	e, ec := newTestExecutor(t, job, Options{})
	lg := logger.New(logger.LevelDebug, consoleHandlers())

	result, err := e.Execute(context.Background(), &ec, lg)
	require.NoError(t, err)
	require.Len(t, result.TaskResults, 2)
	assert.False(t, result.TaskResults[0].Result.IsSuccess())
	assert.True(t, result.TaskResults[1].Result.Aborted)
	assert.Equal(t, Failed, result.FinalState)
}

func TestExecute_AlwaysPolicyRunsDespiteFailure(t *testing.T) {
	job := flow.Job{
		Name: "Pipeline",
		Tasks: []flow.TaskSpec{
			shellTask("", "Build", "exit 1"),
			{ID: "cleanup", Name: "Cleanup", Policy: flow.Always, Handler: flow.Handler{Shell: &flow.ShellHandler{Run: "exit 0"}}},
		},
	}
	e, ec := newTestExecutor(t, job, Options{})
	lg := logger.New(logger.LevelDebug, consoleHandlers())

	result, err := e.Execute(context.Background(), &ec, lg)
	require.NoError(t, err)
	require.Len(t, result.TaskResults, 2)
	assert.False(t, result.TaskResults[1].Result.Aborted)
	assert.True(t, result.TaskResults[1].Result.IsSuccess())
}

func TestExecute_DryRunNeverSpawnsAndAlwaysSucceeds(t *testing.T) {
	job := flow.Job{
		Name:  "Pipeline",
		Tasks: []flow.TaskSpec{shellTask("", "Build", "this is not a real command; exit 7")},
	}
	e, ec := newTestExecutor(t, job, Options{DryRun: true})
	lg := logger.New(logger.LevelDebug, consoleHandlers())

	result, err := e.Execute(context.Background(), &ec, lg)
	require.NoError(t, err)
	require.Len(t, result.TaskResults, 1)
	assert.Equal(t, 0, result.TaskResults[0].Result.ExitCode)
	assert.False(t, result.TaskResults[0].Result.Aborted)
}

func TestExecute_SeedsAmbientEnvVisibleToTasks(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "env.txt")
	job := flow.Job{
		ID:   "release",
		Name: "Release",
		Tasks: []flow.TaskSpec{
			shellTask("", "Build", "env > "+out),
		},
	}
	e, ec := newTestExecutor(t, job, Options{SystemEnv: true})
	lg := logger.New(logger.LevelDebug, consoleHandlers())

	_, err := e.Execute(context.Background(), &ec, lg)
	require.NoError(t, err)

	contents, readErr := os.ReadFile(out)
	require.NoError(t, readErr)
	assert.Contains(t, string(contents), "FLOWCTL_JOB_NAME=Release")
	assert.Contains(t, string(contents), "FLOWCTL_JOB_ID=release")
	assert.Contains(t, string(contents), "FLOWCTL_TASK_NAME=Build")
}

func TestExecute_HookOrdering(t *testing.T) {
	dir := t.TempDir()
	trace := filepath.Join(dir, "trace.txt")
	job := flow.Job{
		Name: "Pipeline",
		Hooks: map[flow.Hook][]flow.TaskSpec{
			flow.BeforeJob: {shellTask("", "global-setup", "echo global-before >> "+trace)},
		},
		Tasks: []flow.TaskSpec{
			{
				ID:      "build",
				Name:    "Build",
				Handler: flow.Handler{Shell: &flow.ShellHandler{Run: "echo build >> " + trace}},
				Hooks: map[flow.Hook][]flow.TaskSpec{
					flow.BeforeTask: {shellTask("", "task-setup", "echo task-before >> "+trace)},
				},
			},
		},
	}
	e, ec := newTestExecutor(t, job, Options{})
	lg := logger.New(logger.LevelDebug, consoleHandlers())

	_, err := e.Execute(context.Background(), &ec, lg)
	require.NoError(t, err)

	contents, readErr := os.ReadFile(trace)
	require.NoError(t, readErr)
	lines := string(contents)
	beforeGlobal := strings.Index(lines, "global-before")
	beforeTask := strings.Index(lines, "task-before")
	build := strings.Index(lines, "build")
	require.True(t, beforeGlobal >= 0 && beforeTask >= 0 && build >= 0)
	assert.True(t, beforeGlobal < beforeTask)
	assert.True(t, beforeTask < build)
}
