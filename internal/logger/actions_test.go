package logger

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harrison/flowctl/internal/flow"
)

func init() {
	color.NoColor = true
}

func TestTaskStart_MinLevelIsInfo(t *testing.T) {
	assert.Equal(t, LevelInfo, TaskStart{}.MinLevel())
}

func TestTaskStart_RendersBannerByKind(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, TaskStart{Name: "Build", IsHook: false}.Render(&buf, LevelInfo))
	assert.Contains(t, buf.String(), "Task: Build")

	buf.Reset()
	require.NoError(t, TaskStart{Name: "cleanup", IsHook: true}.Render(&buf, LevelInfo))
	assert.Contains(t, buf.String(), "Hook: cleanup")
}

func TestShellAnnounce_RendersRunLine(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, ShellAnnounce{Run: "echo hi"}.Render(&buf, LevelInfo))
	assert.Equal(t, "$ echo hi\n", buf.String())
}

func TestTaskEnd_FailedNonAbortedAlwaysRendersAtErrorLevel(t *testing.T) {
	var buf bytes.Buffer
	a := TaskEnd{Name: "Build", Result: flow.ExecutionResult{ExitCode: 1}}
	require.NoError(t, a.Render(&buf, LevelError))
	assert.Contains(t, buf.String(), `Task "Build" completed`)
	assert.Contains(t, buf.String(), "non-zero exit status: 1")
}

func TestTaskEnd_SuccessOnlyRendersAtDebug(t *testing.T) {
	a := TaskEnd{Name: "Build", Result: flow.ExecutionResult{ExitCode: 0}}

	var buf bytes.Buffer
	require.NoError(t, a.Render(&buf, LevelError))
	assert.Empty(t, buf.String())

	buf.Reset()
	require.NoError(t, a.Render(&buf, LevelDebug))
	assert.Contains(t, buf.String(), `Task "Build" completed successfully`)
}

func TestTaskEnd_AbortedNonHookExplainsPolicyAtDebug(t *testing.T) {
	a := TaskEnd{
		Name:   "Deploy",
		Result: flow.ExecutionResult{Aborted: true},
		Policy: flow.NoPriorFailed,
	}
	var buf bytes.Buffer
	require.NoError(t, a.Render(&buf, LevelDebug))
	assert.Contains(t, buf.String(), "was skipped")
	assert.Contains(t, buf.String(), "a prior task in this pipeline failed")
}

func TestTaskEnd_AbortedHookDoesNotExplain(t *testing.T) {
	a := TaskEnd{
		Name:   "cleanup",
		IsHook: true,
		Result: flow.ExecutionResult{Aborted: true},
	}
	var buf bytes.Buffer
	require.NoError(t, a.Render(&buf, LevelDebug))
	assert.Empty(t, buf.String())
}

func TestSummary_RendersOneRowPerResultWithTruncatedNames(t *testing.T) {
	dur := 2500 * time.Millisecond
	s := Summary{Rows: []SummaryRow{
		{Number: 1, Name: strings.Repeat("x", 80), Result: flow.ExecutionResult{ExitCode: 0, Duration: &dur}},
		{Number: 2, Name: "aborted-task", Result: flow.ExecutionResult{Aborted: true}},
		{Number: 3, Name: "failed-task", Result: flow.ExecutionResult{ExitCode: 1}},
	}}
	var buf bytes.Buffer
	require.NoError(t, s.Render(&buf, LevelError))
	out := buf.String()
	assert.Contains(t, out, strings.Repeat("x", 57)+"...")
	assert.Contains(t, out, "⛔")
	assert.Contains(t, out, "💥")
	assert.Contains(t, out, "2.50")
}

func TestActionIcon(t *testing.T) {
	assert.Equal(t, "🪝", actionIcon(1, true, flow.ExecutionResult{}))
	assert.Equal(t, "⛔", actionIcon(1, false, flow.ExecutionResult{Aborted: true}))
	assert.Equal(t, "💥", actionIcon(1, false, flow.ExecutionResult{ExitCode: 1}))
	assert.Equal(t, "1", actionIcon(1, false, flow.ExecutionResult{ExitCode: 0}))
}
