package executor

import "github.com/harrison/flowctl/internal/flow"

// PipelineState tracks whether any main task has failed so far, driving
// the NoPriorFailed execution policy.
type PipelineState int

const (
	Running PipelineState = iota
	Failed
)

// ExecutionContext is the Executor's mutable state between steps: the
// ambient env/cwd/log_dir, the pipeline's running state, and what is
// currently (or was most recently) executing.
type ExecutionContext struct {
	Env         map[string]string
	Cwd         string
	LogDir      string
	State       PipelineState
	WillExecute bool

	CurrentID flow.CommandId
	Current   *flow.Command
	Focus     *flow.CommandId
	Previous  *flow.ExecutionResult
}
