package flow

// Step is one (CommandId, Command) pair the scheduler has decided must run
// next, plus the main-task CommandId it is associated with when it came
// from a hook routine (nil for main-routine steps and job-level hooks).
type Step struct {
	CommandID CommandId
	Command   *Command
	Focus     *CommandId
}

// stackItem is one scheduler frame: a routine being walked, its cursor,
// and whether its current main task has already had its BeforeTask hooks
// scheduled.
type stackItem struct {
	routine   RoutineId
	position  int
	scheduled bool
	isHook    bool
	length    int
	focus     *CommandId
}

// Iterator is the depth-first pushdown scheduler over a Flow's routine
// frames. It is not safe for concurrent use; the executor drives it from
// a single goroutine.
type Iterator struct {
	flow  *Flow
	stack []stackItem
}

// NewIterator creates an Iterator positioned at the start of the main
// routine.
func NewIterator(f *Flow) *Iterator {
	it := &Iterator{flow: f}
	it.stack = []stackItem{it.frame("main", false, nil)}
	return it
}

func (it *Iterator) frame(routine RoutineId, isHook bool, focus *CommandId) stackItem {
	r := it.flow.Routines[routine]
	return stackItem{
		routine:  routine,
		position: -1,
		isHook:   isHook,
		length:   len(r.Commands),
		focus:    focus,
	}
}

func (it *Iterator) pushLocal(hook Hook, cmd *Command, focus *CommandId) bool {
	routineID, ok := cmd.Hooks[hook]
	if !ok {
		return false
	}
	it.stack = append(it.stack, it.frame(routineID, true, focus))
	return true
}

func (it *Iterator) pushGlobal(hook Hook, focus *CommandId) bool {
	routineID, ok := it.flow.Hooks[hook]
	if !ok {
		return false
	}
	it.stack = append(it.stack, it.frame(routineID, true, focus))
	return true
}

// Next returns the next (CommandId, Command, focus) the executor must
// run, or ok=false once every routine on the stack has been exhausted.
func (it *Iterator) Next() (Step, bool) {
	for {
		if len(it.stack) == 0 {
			return Step{}, false
		}
		top := &it.stack[len(it.stack)-1]

		switch {
		case top.position == -1:
			top.position = 0
			if !top.isHook {
				it.pushGlobal(BeforeJob, nil)
			}
			continue

		case top.position == top.length:
			wasMain := !top.isHook
			it.stack = it.stack[:len(it.stack)-1]
			if wasMain {
				it.pushGlobal(AfterJob, nil)
			}
			continue

		default:
			routine := it.flow.Routines[top.routine]
			cmdID := routine.Commands[top.position]
			cmd := it.flow.Dependencies[cmdID]

			if !top.isHook && !top.scheduled {
				top.scheduled = true
				focus := cmdID
				it.pushLocal(BeforeTask, cmd, &focus)
				it.pushGlobal(BeforeTask, &focus)
				continue
			}

			stepFocus := top.focus
			top.position++
			top.scheduled = false

			if !top.isHook {
				focus := cmdID
				it.pushGlobal(AfterTask, &focus)
				it.pushLocal(AfterTask, cmd, &focus)
			}

			return Step{CommandID: cmdID, Command: cmd, Focus: stepFocus}, true
		}
	}
}

// PushResult enqueues the reactive OnSuccess/OnFailure hook for a command,
// if one is declared. It is a no-op for hook commands — only main tasks
// drive reactive hooks.
func (it *Iterator) PushResult(cmd *Command, result ExecutionResult) {
	if cmd.IsHook {
		return
	}
	hook := OnFailure
	if result.IsSuccess() {
		hook = OnSuccess
	}
	focus := cmd.ID
	it.pushLocal(hook, cmd, &focus)
	it.pushGlobal(hook, &focus)
}
