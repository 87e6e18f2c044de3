package flow

import "fmt"

// builder accumulates a Flow's Dependencies/Routines maps while walking a
// Job's task tree.
type builder struct {
	dependencies  map[CommandId]*Command
	routines      map[RoutineId]*Routine
	hooks         map[Hook]RoutineId
	defaultPolicy ExecutionPolicy
}

// Parse expands a Job into an immutable Flow, or returns a construction
// error (DuplicateIDError, NestedHookError). The job is assumed
// pre-validated; Parse's only job is deterministic expansion.
func Parse(job Job) (*Flow, error) {
	id := job.ID
	if id == "" {
		id = Slug(job.Name)
	}

	defaultPolicy := job.Policy
	if defaultPolicy == "" {
		defaultPolicy = NoPriorFailed
	}

	b := &builder{
		dependencies:  make(map[CommandId]*Command),
		routines:      make(map[RoutineId]*Routine),
		hooks:         make(map[Hook]RoutineId),
		defaultPolicy: defaultPolicy,
	}

	// Global hooks first, so a duplicate id between a global hook task and
	// a main task is caught regardless of declaration order in the Job.
	for kind, tasks := range job.Hooks {
		routineID := string(kind)
		cmds, err := b.parseTasks(tasks, routineID, true)
		if err != nil {
			return nil, err
		}
		b.routines[routineID] = &Routine{Commands: cmds, IsHook: true}
		b.hooks[kind] = routineID
	}

	mainCmds, err := b.parseTasks(job.Tasks, "", false)
	if err != nil {
		return nil, err
	}
	b.routines["main"] = &Routine{Commands: mainCmds, IsHook: false}

	return &Flow{
		ID:           id,
		Name:         job.Name,
		Dependencies: b.dependencies,
		Routines:     b.routines,
		Hooks:        b.hooks,
		Env:          job.Env,
		Cwd:          job.Cwd,
	}, nil
}

// parseTasks expands one ordered task list into Commands, recursively
// expanding each task's own hook routines. prefix seeds generated ids for
// tasks that don't supply one (global hooks use the hook kind; the main
// routine uses the empty prefix; a task's own hook routines use
// "{taskID}_{hookKind}").
func (b *builder) parseTasks(tasks []TaskSpec, prefix string, isHook bool) ([]CommandId, error) {
	ids := make([]CommandId, 0, len(tasks))
	counter := 0

	for _, t := range tasks {
		id := t.ID
		if id == "" {
			id = GenerateID(t.Name, counter, prefix)
		}
		counter++
		if _, exists := b.dependencies[id]; exists {
			return nil, &DuplicateIDError{ID: id}
		}

		if isHook && len(t.Hooks) > 0 {
			return nil, &NestedHookError{TaskName: t.Name}
		}

		policy := t.Policy
		if policy == "" {
			policy = b.defaultPolicy
		}

		cmd := &Command{
			ID:      id,
			Name:    t.Name,
			Handler: t.Handler,
			Env:     t.Env,
			Cwd:     t.Cwd,
			IsHook:  isHook,
			Hooks:   make(map[Hook]RoutineId),
			Policy:  policy,
		}
		b.dependencies[id] = cmd
		ids = append(ids, id)

		for kind, hookTasks := range t.Hooks {
			routineID := fmt.Sprintf("%s_%s", id, kind)
			hookCmds, err := b.parseTasks(hookTasks, routineID, true)
			if err != nil {
				return nil, err
			}
			b.routines[routineID] = &Routine{Commands: hookCmds, IsHook: true}
			cmd.Hooks[kind] = routineID
		}
	}

	return ids, nil
}
