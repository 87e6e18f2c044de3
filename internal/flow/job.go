package flow

// Job is the pre-validated, in-memory description that Parse consumes.
// Producing one (from a YAML job file, CLI flags, or a test literal) is
// outside this package's scope; Parse only ever sees a Job that is
// already complete.
type Job struct {
	ID     string
	Name   string
	Env    map[string]string
	Cwd    string
	Policy ExecutionPolicy
	Tasks  []TaskSpec
	Hooks  map[Hook][]TaskSpec
}

// TaskSpec is one configured task inside a Job, before it becomes a
// Command. It carries its own nested hooks verbatim; Parse expands them
// recursively while building the Flow.
type TaskSpec struct {
	ID      string
	Name    string
	Handler Handler
	Env     map[string]string
	Cwd     string
	Policy  ExecutionPolicy
	Hooks   map[Hook][]TaskSpec
}
