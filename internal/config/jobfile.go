// Package config loads the YAML job file and CLI/file option overrides
// that sit in front of the core engine: parsing is entirely outside the
// core's scope, but it is what produces the flow.Job the core consumes.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/harrison/flowctl/internal/flow"
	"github.com/harrison/flowctl/internal/output"
)

// JobFile is the raw, pre-validated YAML shape of a job file.
type JobFile struct {
	ID        string                `yaml:"id"`
	Name      string                `yaml:"name"`
	Cwd       string                `yaml:"cwd"`
	SystemEnv *bool                 `yaml:"system_env"`
	Env       map[string]string     `yaml:"env"`
	Policy    string                `yaml:"policy"`
	Hooks     map[string][]TaskFile `yaml:"hooks"`
	Tasks     []TaskFile            `yaml:"tasks"`
	Logging   []HandlerFile         `yaml:"logging"`
	Options   *FileOptions          `yaml:"options"`
}

// TaskFile is one task entry, before it becomes a flow.TaskSpec.
type TaskFile struct {
	ID        string                `yaml:"id"`
	Name      string                `yaml:"name"`
	Run       string                `yaml:"run"`
	Shell     string                `yaml:"shell"`
	ShellPath string                `yaml:"shell_path"`
	Env       map[string]string     `yaml:"env"`
	Cwd       string                `yaml:"cwd"`
	Policy    string                `yaml:"policy"`
	Hooks     map[string][]TaskFile `yaml:"hooks"`
}

// HandlerFile is one entry of the job file's "logging:" list.
type HandlerFile struct {
	Type     string `yaml:"type"` // "console" | "file"
	Output   string `yaml:"output"`
	Split    bool   `yaml:"split"`
	Stdout   *bool  `yaml:"stdout"`
	Stderr   *bool  `yaml:"stderr"`
	Hooks    *bool  `yaml:"hooks"`
	Internal *bool  `yaml:"internal"`
}

// LoadJob reads and YAML-unmarshals a job file from path.
func LoadJob(path string) (*JobFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read job file %s: %w", path, err)
	}
	var jf JobFile
	if err := yaml.Unmarshal(data, &jf); err != nil {
		return nil, fmt.Errorf("parse job file %s: %w", path, err)
	}
	return &jf, nil
}

// ToJob converts the raw file shape into the flow.Job Parse consumes.
// Env precedence, lowest to highest: the process environment (seeded by
// the executor when opts.SystemEnv), the resolved dotenv file, then this
// job file's own env block.
func (jf *JobFile) ToJob(opts Options) (flow.Job, error) {
	dotenv, err := LoadEnv(false, opts.Dotenv)
	if err != nil {
		return flow.Job{}, err
	}
	env := make(map[string]string, len(dotenv)+len(jf.Env))
	for k, v := range dotenv {
		env[k] = v
	}
	for k, v := range jf.Env {
		env[k] = v
	}

	hooks := make(map[flow.Hook][]flow.TaskSpec, len(jf.Hooks))
	for kind, tasks := range jf.Hooks {
		specs, err := taskSpecs(tasks)
		if err != nil {
			return flow.Job{}, err
		}
		hooks[flow.Hook(kind)] = specs
	}

	tasks, err := taskSpecs(jf.Tasks)
	if err != nil {
		return flow.Job{}, err
	}

	return flow.Job{
		ID:     jf.ID,
		Name:   jf.Name,
		Env:    env,
		Cwd:    jf.Cwd,
		Policy: flow.ExecutionPolicy(jf.Policy),
		Tasks:  tasks,
		Hooks:  hooks,
	}, nil
}

func taskSpecs(files []TaskFile) ([]flow.TaskSpec, error) {
	specs := make([]flow.TaskSpec, len(files))
	for i, tf := range files {
		spec, err := tf.toTaskSpec()
		if err != nil {
			return nil, err
		}
		specs[i] = spec
	}
	return specs, nil
}

func (tf TaskFile) toTaskSpec() (flow.TaskSpec, error) {
	if tf.Run == "" {
		return flow.TaskSpec{}, fmt.Errorf("task %q: missing run command", tf.Name)
	}

	hooks := make(map[flow.Hook][]flow.TaskSpec, len(tf.Hooks))
	for kind, tasks := range tf.Hooks {
		specs, err := taskSpecs(tasks)
		if err != nil {
			return flow.TaskSpec{}, err
		}
		hooks[flow.Hook(kind)] = specs
	}

	return flow.TaskSpec{
		ID:   tf.ID,
		Name: tf.Name,
		Handler: flow.Handler{Shell: &flow.ShellHandler{
			ShellType: flow.ShellType(tf.Shell),
			ShellPath: tf.ShellPath,
			Run:       tf.Run,
		}},
		Env:    tf.Env,
		Cwd:    tf.Cwd,
		Policy: flow.ExecutionPolicy(tf.Policy),
		Hooks:  hooks,
	}, nil
}

// ToHandlers converts the job file's "logging:" list into output.Handler
// values the executor's Logger rebuilds its MultiOutput from. An empty
// list defaults to a single Console handler.
func (jf *JobFile) ToHandlers() ([]output.Handler, error) {
	if len(jf.Logging) == 0 {
		return []output.Handler{{Kind: output.HandlerConsole, Options: output.DefaultHandlerOptions()}}, nil
	}

	handlers := make([]output.Handler, len(jf.Logging))
	for i, hf := range jf.Logging {
		h := output.Handler{Output: hf.Output, Split: hf.Split, Options: output.DefaultHandlerOptions()}
		if hf.Stdout != nil {
			h.Options.Stdout = *hf.Stdout
		}
		if hf.Stderr != nil {
			h.Options.Stderr = *hf.Stderr
		}
		if hf.Hooks != nil {
			h.Options.Hooks = *hf.Hooks
		}
		if hf.Internal != nil {
			h.Options.Internal = *hf.Internal
		}

		switch hf.Type {
		case "console", "":
			h.Kind = output.HandlerConsole
		case "file":
			h.Kind = output.HandlerFile
		default:
			return nil, fmt.Errorf("unknown logging handler type %q", hf.Type)
		}
		handlers[i] = h
	}
	return handlers, nil
}
