package output

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrLogDirConflict is returned when a split-mode handler's target
// directory path already exists as a regular file.
var ErrLogDirConflict = errors.New("log directory path is an existing file")

// HandlerKind discriminates the two LogHandler variants.
type HandlerKind int

const (
	HandlerConsole HandlerKind = iota
	HandlerFile
)

// HandlerOptions gates which chunks reach a handler. All default true.
type HandlerOptions struct {
	Stdout   bool
	Stderr   bool
	Hooks    bool
	Internal bool
}

// DefaultHandlerOptions returns the all-true defaults.
func DefaultHandlerOptions() HandlerOptions {
	return HandlerOptions{Stdout: true, Stderr: true, Hooks: true, Internal: true}
}

// Handler is one configured logging destination: Console, or File with an
// optional output directory and split-per-task mode.
type Handler struct {
	Kind    HandlerKind
	Output  string // File only: directory the split logs (or single file) live under
	Split   bool   // File only
	Options HandlerOptions
}

// Context is the context-dependent information PipeSpec derivation needs:
// the current step's command id, whether it is a hook, the focus task id
// when it is, dry-run, and the run's log directory.
type Context struct {
	CurrentCommandID string
	IsHook           bool
	FocusID          string // only meaningful when IsHook
	DryRun           bool
	LogDir           string
}

// OutputKind discriminates a PipeSpec's destination.
type OutputKind int

const (
	OutputStdout OutputKind = iota
	OutputStderr
	OutputFile
)

// OutputSpec names a PipeSpec's destination.
type OutputSpec struct {
	Kind   OutputKind
	Path   string // OutputFile only
	Append bool   // OutputFile only
}

// PipeSpec is a pure (accepted_stream, output_destination) pair.
type PipeSpec struct {
	Input  Accept
	Output OutputSpec
}

// LoggingSpec is an ordered list of PipeSpecs.
type LoggingSpec []PipeSpec

// acceptFor computes the acceptance set a handler's stdout/stderr flags
// describe.
func acceptFor(h Handler) Accept {
	switch {
	case h.Options.Stdout && h.Options.Stderr:
		return AcceptBoth
	case h.Options.Stdout:
		return AcceptStdout
	case h.Options.Stderr:
		return AcceptStderr
	default:
		return AcceptNone
	}
}

// FromConfig derives the LoggingSpec for one step from the ordered
// handler list and the current execution context.
func FromConfig(handlers []Handler, ctx Context) (LoggingSpec, error) {
	var spec LoggingSpec
	for _, h := range handlers {
		pipe, ok, err := fromHandler(h, acceptFor(h), ctx)
		if err != nil {
			return nil, err
		}
		if ok {
			spec = append(spec, pipe)
		}
	}
	return spec, nil
}

func fromHandler(h Handler, input Accept, ctx Context) (PipeSpec, bool, error) {
	if !h.Options.Hooks && ctx.IsHook {
		return PipeSpec{}, false, nil
	}

	switch h.Kind {
	case HandlerConsole:
		return PipeSpec{Input: input, Output: OutputSpec{Kind: OutputStdout}}, true, nil

	case HandlerFile:
		if ctx.DryRun {
			return PipeSpec{}, false, nil
		}
		path, err := filePath(h, ctx)
		if err != nil {
			return PipeSpec{}, false, err
		}
		return PipeSpec{Input: input, Output: OutputSpec{Kind: OutputFile, Path: path, Append: true}}, true, nil

	default:
		return PipeSpec{}, false, fmt.Errorf("unknown log handler kind %d", h.Kind)
	}
}

func filePath(h Handler, ctx Context) (string, error) {
	base := resolveCwd(ctx.LogDir, h.Output)

	if !h.Split {
		return base, nil
	}

	if info, err := os.Stat(base); err == nil && !info.IsDir() {
		return "", fmt.Errorf("%w: %s", ErrLogDirConflict, base)
	} else if err != nil && !os.IsNotExist(err) {
		return "", err
	}
	if err := os.MkdirAll(base, 0755); err != nil {
		return "", fmt.Errorf("create split log directory %s: %w", base, err)
	}

	name := ctx.CurrentCommandID
	if ctx.IsHook {
		if ctx.FocusID != "" {
			name = ctx.FocusID
		} else {
			name = "job"
		}
	}
	return filepath.Join(base, name+".log"), nil
}

// resolveCwd is the identity on an absolute override and base.join(override)
// otherwise (join with "" when override is empty).
func resolveCwd(base, override string) string {
	if override == "" {
		return base
	}
	if filepath.IsAbs(override) {
		return override
	}
	return filepath.Join(base, override)
}

// ResolveCwd exports resolveCwd for callers outside this package (the
// executor and shell handler resolve cwd the same way).
func ResolveCwd(base, override string) string { return resolveCwd(base, override) }

// Build opens concrete sinks for a LoggingSpec and assembles a
// MultiOutput. The caller owns the returned MultiOutput's lifetime and
// must Close it to release open file handles.
func Build(spec LoggingSpec) (*MultiOutput, error) {
	m := &MultiOutput{}
	for _, p := range spec {
		sink, err := buildSink(p.Output)
		if err != nil {
			_ = m.Close()
			return nil, err
		}
		m.Add(p.Input, sink)
	}
	return m, nil
}

func buildSink(o OutputSpec) (Sink, error) {
	switch o.Kind {
	case OutputStdout:
		return StdoutSink{}, nil
	case OutputStderr:
		return StderrSink{}, nil
	case OutputFile:
		return NewFileSink(o.Path, o.Append)
	default:
		return NullSink{}, nil
	}
}
