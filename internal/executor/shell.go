package executor

import (
	"context"
	"fmt"
	"io"
	"os/exec"
	"sort"
	"time"

	"github.com/harrison/flowctl/internal/flow"
	"github.com/harrison/flowctl/internal/logger"
	"github.com/harrison/flowctl/internal/output"
)

// executeShell is Shell.execute: builds the child's env/cwd/program/args,
// announces the run line, and either short-circuits (dry-run) or spawns
// the interpreter and drains its pipes into the logger's MultiOutput.
func (e *Executor) executeShell(ctx context.Context, cmd *flow.Command, ec *ExecutionContext, lg *logger.Logger) (flow.ExecutionResult, error) {
	h := cmd.Handler.Shell

	env := mergeEnv(ec.Env, cmd.Env)
	cwd := output.ResolveCwd(ec.Cwd, cmd.Cwd)

	shellType := h.ShellType
	if shellType == "" {
		shellType = e.opts.Shell
	}
	shellPath := h.ShellPath
	if shellPath == "" && shellType == e.opts.Shell {
		shellPath = e.opts.ShellPath
	}

	program, args, err := shellProgramAndArgs(shellType, shellPath, h.Run)
	if err != nil {
		return flow.ExecutionResult{}, err
	}

	if err := lg.LogAction(logger.ShellAnnounce{Run: h.Run}); err != nil {
		return flow.ExecutionResult{}, err
	}

	start := time.Now()

	if e.opts.DryRun {
		d := time.Since(start)
		return flow.ExecutionResult{
			CommandID: cmd.ID,
			FocusID:   focusOf(ec.Focus),
			ExitCode:  0,
			Duration:  &d,
		}, nil
	}

	c := exec.CommandContext(ctx, program, args...)
	c.Dir = cwd
	c.Env = envList(env)

	stdout, err := c.StdoutPipe()
	if err != nil {
		return flow.ExecutionResult{}, &SpawnError{CommandID: cmd.ID, Err: err}
	}
	stderr, err := c.StderrPipe()
	if err != nil {
		return flow.ExecutionResult{}, &SpawnError{CommandID: cmd.ID, Err: err}
	}
	if err := c.Start(); err != nil {
		return flow.ExecutionResult{}, &SpawnError{CommandID: cmd.ID, Err: err}
	}

	if err := captureCommand(lg.Output(), stdout, stderr); err != nil {
		_ = c.Wait()
		return flow.ExecutionResult{}, fmt.Errorf("capture output of command %s: %w", cmd.ID, err)
	}

	exitCode := 0
	if waitErr := c.Wait(); waitErr != nil {
		exitErr, ok := waitErr.(*exec.ExitError)
		if !ok {
			return flow.ExecutionResult{}, fmt.Errorf("wait for command %s: %w", cmd.ID, waitErr)
		}
		exitCode = exitErr.ExitCode()
	}

	d := time.Since(start)
	return flow.ExecutionResult{
		CommandID: cmd.ID,
		FocusID:   focusOf(ec.Focus),
		ExitCode:  exitCode,
		Duration:  &d,
	}, nil
}

// shellProgramAndArgs computes the program and argv for the chosen
// interpreter. Cmd, PowerShell and Other are not implemented on this
// platform and raise UnsupportedShellError.
func shellProgramAndArgs(shellType flow.ShellType, shellPath, run string) (string, []string, error) {
	var fallback string
	var flag string

	switch shellType {
	case flow.ShellBash:
		fallback, flag = "bash", "-c"
	case flow.ShellSh:
		fallback, flag = "sh", "-c"
	case flow.ShellPython:
		fallback, flag = "python3", "-c"
	case flow.ShellNode:
		fallback, flag = "node", "-e"
	case flow.ShellRuby:
		fallback, flag = "ruby", "-e"
	case flow.ShellPhp:
		fallback, flag = "php", "-r"
	default:
		return "", nil, &UnsupportedShellError{Shell: shellType}
	}

	program := fallback
	if shellPath != "" {
		tok, err := parseShellPathToken(shellPath)
		if err != nil {
			return "", nil, err
		}
		program = tok
	}
	return program, []string{flag, run}, nil
}

// parseShellPathToken extracts the first whitespace-delimited path-like
// token from s, treating a backslash-escaped space as a literal space
// rather than a delimiter.
func parseShellPathToken(s string) (string, error) {
	var token []byte
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '\\' && i+1 < len(s) && s[i+1] == ' ' {
			token = append(token, ' ')
			i++
			continue
		}
		if c == ' ' || c == '\t' {
			break
		}
		token = append(token, c)
	}
	if len(token) == 0 {
		return "", &InvalidShellPathError{Path: s}
	}
	return string(token), nil
}

// captureCommand drains stdout and stderr concurrently into out, tagging
// each chunk with its originating logical stream, in 1 KiB reads. It
// returns once both pipes have reported EOF, or the first write/read
// error encountered.
func captureCommand(out *output.MultiOutput, stdout, stderr io.Reader) error {
	done := make(chan error, 2)
	go drainPipe(out, output.Stdout, stdout, done)
	go drainPipe(out, output.Stderr, stderr, done)

	var firstErr error
	for i := 0; i < 2; i++ {
		if err := <-done; err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func drainPipe(out *output.MultiOutput, stream output.Stream, r io.Reader, done chan<- error) {
	buf := make([]byte, 1024)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			if out != nil {
				if _, werr := out.WriteStream(stream, buf[:n]); werr != nil {
					done <- werr
					return
				}
			}
		}
		if err != nil {
			if err == io.EOF {
				done <- nil
			} else {
				done <- err
			}
			return
		}
	}
}

func mergeEnv(base, override map[string]string) map[string]string {
	merged := make(map[string]string, len(base)+len(override))
	for k, v := range base {
		merged[k] = v
	}
	for k, v := range override {
		merged[k] = v
	}
	return merged
}

func envList(env map[string]string) []string {
	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	list := make([]string, 0, len(keys))
	for _, k := range keys {
		list = append(list, k+"="+env[k])
	}
	return list
}

func focusOf(focus *flow.CommandId) string {
	if focus == nil {
		return ""
	}
	return *focus
}
