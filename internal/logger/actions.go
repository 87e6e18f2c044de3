package logger

import (
	"fmt"
	"io"

	"github.com/fatih/color"

	"github.com/harrison/flowctl/internal/flow"
)

// Action is a renderable event the engine emits at a known point in a
// step's lifecycle. Each declares the minimum Level it is visible at and
// knows how to render itself to the active output.
type Action interface {
	MinLevel() Level
	Render(w io.Writer, level Level) error
}

// TaskStart announces a main task or hook about to run.
type TaskStart struct {
	Name   string
	IsHook bool
}

func (TaskStart) MinLevel() Level { return LevelInfo }

func (a TaskStart) Render(w io.Writer, _ Level) error {
	label, c := "Task", color.New(color.FgGreen)
	if a.IsHook {
		label, c = "Hook", color.New(color.FgYellow)
	}
	content := fmt.Sprintf(" %s: %s ", label, a.Name)
	_, err := fmt.Fprintln(w, c.Sprint(banner(content, getTerminalWidth())))
	return err
}

// ShellAnnounce echoes the command line a Shell handler is about to run.
type ShellAnnounce struct {
	Run string
}

func (ShellAnnounce) MinLevel() Level { return LevelInfo }

func (a ShellAnnounce) Render(w io.Writer, _ Level) error {
	_, err := fmt.Fprintln(w, color.CyanString("$ %s", a.Run))
	return err
}

// TaskEnd reports how a main task or hook finished.
type TaskEnd struct {
	Name   string
	IsHook bool
	Result flow.ExecutionResult
	Policy flow.ExecutionPolicy
}

func (TaskEnd) MinLevel() Level { return LevelError }

func (a TaskEnd) Render(w io.Writer, level Level) error {
	r := a.Result

	if !r.Aborted && r.ExitCode != 0 {
		msg := fmt.Sprintf("Task %q completed", a.Name)
		if r.Duration != nil {
			msg += fmt.Sprintf(" in %s", r.Duration)
		}
		msg += fmt.Sprintf(" with non-zero exit status: %d. This indicates a failure", r.ExitCode)
		if _, err := fmt.Fprintln(w, color.RedString(msg)); err != nil {
			return err
		}
	}

	if level < LevelDebug {
		return nil
	}

	switch {
	case r.Aborted && !a.IsHook:
		reason := skipReason(a.Policy)
		msg := fmt.Sprintf("Task %q was skipped: %s", a.Name, reason)
		if _, err := fmt.Fprintln(w, color.RedString(msg)); err != nil {
			return err
		}
	case r.IsSuccess():
		msg := fmt.Sprintf("Task %q completed successfully", a.Name)
		if r.Duration != nil {
			msg += fmt.Sprintf(" in %s", r.Duration)
		}
		if _, err := fmt.Fprintln(w, color.GreenString(msg)); err != nil {
			return err
		}
	}
	return nil
}

func skipReason(p flow.ExecutionPolicy) string {
	switch p {
	case flow.NoPriorFailed:
		return "a prior task in this pipeline failed"
	case flow.PriorSuccess:
		return "the previous task did not succeed"
	default:
		return "execution was skipped"
	}
}

// SummaryRow is one main-task result line in the end-of-run Summary.
type SummaryRow struct {
	Number int
	Name   string
	Result flow.ExecutionResult
}

// Summary is emitted once after the flow finishes: a 3-column table of
// every main-task result.
type Summary struct {
	Rows []SummaryRow
}

func (Summary) MinLevel() Level { return LevelError }

func (s Summary) Render(w io.Writer, _ Level) error {
	if _, err := fmt.Fprintln(w, "Task                                                          | Action | Time (s)"); err != nil {
		return err
	}
	for _, row := range s.Rows {
		name := truncateName(row.Name, 60)
		action := actionIcon(row.Number, false, row.Result)
		seconds := 0.0
		if row.Result.Duration != nil {
			seconds = row.Result.Duration.Seconds()
		}
		if _, err := fmt.Fprintf(w, "%-60s | %-6s | %.2f\n", name, action, seconds); err != nil {
			return err
		}
	}
	return nil
}

// actionIcon maps a result to the Summary table's Action column. isHook
// is reserved for future callers (e.g. a report that lists hook rows
// too) — Summary itself only ever emits main-task rows.
func actionIcon(number int, isHook bool, r flow.ExecutionResult) string {
	switch {
	case isHook:
		return "🪝"
	case r.Aborted:
		return "⛔"
	case !r.IsSuccess():
		return "💥"
	default:
		return fmt.Sprintf("%d", number)
	}
}
