package logger

import (
	"fmt"
	"sync"

	"github.com/harrison/flowctl/internal/output"
)

// Logger owns the configured LogLevel and the handler list a step's
// MultiOutput is rebuilt from on every Switch. It is not safe for
// concurrent use from more than one goroutine; the executor drives it
// from a single loop.
type Logger struct {
	mu       sync.Mutex
	level    Level
	handlers []output.Handler
	current  *output.MultiOutput
}

// New builds a Logger at the given verbosity, configured with handlers.
func New(level Level, handlers []output.Handler) *Logger {
	return &Logger{level: level, handlers: handlers}
}

// Level reports the Logger's configured verbosity.
func (l *Logger) Level() Level {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.level
}

// Switch rebuilds the active MultiOutput from the handler list and the
// given step context, closing (flushing) whatever was active before.
func (l *Logger) Switch(ctx output.Context) error {
	spec, err := output.FromConfig(l.handlers, ctx)
	if err != nil {
		return fmt.Errorf("derive logging spec: %w", err)
	}
	next, err := output.Build(spec)
	if err != nil {
		return fmt.Errorf("build output sinks: %w", err)
	}

	l.mu.Lock()
	prev := l.current
	l.current = next
	l.mu.Unlock()

	if prev != nil {
		return prev.Close()
	}
	return nil
}

// Output returns the currently active MultiOutput, or nil if Switch has
// never been called. The Shell handler drains child process pipes
// directly into this so stdout/stderr chunks interleave with the
// logger's other action output in program order.
func (l *Logger) Output() *output.MultiOutput {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.current
}

// Close flushes and closes whatever MultiOutput is currently active.
func (l *Logger) Close() error {
	l.mu.Lock()
	cur := l.current
	l.current = nil
	l.mu.Unlock()
	if cur == nil {
		return nil
	}
	return cur.Close()
}

// LogAction renders a through the active MultiOutput iff the Logger's
// level is permissive enough for a's minimum.
func (l *Logger) LogAction(a Action) error {
	l.mu.Lock()
	lvl := l.level
	out := l.current
	l.mu.Unlock()

	if lvl < a.MinLevel() {
		return nil
	}
	if out == nil {
		return nil
	}
	return a.Render(out, lvl)
}
