package output

import "sync"

// Route is one (Accept, Sink) pair inside a MultiOutput.
type Route struct {
	Accept Accept
	Sink   Sink
}

// MultiOutput is the routing fabric a Logger rebuilds on every step: a
// list of accept/sink pairs, where writing to a logical stream fans out
// to every sink whose acceptance matches. The mutex serializes writes
// from the two pipe-drain goroutines; it exists to keep individual
// chunks whole across shared sinks, not for any cross-step sharing.
type MultiOutput struct {
	mu     sync.Mutex
	routes []Route
}

// New builds a MultiOutput from a list of (accept, sink) pairs.
func New(routes ...Route) *MultiOutput {
	return &MultiOutput{routes: routes}
}

// Add appends one more (accept, sink) route.
func (m *MultiOutput) Add(accept Accept, sink Sink) {
	m.routes = append(m.routes, Route{Accept: accept, Sink: sink})
}

// WriteStream fans a chunk tagged with the given logical stream out to
// every matching sink, in route order. The returned count is the largest
// reported by any matching sink. The first error from a matching sink is
// returned immediately; sinks after it in route order are not written to
// for this call.
func (m *MultiOutput) WriteStream(stream Stream, p []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for _, r := range m.routes {
		if !r.Accept.IsCompatible(stream) {
			continue
		}
		written, err := r.Sink.Write(p)
		if err != nil {
			return n, err
		}
		if written > n {
			n = written
		}
	}
	return n, nil
}

// FlushStream flushes every sink whose acceptance matches the stream.
func (m *MultiOutput) FlushStream(stream Stream) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, r := range m.routes {
		if !r.Accept.IsCompatible(stream) {
			continue
		}
		if err := r.Sink.Flush(); err != nil {
			return err
		}
	}
	return nil
}

// Write is an alias for WriteStream(Stdout, p), matching the default
// io.Writer shape the Logger's action rendering uses.
func (m *MultiOutput) Write(p []byte) (int, error) { return m.WriteStream(Stdout, p) }

// Flush is an alias for FlushStream(Stdout).
func (m *MultiOutput) Flush() error { return m.FlushStream(Stdout) }

// Close flushes and closes every sink exactly once, even if a sink
// appears under more than one route (e.g. a Console handler's single
// Stdout-backed sink accepting Both). Errors are collected; the first one
// is returned after every sink has had a chance to close.
func (m *MultiOutput) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	seen := make(map[Sink]bool)
	var firstErr error
	for _, r := range m.routes {
		if seen[r.Sink] {
			continue
		}
		seen[r.Sink] = true
		if err := r.Sink.Flush(); err != nil && firstErr == nil {
			firstErr = err
		}
		if err := r.Sink.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
