package webruntime

import (
	"sync"

	"github.com/ersinkoc/webruntime/pkg/loader"
)

// ConsoleRecorder is the "external collaborator that receives method +
// arguments" spec §4.11 describes for console capture: executed script
// code's console.log/warn/error/etc. calls are appended here rather than
// written to any real stream, so that execute/runFile can return them to
// the caller as a flat, ordered entry list.
type ConsoleRecorder struct {
	mu      sync.Mutex
	entries []loader.ConsoleEntry
}

// NewConsoleRecorder constructs an empty recorder.
func NewConsoleRecorder() *ConsoleRecorder {
	return &ConsoleRecorder{}
}

// Record appends a console call.
func (c *ConsoleRecorder) Record(level string, args ...interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = append(c.entries, loader.ConsoleEntry{Level: level, Args: args})
}

// Drain returns every recorded entry since the last Drain and clears the
// buffer, so that each Execute call reports only the console activity it
// caused.
func (c *ConsoleRecorder) Drain() []loader.ConsoleEntry {
	c.mu.Lock()
	defer c.mu.Unlock()
	entries := c.entries
	c.entries = nil
	return entries
}
