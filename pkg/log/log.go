// Package log provides the gateway's small logging surface: plain
// line-oriented messages for human-facing progress (in the spirit of
// the teacher's own pkg/log) plus levelled structured logging backed by
// the standard library's log/slog for everything attributed to a
// namespace, provider, or session.
package log

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

var (
	mu        sync.RWMutex
	logWriter io.Writer = os.Stderr
	structured          = slog.New(slog.NewTextHandler(os.Stderr, nil))
)

// SetLogWriter sets the output destination for both Log/Logf and the
// structured logger. Passing nil is a no-op.
func SetLogWriter(w io.Writer) {
	if w == nil {
		return
	}
	mu.Lock()
	defer mu.Unlock()
	logWriter = w
	structured = slog.New(slog.NewTextHandler(w, nil))
}

// Log prints a message to the log output.
func Log(a ...any) {
	mu.RLock()
	w := logWriter
	mu.RUnlock()
	_, _ = fmt.Fprintln(w, a...)
}

// Logf prints a formatted message to the log output.
func Logf(format string, a ...any) {
	if !strings.HasSuffix(format, "\n") {
		format += "\n"
	}
	mu.RLock()
	w := logWriter
	mu.RUnlock()
	_, _ = fmt.Fprintf(w, format, a...)
}

// Info logs a structured informational event attributed to a subsystem.
func Info(subsystem, msg string, args ...any) {
	logger().With("subsystem", subsystem).Info(msg, args...)
}

// Warn logs a structured warning event attributed to a subsystem.
func Warn(subsystem, msg string, args ...any) {
	logger().With("subsystem", subsystem).Warn(msg, args...)
}

// Error logs a structured error event attributed to a subsystem.
func Error(subsystem string, err error, msg string, args ...any) {
	args = append(args, "error", err)
	logger().With("subsystem", subsystem).Error(msg, args...)
}

// Debug logs a structured debug event attributed to a subsystem.
func Debug(subsystem, msg string, args ...any) {
	logger().With("subsystem", subsystem).Debug(msg, args...)
}

func logger() *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return structured
}

// NamespacePrefixer wraps w so every line written to it is prefixed with
// "- <namespace>: ", the same shape the teacher uses to attribute a
// provider's stderr to its namespace.
type NamespacePrefixer struct {
	w         io.Writer
	namespace string
}

// NewNamespacePrefixer returns a writer that prefixes every write with
// the given namespace before forwarding it to w.
func NewNamespacePrefixer(w io.Writer, ns string) *NamespacePrefixer {
	return &NamespacePrefixer{w: w, namespace: ns}
}

func (p *NamespacePrefixer) Write(b []byte) (int, error) {
	lines := strings.Split(strings.TrimRight(string(b), "\n"), "\n")
	for _, line := range lines {
		if line == "" {
			continue
		}
		if _, err := fmt.Fprintf(p.w, "- %s: %s\n", p.namespace, line); err != nil {
			return 0, err
		}
	}
	return len(b), nil
}
