// Package log provides context-aware diagnostics for cachemgr.
//
// Diagnostics go to stderr and are suppressed by --quiet; Debug output
// needs --verbose. A persistent zap file log can be attached with
// [Logger.WithFile]; Debug, Info and Warn calls are mirrored to it.
package log

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"go.uber.org/zap"
)

type ctxKey struct{}

// Logger writes diagnostics and optional command traces.
type Logger struct {
	out     io.Writer
	verbose bool
	quiet   bool
	file    *zap.Logger
}

// New creates a new logger.
func New(out io.Writer, verbose, quiet bool) *Logger {
	return &Logger{out: out, verbose: verbose, quiet: quiet}
}

// WithFile returns a copy of l that mirrors to the zap logger z.
func (l *Logger) WithFile(z *zap.Logger) *Logger {
	c := *l
	c.file = z
	return &c
}

// File returns the attached file logger, or a no-op logger.
func (l *Logger) File() *zap.Logger {
	if l.file == nil {
		return zap.NewNop()
	}
	return l.file
}

// WithLogger attaches a logger to the context.
func WithLogger(ctx context.Context, l *Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// FromContext retrieves the logger from context.
// Returns a no-op logger if none is attached.
func FromContext(ctx context.Context) *Logger {
	if l, ok := ctx.Value(ctxKey{}).(*Logger); ok {
		return l
	}
	return &Logger{out: io.Discard}
}

// Printf writes formatted output unless quiet.
func (l *Logger) Printf(format string, args ...any) {
	if l.quiet {
		return
	}
	fmt.Fprintf(l.out, format, args...)
}

// Println writes a line of output unless quiet.
func (l *Logger) Println(args ...any) {
	if l.quiet {
		return
	}
	fmt.Fprintln(l.out, args...)
}

// Warnf prints a "Warning: " line and records it in the file log.
func (l *Logger) Warnf(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	if l.file != nil {
		l.file.Warn(msg)
	}
	l.Printf("Warning: %s\n", msg)
}

// Command logs an external command and returns a func that prints it
// with its duration once it finished. Only active in verbose mode.
func (l *Logger) Command(dir, name string, args ...string) func(time.Duration) {
	if !l.IsVerbose() {
		return func(time.Duration) {}
	}
	line := "$ " + strings.TrimSpace(name+" "+strings.Join(args, " "))
	if dir != "" {
		line = "[" + dir + "] " + line
	}
	return func(d time.Duration) {
		fmt.Fprintf(l.out, "%s (%s)\n", line, d.Round(time.Millisecond))
	}
}

// Debug prints msg with key=value pairs in verbose mode. An odd trailing
// key is dropped.
func (l *Logger) Debug(msg string, keyvals ...any) {
	if l.file != nil {
		l.file.Debug(msg, fields(keyvals)...)
	}
	if !l.IsVerbose() {
		return
	}
	var b strings.Builder
	b.WriteString(msg)
	for i := 0; i+1 < len(keyvals); i += 2 {
		fmt.Fprintf(&b, " %v=%v", keyvals[i], keyvals[i+1])
	}
	fmt.Fprintln(l.out, b.String())
}

// Info records msg in the file log only.
func (l *Logger) Info(msg string, keyvals ...any) {
	if l.file != nil {
		l.file.Info(msg, fields(keyvals)...)
	}
}

// Error records msg in the file log only.
func (l *Logger) Error(msg string, keyvals ...any) {
	if l.file != nil {
		l.file.Error(msg, fields(keyvals)...)
	}
}

func fields(keyvals []any) []zap.Field {
	out := make([]zap.Field, 0, len(keyvals)/2)
	for i := 0; i+1 < len(keyvals); i += 2 {
		out = append(out, zap.Any(fmt.Sprint(keyvals[i]), keyvals[i+1]))
	}
	return out
}

// IsVerbose reports whether verbose output is enabled. Quiet wins.
func (l *Logger) IsVerbose() bool {
	return l.verbose && !l.quiet
}

// IsQuiet reports whether diagnostics are suppressed.
func (l *Logger) IsQuiet() bool {
	return l.quiet
}

// Writer returns the underlying writer.
func (l *Logger) Writer() io.Writer {
	return l.out
}
