// Package logging provides the levelled, file-backed logger shared by every
// swarmville component.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fatih/color"
)

// Level orders log messages by severity.
type Level int32

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// String returns the lowercase level name.
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "debug"
	case LevelInfo:
		return "info"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	default:
		return fmt.Sprintf("level(%d)", int32(l))
	}
}

// ParseLevel converts a config string into a Level.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug, nil
	case "", "info":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	default:
		return LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
}

var levelTags = map[Level]string{
	LevelDebug: "DEBUG",
	LevelInfo:  "INFO ",
	LevelWarn:  "WARN ",
	LevelError: "ERROR",
}

var levelColors = map[Level]*color.Color{
	LevelDebug: color.New(color.FgHiBlack),
	LevelInfo:  color.New(color.FgCyan),
	LevelWarn:  color.New(color.FgYellow),
	LevelError: color.New(color.FgRed, color.Bold),
}

// sink is shared by a root logger and every logger derived from it.
type sink struct {
	mu      sync.Mutex
	file    *os.File
	out     io.Writer
	console io.Writer
	level   atomic.Int32
}

// Logger writes timestamped lines to a file, an io.Writer, and optionally a
// coloured console. A nil *Logger is valid and discards everything.
type Logger struct {
	sink      *sink
	component string
}

// Options configures New.
type Options struct {
	// Path is the log file. Empty disables file output.
	Path string
	// Level is the minimum level written.
	Level Level
	// Console mirrors log lines to stderr with coloured level tags.
	Console bool
}

// New creates a logger writing to opts.Path.
// Creates parent directories if they don't exist.
func New(opts Options) (*Logger, error) {
	s := &sink{}
	s.level.Store(int32(opts.Level))

	if opts.Path != "" {
		if err := os.MkdirAll(filepath.Dir(opts.Path), 0755); err != nil {
			return nil, fmt.Errorf("create log directory: %w", err)
		}
		f, err := os.OpenFile(opts.Path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		s.file = f
		s.out = f
	}
	if opts.Console {
		s.console = color.Error
	}

	l := &Logger{sink: s}
	l.Info("=== swarmville log started at %s ===", time.Now().Format(time.RFC3339))
	return l, nil
}

// NewWriter creates a logger that writes plain lines to w.
func NewWriter(w io.Writer, level Level) *Logger {
	s := &sink{out: w}
	s.level.Store(int32(level))
	return &Logger{sink: s}
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	return &Logger{}
}

// With returns a logger that tags every line with component.
func (l *Logger) With(component string) *Logger {
	if l == nil {
		return nil
	}
	if l.component != "" {
		component = l.component + "." + component
	}
	return &Logger{sink: l.sink, component: component}
}

// SetLevel changes the minimum level for this logger and all loggers
// derived from the same root.
func (l *Logger) SetLevel(level Level) {
	if l == nil || l.sink == nil {
		return
	}
	l.sink.level.Store(int32(level))
}

// Level returns the current minimum level.
func (l *Logger) Level() Level {
	if l == nil || l.sink == nil {
		return LevelError
	}
	return Level(l.sink.level.Load())
}

// Enabled reports whether a message at level would be written.
func (l *Logger) Enabled(level Level) bool {
	if l == nil || l.sink == nil {
		return false
	}
	if l.sink.out == nil && l.sink.console == nil {
		return false
	}
	return level >= l.Level()
}

func (l *Logger) Debug(format string, args ...interface{}) { l.logf(LevelDebug, format, args...) }
func (l *Logger) Info(format string, args ...interface{})  { l.logf(LevelInfo, format, args...) }
func (l *Logger) Warn(format string, args ...interface{})  { l.logf(LevelWarn, format, args...) }
func (l *Logger) Error(format string, args ...interface{}) { l.logf(LevelError, format, args...) }

// Log writes an info-level message.
func (l *Logger) Log(format string, args ...interface{}) {
	l.logf(LevelInfo, format, args...)
}

func (l *Logger) logf(level Level, format string, args ...interface{}) {
	if !l.Enabled(level) {
		return
	}

	msg := fmt.Sprintf(format, args...)
	if l.component != "" {
		msg = l.component + ": " + msg
	}
	timestamp := time.Now().Format("15:04:05.000")

	s := l.sink
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.out != nil {
		fmt.Fprintf(s.out, "[%s] %s %s\n", timestamp, levelTags[level], msg)
		if s.file != nil {
			s.file.Sync()
		}
	}
	if s.console != nil {
		fmt.Fprintf(s.console, "[%s] %s %s\n", timestamp, levelColors[level].Sprint(levelTags[level]), msg)
	}
}

// Close closes the log file.
// Safe to call on nil logger or logger without file.
func (l *Logger) Close() error {
	if l == nil || l.sink == nil || l.sink.file == nil {
		return nil
	}

	l.sink.mu.Lock()
	defer l.sink.mu.Unlock()

	err := l.sink.file.Close()
	l.sink.file = nil
	l.sink.out = nil
	return err
}
