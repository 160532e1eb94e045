// Package log writes leveled, categorised key=value lines for conceptual.
// Nothing is written until Setup installs a sink; --debug sends entries to
// a file and -v/-vv send them to stderr.
package log

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Level is the severity of an entry.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

var levelNames = [...]string{"DEBUG", "INFO", "WARN", "ERROR"}

func (l Level) String() string {
	if l < 0 || int(l) >= len(levelNames) {
		return "UNKNOWN"
	}
	return levelNames[l]
}

// Category names the pipeline stage an entry comes from.
type Category string

const (
	CatConfig    Category = "config"
	CatParser    Category = "parser"
	CatScan      Category = "scan"
	CatReconcile Category = "reconcile"
	CatValidate  Category = "validate"
	CatDiff      Category = "diff"
	CatGit       Category = "git"
	CatCache     Category = "cache"
	CatWatcher   Category = "watcher"
	CatDB        Category = "db"
	CatUI        Category = "ui"
)

// Options selects the sink installed by Setup.
type Options struct {
	// Path, when set, is opened for appending and takes precedence over Writer.
	Path   string
	Writer io.Writer
	Level  Level
}

type sink struct {
	mu    sync.Mutex
	w     io.Writer
	level Level
	now   func() time.Time
}

var current atomic.Pointer[sink]

// Setup replaces the active sink. The returned func closes the log file
// opened for opts.Path, if any, and detaches the sink.
func Setup(opts Options) (func(), error) {
	s := &sink{w: opts.Writer, level: opts.Level, now: time.Now}
	var f *os.File
	if opts.Path != "" {
		var err error
		f, err = os.OpenFile(opts.Path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644) //nolint:gosec // G304: user-chosen debug log path
		if err != nil {
			return nil, fmt.Errorf("opening log file: %w", err)
		}
		s.w = f
	}
	if s.w == nil {
		return nil, fmt.Errorf("log setup needs a path or a writer")
	}
	current.Store(s)

	return func() {
		current.CompareAndSwap(s, nil)
		if f != nil {
			_ = f.Close()
		}
	}, nil
}

// Disable drops the active sink.
func Disable() { current.Store(nil) }

// Debug logs at debug level.
func Debug(cat Category, msg string, fields ...any) { write(LevelDebug, cat, msg, fields) }

// Info logs at info level.
func Info(cat Category, msg string, fields ...any) { write(LevelInfo, cat, msg, fields) }

// Warn logs at warn level.
func Warn(cat Category, msg string, fields ...any) { write(LevelWarn, cat, msg, fields) }

// Error logs at error level.
func Error(cat Category, msg string, fields ...any) { write(LevelError, cat, msg, fields) }

// Err logs at error level with err appended as the "error" field.
func Err(cat Category, msg string, err error, fields ...any) {
	var text any = "<nil>"
	if err != nil {
		text = err.Error()
	}
	write(LevelError, cat, msg, append(fields, "error", text))
}

// 2026-01-02T15:04:05 [WARN] [scan] Skipping schema file path="models/a b.yml"
func write(level Level, cat Category, msg string, fields []any) {
	s := current.Load()
	if s == nil || level < s.level {
		return
	}

	var b strings.Builder
	b.WriteString(s.now().Format("2006-01-02T15:04:05"))
	fmt.Fprintf(&b, " [%s] [%s] %s", level, cat, msg)
	for i := 0; i < len(fields); i += 2 {
		b.WriteByte(' ')
		b.WriteString(fmt.Sprint(fields[i]))
		b.WriteByte('=')
		if i+1 == len(fields) {
			b.WriteString("<missing>")
			break
		}
		b.WriteString(formatValue(fields[i+1]))
	}
	b.WriteByte('\n')

	s.mu.Lock()
	defer s.mu.Unlock()
	_, _ = io.WriteString(s.w, b.String())
}

// formatValue quotes values that would otherwise break key=value parsing.
func formatValue(v any) string {
	if err, ok := v.(error); ok {
		v = err.Error()
	}
	text := fmt.Sprint(v)
	if text == "" || strings.ContainsAny(text, " \t\n\"=") {
		return strconv.Quote(text)
	}
	return text
}
