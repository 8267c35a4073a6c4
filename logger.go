package hxrt

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/term"
)

// LogLevel represents the severity of a log message (higher value = higher severity)
type LogLevel int

const (
	LevelTrace  LogLevel = iota // Detailed tracing (requires enabled + category)
	LevelInfo                   // Informational messages (requires enabled + category)
	LevelDebug                  // Development debugging (requires enabled + category)
	LevelNotice                 // Notable events (always shown)
	LevelWarn                   // Warnings (always shown)
	LevelError                  // Runtime errors (always shown)
)

// LogCategory represents the subsystem generating the message
type LogCategory string

const (
	CatNone      LogCategory = ""          // Uncategorized
	CatThread    LogCategory = "thread"    // Thread lifecycle
	CatMessage   LogCategory = "message"   // Mailbox traffic
	CatException LogCategory = "exception" // Throw/catch
	CatEvent     LogCategory = "event"     // Event loop scheduling
	CatSync      LogCategory = "sync"      // Locks, mutexes, conditions, semaphores
	CatMemory    LogCategory = "memory"    // Cells and references
	CatConfig    LogCategory = "config"    // Configuration loading
	CatInspect   LogCategory = "inspect"   // Inspection server
)

// AllCategories lists every category EnableAllCategories turns on
var AllCategories = []LogCategory{
	CatThread, CatMessage, CatException, CatEvent, CatSync, CatMemory, CatConfig, CatInspect,
}

// Log formats accepted by NewLoggerWithWriter
const (
	LogFormatAuto    = "auto"
	LogFormatConsole = "console"
	LogFormatJSON    = "json"
)

// logState is shared between a logger and the per-thread loggers derived from it
type logState struct {
	mu                sync.RWMutex
	enabled           bool
	enabledCategories map[LogCategory]bool
}

// Logger handles logging for the runtime.
// Notice and above are always written; lower levels need debug enabled and
// the message category switched on.
type Logger struct {
	state *logState
	zl    zerolog.Logger
}

// stderrSupportsColor checks if stderr is a terminal that supports color output
func stderrSupportsColor() bool {
	if !term.IsTerminal(int(os.Stderr.Fd())) {
		return false
	}
	// Respect NO_COLOR environment variable (https://no-color.org/)
	if _, exists := os.LookupEnv("NO_COLOR"); exists {
		return false
	}
	if t := os.Getenv("TERM"); t == "dumb" {
		return false
	}
	return true
}

// NewLogger creates a logger writing to stderr, human readable on a terminal
// and JSON otherwise
func NewLogger(enabled bool) *Logger {
	return NewLoggerWithWriter(enabled, os.Stderr, LogFormatAuto)
}

// NewLoggerWithWriter creates a logger writing to w in the given format
func NewLoggerWithWriter(enabled bool, w io.Writer, format string) *Logger {
	out := w
	switch format {
	case LogFormatConsole:
		out = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339, NoColor: !stderrSupportsColor()}
	case LogFormatJSON:
	default:
		if w == os.Stderr && stderrSupportsColor() {
			out = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
		}
	}
	return &Logger{
		state: &logState{
			enabled:           enabled,
			enabledCategories: make(map[LogCategory]bool),
		},
		zl: zerolog.New(out).With().Timestamp().Str("app", "hxrt").Logger(),
	}
}

// WithThread returns a logger that tags every message with the thread id and
// trace id. Category switches are shared with the parent.
func (l *Logger) WithThread(id ThreadID, traceID string) *Logger {
	return &Logger{
		state: l.state,
		zl:    l.zl.With().Int64("thread", int64(id)).Str("trace", traceID).Logger(),
	}
}

// SetEnabled enables or disables debug logging
func (l *Logger) SetEnabled(enabled bool) {
	l.state.mu.Lock()
	defer l.state.mu.Unlock()
	l.state.enabled = enabled
}

// EnableCategory enables debug logging for a specific category
func (l *Logger) EnableCategory(cat LogCategory) {
	l.state.mu.Lock()
	defer l.state.mu.Unlock()
	l.state.enabledCategories[cat] = true
}

// DisableCategory disables debug logging for a specific category
func (l *Logger) DisableCategory(cat LogCategory) {
	l.state.mu.Lock()
	defer l.state.mu.Unlock()
	delete(l.state.enabledCategories, cat)
}

// EnableAllCategories enables all categories for debug logging
func (l *Logger) EnableAllCategories() {
	l.state.mu.Lock()
	defer l.state.mu.Unlock()
	for _, cat := range AllCategories {
		l.state.enabledCategories[cat] = true
	}
}

// IsCategoryEnabled checks if a category is enabled
func (l *Logger) IsCategoryEnabled(cat LogCategory) bool {
	l.state.mu.RLock()
	defer l.state.mu.RUnlock()
	return l.state.enabledCategories[cat]
}

func (l *Logger) shouldLog(level LogLevel, cat LogCategory) bool {
	switch level {
	case LevelError, LevelWarn, LevelNotice:
		return true
	case LevelDebug, LevelInfo, LevelTrace:
		l.state.mu.RLock()
		defer l.state.mu.RUnlock()
		return l.state.enabled && (cat == CatNone || l.state.enabledCategories[cat])
	default:
		return false
	}
}

// Log is the unified logging method
func (l *Logger) Log(level LogLevel, cat LogCategory, message string) {
	if l == nil || !l.shouldLog(level, cat) {
		return
	}

	var ev *zerolog.Event
	switch level {
	case LevelTrace:
		// zerolog's default global level drops Trace
		ev = l.zl.Debug().Bool("trace", true)
	case LevelInfo:
		ev = l.zl.Info()
	case LevelDebug:
		ev = l.zl.Debug()
	case LevelNotice:
		ev = l.zl.Info().Bool("notice", true)
	case LevelWarn:
		ev = l.zl.Warn()
	default:
		ev = l.zl.Error()
	}
	if cat != CatNone {
		ev = ev.Str("category", string(cat))
	}
	ev.Msg(message)
}

// Error logs an uncategorized error
func (l *Logger) Error(format string, args ...interface{}) {
	l.Log(LevelError, CatNone, fmt.Sprintf(format, args...))
}

// ErrorCat logs an error in a category
func (l *Logger) ErrorCat(cat LogCategory, format string, args ...interface{}) {
	l.Log(LevelError, cat, fmt.Sprintf(format, args...))
}

// WarnCat logs a warning in a category
func (l *Logger) WarnCat(cat LogCategory, format string, args ...interface{}) {
	l.Log(LevelWarn, cat, fmt.Sprintf(format, args...))
}

// NoticeCat logs a notice in a category
func (l *Logger) NoticeCat(cat LogCategory, format string, args ...interface{}) {
	l.Log(LevelNotice, cat, fmt.Sprintf(format, args...))
}

// DebugCat logs a debug message in a category
func (l *Logger) DebugCat(cat LogCategory, format string, args ...interface{}) {
	l.Log(LevelDebug, cat, fmt.Sprintf(format, args...))
}

// InfoCat logs an informational message in a category
func (l *Logger) InfoCat(cat LogCategory, format string, args ...interface{}) {
	l.Log(LevelInfo, cat, fmt.Sprintf(format, args...))
}

// TraceCat logs a trace message in a category
func (l *Logger) TraceCat(cat LogCategory, format string, args ...interface{}) {
	l.Log(LevelTrace, cat, fmt.Sprintf(format, args...))
}
