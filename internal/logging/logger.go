// Package logging provides categorized logging for the agent core.
// Each subsystem logs under its own named category so a single session
// transcript can be filtered down to the loop, the LLM transport, or the
// world adapter when debugging a misbehaving chain.
package logging

import (
	"sync"

	"go.uber.org/zap"
)

// Category represents a log category/subsystem.
type Category string

const (
	// CategorySession covers the dispatch loop and stimulus handling.
	CategorySession Category = "session"

	// CategoryPerception covers LLM API calls.
	CategoryPerception Category = "perception"

	// CategoryTools covers registry resolution and tool execution.
	CategoryTools Category = "tools"

	// CategoryWorld covers the world adapter (bridge or sim).
	CategoryWorld Category = "world"
)

var (
	mu      sync.RWMutex
	root    = zap.NewNop()
	loggers = make(map[Category]*zap.SugaredLogger)
)

// Init installs the process logger. Called once at startup from cmd;
// before Init everything logs to a no-op logger, which keeps library
// use and tests quiet by default.
func Init(logger *zap.Logger) {
	mu.Lock()
	defer mu.Unlock()
	root = logger
	loggers = make(map[Category]*zap.SugaredLogger)
}

// Get returns (or creates) the logger for the given category.
func Get(category Category) *zap.SugaredLogger {
	mu.RLock()
	if l, ok := loggers[category]; ok {
		mu.RUnlock()
		return l
	}
	mu.RUnlock()

	mu.Lock()
	defer mu.Unlock()
	if l, ok := loggers[category]; ok {
		return l
	}
	l := root.Named(string(category)).WithOptions(zap.AddCallerSkip(1)).Sugar()
	loggers[category] = l
	return l
}

// Session logs an info message in the session category.
func Session(format string, args ...interface{}) {
	Get(CategorySession).Infof(format, args...)
}

// SessionDebug logs a debug message in the session category.
func SessionDebug(format string, args ...interface{}) {
	Get(CategorySession).Debugf(format, args...)
}

// SessionWarn logs a warning in the session category.
func SessionWarn(format string, args ...interface{}) {
	Get(CategorySession).Warnf(format, args...)
}

// SessionError logs an error in the session category.
func SessionError(format string, args ...interface{}) {
	Get(CategorySession).Errorf(format, args...)
}

// Perception logs an info message in the perception category.
func Perception(format string, args ...interface{}) {
	Get(CategoryPerception).Infof(format, args...)
}

// PerceptionDebug logs a debug message in the perception category.
func PerceptionDebug(format string, args ...interface{}) {
	Get(CategoryPerception).Debugf(format, args...)
}

// PerceptionError logs an error in the perception category.
func PerceptionError(format string, args ...interface{}) {
	Get(CategoryPerception).Errorf(format, args...)
}

// Tools logs an info message in the tools category.
func Tools(format string, args ...interface{}) {
	Get(CategoryTools).Infof(format, args...)
}

// ToolsDebug logs a debug message in the tools category.
func ToolsDebug(format string, args ...interface{}) {
	Get(CategoryTools).Debugf(format, args...)
}

// World logs an info message in the world category.
func World(format string, args ...interface{}) {
	Get(CategoryWorld).Infof(format, args...)
}

// WorldDebug logs a debug message in the world category.
func WorldDebug(format string, args ...interface{}) {
	Get(CategoryWorld).Debugf(format, args...)
}

// WorldError logs an error in the world category.
func WorldError(format string, args ...interface{}) {
	Get(CategoryWorld).Errorf(format, args...)
}
