// Package logging provides the formatted logger shared by the CLI, the MCP server
// and the Brightspace request pipeline.
package logging

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/fatih/color"
)

var (
	infoLabel    = color.New(color.FgCyan)
	successLabel = color.New(color.FgGreen, color.Bold)
	warningLabel = color.New(color.FgYellow)
	errorLabel   = color.New(color.FgRed, color.Bold)
	debugLabel   = color.New(color.FgHiBlack)
	traceLabel   = color.New(color.FgMagenta)
)

// Logger writes human readable, optionally coloured log lines.
//
// All methods are safe to call on a nil *Logger, which discards output.
type Logger struct {
	mu          sync.Mutex
	verbose     bool
	useColor    bool
	jsonRPCMode bool
	writer      io.Writer
}

// NewLogger creates a logger writing to stderr. Stdout is reserved for the
// MCP stdio transport.
func NewLogger(verbose, useColor, jsonRPCMode bool) *Logger {
	return NewLoggerWithWriter(verbose, useColor, jsonRPCMode, os.Stderr)
}

// NewLoggerWithWriter creates a logger writing to w.
func NewLoggerWithWriter(verbose, useColor, jsonRPCMode bool, w io.Writer) *Logger {
	return &Logger{
		verbose:     verbose,
		useColor:    useColor,
		jsonRPCMode: jsonRPCMode,
		writer:      w,
	}
}

// SetVerbose toggles debug and verbose output.
func (l *Logger) SetVerbose(verbose bool) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.verbose = verbose
}

// Verbose reports whether verbose output is enabled.
func (l *Logger) Verbose() bool {
	if l == nil {
		return false
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.verbose
}

// SetWriter redirects all subsequent output to w.
func (l *Logger) SetWriter(w io.Writer) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.writer = w
}

// Info logs an informational message.
func (l *Logger) Info(format string, args ...interface{}) {
	l.write(infoLabel, "INFO", format, args...)
}

// InfoVerbose logs an informational message only in verbose mode.
func (l *Logger) InfoVerbose(format string, args ...interface{}) {
	if !l.Verbose() {
		return
	}
	l.Info(format, args...)
}

// Success logs a success message.
func (l *Logger) Success(format string, args ...interface{}) {
	l.write(successLabel, "OK", format, args...)
}

// Warning logs a warning.
func (l *Logger) Warning(format string, args ...interface{}) {
	l.write(warningLabel, "WARN", format, args...)
}

// WarningVerbose logs a warning only in verbose mode.
func (l *Logger) WarningVerbose(format string, args ...interface{}) {
	if !l.Verbose() {
		return
	}
	l.Warning(format, args...)
}

// Error logs an error.
func (l *Logger) Error(format string, args ...interface{}) {
	l.write(errorLabel, "ERROR", format, args...)
}

// Debug logs a message only in verbose mode.
func (l *Logger) Debug(format string, args ...interface{}) {
	if !l.Verbose() {
		return
	}
	l.write(debugLabel, "DEBUG", format, args...)
}

// Request traces an outgoing call when JSON-RPC logging is enabled.
func (l *Logger) Request(method string, params interface{}) {
	if l == nil || !l.jsonRPCMode {
		return
	}
	l.write(traceLabel, "→", "%s %s", method, compactJSON(params))
}

// Response traces the result of a call when JSON-RPC logging is enabled.
func (l *Logger) Response(method string, result interface{}) {
	if l == nil || !l.jsonRPCMode {
		return
	}
	l.write(traceLabel, "←", "%s %s", method, compactJSON(result))
}

func (l *Logger) write(label *color.Color, level, format string, args ...interface{}) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.writer == nil {
		return
	}

	msg := fmt.Sprintf(format, args...)
	ts := time.Now().Format("15:04:05")
	tag := fmt.Sprintf("[%s]", level)
	if l.useColor {
		tag = label.Sprint(tag)
	}
	fmt.Fprintf(l.writer, "%s %s %s\n", ts, tag, msg)
}

func compactJSON(v interface{}) string {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}

// PrettyJSON renders v as indented JSON, falling back to %v.
func PrettyJSON(v interface{}) string {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}
