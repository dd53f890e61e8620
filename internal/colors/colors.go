// Package colors provides styled console output for alertwatch.
package colors

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/charmbracelet/lipgloss"
)

// Styles used for console prefixes and alert levels.
var (
	ErrorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true)
	WarningStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("3")).Bold(true)
	SuccessStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	InfoStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("4"))
	DebugStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	MutedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	CriticalStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true)
)

const checkmark = "✓"

// Logger mirrors console output into the structured log.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

var (
	debugEnabled atomic.Bool

	mu     sync.RWMutex
	stdout io.Writer = os.Stdout
	stderr io.Writer = os.Stderr
	logger Logger
)

func init() {
	if val := os.Getenv("ALERTWATCH_DEBUG"); val == "true" || val == "1" {
		debugEnabled.Store(true)
	}
}

// SetDebug enables or disables debug output.
func SetDebug(enabled bool) {
	debugEnabled.Store(enabled)
}

// SetLogger sets the structured logger that mirrors console output.
func SetLogger(l Logger) {
	mu.Lock()
	defer mu.Unlock()
	logger = l
}

// SetOutput redirects console output. Nil writers restore the process defaults.
func SetOutput(out, errOut io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	if out == nil {
		out = os.Stdout
	}
	if errOut == nil {
		errOut = os.Stderr
	}
	stdout, stderr = out, errOut
}

func sinks() (io.Writer, io.Writer, Logger) {
	mu.RLock()
	defer mu.RUnlock()
	return stdout, stderr, logger
}

func write(w io.Writer, line string) {
	if _, err := fmt.Fprintln(w, line); err != nil {
		// last resort, the console itself is broken
		fmt.Fprintln(os.Stderr, line)
	}
}

// Error outputs an error message to stderr.
func Error(msgs ...string) {
	msg := strings.Join(msgs, " ")
	_, errOut, l := sinks()
	if l != nil {
		l.Error(msg)
	}
	write(errOut, ErrorStyle.Render("Error:")+" "+msg)
}

// Warning outputs a warning message to stderr.
func Warning(msgs ...string) {
	msg := strings.Join(msgs, " ")
	_, errOut, l := sinks()
	if l != nil {
		l.Warn(msg)
	}
	write(errOut, WarningStyle.Render("Warning:")+" "+msg)
}

// Success outputs a success message to stdout.
func Success(msgs ...string) {
	msg := strings.Join(msgs, " ")
	out, _, l := sinks()
	if l != nil {
		l.Info(msg, "type", "success")
	}
	write(out, SuccessStyle.Render(checkmark)+" "+msg)
}

// Info outputs an informational message to stdout.
func Info(msgs ...string) {
	msg := strings.Join(msgs, " ")
	out, _, l := sinks()
	if l != nil {
		l.Info(msg)
	}
	write(out, InfoStyle.Render(msg))
}

// Debug outputs a debug message to stderr if debug is enabled.
func Debug(msgs ...string) {
	if !debugEnabled.Load() {
		return
	}
	msg := strings.Join(msgs, " ")
	_, errOut, l := sinks()
	if l != nil {
		l.Debug(msg)
	}
	write(errOut, DebugStyle.Render("Debug:")+" "+msg)
}

// ForLevel returns the style used for an alert level.
func ForLevel(level string) lipgloss.Style {
	switch level {
	case "critical":
		return CriticalStyle
	case "warning":
		return WarningStyle
	case "info":
		return SuccessStyle
	default:
		return lipgloss.NewStyle()
	}
}
