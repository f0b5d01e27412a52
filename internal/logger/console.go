// Package logger provides logging implementations for parallelizer runs.
//
// The logger package offers leveled logging plus one-line renderings of the
// planning reports (dependency graph, critical path, batch plan,
// continuation, conflicts, progress). Implementations are thread-safe and
// support various output destinations (console, file, etc.).
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/harrison/parallelizer/internal/models"
)

// Log level constants for filtering
const (
	levelTrace int = 0
	levelDebug int = 1
	levelInfo  int = 2
	levelWarn  int = 3
	levelError int = 4
)

// ConsoleLogger logs planning output to a writer with timestamps and thread safety.
// All output is prefixed with [HH:MM:SS] timestamps.
// It supports log level filtering to control message verbosity.
// Color output is automatically enabled for terminal output (os.Stdout/os.Stderr).
type ConsoleLogger struct {
	writer      io.Writer
	logLevel    string
	mutex       sync.Mutex
	colorOutput bool
}

// NewConsoleLogger creates a ConsoleLogger that writes to the provided io.Writer.
// If writer is nil, messages are silently discarded.
// Valid levels: trace, debug, info, warn, error (case-insensitive).
// If logLevel is empty or invalid, defaults to "info".
func NewConsoleLogger(writer io.Writer, logLevel string) *ConsoleLogger {
	return &ConsoleLogger{
		writer:      writer,
		logLevel:    normalizeLogLevel(logLevel),
		colorOutput: isTerminal(writer),
	}
}

// isTerminal checks if the writer is a terminal that supports colors.
func isTerminal(w io.Writer) bool {
	if w == nil {
		return false
	}

	if w == os.Stdout || w == os.Stderr {
		// Returns false when NO_COLOR is set or the fd is not a TTY
		return !color.NoColor
	}

	return false
}

// normalizeLogLevel converts a log level string to lowercase and validates it.
// Returns "info" as default for empty or invalid levels.
func normalizeLogLevel(level string) string {
	normalized := strings.ToLower(strings.TrimSpace(level))

	switch normalized {
	case "trace", "debug", "info", "warn", "error":
		return normalized
	default:
		return "info"
	}
}

// shouldLog checks if a message at the given level should be logged.
func (cl *ConsoleLogger) shouldLog(messageLevel string) bool {
	return logLevelToInt(messageLevel) >= logLevelToInt(cl.logLevel)
}

// logLevelToInt converts a log level string to its numeric value.
func logLevelToInt(level string) int {
	switch level {
	case "trace":
		return levelTrace
	case "debug":
		return levelDebug
	case "info":
		return levelInfo
	case "warn":
		return levelWarn
	case "error":
		return levelError
	default:
		return levelInfo
	}
}

// LogTrace logs a trace-level message (most verbose).
// Format: "[HH:MM:SS] [TRACE] <message>"
func (cl *ConsoleLogger) LogTrace(message string) {
	cl.logWithLevel("TRACE", message)
}

// LogDebug logs a debug-level message.
func (cl *ConsoleLogger) LogDebug(message string) {
	cl.logWithLevel("DEBUG", message)
}

// LogInfo logs an info-level message.
func (cl *ConsoleLogger) LogInfo(message string) {
	cl.logWithLevel("INFO", message)
}

// LogWarn logs a warning-level message.
func (cl *ConsoleLogger) LogWarn(message string) {
	cl.logWithLevel("WARN", message)
}

// LogError logs an error-level message.
func (cl *ConsoleLogger) LogError(message string) {
	cl.logWithLevel("ERROR", message)
}

func (cl *ConsoleLogger) logWithLevel(level string, message string) {
	if cl.writer == nil || !cl.shouldLog(strings.ToLower(level)) {
		return
	}

	cl.mutex.Lock()
	defer cl.mutex.Unlock()

	ts := timestamp()
	var formatted string
	if cl.colorOutput {
		formatted = cl.formatWithColor(ts, level, message)
	} else {
		formatted = fmt.Sprintf("[%s] [%s] %s\n", ts, level, message)
	}

	cl.writer.Write([]byte(formatted))
}

// formatWithColor formats a log message with ANSI color codes.
func (cl *ConsoleLogger) formatWithColor(ts, level, message string) string {
	var coloredLevel string

	switch strings.ToUpper(level) {
	case "TRACE":
		coloredLevel = color.New(color.FgHiBlack).Sprint(level)
	case "DEBUG":
		coloredLevel = color.New(color.FgCyan).Sprint(level)
	case "INFO":
		coloredLevel = color.New(color.FgBlue).Sprint(level)
	case "WARN":
		coloredLevel = color.New(color.FgYellow).Sprint(level)
	case "ERROR":
		coloredLevel = color.New(color.FgRed).Sprint(level)
	default:
		coloredLevel = level
	}

	return fmt.Sprintf("[%s] [%s] %s\n", ts, coloredLevel, message)
}

// emit writes pre-rendered lines at the given level, one timestamp per line.
func (cl *ConsoleLogger) emit(level string, lines []string) {
	if cl.writer == nil || len(lines) == 0 || !cl.shouldLog(level) {
		return
	}

	cl.mutex.Lock()
	defer cl.mutex.Unlock()

	ts := timestamp()
	var sb strings.Builder
	for _, line := range lines {
		fmt.Fprintf(&sb, "[%s] %s\n", ts, line)
	}
	cl.writer.Write([]byte(sb.String()))
}

// LogGraph logs node and edge counts at INFO and each inferred edge at DEBUG.
// Format: "[HH:MM:SS] Graph: <n> tasks, <e> edges (<x> explicit, <i> implicit)"
func (cl *ConsoleLogger) LogGraph(g *models.DependencyGraph) {
	if g == nil {
		return
	}
	scheme := cl.scheme()
	cl.emit("info", []string{graphLine(g, scheme)})
	cl.emit("debug", inferredEdgeLines(g, scheme))
}

// LogCriticalPath logs the chain and the speedup verdict at INFO level.
// Format: "[HH:MM:SS] Critical path: A -> B -> C (30m)"
func (cl *ConsoleLogger) LogCriticalPath(report *models.CriticalPathReport) {
	if report == nil {
		return
	}
	cl.emit("info", criticalPathLines(report, cl.scheme()))
}

// LogBatchPlan logs one line per batch at INFO and one line per placement at DEBUG.
// Format: "[HH:MM:SS] Batch 1: A, C (0s-10m)"
func (cl *ConsoleLogger) LogBatchPlan(plan *models.BatchPlan) {
	if plan == nil {
		return
	}
	scheme := cl.scheme()
	cl.emit("info", batchLines(plan, scheme))
	cl.emit("debug", placementLines(plan))
}

// LogContinuation logs the failure handling decision. Halts log at WARN.
func (cl *ConsoleLogger) LogContinuation(c *models.Continuation) {
	if c == nil {
		return
	}
	level := "info"
	if c.Halted || len(c.Blocked) > 0 {
		level = "warn"
	}
	cl.emit(level, continuationLines(c, cl.scheme()))
}

// LogConflicts logs the conflict counts at INFO and each conflict at WARN.
// Format: "[HH:MM:SS] Conflicts: <n> found in <r> results (<h> high severity)"
func (cl *ConsoleLogger) LogConflicts(report models.ConflictReport) {
	scheme := cl.scheme()
	cl.emit("info", []string{conflictSummaryLine(report, scheme)})
	cl.emit("warn", conflictLines(report, scheme))
}

// LogProgress logs the aggregate progress with a bar at INFO level.
// Format: "[HH:MM:SS] Progress: [=====     ] 50.0% (3 agents, simple-average)"
func (cl *ConsoleLogger) LogProgress(summary models.ProgressSummary) {
	pb := NewProgressBar(10, cl.colorOutput)
	pb.SetPercent(summary.OverallPercent)
	cl.emit("info", progressLines(summary, pb.Render()))
}

// scheme returns the color scheme, or nil for plain output.
func (cl *ConsoleLogger) scheme() *colorScheme {
	if !cl.colorOutput {
		return nil
	}
	return newColorScheme()
}

// timestamp returns the current time formatted as "15:04:05" (HH:MM:SS).
func timestamp() string {
	return time.Now().Format("15:04:05")
}

// formatMinutes renders an estimate in minutes as a duration string.
func formatMinutes(minutes float64) string {
	return formatDuration(time.Duration(minutes * float64(time.Minute)))
}

// formatDuration converts a time.Duration to a human-readable string.
// Examples: "5s", "1m30s", "2h15m"
func formatDuration(d time.Duration) string {
	switch {
	case d >= time.Hour:
		hours := d / time.Hour
		remainder := d % time.Hour
		if remainder == 0 {
			return fmt.Sprintf("%dh", hours)
		}
		minutes := remainder / time.Minute
		remainder = remainder % time.Minute
		if remainder == 0 {
			return fmt.Sprintf("%dh%dm", hours, minutes)
		}
		seconds := remainder / time.Second
		return fmt.Sprintf("%dh%dm%ds", hours, minutes, seconds)
	case d >= time.Minute:
		minutes := d / time.Minute
		remainder := d % time.Minute
		if remainder == 0 {
			return fmt.Sprintf("%dm", minutes)
		}
		seconds := remainder / time.Second
		return fmt.Sprintf("%dm%ds", minutes, seconds)
	default:
		return fmt.Sprintf("%ds", int64(d.Seconds()))
	}
}

// NoOpLogger is a Logger implementation that discards all log messages.
// Useful for testing or when logging is disabled.
type NoOpLogger struct{}

// NewNoOpLogger creates a NoOpLogger instance.
func NewNoOpLogger() *NoOpLogger {
	return &NoOpLogger{}
}

func (n *NoOpLogger) LogTrace(message string)                           {}
func (n *NoOpLogger) LogDebug(message string)                           {}
func (n *NoOpLogger) LogInfo(message string)                            {}
func (n *NoOpLogger) LogWarn(message string)                            {}
func (n *NoOpLogger) LogError(message string)                           {}
func (n *NoOpLogger) LogGraph(g *models.DependencyGraph)                {}
func (n *NoOpLogger) LogCriticalPath(report *models.CriticalPathReport) {}
func (n *NoOpLogger) LogBatchPlan(plan *models.BatchPlan)               {}
func (n *NoOpLogger) LogContinuation(c *models.Continuation)            {}
func (n *NoOpLogger) LogConflicts(report models.ConflictReport)         {}
func (n *NoOpLogger) LogProgress(summary models.ProgressSummary)        {}
