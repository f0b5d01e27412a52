package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/harrison/parallelizer/internal/models"
)

// FileLogger logs planning output to files in the .parallelizer/logs/ directory.
// It creates a timestamped log file per run and maintains a latest.log
// symlink pointing to the most recent run.
// It is thread-safe and supports log level filtering.
type FileLogger struct {
	logDir   string
	runLog   *os.File
	runFile  string
	logLevel string
	mu       sync.Mutex
}

// NewFileLogger creates a new FileLogger that writes to .parallelizer/logs/.
// Uses default log level "info".
func NewFileLogger() (*FileLogger, error) {
	return NewFileLoggerWithDirAndLevel(filepath.Join(".parallelizer", "logs"), "info")
}

// NewFileLoggerWithDir creates a new FileLogger with a custom log directory.
// Uses default log level "info".
func NewFileLoggerWithDir(logDir string) (*FileLogger, error) {
	return NewFileLoggerWithDirAndLevel(logDir, "info")
}

// NewFileLoggerWithDirAndLevel creates a new FileLogger with a custom log directory and log level.
// It creates the log directory if it doesn't exist, opens a timestamped
// run log file, and creates/updates the latest.log symlink.
func NewFileLoggerWithDirAndLevel(logDir string, logLevel string) (*FileLogger, error) {
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	// Generate timestamped filename: run-YYYYMMDD-HHMMSS.log
	ts := time.Now().Format("20060102-150405")
	runFile := filepath.Join(logDir, fmt.Sprintf("run-%s.log", ts))

	file, err := os.OpenFile(runFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to create run log file: %w", err)
	}

	symlinkPath := filepath.Join(logDir, "latest.log")
	if _, err := os.Lstat(symlinkPath); err == nil {
		if err := os.Remove(symlinkPath); err != nil {
			file.Close()
			return nil, fmt.Errorf("failed to remove old symlink: %w", err)
		}
	}
	if err := os.Symlink(filepath.Base(runFile), symlinkPath); err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to create symlink: %w", err)
	}

	fl := &FileLogger{
		logDir:   logDir,
		runLog:   file,
		runFile:  runFile,
		logLevel: normalizeLogLevel(logLevel),
	}

	fl.writeRunLog("=== Parallelizer Run Log ===\n")
	fl.writeRunLog(fmt.Sprintf("Started at: %s\n\n", time.Now().Format(time.RFC3339)))

	return fl, nil
}

// RunFile returns the path of the current run log.
func (fl *FileLogger) RunFile() string {
	return fl.runFile
}

// shouldLog checks if a message at the given level should be logged.
func (fl *FileLogger) shouldLog(messageLevel string) bool {
	return logLevelToInt(messageLevel) >= logLevelToInt(fl.logLevel)
}

// LogTrace logs a trace-level message (most verbose).
func (fl *FileLogger) LogTrace(message string) {
	fl.logWithLevel("TRACE", message)
}

// LogDebug logs a debug-level message.
func (fl *FileLogger) LogDebug(message string) {
	fl.logWithLevel("DEBUG", message)
}

// LogInfo logs an info-level message.
func (fl *FileLogger) LogInfo(message string) {
	fl.logWithLevel("INFO", message)
}

// LogWarn logs a warning-level message.
func (fl *FileLogger) LogWarn(message string) {
	fl.logWithLevel("WARN", message)
}

// LogError logs an error-level message.
func (fl *FileLogger) LogError(message string) {
	fl.logWithLevel("ERROR", message)
}

func (fl *FileLogger) logWithLevel(level string, message string) {
	if !fl.shouldLog(strings.ToLower(level)) {
		return
	}
	fl.writeRunLog(fmt.Sprintf("[%s] [%s] %s\n", timestamp(), level, message))
}

// emitLines writes plain report lines at the given level.
func (fl *FileLogger) emitLines(level string, lines []string) {
	if len(lines) == 0 || !fl.shouldLog(level) {
		return
	}
	ts := timestamp()
	var sb strings.Builder
	for _, line := range lines {
		fmt.Fprintf(&sb, "[%s] %s\n", ts, line)
	}
	fl.writeRunLog(sb.String())
}

// LogGraph logs graph counts at INFO and inferred edges at DEBUG.
func (fl *FileLogger) LogGraph(g *models.DependencyGraph) {
	if g == nil {
		return
	}
	fl.emitLines("info", []string{graphLine(g, nil)})
	fl.emitLines("debug", inferredEdgeLines(g, nil))
}

// LogCriticalPath logs the critical path chain and the speedup verdict.
func (fl *FileLogger) LogCriticalPath(report *models.CriticalPathReport) {
	if report == nil {
		return
	}
	fl.emitLines("info", criticalPathLines(report, nil))
}

// LogBatchPlan logs batches at INFO and every placement decision at DEBUG.
func (fl *FileLogger) LogBatchPlan(plan *models.BatchPlan) {
	if plan == nil {
		return
	}
	fl.emitLines("info", batchLines(plan, nil))
	fl.emitLines("debug", placementLines(plan))
}

// LogContinuation logs what may still be scheduled after failures.
func (fl *FileLogger) LogContinuation(c *models.Continuation) {
	if c == nil {
		return
	}
	fl.emitLines("info", continuationLines(c, nil))
}

// LogConflicts logs every detected conflict. The file keeps full detail
// including descriptions and resolution steps.
func (fl *FileLogger) LogConflicts(report models.ConflictReport) {
	if !fl.shouldLog("info") {
		return
	}
	lines := []string{conflictSummaryLine(report, nil)}
	for i, c := range report.Conflicts {
		lines = append(lines, fmt.Sprintf("  #%d [%s] %s: %s (confidence %.2f)",
			i+1, c.Severity, c.Kind, c.Description, c.Confidence))
		for _, step := range c.Resolution.Steps {
			lines = append(lines, "      - "+step)
		}
	}
	fl.emitLines("info", lines)
}

// LogProgress logs the aggregate progress.
func (fl *FileLogger) LogProgress(summary models.ProgressSummary) {
	pb := NewProgressBar(10, false)
	pb.SetPercent(summary.OverallPercent)
	fl.emitLines("info", progressLines(summary, pb.Render()))
}

// Close flushes and closes the run log file.
func (fl *FileLogger) Close() error {
	fl.mu.Lock()
	defer fl.mu.Unlock()

	if fl.runLog != nil {
		if err := fl.runLog.Sync(); err != nil {
			return fmt.Errorf("failed to sync run log: %w", err)
		}
		if err := fl.runLog.Close(); err != nil {
			return fmt.Errorf("failed to close run log: %w", err)
		}
		fl.runLog = nil
	}

	return nil
}

// writeRunLog is a thread-safe helper to write to the run log file.
func (fl *FileLogger) writeRunLog(message string) {
	fl.mu.Lock()
	defer fl.mu.Unlock()

	if fl.runLog != nil {
		fl.runLog.WriteString(message)
		fl.runLog.Sync()
	}
}
