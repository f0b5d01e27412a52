package logger

import (
	"github.com/harrison/parallelizer/internal/models"
)

// Logger receives leveled messages and planning reports.
// ConsoleLogger, FileLogger, MultiLogger and NoOpLogger implement it.
type Logger interface {
	LogTrace(message string)
	LogDebug(message string)
	LogInfo(message string)
	LogWarn(message string)
	LogError(message string)

	LogGraph(g *models.DependencyGraph)
	LogCriticalPath(report *models.CriticalPathReport)
	LogBatchPlan(plan *models.BatchPlan)
	LogContinuation(c *models.Continuation)
	LogConflicts(report models.ConflictReport)
	LogProgress(summary models.ProgressSummary)
}

// MultiLogger fans every call out to several loggers in order.
type MultiLogger struct {
	loggers []Logger
}

// NewMultiLogger returns a logger delegating to the non-nil loggers given.
func NewMultiLogger(loggers ...Logger) *MultiLogger {
	ml := &MultiLogger{}
	for _, l := range loggers {
		if l != nil {
			ml.loggers = append(ml.loggers, l)
		}
	}
	return ml
}

func (ml *MultiLogger) LogTrace(message string) {
	for _, l := range ml.loggers {
		l.LogTrace(message)
	}
}

func (ml *MultiLogger) LogDebug(message string) {
	for _, l := range ml.loggers {
		l.LogDebug(message)
	}
}

func (ml *MultiLogger) LogInfo(message string) {
	for _, l := range ml.loggers {
		l.LogInfo(message)
	}
}

func (ml *MultiLogger) LogWarn(message string) {
	for _, l := range ml.loggers {
		l.LogWarn(message)
	}
}

func (ml *MultiLogger) LogError(message string) {
	for _, l := range ml.loggers {
		l.LogError(message)
	}
}

func (ml *MultiLogger) LogGraph(g *models.DependencyGraph) {
	for _, l := range ml.loggers {
		l.LogGraph(g)
	}
}

func (ml *MultiLogger) LogCriticalPath(report *models.CriticalPathReport) {
	for _, l := range ml.loggers {
		l.LogCriticalPath(report)
	}
}

func (ml *MultiLogger) LogBatchPlan(plan *models.BatchPlan) {
	for _, l := range ml.loggers {
		l.LogBatchPlan(plan)
	}
}

func (ml *MultiLogger) LogContinuation(c *models.Continuation) {
	for _, l := range ml.loggers {
		l.LogContinuation(c)
	}
}

func (ml *MultiLogger) LogConflicts(report models.ConflictReport) {
	for _, l := range ml.loggers {
		l.LogConflicts(report)
	}
}

func (ml *MultiLogger) LogProgress(summary models.ProgressSummary) {
	for _, l := range ml.loggers {
		l.LogProgress(summary)
	}
}
