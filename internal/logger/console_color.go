package logger

import (
	"fmt"

	"github.com/fatih/color"

	"github.com/harrison/parallelizer/internal/models"
)

// colorScheme defines consistent colors for different metric types.
// Green: success/positive metrics
// Red: failure/error metrics
// Yellow: warning/threshold metrics
// Cyan: labels and identifiers
type colorScheme struct {
	success *color.Color
	fail    *color.Color
	warn    *color.Color
	label   *color.Color
	value   *color.Color
	bold    *color.Color
}

// newColorScheme creates the standard color scheme for metrics.
func newColorScheme() *colorScheme {
	return &colorScheme{
		success: color.New(color.FgGreen),
		fail:    color.New(color.FgRed),
		warn:    color.New(color.FgYellow),
		label:   color.New(color.FgCyan),
		value:   color.New(color.FgWhite),
		bold:    color.New(color.Bold),
	}
}

// paint renders text with c, or plain text when the scheme is nil.
func (s *colorScheme) paint(c func(*colorScheme) *color.Color, text string) string {
	if s == nil {
		return text
	}
	return c(s).Sprint(text)
}

func successColor(s *colorScheme) *color.Color { return s.success }
func failColor(s *colorScheme) *color.Color    { return s.fail }
func warnColor(s *colorScheme) *color.Color    { return s.warn }
func labelColor(s *colorScheme) *color.Color   { return s.label }
func boldColor(s *colorScheme) *color.Color    { return s.bold }

// formatColorizedMetric formats a single metric with colorized label and value.
// Format: "label: value"
func formatColorizedMetric(label string, value interface{}, scheme *colorScheme) string {
	if scheme == nil {
		return fmt.Sprintf("%s: %v", label, value)
	}
	labelColored := scheme.label.Sprint(label)
	valueColored := scheme.value.Sprintf("%v", value)
	return fmt.Sprintf("%s: %s", labelColored, valueColored)
}

// recommendationText colors the verdict green when parallel execution pays off.
func recommendationText(r models.Recommendation, scheme *colorScheme) string {
	if r == models.Recommended {
		return scheme.paint(successColor, string(r))
	}
	return scheme.paint(warnColor, string(r))
}

// severityText colors high severity red, medium yellow and low cyan.
func severityText(s models.Severity, scheme *colorScheme) string {
	switch s {
	case models.SeverityHigh:
		return scheme.paint(failColor, string(s))
	case models.SeverityMedium:
		return scheme.paint(warnColor, string(s))
	default:
		return scheme.paint(labelColor, string(s))
	}
}
