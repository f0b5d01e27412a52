package display

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/fatih/color"

	"github.com/harrison/parallelizer/internal/models"
)

// Warning represents a user-facing warning message
type Warning struct {
	Title      string   // Main warning title
	Message    string   // Detailed explanation (optional)
	Tasks      []string // Related task ids (optional)
	Suggestion string   // Action to take (optional)
}

// Display writes the warning to out, in yellow when out is a terminal
func (w Warning) Display(out io.Writer) {
	w.Render(out, ColorEnabled(out))
}

// Render writes the warning with colors forced on or off
func (w Warning) Render(out io.Writer, enableColor bool) {
	var b strings.Builder

	b.WriteString("⚠️  Warning: ")
	b.WriteString(w.Title)
	b.WriteString("\n")

	if w.Message != "" {
		b.WriteString("    ")
		b.WriteString(w.Message)
		b.WriteString("\n")
	}

	if len(w.Tasks) > 0 {
		if len(w.Tasks) == 1 {
			b.WriteString("    Affected task:\n")
		} else {
			b.WriteString("    Affected tasks:\n")
		}
		for i, id := range w.Tasks {
			fmt.Fprintf(&b, "      %d. %s\n", i+1, id)
		}
	}

	if w.Suggestion != "" {
		b.WriteString("    Suggestion:\n")
		b.WriteString("    ")
		b.WriteString(w.Suggestion)
		b.WriteString("\n")
	}

	fmt.Fprint(out, newColor(enableColor, color.FgYellow).Sprint(b.String()))
}

// WarnCycle describes a dependency cycle. ok is false when cycle is empty.
func WarnCycle(cycle []string) (Warning, bool) {
	if len(cycle) == 0 {
		return Warning{}, false
	}
	return Warning{
		Title:      "Dependency cycle detected",
		Message:    strings.Join(cycle, " -> "),
		Suggestion: "Remove one dependency in the cycle; analysis and batching need an acyclic graph",
	}, true
}

// WarnNotRecommended explains a no-go verdict. ok is false when parallel
// execution is recommended.
func WarnNotRecommended(report *models.CriticalPathReport) (Warning, bool) {
	if report == nil || report.Recommendation != models.NotRecommended {
		return Warning{}, false
	}
	return Warning{
		Title:      "Parallel execution not recommended",
		Message:    fmt.Sprintf("%s (speedup %.2fx)", report.Reason, report.Speedup),
		Tasks:      report.CriticalPath,
		Suggestion: "Run the tasks sequentially or split the critical path into smaller tasks",
	}, true
}

// WarnHalted reports tasks that will not run after failures or
// cancellations. ok is false when nothing was held back.
func WarnHalted(c *models.Continuation) (Warning, bool) {
	if c == nil || (!c.Halted && len(c.Blocked) == 0) {
		return Warning{}, false
	}

	title := "Tasks blocked by failed or cancelled dependencies"
	if c.Halted {
		title = "Scheduling halted"
	}

	held := append(append([]string{}, c.Blocked...), c.Skipped...)
	sort.Strings(held)
	return Warning{
		Title:      title,
		Message:    c.Reason,
		Tasks:      held,
		Suggestion: "Fix the failed tasks and re-plan the remaining work",
	}, true
}

// WarnConflicts summarizes a conflict report. ok is false when it is clean.
func WarnConflicts(report *models.ConflictReport) (Warning, bool) {
	if report == nil || !report.HasConflicts() {
		return Warning{}, false
	}

	seen := make(map[string]bool)
	var tasks []string
	for _, c := range report.Conflicts {
		for _, id := range c.AffectedTasks {
			if !seen[id] {
				seen[id] = true
				tasks = append(tasks, id)
			}
		}
	}
	sort.Strings(tasks)

	suggestion := "Review the listed resolutions before merging agent work"
	if report.HighSeverity > 0 {
		suggestion = fmt.Sprintf("Resolve the %d high severity conflicts before merging agent work", report.HighSeverity)
	}
	return Warning{
		Title:      fmt.Sprintf("%d conflicts detected", len(report.Conflicts)),
		Message:    fmt.Sprintf("%d file-level, %d dependency-violation, %d semantic", report.FileLevel, report.DependencyViolation, report.Semantic),
		Tasks:      tasks,
		Suggestion: suggestion,
	}, true
}
