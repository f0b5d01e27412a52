package display

import (
	"bytes"
	"strings"
	"testing"

	"github.com/harrison/parallelizer/internal/models"
)

func TestWarning_TitleOnly(t *testing.T) {
	var buf bytes.Buffer
	Warning{Title: "Configuration Missing"}.Render(&buf, true)

	output := buf.String()
	if !strings.HasPrefix(output, "\x1b[33m") {
		t.Error("Expected yellow ANSI color code in output")
	}
	if !strings.Contains(output, "⚠️  Warning: Configuration Missing\n") {
		t.Errorf("Expected title in output, got %q", output)
	}
	if !strings.HasSuffix(output, "\x1b[0m") {
		t.Error("Expected ANSI reset code at the end")
	}
}

func TestWarning_AllParts(t *testing.T) {
	var buf bytes.Buffer
	Warning{
		Title:      "Dependency cycle detected",
		Message:    "A -> B -> A",
		Tasks:      []string{"A", "B"},
		Suggestion: "Remove a dependency",
	}.Render(&buf, false)

	want := "⚠️  Warning: Dependency cycle detected\n" +
		"    A -> B -> A\n" +
		"    Affected tasks:\n" +
		"      1. A\n" +
		"      2. B\n" +
		"    Suggestion:\n" +
		"    Remove a dependency\n"
	if got := buf.String(); got != want {
		t.Errorf("Render() =\n%q\nwant\n%q", got, want)
	}
}

func TestWarning_SingleTask(t *testing.T) {
	var buf bytes.Buffer
	Warning{Title: "x", Tasks: []string{"A"}}.Render(&buf, false)

	if !strings.Contains(buf.String(), "Affected task:\n") {
		t.Errorf("expected singular label, got %q", buf.String())
	}
}

func TestWarning_DisplayWithoutTerminal(t *testing.T) {
	var buf bytes.Buffer
	Warning{Title: "plain"}.Display(&buf)

	if strings.Contains(buf.String(), "\x1b[") {
		t.Errorf("non-terminal output must not contain ANSI codes: %q", buf.String())
	}
}

func TestWarnCycle(t *testing.T) {
	if _, ok := WarnCycle(nil); ok {
		t.Error("empty cycle should not warn")
	}

	w, ok := WarnCycle([]string{"A", "B", "A"})
	if !ok || w.Message != "A -> B -> A" {
		t.Errorf("WarnCycle() = %+v, %v", w, ok)
	}
}

func TestWarnNotRecommended(t *testing.T) {
	if _, ok := WarnNotRecommended(nil); ok {
		t.Error("nil report should not warn")
	}
	if _, ok := WarnNotRecommended(&models.CriticalPathReport{Recommendation: models.Recommended}); ok {
		t.Error("recommended plans should not warn")
	}

	w, ok := WarnNotRecommended(&models.CriticalPathReport{
		Recommendation: models.NotRecommended,
		Reason:         "speedup below threshold",
		Speedup:        1.1,
		CriticalPath:   []string{"A", "B"},
	})
	if !ok {
		t.Fatal("expected a warning")
	}
	if w.Message != "speedup below threshold (speedup 1.10x)" {
		t.Errorf("Message = %q", w.Message)
	}
	if len(w.Tasks) != 2 {
		t.Errorf("Tasks = %v, want critical path", w.Tasks)
	}
}

func TestWarnHalted(t *testing.T) {
	if _, ok := WarnHalted(&models.Continuation{}); ok {
		t.Error("clean continuation should not warn")
	}

	w, ok := WarnHalted(&models.Continuation{
		Halted:  true,
		Reason:  "task a failed",
		Blocked: []string{"c"},
		Skipped: []string{"b"},
	})
	if !ok || w.Title != "Scheduling halted" {
		t.Fatalf("WarnHalted() = %+v, %v", w, ok)
	}
	if strings.Join(w.Tasks, ",") != "b,c" {
		t.Errorf("Tasks = %v, want sorted blocked and skipped", w.Tasks)
	}

	w, ok = WarnHalted(&models.Continuation{Blocked: []string{"c"}})
	if !ok || w.Title != "Tasks blocked by failed or cancelled dependencies" {
		t.Errorf("WarnHalted(blocked) = %+v, %v", w, ok)
	}
}

func TestWarnConflicts(t *testing.T) {
	if _, ok := WarnConflicts(&models.ConflictReport{}); ok {
		t.Error("empty report should not warn")
	}
	if _, ok := WarnConflicts(nil); ok {
		t.Error("nil report should not warn")
	}

	w, ok := WarnConflicts(&models.ConflictReport{
		Conflicts: []models.Conflict{
			{Kind: models.ConflictFileLevel, AffectedTasks: []string{"T2", "T1"}},
			{Kind: models.ConflictSemantic, AffectedTasks: []string{"T1", "T3"}},
		},
		FileLevel:    1,
		Semantic:     1,
		HighSeverity: 1,
	})
	if !ok {
		t.Fatal("expected a warning")
	}
	if w.Title != "2 conflicts detected" {
		t.Errorf("Title = %q", w.Title)
	}
	if strings.Join(w.Tasks, ",") != "T1,T2,T3" {
		t.Errorf("Tasks = %v", w.Tasks)
	}
	if !strings.Contains(w.Suggestion, "1 high severity") {
		t.Errorf("Suggestion = %q", w.Suggestion)
	}
}
