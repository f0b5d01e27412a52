package display

import (
	"bytes"
	"strings"
	"testing"
)

func TestNewProgressIndicator(t *testing.T) {
	var buf bytes.Buffer
	pi := NewProgressIndicator(&buf, 3)

	if pi == nil {
		t.Fatal("NewProgressIndicator() returned nil")
	}
	if pi.totalFiles != 3 || pi.current != 0 {
		t.Errorf("indicator = %+v", pi)
	}
	if pi.color {
		t.Error("color should be disabled for a non-terminal writer")
	}
}

func TestProgressIndicator_Sequence(t *testing.T) {
	var buf bytes.Buffer
	pi := NewProgressIndicator(&buf, 2)

	pi.Start()
	pi.Step("/plans/1-setup.md")
	pi.Step("/plans/2-api.yaml")
	pi.Complete()

	want := "Loading task files:\n" +
		"  [1/2] 1-setup.md\n" +
		"  [2/2] 2-api.yaml\n" +
		"✓ Loaded 2 task files\n"
	if got := buf.String(); got != want {
		t.Errorf("output =\n%q\nwant\n%q", got, want)
	}
}

func TestProgressIndicator_Color(t *testing.T) {
	var buf bytes.Buffer
	pi := NewProgressIndicator(&buf, 1)
	pi.SetColor(true)

	pi.Step("1-setup.md")
	pi.Complete()

	output := buf.String()
	if !strings.Contains(output, "\x1b[36m  [1/1] 1-setup.md\x1b[0m") {
		t.Errorf("expected cyan step line, got %q", output)
	}
	if !strings.Contains(output, "\x1b[32m✓\x1b[0m Loaded 1 task files") {
		t.Errorf("expected green checkmark, got %q", output)
	}
}

func TestDisplaySingleFile(t *testing.T) {
	var buf bytes.Buffer
	DisplaySingleFile(&buf, "tasks.md")

	if got := buf.String(); got != "Loading tasks from tasks.md...\n" {
		t.Errorf("DisplaySingleFile() = %q", got)
	}
}

func TestColorEnabled_NonTerminal(t *testing.T) {
	if ColorEnabled(&bytes.Buffer{}) {
		t.Error("buffers are never terminals")
	}

	t.Setenv("NO_COLOR", "1")
	if ColorEnabled(&bytes.Buffer{}) {
		t.Error("NO_COLOR must disable colors")
	}
}
