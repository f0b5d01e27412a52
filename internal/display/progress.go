package display

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/fatih/color"
)

// ProgressIndicator shows which file of a split task list is being loaded
type ProgressIndicator struct {
	writer     io.Writer
	totalFiles int
	current    int
	color      bool
}

// NewProgressIndicator creates a new progress indicator. Colors follow
// ColorEnabled for w.
func NewProgressIndicator(w io.Writer, total int) *ProgressIndicator {
	return &ProgressIndicator{
		writer:     w,
		totalFiles: total,
		color:      ColorEnabled(w),
	}
}

// SetColor overrides terminal detection.
func (p *ProgressIndicator) SetColor(enabled bool) {
	p.color = enabled
}

// Start displays the header message
func (p *ProgressIndicator) Start() {
	fmt.Fprintf(p.writer, "Loading task files:\n")
}

// Step displays progress for the next file: [N/Total] filename (cyan)
func (p *ProgressIndicator) Step(filename string) {
	p.current++
	line := fmt.Sprintf("  [%d/%d] %s", p.current, p.totalFiles, filepath.Base(filename))
	fmt.Fprintln(p.writer, newColor(p.color, color.FgCyan).Sprint(line))
}

// Complete displays success message with green checkmark
func (p *ProgressIndicator) Complete() {
	check := newColor(p.color, color.FgGreen).Sprint("✓")
	fmt.Fprintf(p.writer, "%s Loaded %d task files\n", check, p.totalFiles)
}

// DisplaySingleFile shows simple loading message for single file
func DisplaySingleFile(w io.Writer, filename string) {
	fmt.Fprintf(w, "Loading tasks from %s...\n", filename)
}
