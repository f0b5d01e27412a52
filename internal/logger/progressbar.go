package logger

import (
	"fmt"
	"math"
	"strings"
	"sync"
)

// ProgressBar represents an ASCII percentage bar with color support
type ProgressBar struct {
	percent     float64
	width       int
	enableColor bool
	prefix      string
	mu          sync.RWMutex
}

// NewProgressBar creates a new progress bar
func NewProgressBar(width int, enableColor bool) *ProgressBar {
	if width < 1 {
		width = 10
	}
	return &ProgressBar{
		width:       width,
		enableColor: enableColor,
	}
}

// SetPercent sets the completion percentage, clamped to 0-100
func (pb *ProgressBar) SetPercent(percent float64) {
	pb.mu.Lock()
	defer pb.mu.Unlock()

	switch {
	case math.IsNaN(percent), percent < 0:
		percent = 0
	case percent > 100:
		percent = 100
	}
	pb.percent = percent
}

// Percent returns the current completion percentage
func (pb *ProgressBar) Percent() float64 {
	pb.mu.RLock()
	defer pb.mu.RUnlock()
	return pb.percent
}

// SetPrefix sets a custom prefix for the progress bar
func (pb *ProgressBar) SetPrefix(prefix string) {
	pb.mu.Lock()
	defer pb.mu.Unlock()
	pb.prefix = prefix
}

// Render generates the ASCII progress bar string
func (pb *ProgressBar) Render() string {
	pb.mu.RLock()
	defer pb.mu.RUnlock()

	filled := int(pb.percent * float64(pb.width) / 100)
	if filled > pb.width {
		filled = pb.width
	}

	bar := "[" + strings.Repeat("=", filled) + strings.Repeat(" ", pb.width-filled) + "]"
	result := fmt.Sprintf("%s%s %.1f%%", pb.prefix, bar, pb.percent)

	if pb.enableColor && pb.percent < 100 {
		result = fmt.Sprintf("\033[36m%s\033[0m", result) // Cyan for in-progress
	} else if pb.enableColor {
		result = fmt.Sprintf("\033[32m%s\033[0m", result) // Green for complete
	}

	return result
}
