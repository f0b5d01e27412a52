package logger

import (
	"math"
	"strings"
	"sync"
	"testing"
)

// TestProgressBarRender verifies correct ASCII bar rendering
func TestProgressBarRender(t *testing.T) {
	tests := []struct {
		name     string
		percent  float64
		width    int
		expected string
	}{
		{name: "empty progress", percent: 0, width: 10, expected: "[          ] 0.0%"},
		{name: "half progress", percent: 50, width: 10, expected: "[=====     ] 50.0%"},
		{name: "full progress", percent: 100, width: 10, expected: "[==========] 100.0%"},
		{name: "quarter progress", percent: 25, width: 8, expected: "[==      ] 25.0%"},
		{name: "fractional percent", percent: 33.3, width: 10, expected: "[===       ] 33.3%"},
		{name: "large width", percent: 30, width: 20, expected: "[======              ] 30.0%"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pb := NewProgressBar(tt.width, false)
			pb.SetPercent(tt.percent)

			if result := pb.Render(); result != tt.expected {
				t.Errorf("Render() = %q, want %q", result, tt.expected)
			}
		})
	}
}

// TestProgressBarWidth tests different bar widths
func TestProgressBarWidth(t *testing.T) {
	for _, width := range []int{1, 5, 10, 20} {
		pb := NewProgressBar(width, false)
		pb.SetPercent(50)
		result := pb.Render()

		start := strings.Index(result, "[")
		end := strings.Index(result, "]")
		if start < 0 || end <= start {
			t.Fatalf("Render() missing brackets: %q", result)
		}
		if got := end - start - 1; got != width {
			t.Errorf("bar width = %d, want %d: %q", got, width, result)
		}
	}

	if pb := NewProgressBar(0, false); !strings.HasPrefix(pb.Render(), "[          ]") {
		t.Errorf("width < 1 should default to 10, got %q", pb.Render())
	}
}

// TestProgressBarClamps verifies out-of-range percentages
func TestProgressBarClamps(t *testing.T) {
	tests := []struct {
		in   float64
		want float64
	}{
		{in: -5, want: 0},
		{in: 150, want: 100},
		{in: math.NaN(), want: 0},
		{in: 42.5, want: 42.5},
	}

	for _, tt := range tests {
		pb := NewProgressBar(10, false)
		pb.SetPercent(tt.in)
		if got := pb.Percent(); got != tt.want {
			t.Errorf("SetPercent(%v) -> Percent() = %v, want %v", tt.in, got, tt.want)
		}
	}
}

// TestProgressBarColors tests color rendering
func TestProgressBarColors(t *testing.T) {
	tests := []struct {
		name        string
		percent     float64
		enableColor bool
		shouldHave  string
	}{
		{name: "in progress is cyan", percent: 40, enableColor: true, shouldHave: "\033[36m"},
		{name: "complete is green", percent: 100, enableColor: true, shouldHave: "\033[32m"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pb := NewProgressBar(10, tt.enableColor)
			pb.SetPercent(tt.percent)
			if result := pb.Render(); !strings.Contains(result, tt.shouldHave) {
				t.Errorf("Render() = %q, want it to contain %q", result, tt.shouldHave)
			}
		})
	}

	pb := NewProgressBar(10, false)
	pb.SetPercent(40)
	if strings.Contains(pb.Render(), "\033[") {
		t.Errorf("color disabled but got escape codes: %q", pb.Render())
	}
}

func TestProgressBarPrefix(t *testing.T) {
	pb := NewProgressBar(4, false)
	pb.SetPrefix("agent-1 ")
	pb.SetPercent(50)

	if got := pb.Render(); got != "agent-1 [==  ] 50.0%" {
		t.Errorf("Render() = %q", got)
	}
}

// TestProgressBarConcurrency tests thread-safe concurrent updates
func TestProgressBarConcurrency(t *testing.T) {
	pb := NewProgressBar(10, false)
	var wg sync.WaitGroup

	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				pb.SetPercent(float64(n*10 + j))
				_ = pb.Percent()
				_ = pb.Render()
			}
		}(i)
	}
	wg.Wait()

	if p := pb.Percent(); p < 0 || p > 100 {
		t.Errorf("Percent() = %v out of range after concurrent updates", p)
	}
}
