// Package display renders user-facing terminal output for the parallelizer
// CLI: loading progress for split task lists and warnings about cycles,
// no-go recommendations, halted schedules and conflicts.
//
// Reports themselves are written by the logger and the command layer; this
// package covers the short status lines around them.
//
//	progress := display.NewProgressIndicator(os.Stderr, len(files))
//	progress.Start()
//	for _, file := range files {
//	    progress.Step(file)
//	}
//	progress.Complete()
//
//	if w, ok := display.WarnCycle(report.Cycle); ok {
//	    w.Display(os.Stderr)
//	}
//
// Colors are only written when the destination is a terminal and NO_COLOR
// is unset. Every function takes an io.Writer so output can be captured in
// tests.
package display
