// Package viz renders exercise results in the terminal.
//
// Reports are drawn as lipgloss-styled sections, sampled responses as
// asciigraph line plots, and stored runs can be browsed interactively with a
// Bubble Tea program:
//
//	j/k   - move through runs
//	enter - open a run
//	tab   - cycle the plotted response
//	t     - cycle color themes
//	esc   - back to the run list
//	q     - quit
package viz
