// ABOUTME: TUI initialization and control
// ABOUTME: Wraps the bubbletea program for the transcription UI
package ui

import (
	tea "github.com/charmbracelet/bubbletea"
)

// Controls carries key presses from the TUI to the application
type Controls struct {
	Toggle chan struct{}
	Quit   chan struct{}
}

// NewControls creates a new control handler
func NewControls() *Controls {
	return &Controls{
		Toggle: make(chan struct{}, 1),
		Quit:   make(chan struct{}, 1),
	}
}

// signal never blocks the UI; a pending signal absorbs repeats
func (c *Controls) signal(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}

// NewModel creates a new TUI model
func NewModel(controls *Controls, endpoint string) Model {
	return Model{
		endpoint: endpoint,
		segments: make(map[int]segment),
		controls: controls,
	}
}

// Run creates the TUI program; the caller runs it
func Run(controls *Controls, endpoint string) *tea.Program {
	return tea.NewProgram(NewModel(controls, endpoint), tea.WithAltScreen())
}
