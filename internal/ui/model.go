// ABOUTME: Bubbletea model for the transcription TUI
// ABOUTME: Defines transcript state, status handling and rendering
package ui

import (
	"fmt"
	"sort"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/harperreed/asrstream/pkg/asr"
)

const boxWidth = 52

// segment is the latest text seen for one idx
type segment struct {
	text     string
	finished bool
}

// Model represents the TUI state
type Model struct {
	// Session
	recording bool
	endpoint  string
	sessionID string
	source    string

	// Last status event
	status      string
	statusError bool

	// Transcript
	segments map[int]segment

	// Stats
	framesSent    uint64
	framesDropped uint64
	bytesSent     uint64
	results       uint64

	// Debug
	showDebug  bool
	goroutines int
	memAlloc   uint64

	controls *Controls

	// Dimensions
	width  int
	height int
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	case StatusMsg:
		m.applyStatus(msg)
	case ResultMsg:
		m.applyResult(asr.Result(msg))
	}

	return m, nil
}

// View renders the TUI
func (m Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	s := m.renderHeader()
	s += m.renderTranscript()
	s += m.renderStats()

	if m.showDebug {
		s += m.renderDebug()
	}

	s += m.renderHelp()
	return s
}

// renderHeader renders session and status lines
func (m Model) renderHeader() string {
	state := "Idle"
	if m.recording {
		state = "● Recording"
	}

	statusIcon := "•"
	if m.statusError {
		statusIcon = "✗"
	}

	s := "┌─ ASR Stream ─────────────────────────────────────────┐\n"
	s += line(fmt.Sprintf("State:   %s", state))
	s += line(fmt.Sprintf("Server:  %s", m.endpoint))
	if m.source != "" {
		s += line(fmt.Sprintf("Source:  %s", m.source))
	}
	if m.sessionID != "" {
		s += line(fmt.Sprintf("Session: %s", m.sessionID))
	}
	if m.status != "" {
		s += line(fmt.Sprintf("%s %s", statusIcon, m.status))
	}
	s += "├──────────────────────────────────────────────────────┤\n"
	return s
}

// renderTranscript renders the newest segments that fit the window
func (m Model) renderTranscript() string {
	lines := m.transcriptLines()
	if len(lines) == 0 {
		return line("(waiting for speech)")
	}

	// header, stats and help take about twelve rows
	if rows := m.height - 12; rows > 0 && len(lines) > rows {
		lines = lines[len(lines)-rows:]
	}

	s := ""
	for _, l := range lines {
		s += line(l)
	}
	return s
}

// transcriptLines wraps segments in idx order; partial text is marked
func (m Model) transcriptLines() []string {
	idxs := make([]int, 0, len(m.segments))
	for idx := range m.segments {
		idxs = append(idxs, idx)
	}
	sort.Ints(idxs)

	var lines []string
	for _, idx := range idxs {
		seg := m.segments[idx]
		text := strings.TrimSpace(seg.text)
		if text == "" {
			continue
		}
		if !seg.finished {
			text += " …"
		}
		lines = append(lines, wrap(text, boxWidth)...)
	}
	return lines
}

// renderStats renders session statistics
func (m Model) renderStats() string {
	s := "├──────────────────────────────────────────────────────┤\n"
	s += line(fmt.Sprintf("Sent: %d frames (%s)  Dropped: %d  Results: %d",
		m.framesSent, formatBytes(m.bytesSent), m.framesDropped, m.results))
	return s
}

// renderDebug renders runtime information
func (m Model) renderDebug() string {
	s := line("DEBUG:")
	s += line(fmt.Sprintf("  Goroutines: %d", m.goroutines))
	s += line(fmt.Sprintf("  Heap: %s", formatBytes(m.memAlloc)))
	s += line(fmt.Sprintf("  Segments: %d", len(m.segments)))
	return s
}

// renderHelp renders keyboard shortcuts
func (m Model) renderHelp() string {
	return `│ space:Start/Stop  c:Clear  d:Debug  q:Quit           │
└──────────────────────────────────────────────────────┘
`
}

// handleKey handles keyboard input
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		if m.controls != nil {
			m.controls.signal(m.controls.Quit)
		}
		return m, tea.Quit
	case " ", "space", "r":
		if m.controls != nil {
			m.controls.signal(m.controls.Toggle)
		}
	case "c":
		m.segments = make(map[int]segment)
	case "d":
		m.showDebug = !m.showDebug
	}

	return m, nil
}

// applyStatus updates model from status message
func (m *Model) applyStatus(msg StatusMsg) {
	if msg.Recording != nil {
		m.recording = *msg.Recording
	}
	if msg.Endpoint != "" {
		m.endpoint = msg.Endpoint
	}
	if msg.Source != "" {
		m.source = msg.Source
	}
	if msg.SessionID != "" {
		if msg.SessionID != m.sessionID {
			m.segments = make(map[int]segment)
		}
		m.sessionID = msg.SessionID
	}
	if msg.Status != nil {
		m.status = msg.Status.Message
		m.statusError = msg.Status.Type == asr.StatusError
	}
	if msg.Stats != nil {
		m.framesSent = msg.Stats.FramesSent
		m.framesDropped = msg.Stats.FramesDropped
		m.bytesSent = msg.Stats.BytesSent
		m.results = msg.Stats.Results
	}
	if msg.Goroutines != 0 {
		m.goroutines = msg.Goroutines
		m.memAlloc = msg.MemAlloc
	}
}

// applyResult stores the latest text for the result's segment
func (m *Model) applyResult(r asr.Result) {
	if m.segments == nil {
		m.segments = make(map[int]segment)
	}
	m.segments[r.Idx] = segment{text: r.Text, finished: r.Finished}
}

// StatusMsg updates TUI state; zero fields are left unchanged
type StatusMsg struct {
	Recording  *bool
	Endpoint   string
	Source     string
	SessionID  string
	Status     *asr.Status
	Stats      *asr.Stats
	Goroutines int
	MemAlloc   uint64
}

// ResultMsg delivers a recognition result to the TUI
type ResultMsg asr.Result

// Utility functions
func line(s string) string {
	return fmt.Sprintf("│ %-*s │\n", boxWidth, truncate(s, boxWidth))
}

func truncate(s string, length int) string {
	r := []rune(s)
	if len(r) <= length {
		return s
	}
	return string(r[:length-3]) + "..."
}

func wrap(s string, width int) []string {
	var lines []string
	current := ""
	for _, word := range strings.Fields(s) {
		switch {
		case current == "":
			current = word
		case len([]rune(current))+1+len([]rune(word)) <= width:
			current += " " + word
		default:
			lines = append(lines, current)
			current = word
		}
	}
	if current != "" {
		lines = append(lines, current)
	}
	return lines
}

func formatBytes(n uint64) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MiB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1f KiB", float64(n)/(1<<10))
	default:
		return fmt.Sprintf("%d B", n)
	}
}
