// ABOUTME: Bubbletea model for player TUI
// ABOUTME: Defines playback state, buffer bar, stream info and key handling
package ui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Player states shown in the header
const (
	StateConnecting = "connecting"
	StateBuffering  = "buffering"
	StatePlaying    = "playing"
	StateStopped    = "stopped"
	StateError      = "error"
)

// volumeStep is the change per arrow key press
const volumeStep = 5

// shownMetadata are the header keys displayed, in order
var shownMetadata = []string{"icy-name", "icy-genre", "icy-description", "icy-url", "content-type"}

// Model represents the TUI state
type Model struct {
	// Source
	source string
	state  string
	err    string

	// Stream
	codec      string
	sampleRate int
	channels   int

	// Metadata
	metadata map[string]string

	// Buffer
	playing    bool
	bufferedMs int
	capacityMs int

	// Result
	perf     int
	havePerf bool

	// Volume
	volume int
	muted  bool

	quitting   bool
	volumeCtrl *VolumeControl

	width  int
	height int
}

// StatusMsg updates TUI state. Zero fields leave the current value.
type StatusMsg struct {
	Source     string
	State      string
	Err        error
	Codec      string
	SampleRate int
	Channels   int
	Volume     int
}

// BufferMsg reports device buffer occupancy
type BufferMsg struct {
	Playing    bool
	BufferedMs int
	CapacityMs int
}

// MetadataMsg reports one stream property
type MetadataMsg struct {
	Key   string
	Value string
}

// StoppedMsg reports the end of a session
type StoppedMsg struct {
	Perf int
}

// VolumeChangeMsg is sent when the user changes the volume
type VolumeChangeMsg struct {
	Volume int
	Muted  bool
}

// QuitMsg is sent when the user quits
type QuitMsg struct{}

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
	case BufferMsg:
		m.playing = msg.Playing
		m.bufferedMs = msg.BufferedMs
		m.capacityMs = msg.CapacityMs
		if msg.Playing && m.state != StateError {
			m.state = StatePlaying
		}
	case MetadataMsg:
		m.metadata[msg.Key] = msg.Value
	case StoppedMsg:
		m.perf = msg.Perf
		m.havePerf = true
		m.playing = false
		if m.state != StateError {
			m.state = StateStopped
		}
	}

	return m, nil
}

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205")).
			MarginBottom(1)
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("86"))
	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("250"))
	errorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("196"))
	helpStyle = lipgloss.NewStyle().Faint(true)
)

// View renders the TUI
func (m Model) View() string {
	if m.quitting {
		return "Stopping...\n"
	}

	var b strings.Builder

	b.WriteString(titleStyle.Render("Streamplay"))
	b.WriteString("\n\n")

	m.field(&b, "Source: ", truncate(m.source, 60))
	m.field(&b, "State:  ", m.state)
	if m.err != "" {
		b.WriteString(errorStyle.Render("Error:  " + m.err))
		b.WriteString("\n")
	}

	if m.codec != "" {
		format := m.codec
		if m.sampleRate > 0 {
			format = fmt.Sprintf("%s %dHz %s", m.codec, m.sampleRate, channelName(m.channels))
		}
		m.field(&b, "Format: ", format)
	}

	for _, line := range m.metadataLines() {
		b.WriteString(valueStyle.Render("  " + line))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	m.field(&b, "Buffer: ", fmt.Sprintf("[%s] %dms / %dms",
		renderBar(m.bufferedMs, m.capacityMs, 20), m.bufferedMs, m.capacityMs))

	volume := fmt.Sprintf("[%s] %d%%", renderBar(m.volume, 100, 10), m.volume)
	if m.muted {
		volume += " (muted)"
	}
	m.field(&b, "Volume: ", volume)

	if m.havePerf {
		m.field(&b, "Decode: ", fmt.Sprintf("%+d%% vs real time", m.perf))
	}

	b.WriteString("\n")
	b.WriteString(helpStyle.Render("↑/↓: volume  m: mute  q: quit"))
	b.WriteString("\n")

	return b.String()
}

func (m Model) field(b *strings.Builder, name, value string) {
	b.WriteString(headerStyle.Render(name))
	b.WriteString(valueStyle.Render(value))
	b.WriteString("\n")
}

// metadataLines returns the displayed metadata in display order
func (m Model) metadataLines() []string {
	var lines []string
	for _, key := range shownMetadata {
		if v, ok := m.metadata[key]; ok && v != "" {
			lines = append(lines, fmt.Sprintf("%s: %s", key, truncate(v, 50)))
		}
	}
	return lines
}

// handleKey handles keyboard input
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		m.quitting = true
		if m.volumeCtrl != nil {
			select {
			case m.volumeCtrl.Quit <- QuitMsg{}:
			default:
			}
		}
		return m, tea.Quit
	case "up":
		m.volume = min(m.volume+volumeStep, 100)
		m.sendVolume()
	case "down":
		m.volume = max(m.volume-volumeStep, 0)
		m.sendVolume()
	case "m":
		m.muted = !m.muted
		m.sendVolume()
	}

	return m, nil
}

func (m Model) sendVolume() {
	if m.volumeCtrl == nil {
		return
	}
	select {
	case m.volumeCtrl.Changes <- VolumeChangeMsg{Volume: m.volume, Muted: m.muted}:
	default:
	}
}

// applyStatus updates model from status message
func (m *Model) applyStatus(msg StatusMsg) {
	if msg.Source != "" {
		m.source = msg.Source
	}
	if msg.State != "" {
		m.state = msg.State
	}
	if msg.Err != nil {
		m.err = msg.Err.Error()
		m.state = StateError
	}
	if msg.Codec != "" {
		m.codec = msg.Codec
		m.sampleRate = msg.SampleRate
		m.channels = msg.Channels
	}
	if msg.Volume != 0 {
		m.volume = msg.Volume
	}
}

func renderBar(value, total, width int) string {
	filled := 0
	if total > 0 {
		filled = max(min(value*width/total, width), 0)
	}
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}

func truncate(s string, length int) string {
	if len(s) <= length {
		return s
	}
	return s[:length-3] + "..."
}

func channelName(channels int) string {
	if channels == 1 {
		return "Mono"
	}
	return "Stereo"
}
