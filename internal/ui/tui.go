// ABOUTME: TUI initialization and control
// ABOUTME: Wraps the bubbletea program and the volume/quit channels
package ui

import (
	tea "github.com/charmbracelet/bubbletea"
)

// VolumeControl holds channels for volume control communication
type VolumeControl struct {
	Changes chan VolumeChangeMsg
	Quit    chan QuitMsg
}

// NewVolumeControl creates a new volume control handler
func NewVolumeControl() *VolumeControl {
	return &VolumeControl{
		Changes: make(chan VolumeChangeMsg, 10),
		Quit:    make(chan QuitMsg, 1),
	}
}

// NewModel creates a new TUI model
func NewModel(source string, volume int, volCtrl *VolumeControl) Model {
	return Model{
		source:     source,
		state:      StateConnecting,
		volume:     volume,
		metadata:   make(map[string]string),
		volumeCtrl: volCtrl,
	}
}

// Run creates the TUI program; the caller starts it
func Run(source string, volume int, volCtrl *VolumeControl) *tea.Program {
	return tea.NewProgram(NewModel(source, volume, volCtrl), tea.WithAltScreen())
}
