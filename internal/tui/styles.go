package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/nixlim/pianod/internal/events"
	"github.com/nixlim/pianod/internal/status"
)

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			Background(lipgloss.Color("62")).
			Padding(0, 1)

	panelBorderStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("240")).
				Padding(0, 1)

	panelTitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("69"))

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")).
			Width(12)

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	heldStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("226"))
)

// levelColors gives each indicator level its lamp colour.
var levelColors = map[status.Level]lipgloss.Color{
	status.Off:          lipgloss.Color("240"),
	status.Starting:     lipgloss.Color("117"),
	status.Ready:        lipgloss.Color("82"),
	status.ReadyNoInput: lipgloss.Color("226"),
	status.Stopping:     lipgloss.Color("183"),
	status.Error:        lipgloss.Color("196"),
}

// eventTypeStyles maps feed event types to their display styles.
var eventTypeStyles = map[events.Type]lipgloss.Style{
	events.TypeInstrument:       lipgloss.NewStyle().Foreground(lipgloss.Color("117")),
	events.TypeMIDIConnected:    lipgloss.NewStyle().Foreground(lipgloss.Color("114")),
	events.TypeMIDIDisconnected: lipgloss.NewStyle().Foreground(lipgloss.Color("222")),
	events.TypeStatus:           lipgloss.NewStyle().Foreground(lipgloss.Color("183")),
	events.TypeEngine:           lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
}
