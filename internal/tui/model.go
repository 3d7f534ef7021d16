// Package tui is a terminal stand-in for the appliance's front panel: it
// shows the status lamp, instrument and controllers, and turns key presses
// into button edges.
package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nixlim/pianod/internal/app"
	"github.com/nixlim/pianod/internal/events"
	"github.com/nixlim/pianod/internal/gesture"
	"github.com/nixlim/pianod/internal/status"
)

// StateProvider supplies what the console renders.
type StateProvider interface {
	Snapshot() app.Snapshot
	Recent(limit int) []events.Event
}

// Timing sets how long emulated presses are held.
type Timing struct {
	Tap       time.Duration // plain press
	LongPress time.Duration // restart button long press
	ResetHold time.Duration // next button reset hold
}

// DefaultTiming holds each emulated press just past its threshold.
func DefaultTiming(longPress, resetHold time.Duration) Timing {
	const margin = 100 * time.Millisecond
	return Timing{
		Tap:       150 * time.Millisecond,
		LongPress: longPress + margin,
		ResetHold: resetHold + margin,
	}
}

type tickMsg time.Time

type releaseMsg struct {
	button string
}

type stateMsg struct {
	snap   app.Snapshot
	recent []events.Event
}

const eventLines = 8

type Model struct {
	width    int
	height   int
	keys     KeyMap
	help     help.Model
	quitting bool

	console *Console
	state   StateProvider
	timing  Timing

	// held tracks buttons with a pending release; shared across copies.
	held map[string]bool

	now         time.Time
	snap        app.Snapshot
	recent      []events.Event
	refreshRate time.Duration
	fetching    bool

	onQuit func()
}

type ModelOption func(*Model)

func WithStateProvider(s StateProvider) ModelOption {
	return func(m *Model) { m.state = s }
}

func WithTiming(t Timing) ModelOption {
	return func(m *Model) { m.timing = t }
}

func WithRefreshRate(d time.Duration) ModelOption {
	return func(m *Model) { m.refreshRate = d }
}

func WithOnQuit(fn func()) ModelOption {
	return func(m *Model) { m.onQuit = fn }
}

func NewModel(console *Console, opts ...ModelOption) Model {
	m := Model{
		keys:        DefaultKeyMap(),
		help:        help.New(),
		console:     console,
		timing:      DefaultTiming(3*time.Second, time.Second),
		held:        make(map[string]bool),
		refreshRate: 100 * time.Millisecond,
		now:         time.Now(),
	}
	for _, opt := range opts {
		opt(&m)
	}
	m.refresh()
	return m
}

func (m Model) Init() tea.Cmd {
	return m.tickCmd()
}

func (m Model) tickCmd() tea.Cmd {
	return tea.Tick(m.refreshRate, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		return m, nil

	case tickMsg:
		m.now = time.Time(msg)
		// The snapshot waits on the engine, which can be busy restarting.
		if m.state == nil || m.fetching {
			return m, m.tickCmd()
		}
		m.fetching = true
		return m, tea.Batch(m.tickCmd(), m.fetchCmd())

	case stateMsg:
		m.fetching = false
		m.snap = msg.snap
		m.recent = msg.recent
		return m, nil

	case releaseMsg:
		delete(m.held, msg.button)
		m.console.emit(gesture.Edge{Button: msg.button, Pressed: false})
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.quitting = true
		if m.onQuit != nil {
			m.onQuit()
		}
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil

	case key.Matches(msg, m.keys.Restart):
		return m, m.press(app.ButtonRestart, m.timing.Tap)
	case key.Matches(msg, m.keys.RestartHold):
		return m, m.press(app.ButtonRestart, m.timing.LongPress)
	case key.Matches(msg, m.keys.Next):
		return m, m.press(app.ButtonNext, m.timing.Tap)
	case key.Matches(msg, m.keys.NextHold):
		return m, m.press(app.ButtonNext, m.timing.ResetHold)
	case key.Matches(msg, m.keys.Prev):
		return m, m.press(app.ButtonPrev, m.timing.Tap)
	}

	return m, nil
}

// press emits a press edge now and schedules the release after hold. Keys
// for a button that is still held are ignored.
func (m Model) press(button string, hold time.Duration) tea.Cmd {
	if m.held[button] {
		return nil
	}
	m.held[button] = true
	m.console.emit(gesture.Edge{Button: button, Pressed: true})
	return tea.Tick(hold, func(time.Time) tea.Msg {
		return releaseMsg{button: button}
	})
}

func (m *Model) refresh() {
	if m.state == nil {
		return
	}
	m.snap = m.state.Snapshot()
	m.recent = m.state.Recent(eventLines)
}

func (m Model) fetchCmd() tea.Cmd {
	state := m.state
	return func() tea.Msg {
		return stateMsg{snap: state.Snapshot(), recent: state.Recent(eventLines)}
	}
}

func (m Model) View() string {
	if m.quitting {
		return "Console closed.\n"
	}

	var b strings.Builder
	b.WriteString(headerStyle.Render("pianod"))
	b.WriteString(" ")
	b.WriteString(m.renderLamp())
	b.WriteString("\n\n")

	b.WriteString(m.renderState())
	b.WriteString("\n")
	b.WriteString(m.renderEvents())
	b.WriteString("\n")
	b.WriteString(m.help.View(m.keys))

	output := b.String()
	if m.height > 0 {
		lines := strings.Split(output, "\n")
		if len(lines) > m.height {
			output = strings.Join(lines[:m.height], "\n")
		}
	}
	return output
}

// renderLamp draws the indicator as a dot following the level's pattern.
func (m Model) renderLamp() string {
	level, powered := status.Off, false
	if m.console != nil {
		level, powered = m.console.Level()
	}
	style := lipgloss.NewStyle().Foreground(levelColors[level])
	dot := "●"
	if !powered || !lampLit(status.PatternFor(level), m.now) {
		style = dimStyle
		dot = "○"
	}
	return style.Render(dot) + " " + style.Render(level.String())
}

// lampLit reports whether a pattern's lamp is on at t.
func lampLit(p status.Pattern, t time.Time) bool {
	if p.Solid {
		return true
	}
	if !p.Blinking() {
		return false
	}
	period := p.On + p.Off
	return time.Duration(t.UnixNano())%period < p.On
}

func (m Model) renderState() string {
	s := m.snap
	var lines []string

	inst := dimStyle.Render("-")
	if s.Instrument != "" {
		inst = fmt.Sprintf("%s %s", s.Instrument, dimStyle.Render(fmt.Sprintf("(%d/%d)", s.Index+1, len(s.Catalog))))
	}
	lines = append(lines, labelStyle.Render("Instrument")+inst)

	engine := "stopped"
	if s.Running {
		engine = "running"
	}
	lines = append(lines, labelStyle.Render("Engine")+engine)

	inputs := dimStyle.Render("none")
	if len(s.Devices) > 0 {
		inputs = strings.Join(s.Devices, ", ")
	}
	lines = append(lines, labelStyle.Render("Inputs")+inputs)

	var held []string
	for _, name := range []string{app.ButtonRestart, app.ButtonNext, app.ButtonPrev} {
		if m.held[name] {
			held = append(held, heldStyle.Render("["+name+"]"))
		}
	}
	if len(held) > 0 {
		lines = append(lines, labelStyle.Render("Holding")+strings.Join(held, " "))
	}

	return panelBorderStyle.Render(strings.Join(lines, "\n"))
}

func (m Model) renderEvents() string {
	lines := []string{panelTitleStyle.Render("Events")}
	if len(m.recent) == 0 {
		lines = append(lines, dimStyle.Render("No events yet"))
	}
	for _, e := range m.recent {
		line := events.Format(e)
		if style, ok := eventTypeStyles[e.Type]; ok {
			line = style.Render(line)
		}
		lines = append(lines, line)
	}
	return panelBorderStyle.Render(strings.Join(lines, "\n"))
}
