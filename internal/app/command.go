package app

import (
	"fmt"
	"time"

	"github.com/nixlim/pianod/internal/gesture"
)

// CommandKind names an action the appliance can take.
type CommandKind int

const (
	CmdRestart CommandKind = iota
	CmdShutdown
	CmdNextInstrument
	CmdPrevInstrument
	CmdResetInstrument
	CmdSelectInstrument
	CmdDeviceConnected
	CmdDeviceDisconnected
)

func (k CommandKind) String() string {
	switch k {
	case CmdRestart:
		return "restart"
	case CmdShutdown:
		return "shutdown"
	case CmdNextInstrument:
		return "next"
	case CmdPrevInstrument:
		return "previous"
	case CmdResetInstrument:
		return "reset"
	case CmdSelectInstrument:
		return "select"
	case CmdDeviceConnected:
		return "device-connected"
	case CmdDeviceDisconnected:
		return "device-disconnected"
	default:
		return fmt.Sprintf("command(%d)", int(k))
	}
}

// Command is one request to the orchestrator. Index is used by
// CmdSelectInstrument, Device by CmdDeviceConnected.
type Command struct {
	Kind   CommandKind
	Index  int
	Device string
}

// Select returns a command choosing the instrument at index i.
func Select(i int) Command {
	return Command{Kind: CmdSelectInstrument, Index: i}
}

// DeviceConnected returns a command reporting a newly routed controller.
func DeviceConnected(name string) Command {
	return Command{Kind: CmdDeviceConnected, Device: name}
}

// Logical button names used by edge sources.
const (
	ButtonRestart = "restart"
	ButtonNext    = "next"
	ButtonPrev    = "prev"
)

// Buttons describes the three-button panel.
func Buttons(longPress, resetHold time.Duration) []gesture.Button {
	return []gesture.Button{
		{Name: ButtonRestart, Kind: gesture.KindHold, Threshold: longPress},
		{Name: ButtonNext, Kind: gesture.KindTapHold, Threshold: resetHold},
		{Name: ButtonPrev, Kind: gesture.KindTap},
	}
}

type binding struct {
	button  string
	gesture gesture.Gesture
}

// Bindings maps a button gesture to a command.
type Bindings map[binding]CommandKind

// DefaultBindings returns the panel's gesture table.
func DefaultBindings() Bindings {
	return Bindings{
		{ButtonRestart, gesture.ShortPress}: CmdRestart,
		{ButtonRestart, gesture.LongPress}:  CmdShutdown,
		{ButtonNext, gesture.Press}:         CmdNextInstrument,
		{ButtonNext, gesture.HoldReset}:     CmdResetInstrument,
		{ButtonPrev, gesture.Press}:         CmdPrevInstrument,
	}
}

// Lookup returns the command bound to a gesture on a button.
func (b Bindings) Lookup(button string, g gesture.Gesture) (Command, bool) {
	kind, ok := b[binding{button, g}]
	if !ok {
		return Command{}, false
	}
	return Command{Kind: kind}, true
}
