package engine

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrResourceMissing is returned when neither sound bank path exists.
	ErrResourceMissing = errors.New("sound bank not found")

	// ErrEngineStartFailed is returned when the engine cannot be launched or
	// exits during the settle window.
	ErrEngineStartFailed = errors.New("engine failed to start")

	// ErrInvalidIndex is returned for an out-of-range absolute selection.
	ErrInvalidIndex = errors.New("instrument index out of range")

	// ErrCommandSendFailed marks a broken command channel. It is logged,
	// never returned to callers.
	ErrCommandSendFailed = errors.New("engine command send failed")
)

// StartError carries the engine's diagnostic output when it exits during
// startup.
type StartError struct {
	PID         int
	Diagnostics string
}

func (e *StartError) Error() string {
	if e.Diagnostics == "" {
		return fmt.Sprintf("engine (pid %d) exited during startup", e.PID)
	}
	return fmt.Sprintf("engine (pid %d) exited during startup: %s", e.PID, e.Diagnostics)
}

// Unwrap lets errors.Is match ErrEngineStartFailed.
func (e *StartError) Unwrap() error {
	return ErrEngineStartFailed
}

// Instrument is one catalog entry.
type Instrument struct {
	Name    string
	Program int  // General MIDI program, 0-127
	Core    bool // reachable through the reset shortcut
}

type directionKind int

const (
	dirNext directionKind = iota
	dirPrevious
	dirReset
	dirAbsolute
)

// Direction tells SelectInstrument how to move the cursor.
type Direction struct {
	kind  directionKind
	index int
}

var (
	Next     = Direction{kind: dirNext}
	Previous = Direction{kind: dirPrevious}
	Reset    = Direction{kind: dirReset}
)

// Absolute selects the instrument at index i.
func Absolute(i int) Direction {
	return Direction{kind: dirAbsolute, index: i}
}

func (d Direction) String() string {
	switch d.kind {
	case dirNext:
		return "next"
	case dirPrevious:
		return "previous"
	case dirReset:
		return "reset"
	default:
		return fmt.Sprintf("absolute(%d)", d.index)
	}
}

// Config holds the engine launch and timing settings.
type Config struct {
	Command           string
	Args              []string
	SoundFont         string
	SoundFontFallback string

	// Channels receive a program change on every instrument selection.
	Channels []int

	SettleDelay      time.Duration // wait after launch before probing liveness
	QuitTimeout      time.Duration // wait after the quit command
	TerminateTimeout time.Duration // wait after SIGTERM before SIGKILL
	RestartDelay     time.Duration // pause between stop and start on restart

	DefaultInstrument int
}
