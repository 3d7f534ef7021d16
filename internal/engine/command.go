package engine

import (
	"fmt"

	"gitlab.com/gomidi/midi/v2"
)

// The engine loads a single sound bank, so it is always font 1, bank 0.
const (
	soundFontID = 1
	bankNumber  = 0
)

// programChangeCommand renders a MIDI program change as the engine shell's
// select command. Config validation keeps channel and program in range, but
// a Supervisor built directly may carry anything; the message encoding
// clamps channel to 15 and program to 127 so the engine never receives an
// out-of-range select.
func programChangeCommand(channel, program int) string {
	msg := midi.ProgramChange(uint8(channel), uint8(program))
	var ch, prog uint8
	if !msg.GetProgramChange(&ch, &prog) {
		return fmt.Sprintf("select %d %d %d %d", channel, soundFontID, bankNumber, program)
	}
	return fmt.Sprintf("select %d %d %d %d", ch, soundFontID, bankNumber, prog)
}
