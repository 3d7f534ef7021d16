package config

import "time"

// DefaultConfig returns the settings for a Raspberry Pi 3 running FluidSynth
// over ALSA with a three-button panel.
func DefaultConfig() Config {
	return Config{
		DefaultInstrument: 0,
		Engine: EngineConfig{
			Command: "fluidsynth",
			Args: []string{
				"-a", "alsa",
				"-m", "alsa_seq",
				"-r", "44100",
				"-c", "3",
				"-z", "128",
				"-g", "1.0",
				"-o", "synth.polyphony=64",
				"-o", "synth.cpu-cores=4",
				"-C0",
				"-R0",
			},
			SoundFont:         "/home/pi/pianod/soundfonts/SalamanderGrandPiano.sf2",
			SoundFontFallback: "/usr/share/sounds/sf2/FluidR3_GM.sf2",
			// Keystation 49 MK3 sends on 4, Arturia MiniLab 3 on 0.
			Channels:         []int{0, 4},
			SettleDelay:      3 * time.Second,
			QuitTimeout:      5 * time.Second,
			TerminateTimeout: 3 * time.Second,
			RestartDelay:     500 * time.Millisecond,
			ReconnectDelay:   time.Second,
			ReapStale:        true,
		},
		Instruments: []InstrumentConfig{
			{Name: "Grand Piano", Program: 0, Core: true},
			{Name: "Clavinet", Program: 7, Core: true},
			{Name: "Strings Ensemble", Program: 48, Core: true},
			{Name: "Electric Grand Piano", Program: 2},
			{Name: "Acoustic Guitar Nylon", Program: 24},
			{Name: "Rhodes Piano", Program: 4},
			{Name: "Rock Organ", Program: 18},
			{Name: "Overdriven Guitar", Program: 29},
			{Name: "Synth Pad (warm)", Program: 89},
		},
		MIDI: MIDIConfig{
			PollInterval: 2 * time.Second,
			Tool:         "aconnect",
			EngineClient: "FLUID Synth",
			SystemIDs:    []int{0, 14},
			ToolTimeout:  5 * time.Second,
		},
		Buttons: ButtonsConfig{
			LongPress: 3 * time.Second,
			ResetHold: time.Second,
			Debounce:  50 * time.Millisecond,
		},
		Health: HealthConfig{
			Interval: 5 * time.Second,
		},
		Events: EventsConfig{
			BufferSize:  200,
			NATSSubject: "pianod.events",
		},
		Power: PowerConfig{
			Enabled: true,
			Command: []string{"sudo", "shutdown", "-h", "now"},
		},
	}
}
