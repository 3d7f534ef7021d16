package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/nixlim/pianod/internal/engine"
	"github.com/nixlim/pianod/internal/registry"
)

type Config struct {
	DefaultInstrument int                `toml:"default_instrument"`
	Engine            EngineConfig       `toml:"engine"`
	Instruments       []InstrumentConfig `toml:"instruments"`
	MIDI              MIDIConfig         `toml:"midi"`
	Buttons           ButtonsConfig      `toml:"buttons"`
	Health            HealthConfig       `toml:"health"`
	Events            EventsConfig       `toml:"events"`
	Metrics           MetricsConfig      `toml:"metrics"`
	Power             PowerConfig        `toml:"power"`
}

type EngineConfig struct {
	Command           string        `toml:"command"`
	Args              []string      `toml:"args"`
	SoundFont         string        `toml:"soundfont"`
	SoundFontFallback string        `toml:"soundfont_fallback"`
	Channels          []int         `toml:"channels"`
	SettleDelay       time.Duration `toml:"settle_delay"`
	QuitTimeout       time.Duration `toml:"quit_timeout"`
	TerminateTimeout  time.Duration `toml:"terminate_timeout"`
	RestartDelay      time.Duration `toml:"restart_delay"`
	ReconnectDelay    time.Duration `toml:"reconnect_delay"`
	ReapStale         bool          `toml:"reap_stale"`
}

type InstrumentConfig struct {
	Name    string `toml:"name"`
	Program int    `toml:"program"`
	Core    bool   `toml:"core"`
}

type MIDIConfig struct {
	PollInterval time.Duration `toml:"poll_interval"`
	Tool         string        `toml:"tool"`
	EngineClient string        `toml:"engine_client"`
	SystemIDs    []int         `toml:"system_ids"`
	ToolTimeout  time.Duration `toml:"tool_timeout"`
}

type ButtonsConfig struct {
	LongPress time.Duration `toml:"long_press"`
	ResetHold time.Duration `toml:"reset_hold"`
	Debounce  time.Duration `toml:"debounce"`
}

type HealthConfig struct {
	Interval time.Duration `toml:"interval"`
}

type EventsConfig struct {
	BufferSize  int    `toml:"buffer_size"`
	NATSURL     string `toml:"nats_url"`
	NATSSubject string `toml:"nats_subject"`
}

type MetricsConfig struct {
	Addr string `toml:"addr"`
}

type PowerConfig struct {
	Enabled bool     `toml:"enabled"`
	Command []string `toml:"command"`
}

type LoadResult struct {
	Config   Config
	Warnings []string
}

// DefaultPath returns ~/.config/pianod/config.toml, or "" when the home
// directory is unknown.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "pianod", "config.toml")
}

func Load() (*LoadResult, error) {
	return LoadFrom(DefaultPath())
}

// LoadFrom reads path over the defaults. A missing file yields the defaults.
func LoadFrom(path string) (*LoadResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return LoadFromString("")
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	return LoadFromString(string(data))
}

// LoadFromString parses data over the defaults. Keys present in data
// replace the default value; arrays replace rather than append.
func LoadFromString(data string) (*LoadResult, error) {
	result := &LoadResult{Config: DefaultConfig()}

	if data != "" {
		// The decoder reuses slice elements in place, so clear the catalog
		// to keep unset fields of a configured instrument from inheriting
		// the default entry at the same index.
		defaults := result.Config.Instruments
		result.Config.Instruments = nil
		md, err := toml.Decode(data, &result.Config)
		if err != nil {
			return nil, fmt.Errorf("parsing config: %w", err)
		}
		if !md.IsDefined("instruments") {
			result.Config.Instruments = defaults
		}
		for _, key := range md.Undecoded() {
			result.Warnings = append(result.Warnings, fmt.Sprintf("unknown config key: %q", key.String()))
		}
	}

	if err := validate(&result.Config); err != nil {
		return nil, err
	}
	return result, nil
}

// EngineSettings converts the engine section for the supervisor.
func (c *Config) EngineSettings() engine.Config {
	return engine.Config{
		Command:           c.Engine.Command,
		Args:              append([]string(nil), c.Engine.Args...),
		SoundFont:         c.Engine.SoundFont,
		SoundFontFallback: c.Engine.SoundFontFallback,
		Channels:          append([]int(nil), c.Engine.Channels...),
		SettleDelay:       c.Engine.SettleDelay,
		QuitTimeout:       c.Engine.QuitTimeout,
		TerminateTimeout:  c.Engine.TerminateTimeout,
		RestartDelay:      c.Engine.RestartDelay,
		DefaultInstrument: c.DefaultInstrument,
	}
}

// Catalog returns the instrument catalog in configured order.
func (c *Config) Catalog() []engine.Instrument {
	out := make([]engine.Instrument, len(c.Instruments))
	for i, inst := range c.Instruments {
		out[i] = engine.Instrument{Name: inst.Name, Program: inst.Program, Core: inst.Core}
	}
	return out
}

// RegistrySettings converts the midi section for the device registry.
func (c *Config) RegistrySettings() registry.Config {
	return registry.Config{
		Tool:         c.MIDI.Tool,
		EngineClient: c.MIDI.EngineClient,
		SystemIDs:    append([]int(nil), c.MIDI.SystemIDs...),
		Timeout:      c.MIDI.ToolTimeout,
	}
}

func validate(cfg *Config) error {
	var errs []string

	if strings.TrimSpace(cfg.Engine.Command) == "" {
		errs = append(errs, "engine command must not be empty")
	}
	if cfg.Engine.SoundFont == "" && cfg.Engine.SoundFontFallback == "" {
		errs = append(errs, "engine soundfont or soundfont_fallback must be set")
	}
	if len(cfg.Engine.Channels) == 0 {
		errs = append(errs, "engine channels must not be empty")
	}
	for _, ch := range cfg.Engine.Channels {
		if ch < 0 || ch > 15 {
			errs = append(errs, fmt.Sprintf("engine channel must be 0-15, got %d", ch))
		}
	}
	errs = appendPositive(errs, "engine settle_delay", cfg.Engine.SettleDelay)
	errs = appendPositive(errs, "engine quit_timeout", cfg.Engine.QuitTimeout)
	errs = appendPositive(errs, "engine terminate_timeout", cfg.Engine.TerminateTimeout)
	if cfg.Engine.RestartDelay < 0 {
		errs = append(errs, fmt.Sprintf("engine restart_delay must not be negative, got %s", cfg.Engine.RestartDelay))
	}
	if cfg.Engine.ReconnectDelay < 0 {
		errs = append(errs, fmt.Sprintf("engine reconnect_delay must not be negative, got %s", cfg.Engine.ReconnectDelay))
	}

	if len(cfg.Instruments) == 0 {
		errs = append(errs, "at least one instrument is required")
	}
	for i, inst := range cfg.Instruments {
		if strings.TrimSpace(inst.Name) == "" {
			errs = append(errs, fmt.Sprintf("instrument %d has no name", i))
		}
		if inst.Program < 0 || inst.Program > 127 {
			errs = append(errs, fmt.Sprintf("instrument %q program must be 0-127, got %d", inst.Name, inst.Program))
		}
	}
	if len(cfg.Instruments) > 0 && (cfg.DefaultInstrument < 0 || cfg.DefaultInstrument >= len(cfg.Instruments)) {
		errs = append(errs, fmt.Sprintf("default_instrument must be 0-%d, got %d", len(cfg.Instruments)-1, cfg.DefaultInstrument))
	}

	if cfg.MIDI.Tool == "" {
		errs = append(errs, "midi tool must not be empty")
	}
	if cfg.MIDI.EngineClient == "" {
		errs = append(errs, "midi engine_client must not be empty")
	}
	errs = appendPositive(errs, "midi poll_interval", cfg.MIDI.PollInterval)
	errs = appendPositive(errs, "midi tool_timeout", cfg.MIDI.ToolTimeout)

	errs = appendPositive(errs, "buttons long_press", cfg.Buttons.LongPress)
	errs = appendPositive(errs, "buttons reset_hold", cfg.Buttons.ResetHold)
	if cfg.Buttons.Debounce < 0 {
		errs = append(errs, fmt.Sprintf("buttons debounce must not be negative, got %s", cfg.Buttons.Debounce))
	}

	errs = appendPositive(errs, "health interval", cfg.Health.Interval)

	if cfg.Events.BufferSize < 1 {
		errs = append(errs, fmt.Sprintf("events buffer_size must be positive, got %d", cfg.Events.BufferSize))
	}
	if cfg.Events.NATSURL != "" && cfg.Events.NATSSubject == "" {
		errs = append(errs, "events nats_subject is required when nats_url is set")
	}

	if cfg.Power.Enabled && len(cfg.Power.Command) == 0 {
		errs = append(errs, "power command must not be empty when enabled")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation error: %s", strings.Join(errs, "; "))
	}
	return nil
}

func appendPositive(errs []string, name string, d time.Duration) []string {
	if d <= 0 {
		return append(errs, fmt.Sprintf("%s must be positive, got %s", name, d))
	}
	return errs
}
