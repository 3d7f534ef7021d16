package app

import (
	"context"

	"github.com/nixlim/pianod/internal/events"
)

// CatalogEntry is an instrument as shown to a remote panel.
type CatalogEntry struct {
	Index   int    `json:"index"`
	Name    string `json:"name"`
	Program int    `json:"program"`
	Core    bool   `json:"core"`
}

// Snapshot is the appliance state served to the control panel.
type Snapshot struct {
	Instrument string         `json:"instrument"`
	Index      int            `json:"index"`
	Catalog    []CatalogEntry `json:"instruments"`
	Running    bool           `json:"synth_running"`
	HasInput   bool           `json:"midi_connected"`
	Devices    []string       `json:"devices"`
	Status     string         `json:"status"`
}

// Snapshot returns the current state.
func (a *App) Snapshot() Snapshot {
	idx, inst := a.engine.Current()
	catalog := a.engine.Catalog()

	entries := make([]CatalogEntry, len(catalog))
	for i, c := range catalog {
		entries[i] = CatalogEntry{Index: i, Name: c.Name, Program: c.Program, Core: c.Core}
	}

	return Snapshot{
		Instrument: inst.Name,
		Index:      idx,
		Catalog:    entries,
		Running:    a.engine.IsRunning(),
		HasInput:   a.monitor.HasAny(),
		Devices:    a.monitor.Connected(),
		Status:     a.status.Level().String(),
	}
}

// SelectInstrument chooses the instrument at index i and waits for the
// engine to be told. An out-of-range index is rejected with
// engine.ErrInvalidIndex.
func (a *App) SelectInstrument(ctx context.Context, i int) error {
	return a.Dispatch(ctx, Select(i))
}

// Restart queues an engine restart and returns immediately.
func (a *App) Restart() error {
	return a.Submit(Command{Kind: CmdRestart})
}

// RequestShutdown queues a shutdown of the appliance and returns
// immediately.
func (a *App) RequestShutdown() error {
	return a.Submit(Command{Kind: CmdShutdown})
}

// Subscribe follows the event feed. The channel closes on shutdown or when
// cancel is called.
func (a *App) Subscribe(buffer int) (<-chan events.Event, func()) {
	return a.hub.Subscribe(buffer)
}

// Recent returns up to limit of the latest feed events.
func (a *App) Recent(limit int) []events.Event {
	return a.hub.Recent(limit)
}
