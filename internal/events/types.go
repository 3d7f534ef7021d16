// Package events is the broadcast feed of appliance events consumed by the
// control panel and the console.
package events

import "time"

// Type names an event kind. The values are the control panel's SSE event
// names.
type Type string

const (
	TypeInstrument       Type = "instrument"
	TypeMIDIConnected    Type = "midi_connected"
	TypeMIDIDisconnected Type = "midi_disconnected"
	TypeStatus           Type = "status"
	TypeEngine           Type = "engine"
)

// Event is one feed entry.
type Event struct {
	ID        string         `json:"id"`
	Type      Type           `json:"type"`
	Data      map[string]any `json:"data,omitempty"`
	Timestamp time.Time      `json:"ts"`
}
