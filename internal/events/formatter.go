package events

import (
	"fmt"
	"strconv"
)

// Data keys carried by the feed's events.
const (
	KeyIndex     = "index"
	KeyName      = "name"
	KeyDirection = "direction"
	KeyDevice    = "device"
	KeyLevel     = "level"
	KeyFrom      = "from"
	KeyState     = "state"
	KeyError     = "error"
)

// Format renders an event as a single display line:
//   - instrument:        "15:04:05 instrument Electric Piano (#4, next)"
//   - midi_connected:    "15:04:05 midi + Keystation 49"
//   - midi_disconnected: "15:04:05 midi - all inputs gone"
//   - status:            "15:04:05 status STARTING -> READY"
//   - engine:            "15:04:05 engine restarted" or with ": error"
func Format(e Event) string {
	ts := e.Timestamp.Format("15:04:05")

	switch e.Type {
	case TypeInstrument:
		line := fmt.Sprintf("%s instrument %s", ts, str(e, KeyName))
		idx := str(e, KeyIndex)
		dir := str(e, KeyDirection)
		switch {
		case idx != "" && dir != "":
			line += fmt.Sprintf(" (#%s, %s)", idx, dir)
		case idx != "":
			line += fmt.Sprintf(" (#%s)", idx)
		}
		return line
	case TypeMIDIConnected:
		return fmt.Sprintf("%s midi + %s", ts, str(e, KeyDevice))
	case TypeMIDIDisconnected:
		return fmt.Sprintf("%s midi - all inputs gone", ts)
	case TypeStatus:
		if from := str(e, KeyFrom); from != "" {
			return fmt.Sprintf("%s status %s -> %s", ts, from, str(e, KeyLevel))
		}
		return fmt.Sprintf("%s status %s", ts, str(e, KeyLevel))
	case TypeEngine:
		if msg := str(e, KeyError); msg != "" {
			return fmt.Sprintf("%s engine %s: %s", ts, str(e, KeyState), truncate(msg, 80))
		}
		return fmt.Sprintf("%s engine %s", ts, str(e, KeyState))
	default:
		return fmt.Sprintf("%s %s", ts, e.Type)
	}
}

// str returns the data value for key as a string, or "".
func str(e Event, key string) string {
	if e.Data == nil {
		return ""
	}
	switch v := e.Data[key].(type) {
	case nil:
		return ""
	case string:
		return v
	case int:
		return strconv.Itoa(v)
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}

// truncate shortens s to maxLen with an ellipsis.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
