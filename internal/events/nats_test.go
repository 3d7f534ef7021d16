package events

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"
)

type published struct {
	subject string
	data    []byte
}

type fakeConn struct {
	mu       sync.Mutex
	msgs     []published
	calls    []string
	flushErr error
	closed   bool
}

func (c *fakeConn) Publish(subj string, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.msgs = append(c.msgs, published{subject: subj, data: data})
	return nil
}

func (c *fakeConn) FlushTimeout(timeout time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if timeout <= 0 {
		return errors.New("flush without a timeout")
	}
	c.calls = append(c.calls, "flush")
	return c.flushErr
}

func (c *fakeConn) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, "close")
	c.closed = true
}

func (c *fakeConn) IsClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func TestNATSSink_Send(t *testing.T) {
	conn := &fakeConn{}
	sink := newNATSSink(conn, "pianod.events", nil)

	sink.Send(Event{
		ID:        "evt-1",
		Type:      TypeInstrument,
		Data:      map[string]any{"name": "Grand Piano"},
		Timestamp: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	})

	if len(conn.msgs) != 1 {
		t.Fatalf("published %d messages, want 1", len(conn.msgs))
	}
	msg := conn.msgs[0]
	if msg.subject != "pianod.events.instrument" {
		t.Errorf("subject = %q", msg.subject)
	}
	var got Event
	if err := json.Unmarshal(msg.data, &got); err != nil {
		t.Fatalf("payload is not JSON: %v", err)
	}
	if got.ID != "evt-1" || got.Type != TypeInstrument || got.Data["name"] != "Grand Piano" {
		t.Errorf("payload = %+v", got)
	}
}

func TestNATSSink_CloseFlushesBeforeClosing(t *testing.T) {
	conn := &fakeConn{}
	sink := newNATSSink(conn, "pianod.events", nil)

	sink.Send(Event{ID: "evt-1", Type: TypeStatus})
	sink.Close()

	want := []string{"flush", "close"}
	if len(conn.calls) != len(want) || conn.calls[0] != want[0] || conn.calls[1] != want[1] {
		t.Fatalf("calls = %v, want %v", conn.calls, want)
	}

	sink.Send(Event{ID: "evt-2", Type: TypeStatus})
	if len(conn.msgs) != 1 {
		t.Errorf("send after close published %d messages, want 1", len(conn.msgs))
	}

	sink.Close()
	if len(conn.calls) != 2 {
		t.Errorf("second close touched the connection: %v", conn.calls)
	}
}

func TestNATSSink_CloseAfterFlushError(t *testing.T) {
	conn := &fakeConn{flushErr: errors.New("timeout")}
	sink := newNATSSink(conn, "pianod.events", nil)

	sink.Close()
	if !conn.IsClosed() {
		t.Error("connection should close even when the flush fails")
	}
}
