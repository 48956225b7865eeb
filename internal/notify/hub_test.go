package notify

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
)

type stubConn struct {
	mu     sync.Mutex
	events []Event
	closed bool
	fail   bool
}

func (c *stubConn) WriteJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail {
		return errors.New("broken pipe")
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	var ev Event
	if err := json.Unmarshal(b, &ev); err != nil {
		return err
	}
	c.events = append(c.events, ev)
	return nil
}

func (c *stubConn) WriteMessage(messageType int, data []byte) error { return nil }

func (c *stubConn) SetWriteDeadline(t time.Time) error { return nil }

func (c *stubConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *stubConn) received() []Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Event, len(c.events))
	copy(out, c.events)
	return out
}

func (c *stubConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not reached in time")
}

func TestPublishReachesAllUserListeners(t *testing.T) {
	hub := NewHub(zap.NewNop())

	c1 := &stubConn{}
	c2 := &stubConn{}
	hub.Connect("u1", c1)
	hub.Connect("u1", c2)

	other := &stubConn{}
	hub.Connect("u2", other)

	hub.Publish("u1", Event{Type: EventApplied, Message: "applied", JobID: "j1"})

	waitFor(t, func() bool { return len(c1.received()) == 1 && len(c2.received()) == 1 })

	if got := c1.received()[0]; got.Type != EventApplied || got.JobID != "j1" {
		t.Fatalf("unexpected event: %+v", got)
	}

	if n := len(other.received()); n != 0 {
		t.Fatalf("listener of another user got %d events", n)
	}
}

func TestPublishPreservesOrder(t *testing.T) {
	hub := NewHub(zap.NewNop())

	conn := &stubConn{}
	hub.Connect("u1", conn)

	for i, typ := range []string{EventRejected, EventClarify, EventApplied} {
		hub.Publish("u1", Event{Type: typ, JobID: string(rune('a' + i))})
	}

	waitFor(t, func() bool { return len(conn.received()) == 3 })

	got := conn.received()
	want := []string{EventRejected, EventClarify, EventApplied}
	for i, typ := range want {
		if got[i].Type != typ {
			t.Fatalf("event %d: got type %q, want %q", i, got[i].Type, typ)
		}
	}
}

func TestPublishWithoutListenersIsNoop(t *testing.T) {
	hub := NewHub(zap.NewNop())

	hub.Publish("nobody", Event{Type: EventApplied, JobID: "j1"})

	if n := hub.Subscribers("nobody"); n != 0 {
		t.Fatalf("got %d subscribers, want 0", n)
	}
}

func TestBrokenConnectionIsDropped(t *testing.T) {
	hub := NewHub(zap.NewNop())

	conn := &stubConn{fail: true}
	hub.Connect("u1", conn)

	hub.Publish("u1", Event{Type: EventApplied, JobID: "j1"})

	waitFor(t, func() bool { return hub.Subscribers("u1") == 0 })

	if !conn.isClosed() {
		t.Fatal("broken connection was not closed")
	}
}

func TestDisconnectIsIdempotent(t *testing.T) {
	hub := NewHub(zap.NewNop())

	conn := &stubConn{}
	sub := hub.Connect("u1", conn)

	hub.Disconnect(sub)
	hub.Disconnect(sub)

	if n := hub.Subscribers("u1"); n != 0 {
		t.Fatalf("got %d subscribers after disconnect, want 0", n)
	}
}
