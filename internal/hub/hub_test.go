package hub

import (
	"encoding/json"
	"testing"
	"time"
)

func receive(t *testing.T, c *Client) Envelope {
	t.Helper()
	select {
	case data := <-c.Send():
		var env Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			t.Fatalf("Failed to decode envelope: %v", err)
		}
		return env
	case <-time.After(time.Second):
		t.Fatal("Timed out waiting for broadcast")
		return Envelope{}
	}
}

func expectNothing(t *testing.T, c *Client) {
	t.Helper()
	select {
	case data := <-c.Send():
		t.Fatalf("Unexpected frame: %s", data)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHubBroadcastToSession(t *testing.T) {
	h := NewHub()
	go h.Run()
	defer h.Stop()

	sessionClient := NewClient(nil, "session-a")
	otherClient := NewClient(nil, "session-b")
	generalClient := NewClient(nil, "")

	h.Register(sessionClient)
	h.Register(otherClient)
	h.Register(generalClient)

	h.BroadcastToSession("session-a", EventEEGData, map[string]float64{"fatigue_score": 42})

	env := receive(t, sessionClient)
	if env.Type != EventEEGData {
		t.Errorf("Expected event %s, got %s", EventEEGData, env.Type)
	}
	if env.SessionID != "session-a" {
		t.Errorf("Expected session-a, got %s", env.SessionID)
	}

	// General connections see every session's events
	if env := receive(t, generalClient); env.Type != EventEEGData {
		t.Errorf("Expected event %s, got %s", EventEEGData, env.Type)
	}

	// Other sessions stay quiet
	expectNothing(t, otherClient)
}

func TestHubBroadcastAll(t *testing.T) {
	h := NewHub()
	go h.Run()
	defer h.Stop()

	a := NewClient(nil, "session-a")
	b := NewClient(nil, "session-b")
	h.Register(a)
	h.Register(b)

	h.BroadcastAll(EventSessionStatus, map[string]string{"status": "completed"})

	if env := receive(t, a); env.Type != EventSessionStatus {
		t.Errorf("Expected event %s, got %s", EventSessionStatus, env.Type)
	}
	if env := receive(t, b); env.Type != EventSessionStatus {
		t.Errorf("Expected event %s, got %s", EventSessionStatus, env.Type)
	}
}

func TestHubUnregister(t *testing.T) {
	h := NewHub()
	go h.Run()
	defer h.Stop()

	c := NewClient(nil, "session-a")
	h.Register(c)

	// Wait for the register to be processed
	deadline := time.Now().Add(time.Second)
	for h.ClientCount() != 1 {
		if time.Now().After(deadline) {
			t.Fatal("Client never registered")
		}
		time.Sleep(time.Millisecond)
	}

	h.Unregister(c)
	for h.ClientCount() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("Client never unregistered")
		}
		time.Sleep(time.Millisecond)
	}

	// Send channel is closed on unregister
	if _, ok := <-c.Send(); ok {
		t.Error("Expected send channel to be closed")
	}
}

func TestHubReplayTargetsOneClient(t *testing.T) {
	h := NewHub()
	go h.Run()
	defer h.Stop()

	newcomer := NewClient(nil, "session-a")
	veteran := NewClient(nil, "session-a")
	h.Register(newcomer)
	h.Register(veteran)

	h.Replay(newcomer, EventEEGData, "session-a", map[string]float64{"fatigue_score": 55})

	env := receive(t, newcomer)
	if env.Type != EventEEGData {
		t.Errorf("Expected event %s, got %s", EventEEGData, env.Type)
	}
	if env.SessionID != "session-a" {
		t.Errorf("Expected session-a, got %s", env.SessionID)
	}

	// Replay never reaches other subscribers
	expectNothing(t, veteran)
}

func TestHubReplayToUnregisteredClient(t *testing.T) {
	h := NewHub()
	go h.Run()
	defer h.Stop()

	stranger := NewClient(nil, "session-a")

	// Must not panic or leak a frame into a closed channel
	h.Replay(stranger, EventEEGData, "session-a", 1)
	expectNothing(t, stranger)
}

func TestHubSlowClientDropped(t *testing.T) {
	h := NewHub()
	go h.Run()
	defer h.Stop()

	c := NewClient(nil, "session-a")
	h.Register(c)

	// Nobody drains the client; overflow its queue
	for i := 0; i < sendBufferSize+8; i++ {
		h.BroadcastToSession("session-a", EventEEGData, i)
		time.Sleep(time.Millisecond)
	}

	deadline := time.Now().Add(time.Second)
	for h.ClientCount() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("Slow client was never dropped")
		}
		time.Sleep(time.Millisecond)
	}
}
