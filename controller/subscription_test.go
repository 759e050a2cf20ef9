package controller

import (
	"errors"
	"testing"
	"time"

	"gpioctl/discovery"
	"gpioctl/internal/evbus"
	"gpioctl/transport"
	"gpioctl/wire"
)

// fakeSession is an in-memory transport.Session, in the same hand-written
// fake style agent/core_test.go uses (no mocking library anywhere in the
// pack for this kind of seam).
type fakeSession struct {
	in     chan []byte
	sent   [][]byte
	closed bool
}

func newFakeSession() *fakeSession { return &fakeSession{in: make(chan []byte, 16)} }

func (s *fakeSession) Inbound() <-chan []byte         { return s.in }
func (s *fakeSession) Send(frame []byte) error        { s.sent = append(s.sent, frame); return nil }
func (s *fakeSession) Handshake(wire.Handshake) error { return nil }
func (s *fakeSession) Close() error                   { s.closed = true; return nil }
func (s *fakeSession) Err() error                     { return nil }
func (s *fakeSession) RemoteAddr() string             { return "fake" }

func drain(t *testing.T, sub *evbus.Subscription) *evbus.Message {
	t.Helper()
	select {
	case m := <-sub.Channel():
		return m
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return nil
	}
}

func wantNoEvent(t *testing.T, sub *evbus.Subscription) {
	t.Helper()
	select {
	case m := <-sub.Channel():
		t.Fatalf("unexpected event: %#v", m.Payload)
	case <-time.After(50 * time.Millisecond):
	}
}

// TestConnectedPrecedesInputChange verifies the §4.8 ordering guarantee:
// Connected is published (and observable) before any InputChange from the
// same session.
func TestConnectedPrecedesInputChange(t *testing.T) {
	bus := evbus.New(4)
	sess := newFakeSession()
	sub := New(bus, func(discovery.HardwareConnection) (transport.Session, error) { return sess, nil })

	connectedSub := bus.Subscribe(TopicConnected)
	inputSub := bus.Subscribe(append(append(evbus.Topic{}, TopicInputChange...), "4"))

	sub.Connect(discovery.HardwareConnection{})

	hs := wire.Handshake{Description: wire.HardwareDescription{}, Config: wire.HardwareConfig{}}
	sess.in <- hs.Encode()
	sess.in <- wire.IoLevelChangedMessage(4, wire.LevelChange{NewLevel: true}).Encode()

	connMsg := drain(t, connectedSub)
	if _, ok := connMsg.Payload.(ConnectedEvent); !ok {
		t.Fatalf("expected ConnectedEvent, got %#v", connMsg.Payload)
	}

	inputMsg := drain(t, inputSub)
	ev, ok := inputMsg.Payload.(InputChangeEvent)
	if !ok || ev.Bcm != 4 || !ev.LevelChange.NewLevel {
		t.Fatalf("unexpected InputChangeEvent: %#v", inputMsg.Payload)
	}
	if connMsg.ID >= inputMsg.ID {
		t.Fatalf("Connected (id %d) was not published before InputChange (id %d)", connMsg.ID, inputMsg.ID)
	}
}

// TestNewConnectionDropsStaleEvents verifies that reconnecting to a new
// target discards any in-flight frame from the session being replaced
// (§4.8: "after NewConnection, no InputChange from the previous target is
// delivered").
func TestNewConnectionDropsStaleEvents(t *testing.T) {
	bus := evbus.New(4)
	first := newFakeSession()
	second := newFakeSession()
	dialCount := 0
	sub := New(bus, func(discovery.HardwareConnection) (transport.Session, error) {
		dialCount++
		if dialCount == 1 {
			return first, nil
		}
		return second, nil
	})

	inputSub := bus.Subscribe(append(append(evbus.Topic{}, TopicInputChange...), "7"))

	sub.Connect(discovery.HardwareConnection{})
	hs := wire.Handshake{}
	first.in <- hs.Encode()
	time.Sleep(20 * time.Millisecond)

	// Reconnect before draining the first session's queued frame: the
	// stale frame below must never surface as an InputChange.
	sub.Connect(discovery.HardwareConnection{})
	first.in <- wire.IoLevelChangedMessage(7, wire.LevelChange{NewLevel: true}).Encode()
	close(first.in)

	hs2 := wire.Handshake{}
	second.in <- hs2.Encode()
	second.in <- wire.IoLevelChangedMessage(7, wire.LevelChange{NewLevel: false}).Encode()

	msg := drain(t, inputSub)
	ev := msg.Payload.(InputChangeEvent)
	if ev.LevelChange.NewLevel != false {
		t.Fatalf("expected the second session's level, got %#v", ev)
	}
	wantNoEvent(t, inputSub)

	if !first.closed {
		t.Fatal("superseded session was never closed")
	}
}

// TestSendWithoutConnectionFails verifies Send surfaces transport.ErrNotConnected
// before any Connect has succeeded.
func TestSendWithoutConnectionFails(t *testing.T) {
	bus := evbus.New(4)
	sub := New(bus, func(discovery.HardwareConnection) (transport.Session, error) {
		return nil, errors.New("unreachable")
	})
	if err := sub.Send(wire.GetConfigMessage()); !errors.Is(err, transport.ErrNotConnected) {
		t.Fatalf("expected ErrNotConnected, got %v", err)
	}
}

// TestDialFailurePublishesConnectionError verifies a failed dial is
// surfaced to the UI and leaves the subscription Disconnected.
func TestDialFailurePublishesConnectionError(t *testing.T) {
	bus := evbus.New(4)
	errSub := bus.Subscribe(TopicConnectionError)
	sub := New(bus, func(discovery.HardwareConnection) (transport.Session, error) {
		return nil, errors.New("boom")
	})

	sub.Connect(discovery.HardwareConnection{})

	msg := drain(t, errSub)
	if _, ok := msg.Payload.(ConnectionErrorEvent); !ok {
		t.Fatalf("expected ConnectionErrorEvent, got %#v", msg.Payload)
	}
	if got := sub.State(); got != Disconnected {
		t.Fatalf("expected Disconnected, got %v", got)
	}
}
