// Package controller implements C8, the Controller Subscription: a
// mutex-guarded object that owns one active transport.Session at a time
// on behalf of a UI, reading each session on its own goroutine, grounded on
// _examples/original_source/piggui/src/hardware_subscription.rs's state
// diagram (spec.md §4.8) and the teacher's goroutine+channel pattern
// for isolating I/O from the UI thread.
package controller

import (
	"strconv"
	"sync"

	"gpioctl/discovery"
	"gpioctl/internal/evbus"
	"gpioctl/transport"
	"gpioctl/wire"
)

// State mirrors spec.md §4.8's diagram.
type State int

const (
	Disconnected State = iota
	Connecting
	Connected
	Disconnecting
)

// Topics the Sub -> UI side of the contract publishes on (internal/evbus).
var (
	TopicReady           = evbus.T("ready")
	TopicConnected       = evbus.T("connected")
	TopicInputChange     = evbus.T("input")
	TopicConnectionError = evbus.T("error")
)

// ReadyEvent is published once, at startup.
type ReadyEvent struct{}

// ConnectedEvent carries the handshake payload once a session is live.
type ConnectedEvent struct {
	Description wire.HardwareDescription
	Config      wire.HardwareConfig
}

// InputChangeEvent is published on each inbound IoLevelChanged.
type InputChangeEvent struct {
	Bcm         wire.BcmPin
	LevelChange wire.LevelChange
}

// ConnectionErrorEvent is published on any failure tearing down the
// active session.
type ConnectionErrorEvent struct {
	Message string
}

// Dialer opens a transport.Session against one discovery.HardwareConnection.
type Dialer func(discovery.HardwareConnection) (transport.Session, error)

// Subscription is the UI-facing half of C8. UI -> Sub messages are sent
// via NewConnection/Send; Sub -> UI messages are evbus publications on
// the topics above.
type Subscription struct {
	bus    *evbus.Bus
	dial   Dialer
	mu     sync.Mutex
	state  State
	sess   transport.Session
	target discovery.HardwareConnection
	gen    uint64 // bumped on each NewConnection, stale sessions' events are dropped
}

// New creates the Subscription and publishes Ready once, synchronously and
// not retained, before returning (spec.md §4.8: "Ready(sender) once on startup").
func New(bus *evbus.Bus, dial Dialer) *Subscription {
	s := &Subscription{bus: bus, dial: dial}
	bus.Publish(TopicReady, ReadyEvent{}, false)
	return s
}

// Connect is the UI's "NewConnection(target)" message (spec.md §4.8):
// any in-flight or live session for the previous target is torn down
// first (Disconnecting), then a new one is dialed (Connecting). Runs in
// the caller's goroutine; callers invoke it from their own per-request
// goroutine so the UI thread never blocks on a dial.
func (s *Subscription) Connect(target discovery.HardwareConnection) {
	s.mu.Lock()
	s.gen++
	myGen := s.gen
	if s.sess != nil {
		s.state = Disconnecting
		_ = s.sess.Close()
		s.sess = nil
	}
	s.state = Connecting
	s.target = target
	s.mu.Unlock()

	sess, err := s.dial(target)
	s.mu.Lock()
	if s.gen != myGen {
		// superseded by a newer Connect call while dialing.
		s.mu.Unlock()
		if err == nil {
			_ = sess.Close()
		}
		return
	}
	if err != nil {
		s.state = Disconnected
		s.mu.Unlock()
		s.bus.Publish(TopicConnectionError, ConnectionErrorEvent{Message: err.Error()}, false)
		return
	}
	s.sess = sess
	s.state = Connected
	s.mu.Unlock()

	go s.readLoop(sess, myGen)
}

// Send is the UI's "HardwareConfigMessage(m)" message (spec.md §4.8).
func (s *Subscription) Send(m wire.ConfigMessage) error {
	s.mu.Lock()
	sess := s.sess
	s.mu.Unlock()
	if sess == nil {
		return transport.ErrNotConnected
	}
	return sess.Send(m.Encode())
}

// Disconnect is the UI's explicit "UI:Disconnect" message.
func (s *Subscription) Disconnect() {
	s.mu.Lock()
	s.gen++
	sess := s.sess
	s.sess = nil
	s.state = Disconnected
	s.mu.Unlock()
	if sess != nil {
		_ = sess.Close()
	}
}

// State reports the current connection state.
func (s *Subscription) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// readLoop consumes sess's inbound frames: the first is treated as the
// handshake (Connected precedes any InputChange, spec.md §4.8 ordering
// guarantee), every subsequent decodable IoLevelChanged becomes an
// InputChange event. gen lets a superseded session's late events be
// dropped instead of racing a newer one's (spec.md §4.8: "after
// NewConnection, no InputChange from the previous target is delivered").
func (s *Subscription) readLoop(sess transport.Session, gen uint64) {
	first := true
	for frame := range sess.Inbound() {
		if s.stale(gen) {
			return
		}
		if first {
			first = false
			hs, err := wire.DecodeHandshakeBytes(frame)
			if err != nil {
				s.fail(gen, err)
				return
			}
			s.bus.Publish(TopicConnected, ConnectedEvent{Description: hs.Description, Config: hs.Config}, true)
			continue
		}
		m, err := wire.DecodeConfigMessage(frame)
		if err != nil {
			s.fail(gen, err)
			return
		}
		if m.Kind == wire.MsgIoLevelChanged {
			// Retained per-pin (spec.md §4.8: "current per-pin levels are
			// retained") so a UI subscribing after the fact still sees
			// the latest level for each pin without replaying history.
			topic := append(append(evbus.Topic{}, TopicInputChange...), strconv.Itoa(int(m.Bcm)))
			s.bus.Publish(topic, InputChangeEvent{Bcm: m.Bcm, LevelChange: m.LevelChange}, true)
		}
	}
	s.fail(gen, sess.Err())
}

func (s *Subscription) stale(gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gen != gen
}

func (s *Subscription) fail(gen uint64, err error) {
	s.mu.Lock()
	if s.gen == gen {
		s.state = Disconnected
		s.sess = nil
	}
	s.mu.Unlock()
	msg := "disconnected"
	if err != nil {
		msg = err.Error()
	}
	s.bus.Publish(TopicConnectionError, ConnectionErrorEvent{Message: msg}, false)
}
