// Package agent implements C3, the Agent Core: the single owner of the
// current HardwareConfig and the Pin Driver, applying inbound
// ConfigMessages and synthesizing outbound IoLevelChanged events
// (spec.md §4.3). Its shape is grounded on the teacher's
// services/hal/internal/core.HAL event loop (internal/core/loop.go), but
// its mutable state is guarded by a mutex rather than owned by one
// goroutine: each session's goroutine applies that session's inbound
// messages to the driver, and a single drain goroutine forwards edge
// events to the active session.
package agent

import (
	"sync"

	"gpioctl/errcode"
	"gpioctl/internal/logx"
	"gpioctl/internal/pinring"
	"gpioctl/persistence"
	"gpioctl/pincat"
	"gpioctl/pindriver"
	"gpioctl/transport"
	"gpioctl/wire"
)

// State mirrors the per-session diagram of spec.md §4.3.
type State int

const (
	Waiting State = iota
	Serving
)

// Core is one per running agent process (spec.md §4.3).
type Core struct {
	driver pindriver.Driver
	store  *persistence.Store
	ring   *pinring.Ring[wire.BcmPin, wire.ConfigMessage]

	mu      sync.Mutex
	cfg     wire.HardwareConfig
	state   State
	active  transport.Session

	stop chan struct{}
}

// NewCore loads cfg from store (empty if absent/undecodable, spec.md
// §4.5) and immediately re-drives the Pin Driver to match it, so a
// restarted agent's hardware state matches what was last applied before
// any controller connects (spec.md §1: "the agent persists the last
// applied configuration so reboots restore state").
func NewCore(driver pindriver.Driver, store *persistence.Store) *Core {
	cfg, err := store.Load()
	if err != nil {
		logx.Warnf("agent: load persisted config: %v", err)
		cfg = wire.HardwareConfig{}
	}
	c := &Core{
		driver: driver,
		store:  store,
		ring:   pinring.New[wire.BcmPin, wire.ConfigMessage](pinring.PerPinDepth),
		cfg:    wire.HardwareConfig{},
		stop:   make(chan struct{}),
	}
	c.applyNewConfig(cfg)
	go c.drainLoop()
	return c
}

// CurrentConfig returns an independent copy, for the arbiter's info file
// and for tests.
func (c *Core) CurrentConfig() wire.HardwareConfig {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cfg.Clone()
}

// State reports whether a controller currently owns the single active
// session (spec.md §4.3 state diagram).
func (c *Core) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Shutdown stops the outbound drain goroutine. Used by cmd/agent on
// graceful exit.
func (c *Core) Shutdown() { close(c.stop) }

// Connect is invoked by a Transport Adapter's accept loop with a freshly
// accepted Session (spec.md §4.3 "connect"). It blocks for the lifetime
// of the session, so adapters call it from a per-connection goroutine,
// never from their own Accept loop directly (spec.md §4.4 "Selection
// policy": "the others remain in Waiting and continue to accept new
// connections").
//
// If another session is already Serving, this one is handshaken and then
// disconnected (spec.md §4.4): the session already Serving keeps serving,
// one Serving session at a time (Non-goals: "no multi-controller arbitration").
func (c *Core) Connect(sess transport.Session) {
	c.mu.Lock()
	if c.state == Serving {
		c.mu.Unlock()
		c.handshakeAndReject(sess)
		return
	}
	c.state = Serving
	hs := wire.Handshake{Description: c.driver.Describe(), Config: c.cfg.Clone()}
	c.mu.Unlock()

	// The session is only published to drainLoop once the handshake write
	// has completed, so no IoLevelChanged event can ever reach the peer
	// ahead of the handshake (spec.md §4.3, §4.8 "Connected precedes any
	// InputChange").
	if err := sess.Handshake(hs); err != nil {
		logx.Warnf("agent: handshake with %s: %v", sess.RemoteAddr(), err)
		_ = sess.Close()
		c.mu.Lock()
		c.state = Waiting
		c.mu.Unlock()
		return
	}

	c.mu.Lock()
	c.active = sess
	c.mu.Unlock()

	c.serveLoop(sess)
	c.endSession(sess)
}

func (c *Core) handshakeAndReject(sess transport.Session) {
	c.mu.Lock()
	hs := wire.Handshake{Description: c.driver.Describe(), Config: c.cfg.Clone()}
	c.mu.Unlock()
	if err := sess.Handshake(hs); err == nil {
		_ = sess.Send(wire.DisconnectMessage().Encode())
	}
	_ = sess.Close()
}

func (c *Core) endSession(sess transport.Session) {
	_ = sess.Close()
	c.mu.Lock()
	if c.active == sess {
		c.active = nil
		c.state = Waiting
	}
	c.mu.Unlock()
}

// serveLoop is the Serving half of the state diagram: it decodes each
// inbound frame and applies it until the peer closes, a decode error
// occurs (fatal, spec.md §7), or the peer sends Disconnect.
func (c *Core) serveLoop(sess transport.Session) {
	for frame := range sess.Inbound() {
		m, err := wire.DecodeConfigMessage(frame)
		if err != nil {
			logx.Warnf("agent: decode error from %s: %v", sess.RemoteAddr(), err)
			return
		}
		if m.Kind == wire.MsgDisconnect {
			return
		}
		c.handle(m, sess)
	}
}

// handle applies one ConfigMessage per the rules of spec.md §4.3.
func (c *Core) handle(m wire.ConfigMessage, sess transport.Session) {
	switch m.Kind {
	case wire.MsgNewConfig:
		c.applyNewConfig(m.NewConfig)
	case wire.MsgNewPinConfig:
		c.applyNewPinConfig(m.Bcm, m.PinFunction)
	case wire.MsgIoLevelChanged:
		c.applyIoLevelChanged(m.Bcm, m.LevelChange)
	case wire.MsgGetConfig:
		c.mu.Lock()
		cfg := c.cfg.Clone()
		c.mu.Unlock()
		if err := sess.Send(cfg.Encode()); err != nil {
			logx.Warnf("agent: send GetConfig reply: %v", err)
		}
	}
}

// applyNewConfig replaces the whole config (spec.md §4.3 NewConfig):
// every valid entry is applied; pins present in the old config but
// absent from the new one are set Unused; invalid entries are dropped
// silently (errcode.ConfigRejected, spec.md §7) rather than failing the
// whole message.
func (c *Core) applyNewConfig(newCfg wire.HardwareConfig) {
	c.mu.Lock()
	old := c.cfg
	c.mu.Unlock()

	result := make(wire.HardwareConfig, len(newCfg))
	for bcm, f := range newCfg {
		if !pincat.IsProgrammable(bcm, f.Kind) {
			logx.Debugf("agent: reject pin %d: %s", bcm, errcode.ConfigRejected)
			continue
		}
		if err := c.driver.ApplyPin(bcm, f, c.onEdge); err != nil {
			logx.Warnf("agent: apply pin %d: %v", bcm, err)
			continue
		}
		result[bcm] = f
	}
	for bcm := range old {
		if _, ok := result[bcm]; !ok {
			if err := c.driver.ApplyPin(bcm, wire.Unused(), c.onEdge); err != nil {
				logx.Warnf("agent: unapply pin %d: %v", bcm, err)
			}
		}
	}

	c.mu.Lock()
	c.cfg = result
	c.mu.Unlock()
	c.persist()
}

// applyNewPinConfig adds or replaces one pin (spec.md §4.3 NewPinConfig).
func (c *Core) applyNewPinConfig(bcm wire.BcmPin, f wire.PinFunction) {
	if !pincat.IsProgrammable(bcm, f.Kind) {
		logx.Debugf("agent: reject pin %d: %s", bcm, errcode.ConfigRejected)
		return
	}
	if err := c.driver.ApplyPin(bcm, f, c.onEdge); err != nil {
		logx.Warnf("agent: apply pin %d: %v", bcm, err)
		return
	}
	c.mu.Lock()
	if f.Kind == wire.KindUnused {
		delete(c.cfg, bcm)
	} else {
		c.cfg[bcm] = f
	}
	c.mu.Unlock()
	c.persist()
}

// applyIoLevelChanged writes an Output level (spec.md §4.3
// IoLevelChanged). A pin that is not currently Output is an invalid
// direction and is ignored without closing the session (spec.md §4.1,
// §8 boundary behaviors), never disambiguated by any carrier other than
// the pin's own current function.
func (c *Core) applyIoLevelChanged(bcm wire.BcmPin, lc wire.LevelChange) {
	c.mu.Lock()
	f, ok := c.cfg[bcm]
	c.mu.Unlock()
	if !ok || f.Kind != wire.KindOutput {
		return
	}
	if err := c.driver.SetOutputLevel(bcm, lc.NewLevel); err != nil {
		logx.Warnf("agent: set output %d: %v", bcm, err)
		return
	}
	init := wire.InitialLow
	if lc.NewLevel {
		init = wire.InitialHigh
	}
	c.mu.Lock()
	c.cfg[bcm] = wire.Output(init)
	c.mu.Unlock()
	c.persist()
}

func (c *Core) persist() {
	c.mu.Lock()
	cfg := c.cfg.Clone()
	c.mu.Unlock()
	if err := c.store.Save(cfg); err != nil {
		logx.Warnf("agent: persist: %v (in-memory state remains authoritative)", err)
	}
}

// onEdge is the pindriver.EdgeCallback bridged to every configured Input
// pin (and to ApplyPin's synchronous initial-level delivery). It must not
// block (spec.md §4.2): it only pushes onto the bounded per-pin ring,
// which drainLoop later drains into whichever session is active.
func (c *Core) onEdge(bcm wire.BcmPin, lc wire.LevelChange) {
	c.ring.Push(bcm, wire.IoLevelChangedMessage(bcm, lc))
}

// drainLoop is the single consumer of the outbound ring, forwarding
// events to whatever session is currently Serving. With no active
// session, drained events are simply discarded: there is no subscriber to
// report to, and the ring's per-pin depth already bounds how much can
// build up before drain (spec.md §5).
func (c *Core) drainLoop() {
	for {
		select {
		case <-c.stop:
			return
		case <-c.ring.Ready():
		}
		for {
			m, ok := c.ring.Pop()
			if !ok {
				break
			}
			c.mu.Lock()
			sess := c.active
			c.mu.Unlock()
			if sess == nil {
				continue
			}
			if err := sess.Send(m.Encode()); err != nil {
				logx.Warnf("agent: send event to %s: %v", sess.RemoteAddr(), err)
			}
		}
	}
}
