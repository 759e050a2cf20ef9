//go:build !(rp2040 || rp2350)

package pindriver

import (
	"sync"
	"sync/atomic"
	"time"

	"gpioctl/wire"
)

// Monitor runs one edge-observer per Input pin on desktop/Pi builds,
// adapted from the teacher's services/hal/internal/gpioirq/irq_worker.go:
// an ISR-speed non-blocking send into a small buffered channel, and a
// single consumer goroutine that debounces, classifies the edge and
// invokes the pin's EdgeCallback. The MCU build (driver_mcu.go) runs this
// logic inline in its single cooperative loop instead (spec.md §5: "the
// agent is single-threaded cooperative on the MCU").
type Monitor struct {
	rawQ chan rawEdge

	mu    sync.RWMutex
	pins  map[wire.BcmPin]*watch
	drops uint32
}

type rawEdge struct {
	bcm   wire.BcmPin
	level bool
}

type watch struct {
	cb           EdgeCallback
	lastLevel    bool
	lastEventSet bool
	lastEvent    time.Time
	debounce     time.Duration
	origin       time.Time // instant at which the driver's TimeSinceBoot was zero
}

// NewMonitor returns a Monitor whose ISR-side queue holds qlen pending raw
// edges before the producer must drop (and count) further events.
func NewMonitor(qlen int) *Monitor {
	if qlen <= 0 {
		qlen = 64
	}
	return &Monitor{
		rawQ: make(chan rawEdge, qlen),
		pins: make(map[wire.BcmPin]*watch),
	}
}

// Run drains the raw queue until stop is closed.
func (m *Monitor) Run(stop <-chan struct{}) {
	for {
		select {
		case <-stop:
			return
		case ev := <-m.rawQ:
			m.handle(ev)
		}
	}
}

// Watch registers bcm for edge delivery with hardware debounce of debounce
// (spec.md §4.2: "hardware debounce of ~1 ms"). initial is delivered to cb
// synchronously before Watch returns, matching "initial level is also
// delivered via cb once, immediately" (spec.md §4.2). now is the driver's
// TimeSinceBoot at the call; later edges for bcm are stamped on that clock.
func (m *Monitor) Watch(bcm wire.BcmPin, initial bool, debounce time.Duration, cb EdgeCallback, now time.Duration) {
	m.mu.Lock()
	m.pins[bcm] = &watch{cb: cb, lastLevel: initial, debounce: debounce, origin: time.Now().Add(-now)}
	m.mu.Unlock()
	cb(bcm, wire.LevelChange{NewLevel: initial, Timestamp: now})
}

// Unwatch stops delivering edges for bcm; called when the pin is
// reconfigured or set Unused (spec.md §3 "monitor tasks ... exits ...
// when reconfigured or set Unused").
func (m *Monitor) Unwatch(bcm wire.BcmPin) {
	m.mu.Lock()
	delete(m.pins, bcm)
	m.mu.Unlock()
}

// Raise is called from the driver's real interrupt handler (or, on the
// fake backend, its ticker). It must never block: on a full queue it
// drops the event and increments Drops, mirroring the ISR-side handler in
// gpioirq.Worker.
func (m *Monitor) Raise(bcm wire.BcmPin, level bool) {
	select {
	case m.rawQ <- rawEdge{bcm: bcm, level: level}:
	default:
		atomic.AddUint32(&m.drops, 1)
	}
}

// Drops returns the count of raw edges dropped because the queue was full.
func (m *Monitor) Drops() uint32 { return atomic.LoadUint32(&m.drops) }

func (m *Monitor) handle(ev rawEdge) {
	m.mu.RLock()
	w := m.pins[ev.bcm]
	m.mu.RUnlock()
	if w == nil {
		return
	}
	now := time.Now()
	if w.lastEventSet && now.Sub(w.lastEvent) < w.debounce {
		return
	}
	// Debounced real transition: only deliver when the level actually
	// changed (spec.md §3: "An Input pin delivers LevelChange events only
	// on real transitions").
	if ev.level == w.lastLevel {
		w.lastEvent = now
		w.lastEventSet = true
		return
	}
	w.lastLevel = ev.level
	w.lastEvent = now
	w.lastEventSet = true
	w.cb(ev.bcm, wire.LevelChange{NewLevel: ev.level, Timestamp: now.Sub(w.origin)})
}
