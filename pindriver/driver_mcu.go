//go:build rp2040 || rp2350

package pindriver

import (
	"machine"
	"time"

	"gpioctl/errcode"
	"gpioctl/pincat"
	"gpioctl/wire"
)

// mcuQueueLen bounds the no-heap raw edge queue drained by Poll. The MCU
// agent is single-threaded cooperative (spec.md §5): there is no monitor
// goroutine here, only an interrupt handler appending to a fixed array
// and the event loop calling Poll once per tick, the same shape the
// teacher's rp2PinFactory uses SetInterrupt for (factories_rp2xxx.go).
const mcuQueueLen = 32

type mcuEdge struct {
	bcm   wire.BcmPin
	level bool
}

// MCUDriver is the porky backend (spec.md §4.2), grounded on the
// original's porky::gpio and the teacher's rp2PinFactory/rp2Pin
// (factories_rp2xxx.go), driving pins directly through TinyGo's own
// `machine` package the same way the teacher's MCU build does.
type MCUDriver struct {
	details wire.HardwareDetails
	boot    time.Time

	funcs map[wire.BcmPin]wire.PinFunction
	cbs   map[wire.BcmPin]EdgeCallback
	last  map[wire.BcmPin]bool

	queue [mcuQueueLen]mcuEdge
	head  int
	tail  int
	drops uint32
}

func NewMCUDriver(serial, appName, appVersion string) *MCUDriver {
	return &MCUDriver{
		details: wire.HardwareDetails{
			Model: "porky", Hardware: "rp2040", Revision: "1", Serial: serial,
			Wifi: true, AppName: appName, AppVersion: appVersion,
		},
		boot:  time.Now(),
		funcs: make(map[wire.BcmPin]wire.PinFunction),
		cbs:   make(map[wire.BcmPin]EdgeCallback),
		last:  make(map[wire.BcmPin]bool),
	}
}

func (d *MCUDriver) Describe() wire.HardwareDescription {
	return wire.HardwareDescription{Details: d.details, Pins: pincat.BoardPins}
}

func (d *MCUDriver) TimeSinceBoot() time.Duration { return time.Since(d.boot) }

func mcuPin(bcm wire.BcmPin) machine.Pin { return machine.Pin(bcm) }

func (d *MCUDriver) ApplyPin(bcm wire.BcmPin, f wire.PinFunction, cb EdgeCallback) error {
	pin := mcuPin(bcm)
	_ = pin.SetInterrupt(0, nil) // clear any prior IRQ unconditionally
	delete(d.cbs, bcm)
	delete(d.last, bcm)

	switch f.Kind {
	case wire.KindUnused:
		delete(d.funcs, bcm)
		pin.Configure(machine.PinConfig{Mode: machine.PinInput})
		return nil

	case wire.KindOutput:
		pin.Configure(machine.PinConfig{Mode: machine.PinOutput})
		pin.Set(f.Initial == wire.InitialHigh)
		d.funcs[bcm] = f
		return nil

	case wire.KindInput:
		mode := machine.PinInput
		switch f.Pull {
		case wire.PullUp:
			mode = machine.PinInputPullup
		case wire.PullDown:
			mode = machine.PinInputPulldown
		}
		pin.Configure(machine.PinConfig{Mode: mode})
		d.funcs[bcm] = f
		d.cbs[bcm] = cb

		initial := pin.Get()
		d.last[bcm] = initial
		cb(bcm, wire.LevelChange{NewLevel: initial, Timestamp: d.TimeSinceBoot()})

		return pin.SetInterrupt(machine.PinToggle, func(machine.Pin) {
			d.enqueue(bcm, pin.Get())
		})

	default:
		return &errcode.E{C: errcode.ConfigRejected, Op: "ApplyPin"}
	}
}

// enqueue runs on the interrupt handler and must not allocate or block: it
// writes into the fixed-size ring and returns, matching the spec's "cb is
// synchronous and short; it must not block the driver" constraint
// (spec.md §4.2) one level down, at the hardware ISR itself.
func (d *MCUDriver) enqueue(bcm wire.BcmPin, level bool) {
	next := (d.tail + 1) % mcuQueueLen
	if next == d.head {
		d.drops++
		return
	}
	d.queue[d.tail] = mcuEdge{bcm: bcm, level: level}
	d.tail = next
}

// Poll drains queued edges into their registered callbacks. It is called
// once per iteration of the MCU agent's single cooperative event loop
// (spec.md §5), never from the interrupt handler itself.
func (d *MCUDriver) Poll() {
	for d.head != d.tail {
		ev := d.queue[d.head]
		d.head = (d.head + 1) % mcuQueueLen
		if last, ok := d.last[ev.bcm]; ok && last == ev.level {
			continue
		}
		d.last[ev.bcm] = ev.level
		if cb, ok := d.cbs[ev.bcm]; ok {
			cb(ev.bcm, wire.LevelChange{NewLevel: ev.level, Timestamp: d.TimeSinceBoot()})
		}
	}
}

// Drops returns the count of raw edges discarded because Poll had not
// yet drained the fixed-size queue.
func (d *MCUDriver) Drops() uint32 { return d.drops }

func (d *MCUDriver) SetOutputLevel(bcm wire.BcmPin, level bool) error {
	f, ok := d.funcs[bcm]
	if !ok || f.Kind != wire.KindOutput {
		return &errcode.E{C: errcode.WrongDirection, Op: "SetOutputLevel"}
	}
	mcuPin(bcm).Set(level)
	return nil
}

func (d *MCUDriver) GetInputLevel(bcm wire.BcmPin) (bool, error) {
	f, ok := d.funcs[bcm]
	if !ok || f.Kind != wire.KindInput {
		return false, &errcode.E{C: errcode.WrongDirection, Op: "GetInputLevel"}
	}
	return mcuPin(bcm).Get(), nil
}
