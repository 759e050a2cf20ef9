//go:build !(linux && (arm || arm64)) && !(rp2040 || rp2350)

package pindriver

import (
	"math/rand"
	"sync"
	"time"

	"gpioctl/errcode"
	"gpioctl/pincat"
	"gpioctl/wire"
)

// FakeDriver is the randomized backend used for host demos and tests
// (spec.md §4.2, Design Notes), grounded on the original's
// pigpio::fake_pi: no real hardware is touched; Input pins receive
// synthetic edges from a ticker and initial levels are seeded randomly so
// a fresh connection still exercises the controller's display logic.
type FakeDriver struct {
	details wire.HardwareDetails
	boot    time.Time
	rng     *rand.Rand

	mon *Monitor

	mu     sync.Mutex
	funcs  map[wire.BcmPin]wire.PinFunction
	levels map[wire.BcmPin]bool
	stopCh map[wire.BcmPin]chan struct{}
}

// NewFakeDriver seeds its randomness from the current time (Open
// Questions decision #3: "seeded ... at driver construction, not
// per-pin, so a given process run is internally consistent for debugging
// but unpredictable across runs").
func NewFakeDriver(appName, appVersion string) *FakeDriver {
	seed := time.Now().UnixNano()
	d := &FakeDriver{
		details: wire.HardwareDetails{
			Model:      "Fake Pi",
			Hardware:   "unknown",
			Revision:   "unknown",
			Serial:     fakeSerial(seed),
			Wifi:       true,
			AppName:    appName,
			AppVersion: appVersion,
		},
		boot:   time.Now(),
		rng:    rand.New(rand.NewSource(seed)),
		mon:    NewMonitor(64),
		funcs:  make(map[wire.BcmPin]wire.PinFunction),
		levels: make(map[wire.BcmPin]bool),
		stopCh: make(map[wire.BcmPin]chan struct{}),
	}
	go d.mon.Run(make(chan struct{}))
	return d
}

func fakeSerial(seed int64) string {
	const hexDigits = "0123456789abcdef"
	b := make([]byte, 16)
	r := rand.New(rand.NewSource(seed))
	for i := range b {
		b[i] = hexDigits[r.Intn(16)]
	}
	return string(b)
}

func (d *FakeDriver) Describe() wire.HardwareDescription {
	return wire.HardwareDescription{Details: d.details, Pins: pincat.BoardPins}
}

func (d *FakeDriver) TimeSinceBoot() time.Duration { return time.Since(d.boot) }

func (d *FakeDriver) ApplyPin(bcm wire.BcmPin, f wire.PinFunction, cb EdgeCallback) error {
	d.mu.Lock()
	if stop, ok := d.stopCh[bcm]; ok {
		close(stop)
		delete(d.stopCh, bcm)
	}
	d.mon.Unwatch(bcm)
	delete(d.levels, bcm)

	switch f.Kind {
	case wire.KindUnused:
		delete(d.funcs, bcm)
		d.mu.Unlock()
		return nil
	case wire.KindOutput:
		d.funcs[bcm] = f
		lvl := f.Initial == wire.InitialHigh
		d.levels[bcm] = lvl
		d.mu.Unlock()
		return nil
	case wire.KindInput:
		d.funcs[bcm] = f
		initial := d.rng.Intn(2) == 1
		d.levels[bcm] = initial
		stop := make(chan struct{})
		d.stopCh[bcm] = stop
		d.mu.Unlock()

		d.mon.Watch(bcm, initial, time.Millisecond, cb, d.TimeSinceBoot())
		go d.toggleLoop(bcm, stop)
		return nil
	default:
		d.mu.Unlock()
		return &errcode.E{C: errcode.ConfigRejected, Op: "ApplyPin"}
	}
}

// toggleLoop synthesizes edges on a jittered interval, standing in for
// real hardware transitions the fake backend has none of.
func (d *FakeDriver) toggleLoop(bcm wire.BcmPin, stop <-chan struct{}) {
	for {
		wait := time.Duration(500+d.rng.Intn(1500)) * time.Millisecond
		select {
		case <-stop:
			return
		case <-time.After(wait):
		}
		d.mu.Lock()
		lvl, ok := d.levels[bcm]
		if !ok {
			d.mu.Unlock()
			return
		}
		lvl = !lvl
		d.levels[bcm] = lvl
		d.mu.Unlock()
		d.mon.Raise(bcm, lvl)
	}
}

func (d *FakeDriver) SetOutputLevel(bcm wire.BcmPin, level bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	f, ok := d.funcs[bcm]
	if !ok || f.Kind != wire.KindOutput {
		return &errcode.E{C: errcode.WrongDirection, Op: "SetOutputLevel"}
	}
	d.levels[bcm] = level
	return nil
}

func (d *FakeDriver) GetInputLevel(bcm wire.BcmPin) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	f, ok := d.funcs[bcm]
	if !ok || f.Kind != wire.KindInput {
		return false, &errcode.E{C: errcode.WrongDirection, Op: "GetInputLevel"}
	}
	return d.levels[bcm], nil
}
