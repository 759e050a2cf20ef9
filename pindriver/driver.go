// Package pindriver abstracts the three concrete GPIO backends behind one
// capability set (spec.md §4.2): a real Raspberry Pi backend
// (driver_pi.go), a randomized fake backend for host demo/tests
// (driver_fake.go), and an MCU backend (driver_mcu.go). Which one is
// linked in is a compile-time choice (//go:build tags on the three
// files), the same way the teacher chooses its host vs rp2xxx GPIO
// factories (services/hal/internal/platform/factories_*.go) — never a
// runtime registry lookup (Design Notes: "selection is a build-time
// choice on the agent, not a runtime reflection").
package pindriver

import (
	"time"

	"gpioctl/wire"
)

// EdgeCallback is invoked by the driver on every real level transition of
// an Input pin (and once, immediately, with the initial level on
// ApplyPin), synchronously and briefly: it must not block the driver
// (spec.md §4.2). Implementations bridge to the Agent Core via Monitor,
// which owns the only blocking hand-off.
type EdgeCallback func(bcm wire.BcmPin, lc wire.LevelChange)

// Driver is the capability set every backend implements (spec.md §4.2).
type Driver interface {
	// Describe is pure and cheap: static catalog plus runtime-discovered
	// HardwareDetails.
	Describe() wire.HardwareDescription

	// TimeSinceBoot is the monotonic clock that stamps every LevelChange
	// this backend produces.
	TimeSinceBoot() time.Duration

	// ApplyPin is idempotent: it removes any prior configuration of bcm
	// before applying f. For Input it starts (or restarts) an
	// edge-observer that calls cb on every real transition, including one
	// synchronous initial-level call so a freshly connected controller's
	// display is correct immediately.
	ApplyPin(bcm wire.BcmPin, f wire.PinFunction, cb EdgeCallback) error

	// SetOutputLevel fails with errcode.WrongDirection if bcm is not
	// currently configured as Output.
	SetOutputLevel(bcm wire.BcmPin, level bool) error

	// GetInputLevel fails with errcode.WrongDirection if bcm is not
	// currently configured as Input.
	GetInputLevel(bcm wire.BcmPin) (bool, error)
}
