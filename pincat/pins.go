// Package pincat holds the hardcoded 40-entry Raspberry Pi GPIO header
// catalog (spec.md §1 Out-of-scope: "data, not logic"). It is transcribed
// from the Raspberry Pi B+/2B/3B/3B+/4B/Zero(2) W/5 GPIO reference and is
// immutable, known at build time (spec.md §3 PinDescription lifecycle).
package pincat

import "gpioctl/wire"

const programmable = wire.AllowUnused | wire.AllowInput | wire.AllowOutput

func bcm(n uint8) wire.PinDescription {
	return wire.PinDescription{HasBcm: true, Bcm: n, AllowedFunctions: programmable}
}

func fixed(name string) wire.PinDescription {
	return wire.PinDescription{Name: name}
}

// BoardPins is the 40-entry catalog, indexed by (BoardPin - 1) (spec.md §3
// HardwareDescription.pins).
var BoardPins = buildCatalog()

func buildCatalog() [40]wire.PinDescription {
	pins := [40]wire.PinDescription{
		0:  fixed("3V3"),
		1:  fixed("5V"),
		2:  named(bcm(2), "GPIO2"),
		3:  fixed("5V"),
		4:  named(bcm(3), "GPIO3"),
		5:  fixed("Ground"),
		6:  named(bcm(4), "GPIO4"),
		7:  named(bcm(14), "GPIO14"),
		8:  fixed("Ground"),
		9:  named(bcm(15), "GPIO15"),
		10: named(bcm(17), "GPIO17"),
		11: named(bcm(18), "GPIO18"),
		12: named(bcm(27), "GPIO27"),
		13: fixed("Ground"),
		14: named(bcm(22), "GPIO22"),
		15: named(bcm(23), "GPIO23"),
		16: fixed("3V3"),
		17: named(bcm(24), "GPIO24"),
		18: named(bcm(10), "GPIO10"),
		19: fixed("Ground"),
		20: named(bcm(9), "GPIO9"),
		21: named(bcm(25), "GPIO25"),
		22: named(bcm(11), "GPIO11"),
		23: named(bcm(8), "GPIO8"),
		24: fixed("Ground"),
		25: named(bcm(7), "GPIO7"),
		26: fixed("GPIO0"), // EEPROM ID SDA; not software-programmable
		27: fixed("GPIO1"), // EEPROM ID SCL; not software-programmable
		28: named(bcm(5), "GPIO5"),
		29: fixed("Ground"),
		30: named(bcm(6), "GPIO6"),
		31: named(bcm(12), "GPIO12"),
		32: named(bcm(13), "GPIO13"),
		33: fixed("Ground"),
		34: named(bcm(19), "GPIO19"),
		35: named(bcm(16), "GPIO16"),
		36: named(bcm(26), "GPIO26"),
		37: named(bcm(20), "GPIO20"),
		38: fixed("Ground"),
		39: named(bcm(21), "GPIO21"),
	}
	for i := range pins {
		pins[i].Bpn = uint8(i + 1)
	}
	return pins
}

func named(p wire.PinDescription, name string) wire.PinDescription {
	p.Name = name
	return p
}

// ByBoardPin returns the catalog entry for a 1-40 board position.
func ByBoardPin(bpn wire.BoardPin) (wire.PinDescription, bool) {
	if bpn < 1 || int(bpn) > len(BoardPins) {
		return wire.PinDescription{}, false
	}
	return BoardPins[bpn-1], true
}

// ByBcm returns the catalog entry whose BcmPin matches n, used by the Agent
// Core to validate inbound NewConfig/NewPinConfig entries (spec.md §3
// invariant: every HardwareConfig entry must name a programmable pin).
func ByBcm(n wire.BcmPin) (wire.PinDescription, bool) {
	for _, p := range BoardPins {
		if p.HasBcm && p.Bcm == n {
			return p, true
		}
	}
	return wire.PinDescription{}, false
}

// IsProgrammable reports whether bcm names a catalog entry whose
// AllowedFunctions permit kind.
func IsProgrammable(n wire.BcmPin, kind wire.Kind) bool {
	p, ok := ByBcm(n)
	return ok && p.AllowedFunctions.Permits(kind)
}
