package persistence

import (
	"github.com/fxamacker/cbor/v2"

	"gpioctl/wire"
)

// legacyPinFunction and legacyConfig mirror the older "piglet" lineage's
// JSON/CBOR-era persisted shape (Open Questions #1: "the source has two
// overlapping agent implementations ... this spec picks the plain-text
// [info file and binary-codec config] one from 'pigglet' as authoritative
// ... implementers supporting the legacy form should treat it as an
// additional parser, not a new contract"). It is read-only: Store.Save
// never produces this format.
type legacyPinFunction struct {
	Kind    string `cbor:"kind"`
	Pull    string `cbor:"pull,omitempty"`
	Initial string `cbor:"initial,omitempty"`
}

type legacyEntry struct {
	Bcm      uint8             `cbor:"bcm"`
	Function legacyPinFunction `cbor:"function"`
}

type legacyConfig struct {
	Pins []legacyEntry `cbor:"pins"`
}

// LoadLegacy attempts to decode b as a legacy CBOR-encoded config, used by
// Store.Load as a fallback when the primary bit-exact decode fails.
func LoadLegacy(b []byte) (wire.HardwareConfig, error) {
	var lc legacyConfig
	if err := cbor.Unmarshal(b, &lc); err != nil {
		return nil, err
	}
	cfg := make(wire.HardwareConfig, len(lc.Pins))
	for _, e := range lc.Pins {
		f, ok := convertLegacyFunction(e.Function)
		if !ok {
			continue
		}
		cfg[e.Bcm] = f
	}
	return cfg, nil
}

func convertLegacyFunction(lf legacyPinFunction) (wire.PinFunction, bool) {
	switch lf.Kind {
	case "unused", "":
		return wire.Unused(), true
	case "input":
		var pull wire.Pull
		switch lf.Pull {
		case "up":
			pull = wire.PullUp
		case "down":
			pull = wire.PullDown
		default:
			pull = wire.PullNone
		}
		return wire.Input(pull), true
	case "output":
		var init wire.OutputInitial
		switch lf.Initial {
		case "low":
			init = wire.InitialLow
		case "high":
			init = wire.InitialHigh
		default:
			init = wire.InitialUnset
		}
		return wire.Output(init), true
	default:
		return wire.PinFunction{}, false
	}
}
