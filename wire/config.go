package wire

import "sort"

// BcmPin is the Broadcom GPIO channel number (spec.md §3); 0-27 for
// programmable pins.
type BcmPin = uint8

// BoardPin is the physical 1-40 header position (spec.md §3).
type BoardPin = uint8

// HardwareConfig maps BcmPin -> PinFunction. Absence of an entry is
// equivalent to Unused; insertion order is never observable (spec.md §3),
// so encoding always emits entries sorted by BcmPin for a deterministic,
// round-trippable byte stream.
type HardwareConfig map[BcmPin]PinFunction

// Clone returns an independent copy, used whenever the agent hands its
// current config to a new session or to persistence.
func (c HardwareConfig) Clone() HardwareConfig {
	out := make(HardwareConfig, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}

func (c HardwareConfig) EncodeTo(e *Encoder) {
	pins := make([]BcmPin, 0, len(c))
	for k := range c {
		pins = append(pins, k)
	}
	sort.Slice(pins, func(i, j int) bool { return pins[i] < pins[j] })
	e.u16(uint16(len(pins)))
	for _, bcm := range pins {
		e.u8(bcm)
		c[bcm].EncodeTo(e)
	}
}

func DecodeHardwareConfig(d *Decoder) (HardwareConfig, error) {
	n, err := d.u16()
	if err != nil {
		return nil, err
	}
	cfg := make(HardwareConfig, n)
	for i := uint16(0); i < n; i++ {
		bcm, err := d.u8()
		if err != nil {
			return nil, err
		}
		f, err := DecodePinFunction(d)
		if err != nil {
			return nil, err
		}
		cfg[bcm] = f
	}
	return cfg, nil
}

// Encode is a convenience wrapper returning a standalone framed value, used
// for persistence and for GetConfig's un-wrapped reply (spec.md §4.1/§4.5).
func (c HardwareConfig) Encode() []byte {
	e := NewEncoder()
	c.EncodeTo(e)
	return e.Bytes()
}

// DecodeHardwareConfigBytes decodes a standalone framed HardwareConfig,
// rejecting trailing bytes as a framing error.
func DecodeHardwareConfigBytes(p []byte) (HardwareConfig, error) {
	d := NewDecoder(p)
	cfg, err := DecodeHardwareConfig(d)
	if err != nil {
		return nil, err
	}
	if !d.Done() {
		return nil, ErrLengthExceeded
	}
	return cfg, nil
}
