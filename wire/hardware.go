package wire

// SerialNumber is a 16-character hexadecimal string, globally unique per
// device (spec.md §3).
type SerialNumber = string

// HardwareDetails describes the device, read-only from the controller's
// perspective (spec.md §3).
type HardwareDetails struct {
	Model      string
	Hardware   string
	Revision   string
	Serial     SerialNumber
	Wifi       bool
	AppName    string
	AppVersion string
}

func (h HardwareDetails) EncodeTo(e *Encoder) {
	e.str(h.Model)
	e.str(h.Hardware)
	e.str(h.Revision)
	e.str(h.Serial)
	e.bl(h.Wifi)
	e.str(h.AppName)
	e.str(h.AppVersion)
}

func DecodeHardwareDetails(d *Decoder) (HardwareDetails, error) {
	var h HardwareDetails
	var err error
	if h.Model, err = d.str(); err != nil {
		return h, err
	}
	if h.Hardware, err = d.str(); err != nil {
		return h, err
	}
	if h.Revision, err = d.str(); err != nil {
		return h, err
	}
	if h.Serial, err = d.str(); err != nil {
		return h, err
	}
	if h.Wifi, err = d.bl(); err != nil {
		return h, err
	}
	if h.AppName, err = d.str(); err != nil {
		return h, err
	}
	if h.AppVersion, err = d.str(); err != nil {
		return h, err
	}
	return h, nil
}

func (h HardwareDetails) Encode() []byte {
	e := NewEncoder()
	h.EncodeTo(e)
	return e.Bytes()
}

func DecodeHardwareDetailsBytes(p []byte) (HardwareDetails, error) {
	d := NewDecoder(p)
	h, err := DecodeHardwareDetails(d)
	if err != nil {
		return h, err
	}
	if !d.Done() {
		return HardwareDetails{}, ErrLengthExceeded
	}
	return h, nil
}

// AllowedFunctions is a bitmask over Kind: which PinFunction variants a
// given header position may be configured as (spec.md §3, PinDescription).
type AllowedFunctions uint8

const (
	AllowUnused AllowedFunctions = 1 << iota
	AllowInput
	AllowOutput
)

func (a AllowedFunctions) Permits(k Kind) bool {
	switch k {
	case KindUnused:
		return a&AllowUnused != 0
	case KindInput:
		return a&AllowInput != 0
	case KindOutput:
		return a&AllowOutput != 0
	}
	return false
}

// PinDescription is a static catalog entry (spec.md §3): immutable, known
// at build time. Bcm is carried as a (present, value) pair since power and
// ground header positions have no BCM channel.
type PinDescription struct {
	Bpn              BoardPin
	HasBcm           bool
	Bcm              BcmPin
	Name             string
	AllowedFunctions AllowedFunctions
}

func (p PinDescription) EncodeTo(e *Encoder) {
	e.u8(p.Bpn)
	e.bl(p.HasBcm)
	e.u8(p.Bcm)
	e.str(p.Name)
	e.u8(uint8(p.AllowedFunctions))
}

func DecodePinDescription(d *Decoder) (PinDescription, error) {
	var p PinDescription
	var err error
	if p.Bpn, err = d.u8(); err != nil {
		return p, err
	}
	if p.HasBcm, err = d.bl(); err != nil {
		return p, err
	}
	if p.Bcm, err = d.u8(); err != nil {
		return p, err
	}
	if p.Name, err = d.str(); err != nil {
		return p, err
	}
	af, err := d.u8()
	if err != nil {
		return p, err
	}
	p.AllowedFunctions = AllowedFunctions(af)
	return p, nil
}

// HardwareDescription is the agent's handshake payload: its details plus
// the full 40-entry pin catalog, indexed by (BoardPin - 1) (spec.md §3).
type HardwareDescription struct {
	Details HardwareDetails
	Pins    [40]PinDescription
}

func (h HardwareDescription) EncodeTo(e *Encoder) {
	h.Details.EncodeTo(e)
	for _, p := range h.Pins {
		p.EncodeTo(e)
	}
}

func DecodeHardwareDescription(d *Decoder) (HardwareDescription, error) {
	var h HardwareDescription
	details, err := DecodeHardwareDetails(d)
	if err != nil {
		return h, err
	}
	h.Details = details
	for i := range h.Pins {
		p, err := DecodePinDescription(d)
		if err != nil {
			return h, err
		}
		h.Pins[i] = p
	}
	return h, nil
}

func (h HardwareDescription) Encode() []byte {
	e := NewEncoder()
	h.EncodeTo(e)
	return e.Bytes()
}

func DecodeHardwareDescriptionBytes(p []byte) (HardwareDescription, error) {
	d := NewDecoder(p)
	h, err := DecodeHardwareDescription(d)
	if err != nil {
		return h, err
	}
	if !d.Done() {
		return HardwareDescription{}, ErrLengthExceeded
	}
	return h, nil
}

// Handshake bundles (HardwareDescription, HardwareConfig): the unified
// handshake value sent by the agent on both TCP and QUIC accept (spec.md
// §4.4, Design Notes — unifying the source's divergent TCP/QUIC handshakes).
type Handshake struct {
	Description HardwareDescription
	Config      HardwareConfig
}

func (h Handshake) EncodeTo(e *Encoder) {
	h.Description.EncodeTo(e)
	h.Config.EncodeTo(e)
}

func (h Handshake) Encode() []byte {
	e := NewEncoder()
	h.EncodeTo(e)
	return e.Bytes()
}

func DecodeHandshake(d *Decoder) (Handshake, error) {
	var h Handshake
	desc, err := DecodeHardwareDescription(d)
	if err != nil {
		return h, err
	}
	cfg, err := DecodeHardwareConfig(d)
	if err != nil {
		return h, err
	}
	h.Description, h.Config = desc, cfg
	return h, nil
}

func DecodeHandshakeBytes(p []byte) (Handshake, error) {
	d := NewDecoder(p)
	h, err := DecodeHandshake(d)
	if err != nil {
		return h, err
	}
	if !d.Done() {
		return Handshake{}, ErrLengthExceeded
	}
	return h, nil
}
