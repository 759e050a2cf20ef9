package wire

// MsgKind is the ConfigMessage discriminant, stable across host, desktop
// agent and MCU agent (spec.md §4.1). Declaration order is the wire order.
type MsgKind uint8

const (
	MsgNewConfig MsgKind = iota + 1
	MsgNewPinConfig
	MsgIoLevelChanged
	MsgGetConfig
	MsgDisconnect
)

// ConfigMessage is the sum type carrying every inbound/outbound protocol
// message (spec.md §4.1). IoLevelChanged is deliberately a single type used
// in both directions; direction is disambiguated by the receiving pin's
// current function, never by a separate carrier (Design Notes).
type ConfigMessage struct {
	Kind MsgKind

	NewConfig    HardwareConfig // MsgNewConfig
	Bcm          BcmPin         // MsgNewPinConfig, MsgIoLevelChanged
	PinFunction  PinFunction    // MsgNewPinConfig
	LevelChange  LevelChange    // MsgIoLevelChanged
}

func NewConfigMessage(cfg HardwareConfig) ConfigMessage {
	return ConfigMessage{Kind: MsgNewConfig, NewConfig: cfg}
}

func NewPinConfigMessage(bcm BcmPin, f PinFunction) ConfigMessage {
	return ConfigMessage{Kind: MsgNewPinConfig, Bcm: bcm, PinFunction: f}
}

func IoLevelChangedMessage(bcm BcmPin, lc LevelChange) ConfigMessage {
	return ConfigMessage{Kind: MsgIoLevelChanged, Bcm: bcm, LevelChange: lc}
}

func GetConfigMessage() ConfigMessage { return ConfigMessage{Kind: MsgGetConfig} }

func DisconnectMessage() ConfigMessage { return ConfigMessage{Kind: MsgDisconnect} }

// Encode returns the standalone framed byte form of m, ready to hand to a
// Transport Adapter.
func (m ConfigMessage) Encode() []byte {
	e := NewEncoder()
	e.u8(uint8(m.Kind))
	switch m.Kind {
	case MsgNewConfig:
		m.NewConfig.EncodeTo(e)
	case MsgNewPinConfig:
		e.u8(m.Bcm)
		m.PinFunction.EncodeTo(e)
	case MsgIoLevelChanged:
		e.u8(m.Bcm)
		m.LevelChange.EncodeTo(e)
	case MsgGetConfig, MsgDisconnect:
		// no payload
	}
	return e.Bytes()
}

// DecodeConfigMessage decodes a standalone framed ConfigMessage (spec.md
// §4.1). Any decode failure is fatal to the session that sent it (§7).
func DecodeConfigMessage(p []byte) (ConfigMessage, error) {
	d := NewDecoder(p)
	k, err := d.u8()
	if err != nil {
		return ConfigMessage{}, err
	}
	m := ConfigMessage{Kind: MsgKind(k)}
	switch m.Kind {
	case MsgNewConfig:
		cfg, err := DecodeHardwareConfig(d)
		if err != nil {
			return ConfigMessage{}, err
		}
		m.NewConfig = cfg
	case MsgNewPinConfig:
		bcm, err := d.u8()
		if err != nil {
			return ConfigMessage{}, err
		}
		f, err := DecodePinFunction(d)
		if err != nil {
			return ConfigMessage{}, err
		}
		m.Bcm, m.PinFunction = bcm, f
	case MsgIoLevelChanged:
		bcm, err := d.u8()
		if err != nil {
			return ConfigMessage{}, err
		}
		lc, err := DecodeLevelChange(d)
		if err != nil {
			return ConfigMessage{}, err
		}
		m.Bcm, m.LevelChange = bcm, lc
	case MsgGetConfig, MsgDisconnect:
		// no payload
	default:
		return ConfigMessage{}, ErrUnknownDiscriminant
	}
	if !d.Done() {
		return ConfigMessage{}, ErrLengthExceeded
	}
	return m, nil
}
