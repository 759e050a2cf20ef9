package wire

// Pull selects the internal resistor for an Input pin function.
type Pull uint8

const (
	PullNone Pull = iota
	PullUp
	PullDown
)

// OutputInitial selects the level an Output pin function should drive the
// moment it is applied, before any IoLevelChanged is received.
type OutputInitial uint8

const (
	InitialUnset OutputInitial = iota
	InitialLow
	InitialHigh
)

// Kind identifies which of the three PinFunction variants is set. The
// discriminant values below are the wire discriminants (spec.md §3): the
// declaration order Unused, Input, Output is load-bearing and shared by
// host, desktop agent and MCU agent.
type Kind uint8

const (
	KindUnused Kind = iota
	KindInput
	KindOutput
)

// PinFunction is the sum type "exactly one of Unused | Input(pull) |
// Output(initial)" from spec.md §3. Pull and Initial are only meaningful
// for their respective Kind; a zero PinFunction is KindUnused.
type PinFunction struct {
	Kind    Kind
	Pull    Pull
	Initial OutputInitial
}

func Unused() PinFunction                { return PinFunction{Kind: KindUnused} }
func Input(pull Pull) PinFunction        { return PinFunction{Kind: KindInput, Pull: pull} }
func Output(init OutputInitial) PinFunction {
	return PinFunction{Kind: KindOutput, Initial: init}
}

func (f PinFunction) EncodeTo(e *Encoder) {
	e.u8(uint8(f.Kind))
	switch f.Kind {
	case KindInput:
		e.u8(uint8(f.Pull))
	case KindOutput:
		e.u8(uint8(f.Initial))
	}
}

func DecodePinFunction(d *Decoder) (PinFunction, error) {
	k, err := d.u8()
	if err != nil {
		return PinFunction{}, err
	}
	switch Kind(k) {
	case KindUnused:
		return Unused(), nil
	case KindInput:
		p, err := d.u8()
		if err != nil {
			return PinFunction{}, err
		}
		return Input(Pull(p)), nil
	case KindOutput:
		v, err := d.u8()
		if err != nil {
			return PinFunction{}, err
		}
		return Output(OutputInitial(v)), nil
	default:
		return PinFunction{}, ErrUnknownDiscriminant
	}
}
