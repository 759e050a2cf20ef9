package wire

import (
	"testing"
	"time"
)

func TestPinFunctionRoundTrip(t *testing.T) {
	cases := []PinFunction{
		Unused(),
		Input(PullNone),
		Input(PullUp),
		Input(PullDown),
		Output(InitialUnset),
		Output(InitialLow),
		Output(InitialHigh),
	}
	for _, f := range cases {
		e := NewEncoder()
		f.EncodeTo(e)
		got, err := DecodePinFunction(NewDecoder(e.Bytes()))
		if err != nil {
			t.Fatalf("decode %+v: %v", f, err)
		}
		if got != f {
			t.Errorf("round trip mismatch: want %+v got %+v", f, got)
		}
	}
}

func TestLevelChangeRoundTrip(t *testing.T) {
	lc := LevelChange{NewLevel: true, Timestamp: 3*time.Second + 150*time.Millisecond}
	got, err := DecodeLevelChange(NewDecoder(lc.Encode()))
	if err != nil {
		t.Fatal(err)
	}
	if got != lc {
		t.Errorf("want %+v got %+v", lc, got)
	}
}

func TestHardwareConfigRoundTrip(t *testing.T) {
	cfg := HardwareConfig{
		2: Output(InitialHigh),
		4: Input(PullUp),
	}
	got, err := DecodeHardwareConfigBytes(cfg.Encode())
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != len(cfg) {
		t.Fatalf("want %d entries got %d", len(cfg), len(got))
	}
	for k, v := range cfg {
		if got[k] != v {
			t.Errorf("pin %d: want %+v got %+v", k, v, got[k])
		}
	}
}

func TestConfigMessageRoundTrip(t *testing.T) {
	msgs := []ConfigMessage{
		NewConfigMessage(HardwareConfig{2: Output(InitialHigh)}),
		NewPinConfigMessage(4, Input(PullDown)),
		IoLevelChangedMessage(4, LevelChange{NewLevel: true, Timestamp: time.Second}),
		GetConfigMessage(),
		DisconnectMessage(),
	}
	for _, m := range msgs {
		got, err := DecodeConfigMessage(m.Encode())
		if err != nil {
			t.Fatalf("decode %+v: %v", m, err)
		}
		if got.Kind != m.Kind || got.Bcm != m.Bcm {
			t.Errorf("want %+v got %+v", m, got)
		}
	}
}

func TestDecodeShortInput(t *testing.T) {
	_, err := DecodeConfigMessage([]byte{byte(MsgNewPinConfig)})
	if err != ErrShortInput {
		t.Fatalf("want ErrShortInput, got %v", err)
	}
}

func TestDecodeUnknownDiscriminant(t *testing.T) {
	_, err := DecodeConfigMessage([]byte{0xFF})
	if err != ErrUnknownDiscriminant {
		t.Fatalf("want ErrUnknownDiscriminant, got %v", err)
	}
}

func TestDecodeLengthExceeded(t *testing.T) {
	big := make([]byte, MaxValueLen+1)
	_, err := DecodeConfigMessage(big)
	if err != ErrLengthExceeded {
		t.Fatalf("want ErrLengthExceeded, got %v", err)
	}
}

func TestDecodeTrailingGarbageIsLengthExceeded(t *testing.T) {
	m := GetConfigMessage().Encode()
	m = append(m, 0x00)
	_, err := DecodeConfigMessage(m)
	if err != ErrLengthExceeded {
		t.Fatalf("want ErrLengthExceeded, got %v", err)
	}
}

func TestHardwareDescriptionFitsWithinMaxValueLen(t *testing.T) {
	var h HardwareDescription
	h.Details = HardwareDetails{
		Model: "Raspberry Pi 4 Model B", Hardware: "BCM2711", Revision: "c03111",
		Serial: "0000000012345678", Wifi: true, AppName: "gpioctl-agent", AppVersion: "0.1.0",
	}
	for i := range h.Pins {
		h.Pins[i] = PinDescription{Bpn: uint8(i + 1), Name: "GPIO99", AllowedFunctions: AllowInput | AllowOutput | AllowUnused}
	}
	if len(h.Encode()) > MaxValueLen {
		t.Fatalf("encoded HardwareDescription exceeds MaxValueLen: %d bytes", len(h.Encode()))
	}
}
