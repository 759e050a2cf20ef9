package pincat

import (
	"testing"

	"gpioctl/wire"
)

func TestCatalogHasFortyEntriesIndexedByBoardPin(t *testing.T) {
	if len(BoardPins) != 40 {
		t.Fatalf("want 40 entries, got %d", len(BoardPins))
	}
	for i, p := range BoardPins {
		if p.Bpn != uint8(i+1) {
			t.Errorf("index %d: want Bpn %d got %d", i, i+1, p.Bpn)
		}
	}
}

func TestBcmPinsAreProgrammable(t *testing.T) {
	p, ok := ByBcm(4)
	if !ok {
		t.Fatal("BCM 4 should be present")
	}
	if !p.AllowedFunctions.Permits(wire.KindInput) || !p.AllowedFunctions.Permits(wire.KindOutput) {
		t.Errorf("BCM 4 should allow Input and Output, got %v", p.AllowedFunctions)
	}
}

func TestPowerAndGroundPinsAreNotProgrammable(t *testing.T) {
	p, ok := ByBoardPin(1) // 3V3
	if !ok {
		t.Fatal("board pin 1 should be present")
	}
	if p.HasBcm {
		t.Error("3V3 pin should have no BCM number")
	}
	if IsProgrammable(0, wire.KindOutput) {
		t.Error("BCM 0 is not in the catalog and must not be programmable")
	}
}

func TestBoardPin27And28HaveNoBcmEvenThoughNamedGPIO(t *testing.T) {
	for _, bpn := range []wire.BoardPin{27, 28} {
		p, _ := ByBoardPin(bpn)
		if p.HasBcm {
			t.Errorf("board pin %d (EEPROM ID pins) must not expose a BcmPin", bpn)
		}
	}
}
