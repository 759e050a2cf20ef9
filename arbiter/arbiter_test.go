package arbiter

import (
	"os"
	"path/filepath"
	"testing"
)

func TestInfoName(t *testing.T) {
	if got, want := InfoName("/opt/pigg/pigglet"), "/opt/pigg/pigglet.info"; got != want {
		t.Fatalf("InfoName = %q, want %q", got, want)
	}
	if got, want := InfoName("/opt/pigg/pigglet.exe"), "/opt/pigg/pigglet.info"; got != want {
		t.Fatalf("InfoName = %q, want %q", got, want)
	}
}

func TestWriteReadRoundTrip(t *testing.T) {
	exe := filepath.Join(t.TempDir(), "pigglet")
	lines := []TransportLine{NodeIDLine("abcd1234"), IPLine("192.168.1.5:4242")}
	if err := Write(exe, lines); err != nil {
		t.Fatalf("Write: %v", err)
	}
	b, err := os.ReadFile(InfoName(exe))
	if err != nil {
		t.Fatalf("read info file: %v", err)
	}
	want := "nodeid:abcd1234\nip:192.168.1.5:4242\n"
	if string(b) != want {
		t.Fatalf("info file = %q, want %q", string(b), want)
	}
}

func TestRemoveIsBestEffort(t *testing.T) {
	exe := filepath.Join(t.TempDir(), "pigglet")
	Remove(exe) // must not panic when nothing exists
}

func TestParseLegacyInfo(t *testing.T) {
	lines, err := ParseLegacyInfo([]byte(`{"nodeid":"ab12","relay":"https://relay.example","ip":["10.0.0.1:9000"]}`))
	if err != nil {
		t.Fatalf("ParseLegacyInfo: %v", err)
	}
	want := []TransportLine{NodeIDLine("ab12"), RelayLine("https://relay.example"), IPLine("10.0.0.1:9000")}
	if len(lines) != len(want) {
		t.Fatalf("len = %d, want %d", len(lines), len(want))
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Fatalf("line %d = %q, want %q", i, lines[i], want[i])
		}
	}
}
