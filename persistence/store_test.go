package persistence

import (
	"os"
	"path/filepath"
	"testing"

	"gpioctl/wire"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	s := New(filepath.Join(dir, "agent.pigg_config"))

	cfg := wire.HardwareConfig{
		2: wire.Output(wire.InitialHigh),
		4: wire.Input(wire.PullUp),
	}
	if err := s.Save(cfg); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := s.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(got) != len(cfg) || got[2] != cfg[2] || got[4] != cfg[4] {
		t.Fatalf("got %v, want %v", got, cfg)
	}
}

func TestLoadMissingFileYieldsEmptyConfig(t *testing.T) {
	dir := t.TempDir()
	s := New(filepath.Join(dir, "missing.pigg_config"))
	cfg, err := s.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(cfg) != 0 {
		t.Fatalf("expected empty config, got %v", cfg)
	}
}

func TestStemPath(t *testing.T) {
	got := StemPath("/opt/pigglet/pigglet")
	want := "/opt/pigglet/pigglet.pigg_config"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestLoadUndecodableFallsBackToEmpty(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.pigg_config")
	s := New(path)
	if err := os.WriteFile(path, []byte{0xff, 0xff, 0xff}, 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := s.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(cfg) != 0 {
		t.Fatalf("expected empty config for undecodable file, got %v", cfg)
	}
}
