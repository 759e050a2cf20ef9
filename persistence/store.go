// Package persistence implements C5: after every successfully applied
// ConfigMessage the agent overwrites a side file with the resulting
// HardwareConfig, atomically, so a reboot restores hardware state
// (spec.md §4.5). It plays the same before-first-message role the
// teacher's services/config gives HALConfig, except the wire format here
// is the bit-exact binary codec (package wire) shared with the network
// protocol, not tinyjson, since persistence and the wire must agree
// byte-for-byte per spec §4.5.
package persistence

import (
	"os"
	"path/filepath"

	"gpioctl/errcode"
	"gpioctl/wire"
)

const fileSuffix = ".pigg_config"

// Store owns the side file next to one executable.
type Store struct {
	path string
}

// StemPath derives the side file path from an executable path, e.g.
// "/opt/pigglet" -> "/opt/pigglet.pigg_config" (spec.md §4.5:
// "<executable-stem>.pigg_config").
func StemPath(executablePath string) string {
	dir := filepath.Dir(executablePath)
	stem := stripExt(filepath.Base(executablePath))
	return filepath.Join(dir, stem+fileSuffix)
}

func stripExt(name string) string {
	if ext := filepath.Ext(name); ext != "" {
		return name[:len(name)-len(ext)]
	}
	return name
}

// New returns a Store at path. A command-line --config argument overrides
// StemPath's default at startup only (spec.md §4.5).
func New(path string) *Store { return &Store{path: path} }

// Load reads and decodes the side file. Absence or a decode failure both
// yield an empty HardwareConfig (spec.md §4.5), with LoadLegacy (see
// legacy.go) tried first as a fallback read path.
func (s *Store) Load() (wire.HardwareConfig, error) {
	b, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return wire.HardwareConfig{}, nil
		}
		return wire.HardwareConfig{}, &errcode.E{C: errcode.PersistenceError, Op: "Load", Err: err}
	}
	cfg, err := wire.DecodeHardwareConfigBytes(b)
	if err != nil {
		if legacy, lerr := LoadLegacy(b); lerr == nil {
			return legacy, nil
		}
		return wire.HardwareConfig{}, nil
	}
	return cfg, nil
}

// Save atomically overwrites the side file with cfg's framed encoding: it
// writes to a temp file in the same directory and renames over the
// target, so a crash mid-write never leaves a half-written config a
// future Load would choke on.
func (s *Store) Save(cfg wire.HardwareConfig) error {
	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".pigg_config-*")
	if err != nil {
		return &errcode.E{C: errcode.PersistenceError, Op: "Save", Err: err}
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(cfg.Encode()); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return &errcode.E{C: errcode.PersistenceError, Op: "Save", Err: err}
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return &errcode.E{C: errcode.PersistenceError, Op: "Save", Err: err}
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return &errcode.E{C: errcode.PersistenceError, Op: "Save", Err: err}
	}
	return nil
}

// Path returns the side file's location, used by cmd/agent to report it.
func (s *Store) Path() string { return s.path }
