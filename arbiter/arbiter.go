// Package arbiter implements the Singleton Arbiter (C6): at agent
// start-up, detect another running instance of the same executable and,
// if found, surface its listening coordinates and exit rather than bind
// the same transports twice (spec.md §4.6). Grounded on
// _examples/original_source/pigglet/src/pigglet.rs's check_unique and
// write_info_file (the fuller, non-commented-out sibling of
// piggpio/src/lib.rs's check_unique/write_info_file).
package arbiter

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// InfoName returns the "<executable-stem>.info" path next to exe
// (spec.md §4.6).
func InfoName(exe string) string {
	ext := filepath.Ext(exe)
	stem := strings.TrimSuffix(exe, ext)
	return stem + ".info"
}

// Check enumerates other processes sharing this executable's base name.
// If one is found it prints a duplicate-instance message (and the
// peer's info file contents, if readable) and returns ErrDuplicate;
// the caller is expected to exit(1) per spec.md §4.6/§6. If none is
// found, any stale info file next to our own executable is removed and
// Check returns nil so the caller proceeds to bind transports and call
// Write.
func Check(exe string) error {
	name := filepath.Base(exe)
	mine := os.Getpid()
	procs, err := listProcesses()
	if err != nil {
		return fmt.Errorf("arbiter: enumerate processes: %w", err)
	}
	for _, p := range procs {
		if p.PID == mine || p.Name != name {
			continue
		}
		fmt.Printf("An instance of %s is already running with PID=%d\n", name, p.PID)
		if p.ExePath != "" {
			info := InfoName(p.ExePath)
			if b, err := os.ReadFile(info); err == nil {
				fmt.Println("You can use the following info to connect to it:")
				fmt.Print(string(b))
			}
		}
		return ErrDuplicate
	}
	_ = os.Remove(InfoName(exe))
	return nil
}

// ErrDuplicate is returned by Check when another instance is running.
var ErrDuplicate = fmt.Errorf("arbiter: another instance is already running")

// TransportLine is one line of the info file (spec.md §4.6): one per
// active transport, in the order the transport became ready.
type TransportLine string

// NodeIDLine, RelayLine and IPLine build the three line forms the info
// file supports.
func NodeIDLine(publicKey string) TransportLine { return TransportLine("nodeid:" + publicKey) }
func RelayLine(url string) TransportLine         { return TransportLine("relay:" + url) }
func IPLine(addr string) TransportLine           { return TransportLine("ip:" + addr) }

// Write emits the info file next to exe, one line per entry, in the
// order given (spec.md §4.6: "Order matches the order transports became
// ready").
func Write(exe string, lines []TransportLine) error {
	var b strings.Builder
	for _, l := range lines {
		b.WriteString(string(l))
		b.WriteByte('\n')
	}
	return os.WriteFile(InfoName(exe), []byte(b.String()), 0o644)
}

// Remove deletes the info file next to exe, best-effort (spec.md §4.6:
// "removed on graceful exit (best effort)").
func Remove(exe string) {
	_ = os.Remove(InfoName(exe))
}
