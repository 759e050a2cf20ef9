//go:build linux

package arbiter

import (
	"os"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"
)

// process is one entry returned by listProcesses.
type process struct {
	PID     int
	Name    string
	ExePath string
}

// listProcesses enumerates /proc/<pid>, reading comm for the process
// name and resolving the exe symlink for its executable path (spec.md
// §4.6), the same style of raw /proc-and-syscall access the pack's
// Pi-facing code uses golang.org/x/sys/unix for elsewhere.
func listProcesses() ([]process, error) {
	entries, err := os.ReadDir("/proc")
	if err != nil {
		return nil, err
	}
	var out []process
	for _, e := range entries {
		pid, err := strconv.Atoi(e.Name())
		if err != nil {
			continue
		}
		comm, err := os.ReadFile("/proc/" + e.Name() + "/comm")
		if err != nil {
			continue
		}
		name := strings.TrimSpace(string(comm))
		buf := make([]byte, 4096)
		n, err := unix.Readlink("/proc/"+e.Name()+"/exe", buf)
		exe := ""
		if err == nil {
			exe = string(buf[:n])
		}
		out = append(out, process{PID: pid, Name: name, ExePath: exe})
	}
	return out, nil
}
