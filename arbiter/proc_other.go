//go:build !linux

package arbiter

// process mirrors proc_linux.go's shape for non-Linux builds.
type process struct {
	PID     int
	Name    string
	ExePath string
}

// listProcesses is a no-op "always unique" stub off Linux: process
// enumeration is inherently platform-specific, and the original
// implementation this is grounded on only fully supports it there
// (spec.md §4.6 supplement).
func listProcesses() ([]process, error) { return nil, nil }
