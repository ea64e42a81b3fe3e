package process

import (
	"os"
	"syscall"
)

// Liveness describes what can be said about a session's owning process.
type Liveness string

const (
	// Alive means the process exists on this host.
	Alive Liveness = "alive"
	// Exited means the process no longer exists on this host.
	Exited Liveness = "exited"
	// Unknown means the process runs on another host or has no recorded pid.
	Unknown Liveness = "unknown"
)

// IsProcessAlive checks if a process with the given PID is still running.
// Signal 0 probes existence; EPERM still means the process exists.
func IsProcessAlive(pid int) bool {
	if pid <= 0 {
		return false
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}

	err = process.Signal(syscall.Signal(0))
	return err == nil || os.IsPermission(err)
}

// Probe reports the liveness of pid recorded on ownerHost, as seen from
// localHost. Processes on other hosts cannot be probed.
func Probe(pid int, ownerHost, localHost string) Liveness {
	if pid <= 0 || ownerHost == "" || ownerHost != localHost {
		return Unknown
	}
	if IsProcessAlive(pid) {
		return Alive
	}
	return Exited
}
