//go:build !windows

package shutdown

import (
	"os"
	"syscall"
)

// Signals lists the signals that request a graceful stop: SIGINT and SIGTERM.
func Signals() []os.Signal {
	return []os.Signal{os.Interrupt, syscall.SIGTERM}
}
