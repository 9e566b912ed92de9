//go:build windows

package shutdown

import "os"

// Signals lists the signals that request a graceful stop. Windows only
// delivers os.Interrupt (Ctrl+C).
func Signals() []os.Signal {
	return []os.Signal{os.Interrupt}
}
