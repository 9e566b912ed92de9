// Package shutdown turns the platform's termination signals into context
// cancellation for the CLI and the MCP server.
package shutdown

import (
	"context"
	"os/signal"
)

// Context returns a copy of parent that is cancelled when the process
// receives any of Signals. stop unregisters the handler; after it runs a
// second signal takes the default action again.
func Context(parent context.Context) (ctx context.Context, stop context.CancelFunc) {
	return signal.NotifyContext(parent, Signals()...)
}
