// Package logging provides leveled logging and event tracing for selfwatch.
// It offers two complementary outputs:
//   - A leveled slog.Logger for stderr (operational output)
//   - An EventLogger for structured JSONL engine events (<dir>/events.jsonl)
package logging

import (
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// LevelTrace is a custom slog level below Debug for per-tick output.
// At this level the engine logs every scheduled subsystem update.
const LevelTrace = slog.LevelDebug - 4

// EventsFile is the name of the JSONL file written by EventLogger.
const EventsFile = "events.jsonl"

// ParseLevel maps a string level name to a slog.Level.
// Supported values: "info", "debug", "trace" (case-insensitive).
// Unknown values default to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "trace":
		return LevelTrace
	default:
		return slog.LevelInfo
	}
}

// ValidLevel reports whether s names a supported level.
func ValidLevel(s string) bool {
	switch strings.ToLower(s) {
	case "info", "debug", "trace":
		return true
	}
	return false
}

// NewLogger creates a leveled slog.Logger writing to w.
func NewLogger(level string, w io.Writer) *slog.Logger {
	lvl := ParseLevel(level)
	opts := &slog.HandlerOptions{
		Level: lvl,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.LevelKey {
				if lvl, ok := a.Value.Any().(slog.Level); ok && lvl == LevelTrace {
					a.Value = slog.StringValue("TRACE")
				}
			}
			return a
		},
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// Discard returns a logger that drops everything.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError + 4}))
}

// EventLogger writes discrete engine events (inflections, recurrences,
// cascade syncs, invariant changes, perturbations) to a JSONL file.
// It is safe for concurrent use. A nil EventLogger is safe to use;
// all methods are no-ops on nil receiver.
type EventLogger struct {
	mu   sync.Mutex
	file *os.File
}

// NewEventLogger creates an event logger writing to dir/events.jsonl.
// At "info" level (the default), returns nil and no file is created.
// At "debug" or "trace" level, the file is opened for append.
// Returns nil if the file cannot be opened. All methods are nil-safe.
func NewEventLogger(dir string, level string) *EventLogger {
	if ParseLevel(level) == slog.LevelInfo {
		return nil
	}

	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil
	}

	path := filepath.Join(dir, EventsFile)
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return nil
	}

	return &EventLogger{file: f}
}

// Log writes an event as a single JSONL line. The event name is stored
// under "event" and a "time" field is added. The caller's map is not mutated.
func (el *EventLogger) Log(name string, fields map[string]any) {
	if el == nil || el.file == nil {
		return
	}

	entry := make(map[string]any, len(fields)+2)
	for k, v := range fields {
		entry[k] = v
	}
	entry["event"] = name
	entry["time"] = time.Now().UTC().Format(time.RFC3339Nano)

	data, err := json.Marshal(entry)
	if err != nil {
		return
	}
	data = append(data, '\n')

	el.mu.Lock()
	defer el.mu.Unlock()
	if el.file == nil {
		return
	}
	_, _ = el.file.Write(data)
}

// Close closes the underlying file. Safe to call on nil receiver.
func (el *EventLogger) Close() {
	if el == nil {
		return
	}

	el.mu.Lock()
	defer el.mu.Unlock()

	if el.file != nil {
		el.file.Close()
		el.file = nil
	}
}
