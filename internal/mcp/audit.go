package mcp

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// AuditFile is the name of the tool-call audit log inside the audit directory.
const AuditFile = "audit.jsonl"

// AuditEntry represents a single audit log entry for an MCP tool invocation.
type AuditEntry struct {
	Timestamp  time.Time         `json:"timestamp"`
	Tool       string            `json:"tool"`
	Source     string            `json:"source"` // "live" or "recorded"
	DurationMs int64             `json:"duration_ms"`
	Status     string            `json:"status"` // "success" or "error"
	Error      string            `json:"error,omitempty"`
	Params     map[string]string `json:"params,omitempty"`
}

// AuditLogger appends audit entries to a JSONL file. It is safe for
// concurrent use. A nil AuditLogger is safe to use; all methods are no-ops
// on nil receiver.
type AuditLogger struct {
	mu   sync.Mutex
	file *os.File
}

// NewAuditLogger opens dir/audit.jsonl for append. If the file cannot be
// created a warning is printed to stderr and nil is returned.
func NewAuditLogger(dir string) *AuditLogger {
	if err := os.MkdirAll(dir, 0700); err != nil {
		fmt.Fprintf(os.Stderr, "warning: cannot create audit log directory %s: %v\n", dir, err)
		return nil
	}

	path := filepath.Join(dir, AuditFile)
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: cannot open audit log %s: %v\n", path, err)
		return nil
	}
	return &AuditLogger{file: f}
}

// Log writes an entry as a single JSON line.
func (a *AuditLogger) Log(entry AuditEntry) {
	if a == nil {
		return
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return
	}
	data = append(data, '\n')

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.file == nil {
		return
	}
	_, _ = a.file.Write(data)
}

// Close closes the audit file. Safe to call on nil receiver.
func (a *AuditLogger) Close() error {
	if a == nil {
		return nil
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.file == nil {
		return nil
	}
	err := a.file.Close()
	a.file = nil
	return err
}

// sanitizeToolParams reduces tool arguments to loggable metadata.
//
// Parameters are classified into three categories:
//   - Safe-value params: both key and value are logged (e.g., "limit", "kind")
//   - Presence-only params: key is logged but value is replaced with "(set)"
//   - Unknown params: not logged at all
//
// A "_param_count" key is always included.
func sanitizeToolParams(params map[string]any) map[string]string {
	if params == nil {
		return nil
	}

	safeValueParams := map[string]bool{
		"limit":         true,
		"kind":          true,
		"min_stability": true,
		"events":        true,
		"brief":         true,
	}
	presenceOnlyParams := map[string]bool{
		"run_id":  true,
		"arrow":   true,
		"archive": true,
	}

	result := make(map[string]string)
	for key, val := range params {
		if safeValueParams[key] {
			result[key] = fmt.Sprintf("%v", val)
		} else if presenceOnlyParams[key] {
			result[key] = "(set)"
		}
	}
	result["_param_count"] = fmt.Sprintf("%d", len(params))

	return result
}

// auditTool logs a tool invocation. An empty source defaults to "live".
func (s *Server) auditTool(toolName string, start time.Time, err error, params map[string]string, source string) {
	status := "success"
	errMsg := ""
	if err != nil {
		status = "error"
		errMsg = err.Error()
	}
	if source == "" {
		source = sourceLive
	}

	s.auditLogger.Log(AuditEntry{
		Timestamp:  start,
		Tool:       toolName,
		Source:     source,
		DurationMs: time.Since(start).Milliseconds(),
		Status:     status,
		Error:      errMsg,
		Params:     params,
	})
}
