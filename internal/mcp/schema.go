// Package mcp provides an MCP (Model Context Protocol) server for selfwatch.
package mcp

import (
	"github.com/nvandessel/selfwatch/internal/cascade"
	"github.com/nvandessel/selfwatch/internal/host"
	"github.com/nvandessel/selfwatch/internal/invariants"
)

// SnapshotInput defines the input for selfwatch_snapshot tool.
type SnapshotInput struct {
	Events bool `json:"events,omitempty" jsonschema:"Include the events raised on the latest tick (default: false)"`
}

// SnapshotOutput defines the output for selfwatch_snapshot tool.
type SnapshotOutput struct {
	Ready             bool        `json:"ready" jsonschema:"Whether the engine has published a snapshot yet"`
	Tick              int64       `json:"tick" jsonschema:"Engine tick of the snapshot"`
	Cycles            int64       `json:"cycles" jsonschema:"Completed analytics cycles"`
	Entropy           float64     `json:"entropy" jsonschema:"Normalized spatial entropy (0.0-1.0)"`
	Trend             float64     `json:"trend" jsonschema:"Recent entropy trend"`
	MetaEntropy       float64     `json:"meta_entropy" jsonschema:"Entropy of the entropy history (0.0-1.0)"`
	ObservationDepth  float64     `json:"observation_depth" jsonschema:"Smoothed observation depth"`
	Familiarity       float64     `json:"familiarity" jsonschema:"Similarity of the current signature to the archive (0.0-1.0)"`
	Recurring         bool        `json:"recurring" jsonschema:"Whether a recurrence is currently active"`
	Complexity        float64     `json:"complexity" jsonschema:"Estimated complexity (0.0-1.0)"`
	MetaComplexity    float64     `json:"meta_complexity" jsonschema:"Complexity of the complexity history"`
	MutualInformation float64     `json:"mutual_information" jsonschema:"Mean regional mutual information"`
	CausalFlow        float64     `json:"causal_flow" jsonschema:"Mean regional causal influence"`
	CompressionRatio  float64     `json:"compression_ratio" jsonschema:"Smoothed spatial compression ratio"`
	Invariants        int         `json:"invariants" jsonschema:"Number of archived invariants"`
	StrangeLoop       float64     `json:"strange_loop" jsonschema:"Cascade strange-loop strength"`
	ModelMode         string      `json:"model_mode" jsonschema:"Self-model mode: learning, predicting or confused"`
	ModelConfidence   float64     `json:"model_confidence" jsonschema:"Self-model confidence (0.0-1.0)"`
	Resonance         float64     `json:"resonance" jsonschema:"Agreement between knowledge and observation"`
	FeedbackIntensity float64     `json:"feedback_intensity" jsonschema:"Smoothed observer feedback intensity"`
	LoopClosed        bool        `json:"loop_closed" jsonschema:"Whether the feedback loop is closed"`
	SelfAwareness     float64     `json:"self_awareness" jsonschema:"Self node activity of the observer topology"`
	AttractorStrength float64     `json:"attractor_strength" jsonschema:"Phase-space attractor strength (0.0-1.0)"`
	Convergence       string      `json:"convergence,omitempty" jsonschema:"Active convergence, if any"`
	Directive         string      `json:"directive,omitempty" jsonschema:"Self-perturbation directive issued this tick"`
	Events            []EventItem `json:"events,omitempty" jsonschema:"Events raised on the latest tick"`
}

// EventItem is a compact view of an engine event.
type EventItem struct {
	Tick  int64   `json:"tick"`
	Kind  string  `json:"kind"`
	Value float64 `json:"value"`
}

// CascadeInput defines the input for selfwatch_cascade tool.
type CascadeInput struct {
	Brief bool `json:"brief,omitempty" jsonschema:"Omit per-level detail (default: false)"`
}

// CascadeOutput defines the output for selfwatch_cascade tool.
type CascadeOutput struct {
	Ready         bool                   `json:"ready" jsonschema:"Whether the engine has published a snapshot yet"`
	Tick          int64                  `json:"tick" jsonschema:"Engine tick of the snapshot"`
	Synced        bool                   `json:"synced" jsonschema:"Whether the levels are currently synchronized"`
	SyncIntensity float64                `json:"sync_intensity" jsonschema:"Intensity of the current synchronization"`
	Syncs         int                    `json:"syncs" jsonschema:"Synchronizations detected so far"`
	StrangeLoop   float64                `json:"strange_loop" jsonschema:"Strange-loop strength (0.0-1.0)"`
	AvgCoherence  float64                `json:"avg_coherence" jsonschema:"Mean level coherence"`
	Levels        []cascade.LevelSummary `json:"levels,omitempty" jsonschema:"Per-level state, shallowest first"`
}

// InvariantsInput defines the input for selfwatch_invariants tool.
type InvariantsInput struct {
	Kind         string  `json:"kind,omitempty" jsonschema:"Filter by kind: period, attractor, bound, correlation or symmetry"`
	MinStability float64 `json:"min_stability,omitempty" jsonschema:"Only include invariants at least this stable (0.0-1.0)"`
}

// InvariantsOutput defines the output for selfwatch_invariants tool.
type InvariantsOutput struct {
	Tick           int64                  `json:"tick" jsonschema:"Engine tick of the snapshot"`
	Total          int                    `json:"total" jsonschema:"Invariants in the archive before filtering"`
	Strong         int                    `json:"strong" jsonschema:"Strong invariants in the archive"`
	DetectedPeriod int                    `json:"detected_period" jsonschema:"Dominant period in ticks (0 if none)"`
	Invariants     []invariants.Invariant `json:"invariants" jsonschema:"Matching invariants"`
	Count          int                    `json:"count" jsonschema:"Number of matching invariants"`
}

// HistoryInput defines the input for selfwatch_history tool.
type HistoryInput struct {
	Limit int    `json:"limit,omitempty" jsonschema:"Maximum number of points (default: 100, max: 1000)"`
	RunID string `json:"run_id,omitempty" jsonschema:"Read a recorded run instead of the live history"`
}

// HistoryOutput defines the output for selfwatch_history tool.
type HistoryOutput struct {
	Source string       `json:"source" jsonschema:"live or recorded"`
	Points []host.Point `json:"points" jsonschema:"History points, oldest first"`
	Count  int          `json:"count" jsonschema:"Number of points"`
}

// RunsInput defines the input for selfwatch_runs tool.
type RunsInput struct {
	Limit int `json:"limit,omitempty" jsonschema:"Maximum number of runs, newest first (default: 20)"`
}

// RunsOutput defines the output for selfwatch_runs tool.
type RunsOutput struct {
	Runs  []RunItem `json:"runs" jsonschema:"Recorded runs, newest first"`
	Count int       `json:"count" jsonschema:"Number of runs"`
}

// RunItem provides a list view of a recorded run.
type RunItem struct {
	ID        string `json:"id"`
	StartedAt string `json:"started_at"`
	EndedAt   string `json:"ended_at,omitempty"`
	Entities  int    `json:"entities"`
	TickRate  int    `json:"tick_rate"`
	Seed      uint64 `json:"seed"`
	Ticks     int64  `json:"ticks"`
	Source    string `json:"source"`
}

// ExportInput defines the input for selfwatch_export tool.
type ExportInput struct {
	RunID   string `json:"run_id" jsonschema:"Recorded run to export"`
	Arrow   string `json:"arrow,omitempty" jsonschema:"Arrow IPC output file; relative names land in the export directory"`
	Archive string `json:"archive,omitempty" jsonschema:"Compressed archive output file (default: <run_id>.swa when no file is named)"`
}

// ExportOutput defines the output for selfwatch_export tool.
type ExportOutput struct {
	RunID   string `json:"run_id"`
	Arrow   string `json:"arrow,omitempty" jsonschema:"Path of the written Arrow file"`
	Archive string `json:"archive,omitempty" jsonschema:"Path of the written archive"`
	Samples int    `json:"samples" jsonschema:"Number of samples exported"`
	Message string `json:"message"`
}
