// Package store records engine runs: run metadata, periodic snapshots and
// discrete events.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nvandessel/selfwatch/internal/engine"
)

// ErrRunNotFound is returned when a run ID is unknown.
var ErrRunNotFound = errors.New("run not found")

// Run describes one engine session.
type Run struct {
	ID        string     `json:"id"`
	StartedAt time.Time  `json:"started_at"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`
	Entities  int        `json:"entities"`
	TickRate  int        `json:"tick_rate"`
	Seed      uint64     `json:"seed"`
	Ticks     int64      `json:"ticks"`
	Source    string     `json:"source"` // "sim" or the analyzed file
}

// Sample is one recorded snapshot, flattened for querying and export.
// Payload holds the full snapshot as JSON.
type Sample struct {
	RunID             string          `json:"run_id"`
	Tick              int64           `json:"tick"`
	RecordedAt        time.Time       `json:"recorded_at"`
	Entropy           float64         `json:"entropy"`
	Trend             float64         `json:"trend"`
	MetaEntropy       float64         `json:"meta_entropy"`
	Complexity        float64         `json:"complexity"`
	MetaComplexity    float64         `json:"meta_complexity"`
	Familiarity       float64         `json:"familiarity"`
	MutualInformation float64         `json:"mutual_information"`
	CausalFlow        float64         `json:"causal_flow"`
	CompressionRatio  float64         `json:"compression_ratio"`
	Resonance         float64         `json:"resonance"`
	StrangeLoop       float64         `json:"strange_loop"`
	ModelConfidence   float64         `json:"model_confidence"`
	Invariants        int             `json:"invariants"`
	Payload           json.RawMessage `json:"payload,omitempty"`
}

// EventRecord is a recorded engine event.
type EventRecord struct {
	RunID  string         `json:"run_id"`
	Tick   int64          `json:"tick"`
	Kind   string         `json:"kind"`
	Value  float64        `json:"value"`
	Fields map[string]any `json:"fields,omitempty"`
}

// Recorder persists runs.
type Recorder interface {
	// BeginRun stores a new run, assigning an ID and start time when unset.
	BeginRun(ctx context.Context, run Run) (Run, error)
	// EndRun marks a run finished after ticks ticks.
	EndRun(ctx context.Context, runID string, ticks int64) error
	RecordSnapshot(ctx context.Context, runID string, snap engine.Snapshot) error
	RecordEvents(ctx context.Context, runID string, events []engine.Event) error

	// Runs lists runs, newest first.
	Runs(ctx context.Context) ([]Run, error)
	// GetRun returns a run or ErrRunNotFound.
	GetRun(ctx context.Context, runID string) (*Run, error)
	// Samples returns a run's samples in tick order. limit <= 0 means all.
	Samples(ctx context.Context, runID string, limit int) ([]Sample, error)
	// Events returns a run's events in tick order. limit <= 0 means all.
	Events(ctx context.Context, runID string, limit int) ([]EventRecord, error)

	Close() error
}

// NewSample flattens a snapshot.
func NewSample(runID string, snap engine.Snapshot, at time.Time) (Sample, error) {
	payload, err := json.Marshal(snap)
	if err != nil {
		return Sample{}, fmt.Errorf("failed to encode snapshot: %w", err)
	}
	return Sample{
		RunID:             runID,
		Tick:              snap.Tick,
		RecordedAt:        at.UTC(),
		Entropy:           snap.Entropy.Entropy,
		Trend:             snap.Entropy.Trend,
		MetaEntropy:       snap.Meta.MetaEntropy,
		Complexity:        snap.Complexity.Complexity,
		MetaComplexity:    snap.Complexity.MetaComplexity,
		Familiarity:       snap.Signature.Familiarity,
		MutualInformation: snap.Regional.MutualInformation,
		CausalFlow:        snap.Regional.CausalFlow,
		CompressionRatio:  snap.Compression.Ratio,
		Resonance:         snap.Resonance.Resonance,
		StrangeLoop:       snap.Cascade.StrangeLoop,
		ModelConfidence:   snap.SelfModel.Confidence,
		Invariants:        snap.Invariants.Count,
		Payload:           payload,
	}, nil
}
