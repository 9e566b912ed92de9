package store

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nvandessel/selfwatch/internal/engine"
)

// MemoryRecorder implements Recorder in memory for tests and throwaway runs.
type MemoryRecorder struct {
	mu      sync.RWMutex
	runs    map[string]Run
	samples map[string][]Sample
	events  map[string][]EventRecord
	now     func() time.Time
}

// NewMemoryRecorder creates an empty MemoryRecorder.
func NewMemoryRecorder() *MemoryRecorder {
	return &MemoryRecorder{
		runs:    make(map[string]Run),
		samples: make(map[string][]Sample),
		events:  make(map[string][]EventRecord),
		now:     time.Now,
	}
}

// BeginRun stores a run.
func (m *MemoryRecorder) BeginRun(ctx context.Context, run Run) (Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if _, exists := m.runs[run.ID]; exists {
		return Run{}, fmt.Errorf("run already exists: %s", run.ID)
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = m.now()
	}
	run.StartedAt = run.StartedAt.UTC()
	if run.Source == "" {
		run.Source = "sim"
	}
	m.runs[run.ID] = run
	return run, nil
}

// EndRun marks a run finished.
func (m *MemoryRecorder) EndRun(ctx context.Context, runID string, ticks int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	run, ok := m.runs[runID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	ended := m.now().UTC()
	run.EndedAt = &ended
	run.Ticks = ticks
	m.runs[runID] = run
	return nil
}

// RecordSnapshot stores a flattened snapshot. Re-recording a tick replaces it.
func (m *MemoryRecorder) RecordSnapshot(ctx context.Context, runID string, snap engine.Snapshot) error {
	sample, err := NewSample(runID, snap, m.now())
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.runs[runID]; !ok {
		return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	list := m.samples[runID]
	i := sort.Search(len(list), func(i int) bool { return list[i].Tick >= sample.Tick })
	if i < len(list) && list[i].Tick == sample.Tick {
		list[i] = sample
	} else {
		list = slices.Insert(list, i, sample)
	}
	m.samples[runID] = list
	return nil
}

// RecordEvents appends events.
func (m *MemoryRecorder) RecordEvents(ctx context.Context, runID string, events []engine.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.runs[runID]; !ok {
		return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	for _, ev := range events {
		m.events[runID] = append(m.events[runID], EventRecord{
			RunID:  runID,
			Tick:   ev.Tick,
			Kind:   ev.Kind,
			Value:  ev.Value,
			Fields: maps.Clone(ev.Fields),
		})
	}
	return nil
}

// Runs lists runs, newest first.
func (m *MemoryRecorder) Runs(ctx context.Context) ([]Run, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	runs := slices.Collect(maps.Values(m.runs))
	sort.Slice(runs, func(i, j int) bool { return runs[i].StartedAt.After(runs[j].StartedAt) })
	return runs, nil
}

// GetRun returns one run.
func (m *MemoryRecorder) GetRun(ctx context.Context, runID string) (*Run, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	run, ok := m.runs[runID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return &run, nil
}

// Samples returns a run's samples in tick order.
func (m *MemoryRecorder) Samples(ctx context.Context, runID string, limit int) ([]Sample, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return tail(m.samples[runID], limit), nil
}

// Events returns a run's events in tick order.
func (m *MemoryRecorder) Events(ctx context.Context, runID string, limit int) ([]EventRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return tail(m.events[runID], limit), nil
}

// Close is a no-op.
func (m *MemoryRecorder) Close() error { return nil }

// tail copies the last limit items, or all of them when limit <= 0.
func tail[T any](xs []T, limit int) []T {
	if limit > 0 && len(xs) > limit {
		xs = xs[len(xs)-limit:]
	}
	return slices.Clone(xs)
}
