// Package host runs the engine against the reference simulation and makes
// the results available to readers on other goroutines.
package host

import (
	"sync"

	"github.com/nvandessel/selfwatch/internal/engine"
	"github.com/nvandessel/selfwatch/internal/series"
)

// DefaultHistory is the number of Points a Publisher keeps.
const DefaultHistory = 600

// Point is a compact per-tick summary kept for history queries.
type Point struct {
	Tick        int64   `json:"tick"`
	Entropy     float64 `json:"entropy"`
	MetaEntropy float64 `json:"meta_entropy"`
	Complexity  float64 `json:"complexity"`
	Resonance   float64 `json:"resonance"`
	StrangeLoop float64 `json:"strange_loop"`
	Familiarity float64 `json:"familiarity"`
	Invariants  int     `json:"invariants"`
}

// PointOf summarizes a snapshot.
func PointOf(s engine.Snapshot) Point {
	return Point{
		Tick:        s.Tick,
		Entropy:     s.Entropy.Entropy,
		MetaEntropy: s.Meta.MetaEntropy,
		Complexity:  s.Complexity.Complexity,
		Resonance:   s.Resonance.Resonance,
		StrangeLoop: s.Cascade.StrangeLoop,
		Familiarity: s.Signature.Familiarity,
		Invariants:  s.Invariants.Count,
	}
}

// Publisher hands the latest snapshot from the tick goroutine to readers.
// The engine itself is never shared.
type Publisher struct {
	mu      sync.RWMutex
	latest  engine.Snapshot
	ok      bool
	history *series.Ring[Point]
	events  *series.Ring[engine.Event]
	counts  map[string]int64
}

// NewPublisher creates a Publisher keeping size points and events.
func NewPublisher(size int) *Publisher {
	if size < 1 {
		size = DefaultHistory
	}
	return &Publisher{
		history: series.NewRing[Point](size),
		events:  series.NewRing[engine.Event](size),
		counts:  make(map[string]int64),
	}
}

// Publish replaces the latest snapshot.
func (p *Publisher) Publish(s engine.Snapshot) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.latest = s
	p.ok = true
	p.history.Push(PointOf(s))
	for _, ev := range s.Events {
		p.events.Push(ev)
		p.counts[ev.Kind]++
	}
}

// Latest returns the most recent snapshot and whether one exists.
func (p *Publisher) Latest() (engine.Snapshot, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.latest, p.ok
}

// History returns up to limit recent points, oldest first. limit <= 0
// returns everything kept.
func (p *Publisher) History(limit int) []Point {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return last(p.history, limit)
}

// Events returns up to limit recent events, oldest first.
func (p *Publisher) Events(limit int) []engine.Event {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return last(p.events, limit)
}

// EventCount returns how many events of kind have been published in total,
// including those no longer kept.
func (p *Publisher) EventCount(kind string) int64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.counts[kind]
}

func last[T any](r *series.Ring[T], limit int) []T {
	items := r.Items(nil)
	if limit > 0 && len(items) > limit {
		items = items[len(items)-limit:]
	}
	return items
}
