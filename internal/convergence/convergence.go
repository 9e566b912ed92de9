// Package convergence watches for rare moments when several independent
// observers line up at once.
package convergence

import (
	"math"

	"github.com/nvandessel/selfwatch/internal/constants"
)

// Kind names a convergence.
type Kind string

const (
	// PrimordialChaos: the system is near maximum entropy and barely observing itself.
	PrimordialChaos Kind = "primordial_chaos"
	// TemporalSpatialCoherence: a recurrence is live while distant regions move together.
	TemporalSpatialCoherence Kind = "temporal_spatial_coherence"
	// InfiniteRegress: the cascade is synchronized, observation runs deep
	// and the self-model is predicting.
	InfiniteRegress Kind = "infinite_regress"
)

// Inputs are the observer states a check reads.
type Inputs struct {
	Entropy            float64
	ObservationDepth   float64
	RecurrenceActive   bool
	RecurrenceStrength float64
	MutualInformation  float64
	CascadeSynced      bool
	SyncIntensity      float64
	Predicting         bool
}

// rule is one convergence and its condition. Rules are tried in order and
// the first that holds wins.
type rule struct {
	kind  Kind
	holds func(Inputs) bool
}

var rules = []rule{
	{PrimordialChaos, func(in Inputs) bool {
		return in.Entropy > 0.8 && in.ObservationDepth < 0.5
	}},
	{TemporalSpatialCoherence, func(in Inputs) bool {
		return in.RecurrenceActive && in.RecurrenceStrength > 0.5 && in.MutualInformation > 1.5
	}},
	{InfiniteRegress, func(in Inputs) bool {
		return in.CascadeSynced && in.SyncIntensity > 0.5 && in.ObservationDepth > 1.5 && in.Predicting
	}},
}

// Event records a convergence.
type Event struct {
	Tick int64 `json:"tick"`
	Kind Kind  `json:"kind"`
}

// Snapshot is the read-only state of a Detector.
type Snapshot struct {
	Active    bool    `json:"active"`
	Kind      Kind    `json:"kind,omitempty"`
	Intensity float64 `json:"intensity"`
	Count     int     `json:"count"`
	Last      *Event  `json:"last,omitempty"`
}

// Detector checks the rules at most once per cooldown and fades an
// active convergence every tick.
type Detector struct {
	cooldown  int64
	lastFired int64

	active    bool
	kind      Kind
	intensity float64
	count     int
	last      *Event
}

// New creates a Detector with the given cooldown in ticks.
func New(cooldown int64) *Detector {
	return &Detector{cooldown: cooldown, lastFired: math.MinInt64 / 2}
}

// Check fires the first rule that holds, unless a convergence fired within
// the cooldown.
func (d *Detector) Check(in Inputs, now int64) (Event, bool) {
	if now-d.lastFired < d.cooldown {
		return Event{}, false
	}
	for _, r := range rules {
		if !r.holds(in) {
			continue
		}
		ev := Event{Tick: now, Kind: r.kind}
		d.active = true
		d.kind = r.kind
		d.intensity = 1
		d.lastFired = now
		d.count++
		d.last = &ev
		return ev, true
	}
	return Event{}, false
}

// Fade decays an active convergence and ends it below the floor.
func (d *Detector) Fade() {
	if !d.active {
		return
	}
	d.intensity *= constants.ConvergenceDecay
	if d.intensity < constants.ConvergenceFloor {
		d.active = false
		d.kind = ""
		d.intensity = 0
	}
}

// Snapshot returns the detector's read-only state.
func (d *Detector) Snapshot() Snapshot {
	s := Snapshot{Active: d.active, Kind: d.kind, Intensity: d.intensity, Count: d.count}
	if d.last != nil {
		ev := *d.last
		s.Last = &ev
	}
	return s
}
