// Package invariants discovers and retains properties of the entropy
// stream that stay stable across repeated detection cycles.
//
// Each Update runs one detection cycle: existing entries decay, then
// period, attractor and bounds detectors offer candidates. Candidates
// that match an existing entry reinforce it; strong new candidates are
// archived; the archive is capped and sheds its weakest entry when full.
package invariants

import (
	"math"
	"slices"

	"github.com/nvandessel/selfwatch/internal/constants"
	"github.com/nvandessel/selfwatch/internal/series"
)

// Invariant is an archived stable property.
type Invariant struct {
	ID           int                     `json:"id"`
	Kind         constants.InvariantKind `json:"kind"`
	Value        float64                 `json:"value"`
	Upper        float64                 `json:"upper,omitempty"`
	Stability    float64                 `json:"stability"`
	Observations int                     `json:"observations"`
	DiscoveredAt int64                   `json:"discovered_at"`
	LastObserved int64                   `json:"last_observed"`
}

// Strength ranks entries for eviction.
func (inv Invariant) Strength() float64 {
	return inv.Stability * float64(inv.Observations)
}

// Candidate is a detector's proposal for the archive.
type Candidate struct {
	Kind      constants.InvariantKind
	Value     float64
	Upper     float64
	Stability float64
}

// Outcome reports what the archive did with a candidate.
type Outcome int

const (
	// Rejected candidates were too unstable to archive.
	Rejected Outcome = iota
	// Reinforced candidates matched an existing entry.
	Reinforced
	// Discovered candidates became new entries.
	Discovered
)

// Report summarizes one detection cycle.
type Report struct {
	Discovered []Invariant
	Reinforced int
	Pruned     int
	Evicted    int
}

// Summary is the read-only state of an Archive.
type Summary struct {
	Count              int         `json:"count"`
	Strong             int         `json:"strong"`
	MeanStability      float64     `json:"mean_stability"`
	OldestAge          int64       `json:"oldest_age"`
	DetectedPeriod     int         `json:"detected_period"`
	PeriodConfidence   float64     `json:"period_confidence"`
	PeriodStability    float64     `json:"period_stability"`
	AttractorStability float64     `json:"attractor_stability"`
	BoundsLow          float64     `json:"bounds_low"`
	BoundsHigh         float64     `json:"bounds_high"`
	Entries            []Invariant `json:"entries"`
}

// Archive holds discovered invariants and the detector state behind them.
type Archive struct {
	entries []Invariant
	nextID  int

	periods    *series.Ring[float64]
	attractors *series.Ring[float64]
	period     int
	periodConf float64
	boundsLow  float64
	boundsHigh float64

	// stability of the last accepted period and attractor candidates
	periodStab    float64
	attractorStab float64

	scratch []float64
	now     int64
}

// NewArchive creates an empty archive.
func NewArchive() *Archive {
	return &Archive{
		periods:    series.NewRing[float64](constants.PeriodCandidateHistory),
		attractors: series.NewRing[float64](constants.PeriodCandidateHistory),
		boundsLow:  1,
		boundsHigh: 0,
	}
}

// Update runs one detection cycle over hist (oldest first) at tick now.
func (a *Archive) Update(hist []float64, now int64) Report {
	a.now = now
	var r Report
	r.Pruned = a.decay()

	for _, c := range a.detect(hist) {
		switch out, evicted := a.offer(c, now); out {
		case Discovered:
			r.Discovered = append(r.Discovered, a.entries[len(a.entries)-1])
			if evicted {
				r.Evicted++
			}
		case Reinforced:
			r.Reinforced++
		}
	}
	return r
}

// decay applies geometric stability decay and drops entries below the floor.
func (a *Archive) decay() int {
	before := len(a.entries)
	a.entries = slices.DeleteFunc(a.entries, func(inv Invariant) bool {
		return inv.Stability*constants.InvariantDecayRate < constants.InvariantPruneFloor
	})
	for i := range a.entries {
		a.entries[i].Stability *= constants.InvariantDecayRate
	}
	return before - len(a.entries)
}

func (a *Archive) detect(hist []float64) []Candidate {
	var out []Candidate
	if c, ok := a.detectPeriod(hist); ok {
		out = append(out, c)
	}
	if c, ok := a.detectAttractor(hist); ok {
		out = append(out, c)
	}
	if c, ok := a.detectBounds(hist); ok {
		out = append(out, c)
	}
	return out
}

// Offer proposes a candidate from outside the built-in detectors, such as
// a persistent regional correlation or an occupancy symmetry.
func (a *Archive) Offer(c Candidate, now int64) Outcome {
	out, _ := a.offer(c, now)
	return out
}

func (a *Archive) offer(c Candidate, now int64) (Outcome, bool) {
	if !c.Kind.Valid() || math.IsNaN(c.Stability) || c.Stability < constants.InvariantMinStability {
		return Rejected, false
	}

	for i := range a.entries {
		e := &a.entries[i]
		if e.Kind == c.Kind && math.Abs(e.Value-c.Value) < constants.InvariantMatchTolerance {
			e.Stability = math.Min(1, e.Stability+constants.InvariantReinforcement)
			e.Observations++
			e.LastObserved = now
			if c.Kind == constants.KindBound {
				e.Upper = c.Upper
			}
			return Reinforced, false
		}
	}

	evicted := false
	if len(a.entries) >= constants.MaxInvariants {
		weakest := 0
		for i, e := range a.entries {
			if e.Strength() < a.entries[weakest].Strength() {
				weakest = i
			}
		}
		a.entries = slices.Delete(a.entries, weakest, weakest+1)
		evicted = true
	}

	a.nextID++
	a.entries = append(a.entries, Invariant{
		ID:           a.nextID,
		Kind:         c.Kind,
		Value:        c.Value,
		Upper:        c.Upper,
		Stability:    math.Min(1, c.Stability),
		Observations: 1,
		DiscoveredAt: now,
		LastObserved: now,
	})
	return Discovered, evicted
}

// Len returns the number of archived invariants.
func (a *Archive) Len() int { return len(a.entries) }

// Entries returns a copy of the archive, strongest first.
func (a *Archive) Entries() []Invariant {
	out := slices.Clone(a.entries)
	slices.SortStableFunc(out, func(x, y Invariant) int {
		switch {
		case x.Stability > y.Stability:
			return -1
		case x.Stability < y.Stability:
			return 1
		}
		return 0
	})
	return out
}

// Strong returns the number of entries with stability above the strong threshold.
func (a *Archive) Strong() int {
	n := 0
	for _, e := range a.entries {
		if e.Stability > constants.StrongInvariantStability {
			n++
		}
	}
	return n
}

// Summary returns the archive's read-only state as of the last Update.
func (a *Archive) Summary() Summary {
	s := Summary{
		Count:              len(a.entries),
		Strong:             a.Strong(),
		DetectedPeriod:     a.period,
		PeriodConfidence:   a.periodConf,
		PeriodStability:    a.periodStab,
		AttractorStability: a.attractorStab,
		BoundsLow:          a.boundsLow,
		BoundsHigh:         a.boundsHigh,
		Entries:            a.Entries(),
	}
	if len(a.entries) > 0 {
		oldest := a.entries[0].DiscoveredAt
		total := 0.0
		for _, e := range a.entries {
			oldest = min(oldest, e.DiscoveredAt)
			total += e.Stability
		}
		s.OldestAge = a.now - oldest
		s.MeanStability = total / float64(len(a.entries))
	}
	return s
}
