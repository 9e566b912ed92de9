// Package resonance couples what the system knows about itself
// (invariants, complexity) with how hard it is looking (perturbation,
// collapse) into a single agreement signal.
package resonance

import (
	"math"

	"github.com/nvandessel/selfwatch/internal/constants"
	"github.com/nvandessel/selfwatch/internal/series"
)

const (
	coherenceRate = 0.05
	resonanceRate = 0.1
	invariantNorm = 20.0
	strongNorm    = 10.0
)

// Inputs are the read-only values resonance is computed from.
type Inputs struct {
	Complexity     float64
	InvariantCount int
	StrongCount    int
	Perturbation   float64
	Collapse       float64
}

// Snapshot is the read-only state of a Tracker.
type Snapshot struct {
	Coherence         float64 `json:"coherence"`
	Dissonance        float64 `json:"dissonance"`
	Resonance         float64 `json:"resonance"`
	FeedbackIntensity float64 `json:"feedback_intensity"`
	SystemicStability float64 `json:"systemic_stability"`
	Average           float64 `json:"average"`
}

// Tracker smooths agreement between knowledge and observation.
type Tracker struct {
	history    *series.Window
	coherence  float64
	dissonance float64
	resonance  float64
	feedback   float64
	stability  float64
}

// New creates a Tracker.
func New() *Tracker {
	return &Tracker{history: series.NewWindow(constants.ResonanceHistorySize)}
}

// Update folds one cycle of inputs into the smoothed signals.
//
// Agreement is high when order (1-complexity) matches how densely the
// archive is populated. Dissonance is the gap between strong knowledge
// and how undisturbed observation is. Resonance is positive only when
// coherence clears the threshold.
func (t *Tracker) Update(in Inputs) Snapshot {
	density := math.Min(1, float64(in.InvariantCount)/invariantNorm)
	agreement := 1 - math.Abs((1-in.Complexity)-density)
	t.coherence = t.coherence*(1-coherenceRate) + series.Clamp01(agreement)*coherenceRate

	knowledge := float64(in.StrongCount) / strongNorm
	calm := 1 - (in.Perturbation+in.Collapse)/2
	t.dissonance = math.Abs(knowledge - calm)

	var raw float64
	if t.coherence > constants.CoherenceThreshold {
		raw = (t.coherence - constants.CoherenceThreshold) * 2
	} else {
		raw = -(constants.CoherenceThreshold - t.coherence)
	}
	t.resonance = t.resonance*(1-resonanceRate) + raw*resonanceRate
	t.history.Push(t.resonance)

	t.feedback = math.Max(0, t.resonance) * (1 - math.Min(1, t.dissonance))
	t.stability = t.coherence * (1 - math.Min(1, t.dissonance)) * math.Max(0, t.resonance+0.5)

	return t.Snapshot()
}

// Modulate scales the raw force terms: positive resonance lets
// accumulated knowledge damp perturbation, while dissonance adds
// observation pressure to collapse.
func (t *Tracker) Modulate(perturbation, collapse float64) (float64, float64) {
	p := perturbation * (1 - constants.KnowledgeStabilization*math.Min(1, math.Max(0, t.resonance)))
	c := collapse * (1 + constants.ObservationPressure*math.Min(1, t.dissonance))
	return p, c
}

// Snapshot returns the tracker's read-only state.
func (t *Tracker) Snapshot() Snapshot {
	return Snapshot{
		Coherence:         t.coherence,
		Dissonance:        t.dissonance,
		Resonance:         t.resonance,
		FeedbackIntensity: t.feedback,
		SystemicStability: t.stability,
		Average:           t.history.Average(),
	}
}
