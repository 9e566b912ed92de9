package cascade

import (
	"math"

	"github.com/nvandessel/selfwatch/internal/constants"
	"github.com/nvandessel/selfwatch/internal/series"
)

// initialConfidence is where every level's confidence starts. A level
// earns trust from its own errors before predicting sinusoidally.
const initialConfidence = 0

// LevelSummary is the read-only state of one level.
type LevelSummary struct {
	Depth       int     `json:"depth"`
	Value       float64 `json:"value"`
	Prediction  float64 `json:"prediction"`
	Error       float64 `json:"error"`
	Velocity    float64 `json:"velocity"`
	Confidence  float64 `json:"confidence"`
	Coherence   float64 `json:"coherence"`
	Period      int     `json:"period"`
	Phase       float64 `json:"phase"`
	Oscillating bool    `json:"oscillating"`
}

// Level is one self-observer: it predicts its next input, measures how
// wrong it was and summarizes that into confidence and coherence.
type Level struct {
	depth   int
	history *series.Window
	errors  *series.Window
	scratch []float64

	value       float64
	prediction  float64
	err         float64
	velocity    float64
	confidence  float64
	coherence   float64
	period      int
	phase       float64
	oscillating bool
}

func newLevel(depth int) *Level {
	return &Level{
		depth:      depth,
		history:    series.NewWindow(constants.CascadeHistorySize),
		errors:     series.NewWindow(constants.CascadeHistorySize),
		confidence: initialConfidence,
	}
}

// Observe feeds one value through the level.
func (l *Level) Observe(v float64) {
	v = series.Clamp01(v)

	l.err = math.Abs(v - l.prediction)
	l.errors.Push(l.err)

	l.velocity = v - l.value
	l.value = v
	l.history.Push(v)

	if l.errors.Len() >= constants.CascadeConfidenceWindow {
		l.scratch = l.errors.Last(constants.CascadeConfidenceWindow, l.scratch[:0])
		target := math.Exp(-constants.CascadeConfidenceGain * series.Mean(l.scratch))
		l.confidence = l.confidence*(1-constants.CascadeConfidenceSmoothing) + target*constants.CascadeConfidenceSmoothing
	}

	l.detectOscillation()
	l.updateCoherence()
	l.predict()
}

// detectOscillation looks for the lag in [3,15) that best correlates the
// last samples with their lagged selves.
func (l *Level) detectOscillation() {
	n := l.history.Len()
	if n < constants.CascadeOscillationWindow {
		l.period, l.oscillating = 0, false
		return
	}

	l.scratch = l.history.Last(constants.CascadeOscillationWindow, l.scratch[:0])
	mean := series.Mean(l.scratch)

	bestLag, bestCorr := 0, constants.CascadeOscillationThreshold
	for lag := constants.CascadeMinLag; lag < constants.CascadeMaxLag; lag++ {
		var sum, n1, n2 float64
		for k := 0; k < constants.CascadeOscillationSpan; k++ {
			i1 := n - 1 - k
			i2 := i1 - lag
			if i2 < 0 {
				break
			}
			a := l.history.At(i1) - mean
			b := l.history.At(i2) - mean
			sum += a * b
			n1 += a * a
			n2 += b * b
		}
		den := math.Sqrt(n1 * n2)
		if den == 0 {
			continue
		}
		if corr := sum / den; corr > bestCorr {
			bestLag, bestCorr = lag, corr
		}
	}

	if bestLag == 0 {
		l.period, l.oscillating = 0, false
		return
	}
	l.period, l.oscillating = bestLag, true

	l.scratch = l.history.Last(bestLag, l.scratch[:0])
	amp := halfRange(l.scratch)
	if amp == 0 {
		amp = 0.1
	}
	l.phase = math.Asin(series.Clamp((l.value-mean)/amp, -1, 1))
}

// halfRange is half the spread between the smallest and largest of xs.
func halfRange(xs []float64) float64 {
	lo, hi := series.MinMax(xs)
	return (hi - lo) / 2
}

func (l *Level) updateCoherence() {
	if l.errors.Len() < constants.CascadeCoherenceWindow {
		l.coherence = 0
		return
	}
	l.scratch = l.errors.Last(constants.CascadeCoherenceWindow, l.scratch[:0])
	l.coherence = math.Exp(-constants.CascadeCoherenceGain * series.Variance(l.scratch))
}

// predict sets the next expected value: a sinusoid when the level is
// confidently oscillating, otherwise a damped linear extrapolation.
func (l *Level) predict() {
	n := l.history.Len()
	switch {
	case n < 3:
		l.prediction = l.value
	case l.period > 0 && l.confidence > constants.CascadeSinusoidConfidence:
		l.scratch = l.history.Last(l.period, l.scratch[:0])
		mean := series.Mean(l.scratch)
		l.prediction = mean + halfRange(l.scratch)*math.Sin(l.phase+2*math.Pi/float64(l.period))
	default:
		v1, v2 := l.history.FromEnd(0), l.history.FromEnd(1)
		l.prediction = v1 + constants.CascadeTrendDamping*(v1-v2)
	}
	l.prediction = series.Clamp01(l.prediction)
}

// Summary returns the level's read-only state.
func (l *Level) Summary() LevelSummary {
	return LevelSummary{
		Depth:       l.depth,
		Value:       l.value,
		Prediction:  l.prediction,
		Error:       l.err,
		Velocity:    l.velocity,
		Confidence:  l.confidence,
		Coherence:   l.coherence,
		Period:      l.period,
		Phase:       l.phase,
		Oscillating: l.oscillating,
	}
}

// Confidence returns the smoothed prediction confidence.
func (l *Level) Confidence() float64 { return l.confidence }

// Coherence returns the current coherence.
func (l *Level) Coherence() float64 { return l.coherence }

// Error returns the last prediction error.
func (l *Level) Error() float64 { return l.err }
