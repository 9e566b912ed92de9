// Package selfmodel predicts the entropy stream several cycles ahead and
// tracks how much it can trust those predictions.
package selfmodel

import (
	"math"

	"github.com/nvandessel/selfwatch/internal/constants"
	"github.com/nvandessel/selfwatch/internal/series"
)

// Mode describes the self-model's relationship with its predictions.
type Mode string

const (
	// Learning is the default while confidence builds.
	Learning Mode = "learning"
	// Predicting means a strong oscillation is being tracked with confidence.
	Predicting Mode = "predicting"
	// Confused means predictions keep missing.
	Confused Mode = "confused"
)

const (
	minLag            = 5
	predictingCorr    = 0.5
	predictingConf    = 0.6
	confusedConf      = 0.2
	periodCorrelation = 0.3
	confidenceRate    = 0.05
	depthRate         = 0.02
	errorGain         = 5.0
)

// Snapshot is the read-only state of a Model.
type Snapshot struct {
	Prediction  float64 `json:"prediction"`
	Error       float64 `json:"error"`
	Confidence  float64 `json:"confidence"`
	Period      int     `json:"period"`
	Amplitude   float64 `json:"amplitude"`
	Phase       float64 `json:"phase"`
	Correlation float64 `json:"correlation"`
	Mode        Mode    `json:"mode"`
	Depth       float64 `json:"depth"`
}

// Model is an oscillation-based predictor of entropy.
type Model struct {
	errors *series.Window
	buf    []float64
	recent []float64

	prediction  float64
	predicted   bool
	err         float64
	confidence  float64
	period      int
	amplitude   float64
	phase       float64
	correlation float64
	mode        Mode
	depth       float64
}

// New creates a Model in learning mode.
func New() *Model {
	return &Model{
		errors:     series.NewWindow(constants.SelfModelErrorHistory),
		confidence: 0.5,
		mode:       Learning,
	}
}

// Update scores the previous prediction against the newest sample of hist
// (oldest first), refits the oscillation and predicts again. It needs a
// full signature window of history.
func (m *Model) Update(hist []float64) bool {
	n := len(hist)
	if n < constants.SignatureWindow {
		return false
	}
	current := hist[n-1]

	if m.predicted {
		m.err = math.Abs(current - m.prediction)
		m.errors.Push(m.err)
		if m.errors.Len() >= constants.TrendWindow {
			target := series.Clamp01(1 - errorGain*m.recentError())
			m.confidence = m.confidence*(1-confidenceRate) + target*confidenceRate
		}
	}

	m.fit(hist)

	if m.period == 0 {
		m.prediction = current
	} else {
		ahead := 2 * math.Pi / float64(m.period) * constants.SelfModelHorizon
		m.prediction = series.Mean(hist[n-constants.SignatureWindow:]) + m.amplitude*math.Sin(m.phase+ahead)
	}
	m.prediction = series.Clamp01(m.prediction)
	m.predicted = true

	switch {
	case m.correlation > predictingCorr && m.confidence > predictingConf:
		m.mode = Predicting
	case m.confidence < confusedConf:
		m.mode = Confused
	default:
		m.mode = Learning
	}

	m.depth = m.depth*(1-depthRate) + m.confidence*constants.SelfModelDepth*depthRate
	return true
}

// recentError is the mean of the last 10 prediction errors.
func (m *Model) recentError() float64 {
	m.recent = m.errors.Last(constants.TrendWindow, m.recent[:0])
	return series.Mean(m.recent)
}

// fit finds the best autocorrelation lag in [5,30) over a 30-sample span.
func (m *Model) fit(hist []float64) {
	n := len(hist)
	w := constants.SelfModelWindow
	mean := series.Mean(hist[n-constants.SignatureWindow:])

	bestLag, bestCorr := 0, 0.0
	for lag := minLag; lag < w; lag++ {
		var sum, n1, n2 float64
		for k := 0; k < w; k++ {
			a := hist[n-1-k] - mean
			b := hist[n-1-k-lag] - mean
			sum += a * b
			n1 += a * a
			n2 += b * b
		}
		den := math.Sqrt(n1 * n2)
		if den == 0 {
			den = 1
		}
		if corr := sum / den; corr > bestCorr {
			bestLag, bestCorr = lag, corr
		}
	}

	m.correlation = bestCorr
	m.period = 0
	if bestCorr > periodCorrelation {
		m.period = bestLag
	}

	m.buf = append(m.buf[:0], hist[n-w:]...)
	lo, hi := series.MinMax(m.buf)
	m.amplitude = (hi - lo) / 2
	amp := m.amplitude
	if amp == 0 {
		amp = 0.1
	}
	m.phase = math.Asin(series.Clamp((hist[n-1]-mean)/amp, -1, 1))
}

// Confidence returns the smoothed prediction confidence.
func (m *Model) Confidence() float64 { return m.confidence }

// Snapshot returns the model's read-only state.
func (m *Model) Snapshot() Snapshot {
	return Snapshot{
		Prediction:  m.prediction,
		Error:       m.err,
		Confidence:  m.confidence,
		Period:      m.period,
		Amplitude:   m.amplitude,
		Phase:       m.phase,
		Correlation: m.correlation,
		Mode:        m.mode,
		Depth:       m.depth,
	}
}
