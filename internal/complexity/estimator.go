package complexity

import (
	"github.com/nvandessel/selfwatch/internal/constants"
	"github.com/nvandessel/selfwatch/internal/series"
)

// Snapshot is the read-only state of an Estimator.
type Snapshot struct {
	Complexity      float64 `json:"complexity"`
	MetaComplexity  float64 `json:"meta_complexity"`
	Prediction      float64 `json:"prediction"`
	PredictionError float64 `json:"prediction_error"`
	Samples         int     `json:"samples"`
	Instability     float64 `json:"instability"`
	Simplicity      float64 `json:"simplicity"`
	Perturbation    float64 `json:"perturbation"`
	Collapse        float64 `json:"collapse"`
	RecursionDepth  float64 `json:"recursion_depth"`
}

// Estimator tracks complexity of the entropy stream and the complexity
// of its own complexity history.
type Estimator struct {
	enc     Encoder
	history *series.Window
	symbols []int
	values  []float64

	current    float64
	meta       float64
	prediction float64
	predicted  bool
	err        float64
}

// NewEstimator creates an empty Estimator.
func NewEstimator() *Estimator {
	return &Estimator{history: series.NewWindow(constants.ComplexityHistorySize)}
}

// Update estimates complexity over the last 60 samples of hist. It does
// nothing with fewer than 30 samples and reports whether it ran.
func (e *Estimator) Update(hist []float64) bool {
	if len(hist) < constants.ComplexityMinSamples {
		return false
	}
	window := hist[max(0, len(hist)-constants.ComplexityWindow):]
	e.symbols = Quantize(window, e.symbols[:0])
	c := e.enc.Ratio(e.symbols)

	if e.predicted {
		e.err = abs(c - e.prediction)
	}
	e.current = c
	e.history.Push(c)

	if e.history.Len() >= constants.MetaComplexityMinSamples {
		e.values = e.history.Values(e.values[:0])
		e.symbols = Quantize(e.values, e.symbols[:0])
		e.meta = e.enc.Ratio(e.symbols)
	}

	e.prediction = e.predict()
	e.predicted = true
	return true
}

// predict extrapolates half of the recent-10 vs prior-10 trend.
func (e *Estimator) predict() float64 {
	w := constants.TrendWindow
	n := e.history.Len()
	recent := 0.0
	k := min(w, n)
	for i := n - k; i < n; i++ {
		recent += e.history.At(i)
	}
	recent /= float64(k)

	trend := 0.0
	if start := max(0, n-2*w); start < n-w {
		older := 0.0
		for i := start; i < n-w; i++ {
			older += e.history.At(i)
		}
		older /= float64(n - w - start)
		trend = recent - older
	}
	return series.Clamp01(recent + 0.5*trend)
}

// Current returns the latest complexity ratio.
func (e *Estimator) Current() float64 { return e.current }

// Meta returns the latest meta-complexity.
func (e *Estimator) Meta() float64 { return e.meta }

// Snapshot returns the estimator's state and derived force terms.
func (e *Estimator) Snapshot() Snapshot {
	s := Snapshot{
		Complexity:      e.current,
		MetaComplexity:  e.meta,
		Prediction:      e.prediction,
		PredictionError: e.err,
		Samples:         e.history.Len(),
		Instability:     Instability(e.current),
		Simplicity:      Simplicity(e.current),
		Collapse:        Collapse(e.meta),
		RecursionDepth:  RecursionDepth(e.meta),
	}
	if e.history.Len() == 0 {
		s.Instability, s.Simplicity = 0, 0
	}
	s.Perturbation = s.Instability + s.Simplicity
	return s
}

// Instability is the scaled excess of complexity above the stable band.
func Instability(c float64) float64 {
	if c > constants.InstabilityThreshold {
		return (c - constants.InstabilityThreshold) * constants.InstabilityGain
	}
	return 0
}

// Simplicity is the scaled shortfall of complexity below the stable band.
func Simplicity(c float64) float64 {
	if c < constants.SimplicityThreshold {
		return (constants.SimplicityThreshold - c) * constants.SimplicityGain
	}
	return 0
}

// Collapse is the measurement-collapse strength for a meta-complexity.
func Collapse(meta float64) float64 {
	if meta > constants.CollapseThreshold {
		return (meta - constants.CollapseThreshold) * constants.CollapseGain
	}
	return 0
}

// RecursionDepth maps meta-complexity onto how many levels of
// self-reference the system is engaged in.
func RecursionDepth(meta float64) float64 {
	if meta > 0.5 {
		return 1 + (meta-0.5)*4
	}
	return meta * 2
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
