package entropy

import (
	"math"

	"github.com/nvandessel/selfwatch/internal/constants"
	"github.com/nvandessel/selfwatch/internal/series"
)

// MetaSnapshot is the read-only state of a MetaMonitor.
type MetaSnapshot struct {
	MetaEntropy      float64 `json:"meta_entropy"`
	Average          float64 `json:"average"`
	ObservationDepth float64 `json:"observation_depth"`
}

// MetaMonitor measures the entropy of the entropy history and the
// observation depth derived from it.
type MetaMonitor struct {
	history *series.Window
	bins    [constants.MetaEntropyBins]int
	current float64
	depth   float64
}

// NewMetaMonitor creates an empty MetaMonitor.
func NewMetaMonitor() *MetaMonitor {
	return &MetaMonitor{history: series.NewWindow(constants.MetaEntropyHistorySize)}
}

// Update recomputes meta-entropy from the entropy history (oldest first).
// With fewer than 20 samples the previous value is kept.
func (mm *MetaMonitor) Update(hist []float64) float64 {
	v, ok := MetaEntropy(hist, mm.bins[:])
	if !ok {
		return mm.current
	}
	mm.current = v
	mm.history.Push(v)
	return v
}

// MetaEntropy quantizes hist into 10 bins and returns the normalized
// Shannon entropy of bin occupancy. ok is false below the minimum length.
// bins is scratch space of length MetaEntropyBins.
func MetaEntropy(hist []float64, bins []int) (float64, bool) {
	if len(hist) < constants.MetaEntropyMinSamples {
		return 0, false
	}
	k := constants.MetaEntropyBins
	for i := range bins {
		bins[i] = 0
	}
	for _, v := range hist {
		b := int(math.Floor(v * float64(k)))
		if b < 0 {
			b = 0
		}
		if b > k-1 {
			b = k - 1
		}
		bins[b]++
	}
	return Shannon(bins, len(hist)) / math.Log2(float64(k)), true
}

// UpdateDepth moves observation depth toward 3·|meta-0.5|·2: the further
// meta-entropy is from its midpoint, the deeper the system looks.
func (mm *MetaMonitor) UpdateDepth() float64 {
	focus := math.Abs(mm.current-0.5) * 2
	target := constants.ObservationDepthMax * focus
	mm.depth += (target - mm.depth) * constants.ObservationDepthRate
	return mm.depth
}

// Current returns the latest meta-entropy.
func (mm *MetaMonitor) Current() float64 { return mm.current }

// Snapshot returns the meta monitor's read-only state.
func (mm *MetaMonitor) Snapshot() MetaSnapshot {
	return MetaSnapshot{
		MetaEntropy:      mm.current,
		Average:          mm.history.Average(),
		ObservationDepth: mm.depth,
	}
}
