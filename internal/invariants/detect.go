package invariants

import (
	"math"

	"github.com/nvandessel/selfwatch/internal/constants"
	"github.com/nvandessel/selfwatch/internal/series"
)

// tieTolerance keeps the shortest lag when longer lags (multiples of the
// period) correlate just as well.
const tieTolerance = 1e-6

// detectPeriod finds the lag in [10, 60) whose autocorrelation over the
// most recent samples is highest. Each lag is scored over the overlap the
// history allows, up to 60 samples and never fewer than 30, so a short
// history still sees the shorter lags. A lag above the correlation
// threshold becomes a period candidate; the invariant is proposed once the
// last 5 candidates agree to within a variance of 4 ticks².
func (a *Archive) detectPeriod(hist []float64) (Candidate, bool) {
	w := constants.InvariantDetectionWindow
	n := len(hist)
	if n < constants.PeriodMinLag+constants.PeriodMinOverlap {
		return Candidate{}, false
	}

	bestLag, bestCorr := 0, constants.PeriodMinCorrelation
	for lag := constants.PeriodMinLag; lag < w; lag++ {
		m := min(w, n-lag)
		if m < constants.PeriodMinOverlap {
			break
		}
		corr := series.Pearson(hist[n-m:], hist[n-m-lag:n-lag])
		if corr > bestCorr+tieTolerance {
			bestLag, bestCorr = lag, corr
		}
	}
	if bestLag == 0 {
		return Candidate{}, false
	}

	a.periods.Push(float64(bestLag))
	if a.periods.Len() < constants.PeriodConfirmations {
		return Candidate{}, false
	}

	a.scratch = a.periods.Items(a.scratch[:0])
	variance := series.Variance(a.scratch[len(a.scratch)-constants.PeriodConfirmations:])
	if variance >= constants.PeriodMaxVariance {
		return Candidate{}, false
	}

	a.period = bestLag
	a.periodConf = bestCorr
	a.periodStab = bestCorr * (1 - variance/constants.PeriodMaxVariance)
	return Candidate{Kind: constants.KindPeriod, Value: float64(bestLag), Stability: a.periodStab}, true
}

// detectAttractor proposes the window mean when the last 60 samples hold
// still. Once several attractor candidates exist they must also agree.
func (a *Archive) detectAttractor(hist []float64) (Candidate, bool) {
	w := constants.InvariantDetectionWindow
	if len(hist) < w {
		return Candidate{}, false
	}
	window := hist[len(hist)-w:]
	std := math.Sqrt(series.Variance(window))
	if std >= constants.AttractorMaxStdDev {
		return Candidate{}, false
	}

	mean := series.Mean(window)
	a.attractors.Push(mean)
	stability := 1 - 10*std

	if a.attractors.Len() >= constants.PeriodConfirmations {
		a.scratch = a.attractors.Items(a.scratch[:0])
		v := series.Variance(a.scratch)
		if v >= constants.AttractorMaxVariance {
			return Candidate{}, false
		}
		stability *= 1 - 50*v
	}

	a.attractorStab = stability
	return Candidate{Kind: constants.KindAttractor, Value: mean, Stability: stability}, true
}

// detectBounds tracks the min/max of the last 60 samples and proposes them
// once consecutive estimates stay close.
func (a *Archive) detectBounds(hist []float64) (Candidate, bool) {
	w := constants.InvariantDetectionWindow
	if len(hist) < w {
		return Candidate{}, false
	}
	lo, hi := series.MinMax(hist[len(hist)-w:])
	drift := math.Abs(lo-a.boundsLow) + math.Abs(hi-a.boundsHigh)
	stability := math.Max(0, 1-5*drift)
	a.boundsLow, a.boundsHigh = lo, hi

	if stability <= constants.BoundsMinStability {
		return Candidate{}, false
	}
	return Candidate{Kind: constants.KindBound, Value: lo, Upper: hi, Stability: stability}, true
}
