// Package regional compares the motion of coarse regions of the world.
//
// Both measures here are heuristics rather than information-theoretic
// estimators: "mutual information" is the summed cosine similarity of
// distant regions' mean velocities, and "causal flow" compares how well a
// region's past predicts another region's present against how well that
// region predicts itself. Thresholds, lag and window are fixed.
package regional

import (
	"math"

	"github.com/nvandessel/selfwatch/internal/constants"
	"github.com/nvandessel/selfwatch/internal/series"
	"github.com/nvandessel/selfwatch/internal/spatial"
)

// Velocity is a region's mean velocity.
type Velocity struct {
	VX, VY float64
}

// Pair is a correlated pair of non-adjacent regions.
type Pair struct {
	A        int     `json:"a"`
	B        int     `json:"b"`
	Strength float64 `json:"strength"`
	AX       float64 `json:"ax"`
	AY       float64 `json:"ay"`
	BX       float64 `json:"bx"`
	BY       float64 `json:"by"`
}

// ID returns a stable scalar identifier for the pair.
func (p Pair) ID() float64 {
	n := constants.RegionGridSize * constants.RegionGridSize
	return float64(p.A*n + p.B)
}

// Flow is a directed influence from one region to another.
type Flow struct {
	From     int     `json:"from"`
	To       int     `json:"to"`
	Strength float64 `json:"strength"`
}

// Snapshot is the read-only state of an Analyzer.
type Snapshot struct {
	MutualInformation float64 `json:"mutual_information"`
	CausalFlow        float64 `json:"causal_flow"`
	Pairs             []Pair  `json:"pairs"`
	Flows             []Flow  `json:"flows"`
	HistoryLength     int     `json:"history_length"`
}

// Analyzer tracks per-region motion on a 4×4 partition.
type Analyzer struct {
	n       int
	sums    []Velocity
	counts  []int
	history []*series.Ring[Velocity]

	pairs      []Pair
	flows      []Flow
	mutualInfo float64
	causalFlow float64

	histI, histJ []Velocity
}

// NewAnalyzer creates an Analyzer with empty histories.
func NewAnalyzer() *Analyzer {
	n := constants.RegionGridSize
	a := &Analyzer{
		n:       n,
		sums:    make([]Velocity, n*n),
		counts:  make([]int, n*n),
		history: make([]*series.Ring[Velocity], n*n),
	}
	for i := range a.history {
		a.history[i] = series.NewRing[Velocity](constants.RegionHistorySize)
	}
	return a
}

// accumulate computes each region's mean velocity and entity count.
func (a *Analyzer) accumulate(entities []spatial.Entity, b spatial.Bounds) {
	for i := range a.sums {
		a.sums[i] = Velocity{}
		a.counts[i] = 0
	}
	for _, e := range entities {
		c := spatial.Cell(e.X, e.Y, b, a.n)
		a.sums[c].VX += e.VX
		a.sums[c].VY += e.VY
		a.counts[c]++
	}
	for i, c := range a.counts {
		if c > 0 {
			a.sums[i].VX /= float64(c)
			a.sums[i].VY /= float64(c)
		}
	}
}

// MutualInformation records every pair of non-adjacent, sufficiently
// populated regions whose mean velocities have cosine similarity above
// the threshold, and returns the summed strength.
func (a *Analyzer) MutualInformation(entities []spatial.Entity, b spatial.Bounds) float64 {
	a.accumulate(entities, b)
	a.pairs = a.pairs[:0]
	total := 0.0

	cells := a.n * a.n
	for i := 0; i < cells; i++ {
		if a.counts[i] < constants.RegionMinEntities {
			continue
		}
		for j := i + 1; j < cells; j++ {
			if a.counts[j] < constants.RegionMinEntities || spatial.Chebyshev(i, j, a.n) <= 1 {
				continue
			}
			sim := Cosine(a.sums[i], a.sums[j])
			if sim <= constants.CorrelationThreshold {
				continue
			}
			ax, ay := spatial.Center(i, b, a.n)
			bx, by := spatial.Center(j, b, a.n)
			a.pairs = append(a.pairs, Pair{A: i, B: j, Strength: sim, AX: ax, AY: ay, BX: bx, BY: by})
			total += sim
		}
	}
	a.mutualInfo = total
	return total
}

// Cosine returns the cosine similarity of two velocities. A zero
// magnitude is replaced by MagnitudeFloor so it can divide.
func Cosine(u, v Velocity) float64 {
	mu, mv := magnitude(u), magnitude(v)
	return (u.VX*v.VX + u.VY*v.VY) / (mu * mv)
}

func magnitude(v Velocity) float64 {
	if m := math.Hypot(v.VX, v.VY); m != 0 {
		return m
	}
	return constants.MagnitudeFloor
}

// RecordHistory appends each region's current mean velocity (zero for an
// empty region) to its history.
func (a *Analyzer) RecordHistory(entities []spatial.Entity, b spatial.Bounds) {
	a.accumulate(entities, b)
	for i, h := range a.history {
		h.Push(a.sums[i])
	}
}

// Causal compares, for each ordered pair of non-adjacent regions (i,j),
// the squared error of predicting j's velocity from its own lagged value
// against predicting it from i's lagged value, and records a flow i→j
// when the cross prediction is clearly better. Until the histories are
// full the previous flows and total stand.
func (a *Analyzer) Causal() float64 {
	if a.history[0].Len() < constants.RegionHistorySize {
		return a.causalFlow
	}
	a.flows = a.flows[:0]
	a.causalFlow = 0

	lag := constants.CausalLag
	cells := a.n * a.n
	for j := 0; j < cells; j++ {
		a.histJ = a.history[j].Items(a.histJ[:0])
		for i := 0; i < cells; i++ {
			if i == j || spatial.Chebyshev(i, j, a.n) <= 1 {
				continue
			}
			a.histI = a.history[i].Items(a.histI[:0])

			var self, cross float64
			for t := lag; t < len(a.histJ); t++ {
				self += sqErr(a.histJ[t-lag], a.histJ[t])
				cross += sqErr(a.histI[t-lag], a.histJ[t])
			}
			if cross >= constants.CausalCrossRatio*self || cross <= constants.CausalMinCrossError {
				continue
			}
			improvement := (self - cross) / self
			if improvement > constants.CausalMinImprovement {
				a.flows = append(a.flows, Flow{From: i, To: j, Strength: improvement})
				a.causalFlow += improvement
			}
		}
	}
	return a.causalFlow
}

func sqErr(pred, actual Velocity) float64 {
	dx, dy := pred.VX-actual.VX, pred.VY-actual.VY
	return dx*dx + dy*dy
}

// Strongest returns the most strongly correlated pair from the last
// MutualInformation call.
func (a *Analyzer) Strongest() (Pair, bool) {
	if len(a.pairs) == 0 {
		return Pair{}, false
	}
	best := a.pairs[0]
	for _, p := range a.pairs[1:] {
		if p.Strength > best.Strength {
			best = p
		}
	}
	return best, true
}

// MutualInfo returns the total from the last MutualInformation call.
func (a *Analyzer) MutualInfo() float64 { return a.mutualInfo }

// Snapshot returns a copy of the analyzer's state.
func (a *Analyzer) Snapshot() Snapshot {
	return Snapshot{
		MutualInformation: a.mutualInfo,
		CausalFlow:        a.causalFlow,
		Pairs:             append([]Pair(nil), a.pairs...),
		Flows:             append([]Flow(nil), a.flows...),
		HistoryLength:     a.history[0].Len(),
	}
}
