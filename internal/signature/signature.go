// Package signature fingerprints windows of the entropy series and looks
// for recurring behaviour.
//
// Archive keeps a small set of novel moment signatures and reports how
// familiar the current window is. Recurrence brute-forces a correlation
// search of the latest raw samples against a long trajectory archive.
package signature

import (
	"math"

	"github.com/nvandessel/selfwatch/internal/constants"
	"github.com/nvandessel/selfwatch/internal/series"
)

// Signature is a fixed five-moment summary of a window of samples.
type Signature struct {
	Mean         float64 `json:"mean"`
	Variance     float64 `json:"variance"`
	Skew         float64 `json:"skew"`
	Velocity     float64 `json:"velocity"`
	Acceleration float64 `json:"acceleration"`
}

// Distance weights, one per signature dimension.
const (
	weightMean         = 2.0
	weightVariance     = 1.5
	weightSkew         = 1.0
	weightVelocity     = 1.2
	weightAcceleration = 0.8
)

// minSkewStdDev is the standard deviation below which skew is reported as 0.
const minSkewStdDev = 0.001

// Compute summarizes window. Velocity and acceleration are the mean first
// and second differences; skew is the third standardized moment.
func Compute(window []float64) Signature {
	n := float64(len(window))
	if n == 0 {
		return Signature{}
	}

	var s1, s2, s3 float64
	for _, v := range window {
		s1 += v
		s2 += v * v
		s3 += v * v * v
	}
	mean := s1 / n
	variance := math.Max(0, s2/n-mean*mean)

	skew := 0.0
	if sd := math.Sqrt(variance); sd > minSkewStdDev {
		skew = (s3/n - 3*mean*variance - mean*mean*mean) / (sd * sd * sd)
	}

	var vel, acc float64
	if len(window) > 1 {
		for i := 1; i < len(window); i++ {
			vel += window[i] - window[i-1]
		}
		vel /= n - 1
	}
	if len(window) > 2 {
		for i := 2; i < len(window); i++ {
			acc += window[i] - 2*window[i-1] + window[i-2]
		}
		acc /= n - 2
	}

	return Signature{Mean: mean, Variance: variance, Skew: skew, Velocity: vel, Acceleration: acc}
}

// Distance is a weighted Euclidean distance across the five dimensions.
func Distance(a, b Signature) float64 {
	d := func(w, x, y float64) float64 { return w * (x - y) * (x - y) }
	return math.Sqrt(
		d(weightMean, a.Mean, b.Mean) +
			d(weightVariance, a.Variance, b.Variance) +
			d(weightSkew, a.Skew, b.Skew) +
			d(weightVelocity, a.Velocity, b.Velocity) +
			d(weightAcceleration, a.Acceleration, b.Acceleration))
}

// Entry is an archived signature.
type Entry struct {
	Signature Signature `json:"signature"`
	Tick      int64     `json:"tick"`
}

// Snapshot is the read-only state of an Archive.
type Snapshot struct {
	Current     Signature `json:"current"`
	Familiarity float64   `json:"familiarity"`
	Distance    float64   `json:"distance"`
	ArchiveSize int       `json:"archive_size"`
	Admitted    int       `json:"admitted"`
}

// Archive stores novel signatures and tracks familiarity.
type Archive struct {
	entries     *series.Ring[Entry]
	window      []float64
	current     Signature
	familiarity float64
	distance    float64
	admitted    int
}

// NewArchive creates an empty Archive.
func NewArchive() *Archive {
	return &Archive{
		entries:  series.NewRing[Entry](constants.SignatureArchiveSize),
		distance: 1,
	}
}

// Update fingerprints the last SignatureWindow samples of hist (oldest
// first) and returns the nearest distance to the archive, or +Inf when the
// archive is empty. Shorter histories leave the archive untouched and
// report ok=false.
func (a *Archive) Update(hist []float64, now int64) (nearest float64, ok bool) {
	if len(hist) < constants.SignatureWindow {
		return 0, false
	}
	sig := Compute(hist[len(hist)-constants.SignatureWindow:])
	a.current = sig

	nearest = math.Inf(1)
	for i := 0; i < a.entries.Len(); i++ {
		e, _ := a.entries.At(i)
		nearest = math.Min(nearest, Distance(sig, e.Signature))
	}

	raw := 0.0
	switch {
	case math.IsInf(nearest, 1):
		a.distance = 1
	case nearest < constants.SignatureExactThreshold:
		a.distance = nearest
		raw = 1
	default:
		a.distance = nearest
		raw = math.Exp(-constants.FamiliarityDecay * nearest)
	}
	a.familiarity = a.familiarity*(1-constants.FamiliaritySmoothing) + raw*constants.FamiliaritySmoothing

	if a.entries.Len() == 0 || nearest > constants.SignatureNoveltyThreshold {
		a.entries.Push(Entry{Signature: sig, Tick: now})
		a.admitted++
	}
	return nearest, true
}

// Familiarity returns the smoothed familiarity in [0,1].
func (a *Archive) Familiarity() float64 { return a.familiarity }

// Entries appends the archived entries, oldest first, to dst.
func (a *Archive) Entries(dst []Entry) []Entry { return a.entries.Items(dst) }

// Snapshot returns the archive's read-only state.
func (a *Archive) Snapshot() Snapshot {
	return Snapshot{
		Current:     a.current,
		Familiarity: a.familiarity,
		Distance:    a.distance,
		ArchiveSize: a.entries.Len(),
		Admitted:    a.admitted,
	}
}
