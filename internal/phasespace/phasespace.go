// Package phasespace follows the system through a two-dimensional state
// space, complexity against stability, and notices when the path keeps
// circling one spot.
package phasespace

import (
	"math"

	"github.com/nvandessel/selfwatch/internal/constants"
	"github.com/nvandessel/selfwatch/internal/series"
)

// Point is one position on the trajectory. X is complexity and Y is
// stability, both in [0,1]; Coherence and Awareness ride along for
// consumers that draw the path.
type Point struct {
	Tick      int64   `json:"tick"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Coherence float64 `json:"coherence"`
	Awareness float64 `json:"awareness"`
}

// Snapshot is the read-only state of a Space.
type Snapshot struct {
	Current  Point   `json:"current"`
	Length   int     `json:"length"`
	Spread   float64 `json:"spread"`
	CenterX  float64 `json:"center_x"`
	CenterY  float64 `json:"center_y"`
	Radius   float64 `json:"radius"`
	Strength float64 `json:"strength"`
}

// Space holds the bounded trajectory and the attractor estimate.
type Space struct {
	trajectory *series.Ring[Point]
	scratch    []Point

	current  Point
	spread   float64
	cx, cy   float64
	radius   float64
	strength float64
}

// New creates an empty Space.
func New() *Space {
	return &Space{trajectory: series.NewRing[Point](constants.PhaseTrajectorySize)}
}

// Stability maps invariant knowledge onto the Y axis: strong invariants
// weighted by how stable the detected period is, plus the attractor's
// stability, capped at 1.
func Stability(strong int, periodStability, attractorStability float64) float64 {
	return math.Min(1, float64(strong)/10*periodStability+attractorStability)
}

// Update appends p to the trajectory and, once more than a window of
// points exists, checks whether the latest window clusters.
func (s *Space) Update(p Point) Snapshot {
	s.current = p
	s.trajectory.Push(p)
	if s.trajectory.Len() > constants.PhaseAttractorWindow {
		s.detect()
	}
	return s.Snapshot()
}

// detect measures the RMS distance of the last 60 points from their
// centroid. A tight cluster pulls the attractor center toward the
// centroid and sets the strength; otherwise the strength fades.
func (s *Space) detect() {
	s.scratch = s.trajectory.Items(s.scratch[:0])
	recent := s.scratch[len(s.scratch)-constants.PhaseAttractorWindow:]

	var cx, cy float64
	for _, p := range recent {
		cx += p.X
		cy += p.Y
	}
	n := float64(len(recent))
	cx /= n
	cy /= n

	var v float64
	for _, p := range recent {
		v += (p.X-cx)*(p.X-cx) + (p.Y-cy)*(p.Y-cy)
	}
	s.spread = math.Sqrt(v / n)

	if s.spread >= constants.PhaseAttractorSpread {
		s.strength *= constants.PhaseAttractorDecay
		return
	}
	s.cx = s.cx*0.9 + cx*0.1
	s.cy = s.cy*0.9 + cy*0.1
	s.radius = s.spread * constants.PhaseScale * 3
	s.strength = math.Max(0, 1-s.spread*10)
}

// Strength returns the attractor strength in [0,1].
func (s *Space) Strength() float64 { return s.strength }

// Trajectory appends the stored points, oldest first, to dst.
func (s *Space) Trajectory(dst []Point) []Point {
	return s.trajectory.Items(dst)
}

// Snapshot returns the space's read-only state.
func (s *Space) Snapshot() Snapshot {
	return Snapshot{
		Current:  s.current,
		Length:   s.trajectory.Len(),
		Spread:   s.spread,
		CenterX:  s.cx,
		CenterY:  s.cy,
		Radius:   s.radius,
		Strength: s.strength,
	}
}
