// Package spatial buckets entities into uniform grids.
//
// Index is a hash grid sized by a cell length, rebuilt from scratch every
// tick and used for neighbor queries. Occupancy maps positions onto a
// coarse G×G partition of the world bounds, which is what the entropy,
// regional and compression analyses count over.
package spatial

// Entity is one simulated particle as seen by the analytics: a position
// and a velocity. The engine never mutates entities.
type Entity struct {
	X, Y   float64
	VX, VY float64
}

// Bounds is the size of the world; positions lie in [0,Width)×[0,Height).
type Bounds struct {
	Width, Height float64
}

// Valid reports whether both dimensions are positive.
func (b Bounds) Valid() bool {
	return b.Width > 0 && b.Height > 0
}
