package complexity

import (
	"github.com/nvandessel/selfwatch/internal/constants"
	"github.com/nvandessel/selfwatch/internal/series"
	"github.com/nvandessel/selfwatch/internal/spatial"
)

// CompressionSnapshot is the read-only state of a Compression tracker.
type CompressionSnapshot struct {
	Ratio   float64 `json:"ratio"`
	Average float64 `json:"average"`
	Samples int     `json:"samples"`
}

// Compression measures how compressible the spatial occupancy pattern is.
type Compression struct {
	counts  []int
	symbols []int
	ratio   float64
	started bool
	history *series.Window
}

// NewCompression creates an empty Compression tracker.
func NewCompression() *Compression {
	return &Compression{history: series.NewWindow(constants.CompressionHistorySize)}
}

// Update maps an 8×8 occupancy grid onto symbols 0..9 relative to the
// fullest cell, run-length sizes the row-major sequence and folds the
// ratio into a smoothed value.
func (c *Compression) Update(entities []spatial.Entity, b spatial.Bounds) float64 {
	n := constants.CompressionGridSize
	c.counts = spatial.Occupancy(entities, b, n, c.counts)

	peak := 0
	for _, v := range c.counts {
		peak = max(peak, v)
	}
	c.symbols = c.symbols[:0]
	for _, v := range c.counts {
		s := 0
		if peak > 0 {
			s = v * constants.CompressionSymbols / peak
		}
		c.symbols = append(c.symbols, s)
	}

	raw := float64(min(len(c.symbols), 2*runs(c.symbols))) / float64(len(c.symbols))
	if !c.started {
		c.ratio = raw
		c.started = true
	} else {
		c.ratio = c.ratio*(1-constants.CompressionSmoothing) + raw*constants.CompressionSmoothing
	}
	c.history.Push(c.ratio)
	return c.ratio
}

// Ratio returns the smoothed compression ratio.
func (c *Compression) Ratio() float64 { return c.ratio }

// Average returns the mean of the recorded ratios.
func (c *Compression) Average() float64 { return c.history.Average() }

// Snapshot returns the tracker's read-only state.
func (c *Compression) Snapshot() CompressionSnapshot {
	return CompressionSnapshot{Ratio: c.ratio, Average: c.history.Average(), Samples: c.history.Len()}
}
