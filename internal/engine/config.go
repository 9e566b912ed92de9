package engine

import (
	"math"

	"github.com/nvandessel/selfwatch/internal/constants"
)

// Config sizes and paces an Engine.
type Config struct {
	// TickRate is the host's ticks per second. Tick-denominated constants
	// are calibrated for 60 and scale by TickRate/60.
	TickRate int
	// CycleLength is the number of ticks in one round-robin cycle.
	CycleLength int
	// HistorySize is the entropy history capacity.
	HistorySize int
	// GridSize is G for the G×G entropy occupancy grid.
	GridSize int
	// CellSize is the spatial index cell edge in world units.
	CellSize float64
}

// DefaultConfig returns the nominal 60 Hz configuration.
func DefaultConfig() Config {
	return Config{
		TickRate:    constants.NominalTickRate,
		CycleLength: constants.DefaultCycleLength,
		HistorySize: constants.EntropyHistorySize,
		GridSize:    constants.EntropyGridSize,
		CellSize:    constants.GridCellSize,
	}
}

// normalize replaces unusable values with defaults.
func (c Config) normalize() Config {
	def := DefaultConfig()
	if c.TickRate <= 0 {
		c.TickRate = def.TickRate
	}
	if c.CycleLength < 4 {
		c.CycleLength = def.CycleLength
	}
	if c.HistorySize < constants.SignatureWindow {
		c.HistorySize = def.HistorySize
	}
	if c.GridSize < 2 {
		c.GridSize = def.GridSize
	}
	if c.CellSize <= 0 {
		c.CellSize = def.CellSize
	}
	return c
}

// ScaleTicks converts a duration calibrated in 60 Hz ticks into ticks at
// the configured rate, never less than one.
func (c Config) ScaleTicks(n int64) int64 {
	rate := c.TickRate
	if rate <= 0 {
		rate = constants.NominalTickRate
	}
	v := int64(math.Round(float64(n) * float64(rate) / constants.NominalTickRate))
	return max(1, v)
}

// offset maps a slot of the nominal 30-tick cycle onto the configured cycle.
func (c Config) offset(slot int) int {
	return slot * c.CycleLength / constants.DefaultCycleLength
}
