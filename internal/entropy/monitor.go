// Package entropy measures how ordered the particle system is.
//
// Monitor turns entity positions into a normalized Shannon entropy sample
// each time it is measured and keeps the bounded history every other
// analysis reads from. MetaMonitor measures the entropy of that history.
package entropy

import (
	"math"

	"github.com/nvandessel/selfwatch/internal/constants"
	"github.com/nvandessel/selfwatch/internal/series"
	"github.com/nvandessel/selfwatch/internal/spatial"
)

// Direction names the sense of an inflection.
type Direction string

const (
	// OrderToChaos fires when a falling entropy trend turns upward.
	OrderToChaos Direction = "order-to-chaos"

	// ChaosToOrder fires when a rising entropy trend turns downward.
	ChaosToOrder Direction = "chaos-to-order"
)

// Inflection is a logged change of trend direction.
type Inflection struct {
	Tick      int64     `json:"tick"`
	Direction Direction `json:"direction"`
	Entropy   float64   `json:"entropy"`
}

// Config tunes a Monitor.
type Config struct {
	// GridSize is G for the G×G occupancy grid.
	GridSize int
	// HistorySize is the entropy history capacity.
	HistorySize int
	// InflectionCooldown is the minimum number of ticks between inflections.
	InflectionCooldown int64
}

// DefaultConfig returns the nominal 60 Hz settings.
func DefaultConfig() Config {
	return Config{
		GridSize:           constants.EntropyGridSize,
		HistorySize:        constants.EntropyHistorySize,
		InflectionCooldown: constants.InflectionCooldownTicks,
	}
}

// Snapshot is the read-only state of a Monitor.
type Snapshot struct {
	Entropy            float64     `json:"entropy"`
	Trend              float64     `json:"trend"`
	Average            float64     `json:"average"`
	Samples            int         `json:"samples"`
	ConnectionDistance float64     `json:"connection_distance"`
	Symmetry           float64     `json:"symmetry"`
	Min                float64     `json:"min"`
	MinTick            int64       `json:"min_tick"`
	Max                float64     `json:"max"`
	MaxTick            int64       `json:"max_tick"`
	Inflections        int         `json:"inflections"`
	LastInflection     *Inflection `json:"last_inflection,omitempty"`
}

// Monitor computes spatial entropy and tracks its history.
type Monitor struct {
	cfg     Config
	history *series.Window
	log     *series.Ring[Inflection]
	counts  []int
	norm    float64

	current    float64
	symmetry   float64
	connection float64

	seen           bool
	min, max       float64
	minAt, maxAt   int64
	lastInflection int64
	inflections    int
}

// NewMonitor creates a Monitor. Sizes below their minimum fall back to defaults.
func NewMonitor(cfg Config) *Monitor {
	def := DefaultConfig()
	if cfg.GridSize < 2 {
		cfg.GridSize = def.GridSize
	}
	if cfg.HistorySize < 1 {
		cfg.HistorySize = def.HistorySize
	}
	if cfg.InflectionCooldown < 0 {
		cfg.InflectionCooldown = def.InflectionCooldown
	}
	return &Monitor{
		cfg:            cfg,
		history:        series.NewWindow(cfg.HistorySize),
		log:            series.NewRing[Inflection](constants.InflectionLogSize),
		norm:           math.Log2(float64(cfg.GridSize * cfg.GridSize)),
		connection:     constants.InitialConnectionDistance,
		lastInflection: math.MinInt64 / 2,
	}
}

// Measure computes the entropy of the entities' grid occupancy, appends it
// to the history and returns it.
func (m *Monitor) Measure(entities []spatial.Entity, b spatial.Bounds, now int64) float64 {
	m.counts = spatial.Occupancy(entities, b, m.cfg.GridSize, m.counts)
	h := Shannon(m.counts, len(entities)) / m.norm
	m.symmetry = MirrorSymmetry(m.counts, m.cfg.GridSize)
	m.Observe(h, now)
	return m.current
}

// Observe appends an externally measured entropy sample.
func (m *Monitor) Observe(h float64, now int64) {
	h = series.Clamp01(h)
	m.current = h
	m.history.Push(h)

	if !m.seen || h < m.min {
		m.min, m.minAt = h, now
	}
	if !m.seen || h > m.max {
		m.max, m.maxAt = h, now
	}
	m.seen = true

	target := constants.MinConnectionDistance + h*(constants.MaxConnectionDistance-constants.MinConnectionDistance)
	m.connection += (target - m.connection) * constants.ConnectionDistanceRate
}

// Shannon returns -Σp·log2(p) over the nonzero counts, with p = count/total.
func Shannon(counts []int, total int) float64 {
	if total <= 0 {
		return 0
	}
	h := 0.0
	for _, c := range counts {
		if c > 0 {
			p := float64(c) / float64(total)
			h -= p * math.Log2(p)
		}
	}
	return h
}

// Current returns the most recent entropy sample.
func (m *Monitor) Current() float64 { return m.current }

// Len returns the number of stored samples.
func (m *Monitor) Len() int { return m.history.Len() }

// Average returns the mean of the stored samples.
func (m *Monitor) Average() float64 { return m.history.Average() }

// History appends the stored samples, oldest first, to dst.
func (m *Monitor) History(dst []float64) []float64 {
	return m.history.Values(dst)
}

// ConnectionDistance returns the self-tuning connection distance.
func (m *Monitor) ConnectionDistance() float64 { return m.connection }

// Symmetry returns the mirror symmetry of the last measured occupancy grid.
func (m *Monitor) Symmetry() float64 { return m.symmetry }

// Trend returns the mean of the last 10 samples minus the mean of the 10
// before them. It is 0 with fewer than 10 samples or no earlier samples.
func (m *Monitor) Trend() float64 {
	return m.trendAt(m.history.Len())
}

// trendAt computes the trend as if the history ended at index end (exclusive).
func (m *Monitor) trendAt(end int) float64 {
	w := constants.TrendWindow
	if end < w {
		return 0
	}
	recent := 0.0
	for i := end - w; i < end; i++ {
		recent += m.history.At(i)
	}
	recent /= float64(w)

	start := max(0, end-2*w)
	if start >= end-w {
		return 0
	}
	older := 0.0
	for i := start; i < end-w; i++ {
		older += m.history.At(i)
	}
	older /= float64(end - w - start)

	return recent - older
}

// DetectInflection compares the current trend with the trend one sample
// earlier and logs an inflection when the sign flips with both magnitudes
// above the threshold. Strictly more than the cooldown must separate two
// inflections.
func (m *Monitor) DetectInflection(now int64) (Inflection, bool) {
	n := m.history.Len()
	if n < constants.InflectionMinSamples {
		return Inflection{}, false
	}
	if now-m.lastInflection <= m.cfg.InflectionCooldown {
		return Inflection{}, false
	}

	cur := m.trendAt(n)
	prev := m.trendAt(n - 1)
	eps := constants.InflectionEpsilon

	var dir Direction
	switch {
	case prev < -eps && cur > eps:
		dir = OrderToChaos
	case prev > eps && cur < -eps:
		dir = ChaosToOrder
	default:
		return Inflection{}, false
	}

	ev := Inflection{Tick: now, Direction: dir, Entropy: m.current}
	m.log.Push(ev)
	m.lastInflection = now
	m.inflections++
	return ev, true
}

// Inflections appends the logged inflections, oldest first, to dst.
func (m *Monitor) Inflections(dst []Inflection) []Inflection {
	return m.log.Items(dst)
}

// Snapshot returns the monitor's read-only state.
func (m *Monitor) Snapshot() Snapshot {
	s := Snapshot{
		Entropy:            m.current,
		Trend:              m.Trend(),
		Average:            m.history.Average(),
		Samples:            m.history.Len(),
		ConnectionDistance: m.connection,
		Symmetry:           m.symmetry,
		Min:                m.min,
		MinTick:            m.minAt,
		Max:                m.max,
		MaxTick:            m.maxAt,
		Inflections:        m.inflections,
	}
	if last, ok := m.log.Newest(); ok {
		s.LastInflection = &last
	}
	return s
}

// Influence returns the velocity damping factor the simulation applies for
// entropy h: ordered states damp less.
func Influence(h float64) float64 {
	return 0.995 + (1-series.Clamp01(h))*0.004
}
