// Package perturb notices when the entropy stream has stopped moving and
// tells the simulation to shake itself loose.
package perturb

import (
	"math"

	"github.com/nvandessel/selfwatch/internal/constants"
	"github.com/nvandessel/selfwatch/internal/series"
)

// Config tunes the detector. Both fields are in ticks.
type Config struct {
	Cooldown  int64
	Threshold int64
}

// DefaultConfig returns the nominal 60 Hz settings.
func DefaultConfig() Config {
	return Config{
		Cooldown:  constants.PerturbationCooldownTicks,
		Threshold: constants.StuckThreshold,
	}
}

// Event records an issued perturbation.
type Event struct {
	Tick      int64               `json:"tick"`
	Directive constants.Directive `json:"directive"`
	Entropy   float64             `json:"entropy"`
}

// Snapshot is the read-only state of a Detector.
type Snapshot struct {
	Stuck         int64  `json:"stuck"`
	Perturbations int    `json:"perturbations"`
	Last          *Event `json:"last,omitempty"`
}

// Detector accumulates time spent stuck and issues directives.
type Detector struct {
	cfg       Config
	stuck     int64
	lastCheck int64
	lastFired int64
	count     int
	last      *Event
	scratch   []float64
}

// New creates a Detector.
func New(cfg Config) *Detector {
	return &Detector{
		cfg:       cfg,
		lastCheck: -1,
		lastFired: math.MinInt64 / 2,
	}
}

// Check inspects the last 30 samples of hist (oldest first). Ticks spent
// with near-zero variance accumulate; lively ticks drain the counter twice
// as fast. Once the counter passes the threshold a directive is issued:
// seek chaos from an ordered state, seek order otherwise.
func (d *Detector) Check(hist []float64, now int64) (Event, bool) {
	elapsed := int64(1)
	if d.lastCheck >= 0 && now > d.lastCheck {
		elapsed = now - d.lastCheck
	}
	d.lastCheck = now

	if now-d.lastFired < d.cfg.Cooldown || len(hist) < constants.StuckWindow {
		return Event{}, false
	}

	window := hist[len(hist)-constants.StuckWindow:]
	if series.Variance(window) < constants.StuckVariance {
		d.stuck += elapsed
	} else {
		d.stuck = max(0, d.stuck-2*elapsed)
	}

	if d.stuck <= d.cfg.Threshold {
		return Event{}, false
	}

	h := hist[len(hist)-1]
	dir := constants.DirectiveSeekOrder
	if h < constants.SeekChaosBelow {
		dir = constants.DirectiveSeekChaos
	}
	ev := Event{Tick: now, Directive: dir, Entropy: h}
	d.stuck = 0
	d.lastFired = now
	d.count++
	d.last = &ev
	return ev, true
}

// Snapshot returns the detector's read-only state.
func (d *Detector) Snapshot() Snapshot {
	s := Snapshot{Stuck: d.stuck, Perturbations: d.count}
	if d.last != nil {
		ev := *d.last
		s.Last = &ev
	}
	return s
}
