// Package cascade implements a fixed stack of nested self-observers.
//
// Level 0 watches raw entropy. Every level above watches a blend of the
// confidence, coherence and error of the level below, so one Observe call
// flows strictly upward with no same-tick cycles. The cascade also detects
// when the levels fall into step with each other.
package cascade

import (
	"math"

	"github.com/nvandessel/selfwatch/internal/constants"
)

// Config tunes the cascade's tick-denominated timing.
type Config struct {
	// SyncCooldown is the number of ticks after a sync during which no new sync is checked.
	SyncCooldown int64
	// SyncWindow is the number of observations a sync condition must persist.
	SyncWindow int
}

// DefaultConfig returns the nominal 60 Hz settings.
func DefaultConfig() Config {
	return Config{
		SyncCooldown: constants.CascadeSyncCooldownTicks,
		SyncWindow:   constants.CascadeSyncWindow,
	}
}

// Sync is emitted when the levels synchronize.
type Sync struct {
	Tick     int64 `json:"tick"`
	Coherent bool  `json:"coherent"`
	Aligned  bool  `json:"aligned"`
}

// Snapshot is the read-only state of a Cascade.
type Snapshot struct {
	Levels        []LevelSummary `json:"levels"`
	Synced        bool           `json:"synced"`
	SyncIntensity float64        `json:"sync_intensity"`
	SyncDuration  int            `json:"sync_duration"`
	Syncs         int            `json:"syncs"`
	StrangeLoop   float64        `json:"strange_loop"`
	AvgCoherence  float64        `json:"avg_coherence"`
}

// Cascade owns the level stack and its synchronization state.
type Cascade struct {
	cfg    Config
	levels [constants.CascadeDepth]*Level

	synced    bool
	intensity float64
	duration  int
	lastSync  int64
	syncs     int

	coherent, aligned bool
}

// New creates a cascade of CascadeDepth levels.
func New(cfg Config) *Cascade {
	if cfg.SyncWindow < 1 {
		cfg.SyncWindow = constants.CascadeSyncWindow
	}
	c := &Cascade{cfg: cfg, lastSync: math.MinInt64 / 2}
	for i := range c.levels {
		c.levels[i] = newLevel(i)
	}
	return c
}

// Observe feeds one entropy sample through every level, bottom to top,
// then advances synchronization. It returns a Sync when one begins.
func (c *Cascade) Observe(h float64, now int64) (Sync, bool) {
	c.levels[0].Observe(h)
	for i := 1; i < len(c.levels); i++ {
		below := c.levels[i-1]
		c.levels[i].Observe(0.4*below.Confidence() + 0.3*below.Coherence() + 0.3*(1-below.Error()))
	}

	if c.synced {
		c.intensity *= constants.CascadeSyncDecay
		if c.intensity < constants.CascadeSyncFloor {
			c.synced = false
			c.intensity = 0
		}
	}
	return c.checkSync(now)
}

func (c *Cascade) checkSync(now int64) (Sync, bool) {
	if now-c.lastSync < c.cfg.SyncCooldown {
		return Sync{}, false
	}

	c.coherent = true
	for _, l := range c.levels {
		if l.coherence <= constants.CascadeSyncCoherence {
			c.coherent = false
			break
		}
	}

	var phaseSum float64
	var count int
	for _, l := range c.levels {
		if l.oscillating {
			phaseSum += l.phase
			count++
		}
	}
	c.aligned = false
	if count >= len(c.levels)-1 {
		avg := phaseSum / float64(count)
		dev := 0.0
		for _, l := range c.levels {
			if l.oscillating {
				dev += math.Abs(l.phase - avg)
			}
		}
		c.aligned = dev < constants.CascadeSyncPhaseThreshold*float64(count)
	}

	if c.coherent || c.aligned {
		c.duration++
	} else {
		c.duration = max(0, c.duration-1)
	}

	if c.duration >= c.cfg.SyncWindow && !c.synced {
		c.synced = true
		c.intensity = 1
		c.lastSync = now
		c.duration = 0
		c.syncs++
		return Sync{Tick: now, Coherent: c.coherent, Aligned: c.aligned}, true
	}
	return Sync{}, false
}

// Level returns the level at depth i (0 is the bottom).
func (c *Cascade) Level(i int) *Level { return c.levels[i] }

// Coherences appends each level's coherence, bottom first, to dst.
func (c *Cascade) Coherences(dst []float64) []float64 {
	for _, l := range c.levels {
		dst = append(dst, l.coherence)
	}
	return dst
}

// Synced reports whether the levels are synchronized and how intense the
// synchronization still is.
func (c *Cascade) Synced() (bool, float64) { return c.synced, c.intensity }

// StrangeLoop is the top level's coherence times the bottom level's
// inverse error, boosted while synchronized.
func (c *Cascade) StrangeLoop() float64 {
	v := c.levels[len(c.levels)-1].coherence * (1 - c.levels[0].err)
	if c.synced {
		v *= constants.StrangeLoopSyncBoost
	}
	return v
}

// AvgCoherence returns the mean coherence across levels.
func (c *Cascade) AvgCoherence() float64 {
	s := 0.0
	for _, l := range c.levels {
		s += l.coherence
	}
	return s / float64(len(c.levels))
}

// Snapshot returns the cascade's read-only state.
func (c *Cascade) Snapshot() Snapshot {
	s := Snapshot{
		Levels:        make([]LevelSummary, len(c.levels)),
		Synced:        c.synced,
		SyncIntensity: c.intensity,
		SyncDuration:  c.duration,
		Syncs:         c.syncs,
		StrangeLoop:   c.StrangeLoop(),
		AvgCoherence:  c.AvgCoherence(),
	}
	for i, l := range c.levels {
		s.Levels[i] = l.Summary()
	}
	return s
}
