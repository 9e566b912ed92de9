// Package feedback closes the strange loop: the coherence of the
// observation cascade is turned into a force on the simulation it
// observes, and a sudden rise in that coherence snaps the loop closed.
//
// A closed loop builds pressure while it stays coherent. Past a threshold
// it breaks open for a fixed number of ticks, during which the force
// reverses and disperses the simulation, and then resets.
package feedback

import (
	"math"

	"github.com/nvandessel/selfwatch/internal/constants"
	"github.com/nvandessel/selfwatch/internal/series"
)

// Transition names a change in the loop's state.
type Transition string

const (
	// Closed fires when the coherence product jumps from low to high.
	Closed Transition = "closed"
	// Released fires when accumulated pressure starts a break.
	Released Transition = "released"
	// Opened fires when a break completes and the loop resets.
	Opened Transition = "opened"
)

// Config tunes a Loop. Both fields are in ticks.
type Config struct {
	// Cooldown is the minimum spacing between closures.
	Cooldown int64
	// BreakDuration is the length of a release; releases are at least
	// three durations apart.
	BreakDuration int64
}

// DefaultConfig returns the nominal 60 Hz settings.
func DefaultConfig() Config {
	return Config{
		Cooldown:      constants.LoopClosureCooldownTicks,
		BreakDuration: constants.LoopBreakTicks,
	}
}

// Inputs are the cascade values the loop reads each tick.
type Inputs struct {
	// Coherences holds one coherence per cascade level.
	Coherences    []float64
	Synced        bool
	SyncIntensity float64
	StrangeLoop   float64
}

// Snapshot is the read-only state of a Loop.
type Snapshot struct {
	Intensity        float64 `json:"intensity"`
	Phase            float64 `json:"phase"`
	CoherenceProduct float64 `json:"coherence_product"`
	Active           bool    `json:"active"`
	Closed           bool    `json:"closed"`
	ClosedIntensity  float64 `json:"closed_intensity"`
	Pressure         float64 `json:"pressure"`
	Breaking         bool    `json:"breaking"`
	BreakProgress    float64 `json:"break_progress"`
	Closures         int     `json:"closures"`
	Releases         int     `json:"releases"`
	Force            float64 `json:"force"`
}

// Loop tracks feedback intensity and the closed/breaking cycle.
type Loop struct {
	cfg      Config
	products *series.Window
	fired    []Transition

	product         float64
	intensity       float64
	phase           float64
	closed          bool
	closedIntensity float64
	pressure        float64
	breaking        bool
	progress        float64
	lastClosed      int64
	lastBreak       int64
	closures        int
	releases        int
}

// New creates an open Loop. Durations below one tick fall back to defaults.
func New(cfg Config) *Loop {
	def := DefaultConfig()
	if cfg.Cooldown < 1 {
		cfg.Cooldown = def.Cooldown
	}
	if cfg.BreakDuration < 1 {
		cfg.BreakDuration = def.BreakDuration
	}
	return &Loop{
		cfg:        cfg,
		products:   series.NewWindow(constants.FeedbackHistorySize),
		lastClosed: math.MinInt64 / 2,
		lastBreak:  math.MinInt64 / 2,
	}
}

// Update folds one tick of cascade state into the loop and returns the
// transitions that happened, in order. The returned slice is reused by
// the next call.
func (l *Loop) Update(in Inputs, now int64) []Transition {
	l.fired = l.fired[:0]

	// Every level contributes at least 0.3 so one incoherent level weakens
	// the product without zeroing it.
	l.product = 1
	for _, c := range in.Coherences {
		l.product *= 0.3 + series.Clamp01(c)*0.7
	}
	if in.Synced {
		l.product *= 1 + in.SyncIntensity*0.5
	}
	l.products.Push(l.product)

	raw := l.product * (0.5 + in.StrangeLoop*0.5)
	l.intensity = l.intensity*(1-constants.FeedbackSmoothing) + raw*constants.FeedbackSmoothing
	l.phase += 0.02 + l.intensity*0.03

	if l.detectClosure(now) {
		l.fired = append(l.fired, Closed)
	}

	switch {
	case l.breaking:
		l.progress += 1 / float64(l.cfg.BreakDuration)
		if l.progress >= 1 {
			l.breaking = false
			l.progress = 0
			l.closed = false
			l.closedIntensity = 0
			l.pressure = 0
			l.fired = append(l.fired, Opened)
		}
	case l.closed:
		l.pressure += constants.LoopPressureRate * l.intensity
		if l.pressure > constants.LoopPressureThreshold && now-l.lastBreak > 3*l.cfg.BreakDuration {
			l.breaking = true
			l.progress = 0
			l.lastBreak = now
			l.releases++
			l.fired = append(l.fired, Released)
		}
		l.closedIntensity *= constants.LoopClosedDecay
		if l.closedIntensity < constants.LoopClosedFloor {
			l.closed = false
		}
	default:
		l.pressure *= constants.LoopPressureLeak
	}
	return l.fired
}

// detectClosure compares the last 10 coherence products with the 20
// before them and closes the loop on a sharp rise.
func (l *Loop) detectClosure(now int64) bool {
	if now-l.lastClosed < l.cfg.Cooldown {
		return false
	}
	n := l.products.Len()
	if n < constants.LoopClosureMinSamples {
		return false
	}

	var recent, older float64
	for i := n - 10; i < n; i++ {
		recent += l.products.At(i)
	}
	for i := n - 30; i < n-10; i++ {
		older += l.products.At(i)
	}
	recent /= 10
	older /= 20

	if recent <= constants.LoopClosureThreshold || older >= constants.LoopClosureThreshold*0.7 {
		return false
	}
	l.closed = true
	l.closedIntensity = 1
	l.lastClosed = now
	l.closures++
	return true
}

// Intensity returns the smoothed feedback intensity.
func (l *Loop) Intensity() float64 { return l.intensity }

// Force returns the signed strength of the feedback force: positive pulls
// the simulation toward order, negative disperses it while the loop breaks.
func (l *Loop) Force() float64 {
	if l.breaking {
		return -3 * constants.FeedbackStrength * math.Sin(l.progress*math.Pi)
	}
	if l.intensity < constants.FeedbackThreshold {
		return 0
	}
	active := (l.intensity - constants.FeedbackThreshold) / (1 - constants.FeedbackThreshold)
	f := constants.FeedbackStrength * active * (0.7 + math.Sin(l.phase)*0.3) * (1 + l.pressure*0.3)
	if l.closed {
		f *= 1 + l.closedIntensity*0.5
	}
	return f
}

// Snapshot returns the loop's read-only state.
func (l *Loop) Snapshot() Snapshot {
	return Snapshot{
		Intensity:        l.intensity,
		Phase:            l.phase,
		CoherenceProduct: l.product,
		Active:           l.intensity >= constants.FeedbackThreshold,
		Closed:           l.closed,
		ClosedIntensity:  l.closedIntensity,
		Pressure:         l.pressure,
		Breaking:         l.breaking,
		BreakProgress:    l.progress,
		Closures:         l.closures,
		Releases:         l.releases,
		Force:            l.Force(),
	}
}
