// Package sim is a small particle world that stands in for the renderer
// the engine normally watches. It drifts, damps and wraps particles, and
// applies the engine's forces from the previous tick.
package sim

import (
	"math"
	"math/rand/v2"

	"github.com/nvandessel/selfwatch/internal/constants"
	"github.com/nvandessel/selfwatch/internal/engine"
	"github.com/nvandessel/selfwatch/internal/spatial"
)

const (
	minAgitation    = 0.005
	baseAgitation   = 0.01
	energyAgitation = 0.02
	baseDamping     = 0.99
	energyDamping   = 0.005
	energyDecay     = 0.99

	perturbGain    = 0.008
	collapseGain   = 0.003
	collapseRadius = 150.0
	perturbMin     = 0.05
	collapseMin    = 0.1

	chaosStride   = 3
	chaosMinKick  = 0.3
	chaosKickSpan = 0.5
	chaosEnergy   = 0.3

	attractorLife     = 200
	attractorStrength = 2.0
	attractorGain     = 0.0003
	attractorNear     = 20.0
	attractorFar      = 300.0
)

// Config sizes a World.
type Config struct {
	Entities int
	Width    float64
	Height   float64
	// Seed makes a run reproducible. Zero picks a random seed.
	Seed uint64
}

// DefaultConfig returns the default world.
func DefaultConfig() Config {
	return Config{
		Entities: constants.DefaultEntityCount,
		Width:    constants.DefaultWorldWidth,
		Height:   constants.DefaultWorldHeight,
	}
}

type particle struct {
	spatial.Entity
	energy float64
	depth  float64
	speed  float64
}

// World is a wrapping particle box.
type World struct {
	seed      uint64
	rng       *rand.Rand
	bounds    spatial.Bounds
	particles []particle
	tick      int64

	// remaining ticks of the seek-order attractor
	attractor int
}

// NewWorld scatters cfg.Entities particles uniformly at random.
func NewWorld(cfg Config) *World {
	def := DefaultConfig()
	if cfg.Entities < 1 {
		cfg.Entities = def.Entities
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		cfg.Width, cfg.Height = def.Width, def.Height
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = rand.Uint64()
	}

	w := &World{
		seed:      seed,
		rng:       rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		bounds:    spatial.Bounds{Width: cfg.Width, Height: cfg.Height},
		particles: make([]particle, cfg.Entities),
	}
	for i := range w.particles {
		p := &w.particles[i]
		p.X = w.rng.Float64() * cfg.Width
		p.Y = w.rng.Float64() * cfg.Height
		p.VX = (w.rng.Float64() - 0.5) * 0.5
		p.VY = (w.rng.Float64() - 0.5) * 0.5
		p.depth = w.rng.Float64()
		p.speed = 0.3 + p.depth*0.7
	}
	return w
}

// Seed returns the seed the world was built from.
func (w *World) Seed() uint64 { return w.seed }

// Bounds returns the world size.
func (w *World) Bounds() spatial.Bounds { return w.bounds }

// Len returns the particle count.
func (w *World) Len() int { return len(w.particles) }

// Tick returns the number of steps taken.
func (w *World) Tick() int64 { return w.tick }

// Attracting reports how many ticks the seek-order attractor has left.
func (w *World) Attracting() int { return w.attractor }

// Frame copies the particles into an engine frame, reusing dst.
func (w *World) Frame(dst []spatial.Entity) engine.Frame {
	dst = dst[:0]
	for _, p := range w.particles {
		dst = append(dst, p.Entity)
	}
	return engine.Frame{Entities: dst, Bounds: w.bounds}
}

// Step advances one tick under the given forces.
func (w *World) Step(f engine.Forces) {
	switch f.Directive {
	case constants.DirectiveSeekChaos:
		w.scatter()
	case constants.DirectiveSeekOrder:
		w.attractor = attractorLife
	}

	influence := f.Influence
	if influence <= 0 {
		influence = 1
	}
	cx, cy := w.bounds.Width/2, w.bounds.Height/2
	t := float64(w.tick)

	for i := range w.particles {
		p := &w.particles[i]

		agitation := math.Max(minAgitation, baseAgitation+p.energy*energyAgitation)
		p.VX += (w.rng.Float64() - 0.5) * agitation * p.speed
		p.VY += (w.rng.Float64() - 0.5) * agitation * p.speed

		if i%2 == 0 {
			w.observerEffect(p, f, cx, cy, t)
		}
		if f.Feedback != 0 {
			w.feedback(p, f.Feedback, cx, cy)
		}
		if w.attractor > 0 {
			w.attract(p, cx, cy)
		}

		damping := baseDamping - p.energy*energyDamping
		p.VX *= damping
		p.VY *= damping

		p.X += p.VX * p.speed
		p.Y += p.VY * p.speed
		p.X = wrap(p.X, w.bounds.Width)
		p.Y = wrap(p.Y, w.bounds.Height)

		p.energy *= energyDecay * influence
	}

	if w.attractor > 0 {
		w.attractor--
	}
	w.tick++
}

// observerEffect applies radial perturbation waves and the spiral pull of
// measurement collapse toward 3+depth points on a slowly turning ring.
func (w *World) observerEffect(p *particle, f engine.Forces, cx, cy, t float64) {
	if f.Perturbation < perturbMin && f.Collapse < collapseMin {
		return
	}
	dx, dy := p.X-cx, p.Y-cy
	dist := math.Hypot(dx, dy)
	if dist == 0 {
		dist = 1
	}

	if s := f.Perturbation * perturbGain; s > 0 {
		wave := math.Sin(dist*0.02-t*0.05) * s
		p.VX += dx / dist * wave
		p.VY += dy / dist * wave
	}

	if s := f.Collapse * collapseGain; s > 0 {
		points := 3 + int(f.RecursionDepth)
		radius := collapseRadius + f.RecursionDepth*30
		phase := t * 0.0001
		best := math.Inf(1)
		var bx, by float64
		for j := 0; j < points; j++ {
			angle := float64(j)/float64(points)*2*math.Pi + phase
			ax := cx + math.Cos(angle)*radius
			ay := cy + math.Sin(angle)*radius
			if d := math.Hypot(ax-p.X, ay-p.Y); d < best {
				best, bx, by = d, ax-p.X, ay-p.Y
			}
		}
		if best > 1 {
			p.VX += bx / best * s
			p.VY += by / best * s
		}
	}
}

// feedback applies the observer feedback force. A positive strength pulls
// toward the center with a tangential swirl; a negative one pushes outward.
func (w *World) feedback(p *particle, strength, cx, cy float64) {
	dx, dy := cx-p.X, cy-p.Y
	dist := math.Hypot(dx, dy)
	if dist == 0 {
		return
	}
	ux, uy := dx/dist, dy/dist
	if strength < 0 {
		p.VX += ux * strength
		p.VY += uy * strength
		return
	}
	// perpendicular to the radial pull
	p.VX += ux*strength*0.3 - uy*strength*0.7
	p.VY += uy*strength*0.3 + ux*strength*0.7
}

func (w *World) attract(p *particle, cx, cy float64) {
	dx, dy := cx-p.X, cy-p.Y
	dist := math.Hypot(dx, dy)
	if dist <= attractorNear || dist >= attractorFar {
		return
	}
	strength := attractorStrength * float64(w.attractor) / attractorLife
	force := strength * attractorGain
	p.VX += dx / dist * force
	p.VY += dy / dist * force
}

// scatter kicks every third particle in a random direction.
func (w *World) scatter() {
	for i := 0; i < len(w.particles); i += chaosStride {
		p := &w.particles[i]
		angle := w.rng.Float64() * 2 * math.Pi
		force := chaosMinKick + w.rng.Float64()*chaosKickSpan
		p.VX += math.Cos(angle) * force
		p.VY += math.Sin(angle) * force
		p.energy = math.Min(1, p.energy+chaosEnergy)
	}
}

// MeanSpeed returns the mean particle speed.
func (w *World) MeanSpeed() float64 {
	if len(w.particles) == 0 {
		return 0
	}
	total := 0.0
	for _, p := range w.particles {
		total += math.Hypot(p.VX, p.VY)
	}
	return total / float64(len(w.particles))
}

func wrap(v, size float64) float64 {
	switch {
	case v < 0:
		return size
	case v > size:
		return 0
	}
	return v
}
