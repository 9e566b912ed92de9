package engine

import (
	"maps"

	"github.com/nvandessel/selfwatch/internal/cascade"
	"github.com/nvandessel/selfwatch/internal/complexity"
	"github.com/nvandessel/selfwatch/internal/constants"
	"github.com/nvandessel/selfwatch/internal/convergence"
	"github.com/nvandessel/selfwatch/internal/entropy"
	"github.com/nvandessel/selfwatch/internal/feedback"
	"github.com/nvandessel/selfwatch/internal/invariants"
	"github.com/nvandessel/selfwatch/internal/perturb"
	"github.com/nvandessel/selfwatch/internal/phasespace"
	"github.com/nvandessel/selfwatch/internal/regional"
	"github.com/nvandessel/selfwatch/internal/resonance"
	"github.com/nvandessel/selfwatch/internal/selfmodel"
	"github.com/nvandessel/selfwatch/internal/signature"
	"github.com/nvandessel/selfwatch/internal/topology"
)

// Event kinds.
const (
	EventInflection          = "inflection"
	EventRecurrence          = "recurrence"
	EventCascadeSync         = "cascade_sync"
	EventInvariantDiscovered = "invariant_discovered"
	EventInvariantEvicted    = "invariant_evicted"
	EventPerturbation        = "perturbation"
	EventLoopClosed          = "loop_closed"
	EventLoopReleased        = "loop_released"
	EventLoopOpened          = "loop_opened"
	EventConvergence         = "convergence"
)

// EventKinds lists every event kind the engine emits, in a stable order.
var EventKinds = []string{
	EventInflection,
	EventRecurrence,
	EventCascadeSync,
	EventInvariantDiscovered,
	EventInvariantEvicted,
	EventPerturbation,
	EventLoopClosed,
	EventLoopReleased,
	EventLoopOpened,
	EventConvergence,
}

// Event is a discrete occurrence during a tick.
type Event struct {
	Tick   int64          `json:"tick"`
	Kind   string         `json:"kind"`
	Value  float64        `json:"value"`
	Fields map[string]any `json:"fields,omitempty"`
}

// Forces are the metric-derived terms the simulation may apply on the
// next tick. Feedback is signed: positive pulls toward the center,
// negative disperses while the feedback loop breaks open.
type Forces struct {
	Perturbation   float64             `json:"perturbation"`
	Collapse       float64             `json:"collapse"`
	RecursionDepth float64             `json:"recursion_depth"`
	Directive      constants.Directive `json:"directive,omitempty"`
	Influence      float64             `json:"influence"`
	Feedback       float64             `json:"feedback"`
}

// Snapshot is a value copy of every subsystem's most recent results.
// Subsystems on the round-robin schedule may be up to one cycle stale.
type Snapshot struct {
	Tick         int64                          `json:"tick"`
	Cycles       int64                          `json:"cycles"`
	Entropy      entropy.Snapshot               `json:"entropy"`
	Meta         entropy.MetaSnapshot           `json:"meta"`
	Signature    signature.Snapshot             `json:"signature"`
	Recurrence   signature.RecurrenceSnapshot   `json:"recurrence"`
	Regional     regional.Snapshot              `json:"regional"`
	Complexity   complexity.Snapshot            `json:"complexity"`
	Compression  complexity.CompressionSnapshot `json:"compression"`
	Invariants   invariants.Summary             `json:"invariants"`
	Cascade      cascade.Snapshot               `json:"cascade"`
	SelfModel    selfmodel.Snapshot             `json:"self_model"`
	Resonance    resonance.Snapshot             `json:"resonance"`
	Perturbation perturb.Snapshot               `json:"perturbation"`
	Feedback     feedback.Snapshot              `json:"feedback"`
	Topology     topology.Snapshot              `json:"topology"`
	PhaseSpace   phasespace.Snapshot            `json:"phase_space"`
	Convergence  convergence.Snapshot           `json:"convergence"`
	Forces       Forces                         `json:"forces"`
	Connectivity float64                        `json:"connectivity"`
	Events       []Event                        `json:"events,omitempty"`
}

// Snapshot assembles the read-only state of every subsystem.
func (e *Engine) Snapshot() Snapshot {
	s := Snapshot{
		Tick:         e.tick,
		Cycles:       e.tick / int64(e.cfg.CycleLength),
		Entropy:      e.monitor.Snapshot(),
		Meta:         e.meta.Snapshot(),
		Signature:    e.signatures.Snapshot(),
		Recurrence:   e.recurrence.Snapshot(),
		Regional:     e.regions.Snapshot(),
		Complexity:   e.estimator.Snapshot(),
		Compression:  e.compression.Snapshot(),
		Invariants:   e.invariants.Summary(),
		Cascade:      e.cascade.Snapshot(),
		SelfModel:    e.model.Snapshot(),
		Resonance:    e.resonance.Snapshot(),
		Perturbation: e.stuck.Snapshot(),
		Feedback:     e.feedback.Snapshot(),
		Topology:     e.topology.Snapshot(),
		PhaseSpace:   e.phase.Snapshot(),
		Convergence:  e.convergence.Snapshot(),
		Forces:       e.forces,
		Connectivity: e.connectivity,
	}
	if len(e.events) > 0 {
		s.Events = make([]Event, len(e.events))
		for i, ev := range e.events {
			ev.Fields = maps.Clone(ev.Fields)
			s.Events[i] = ev
		}
	}
	return s
}

// Inflections returns the bounded inflection log, oldest first.
func (e *Engine) Inflections() []entropy.Inflection {
	return e.monitor.Inflections(nil)
}

// History returns the entropy history, oldest first.
func (e *Engine) History() []float64 {
	return e.monitor.History(nil)
}
