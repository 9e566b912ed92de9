// Package engine owns every analytics subsystem and runs them on a fixed
// round-robin schedule.
//
// One Engine is one self-observation context. The host hands it a Frame
// per tick, the engine measures entropy and feeds the subsystems whose
// slot in the cycle has come up, and Snapshot returns a value copy of the
// most recent results. Forces derived in tick t are meant to be applied
// by the simulation in tick t+1; the engine never touches entities.
package engine

import (
	"context"
	"log/slog"

	"github.com/nvandessel/selfwatch/internal/cascade"
	"github.com/nvandessel/selfwatch/internal/complexity"
	"github.com/nvandessel/selfwatch/internal/constants"
	"github.com/nvandessel/selfwatch/internal/convergence"
	"github.com/nvandessel/selfwatch/internal/entropy"
	"github.com/nvandessel/selfwatch/internal/feedback"
	"github.com/nvandessel/selfwatch/internal/invariants"
	"github.com/nvandessel/selfwatch/internal/logging"
	"github.com/nvandessel/selfwatch/internal/perturb"
	"github.com/nvandessel/selfwatch/internal/phasespace"
	"github.com/nvandessel/selfwatch/internal/regional"
	"github.com/nvandessel/selfwatch/internal/resonance"
	"github.com/nvandessel/selfwatch/internal/selfmodel"
	"github.com/nvandessel/selfwatch/internal/signature"
	"github.com/nvandessel/selfwatch/internal/spatial"
	"github.com/nvandessel/selfwatch/internal/topology"
)

// Cycle slots, in ticks of the nominal 30-tick cycle.
const (
	slotCore       = 0
	slotInflection = 10
	slotStuck      = 15
	slotSearch     = 20
	slotRegions    = 25
)

// Frame is the simulation state the engine reads for one tick.
type Frame struct {
	Entities []spatial.Entity
	Bounds   spatial.Bounds
}

// EventSink receives discrete engine events. *logging.EventLogger
// satisfies it.
type EventSink interface {
	Log(name string, fields map[string]any)
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine's logger. The default discards.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithEvents sets a sink that receives every engine event.
func WithEvents(s EventSink) Option {
	return func(e *Engine) { e.sink = s }
}

// Engine is the self-observation context.
type Engine struct {
	cfg    Config
	logger *slog.Logger
	sink   EventSink

	index       *spatial.Index
	monitor     *entropy.Monitor
	meta        *entropy.MetaMonitor
	signatures  *signature.Archive
	recurrence  *signature.Recurrence
	regions     *regional.Analyzer
	estimator   *complexity.Estimator
	compression *complexity.Compression
	invariants  *invariants.Archive
	cascade     *cascade.Cascade
	model       *selfmodel.Model
	resonance   *resonance.Tracker
	stuck       *perturb.Detector
	feedback    *feedback.Loop
	topology    *topology.Map
	phase       *phasespace.Space
	convergence *convergence.Detector

	tick         int64
	hist         []float64
	coherences   []float64
	forces       Forces
	connectivity float64
	events       []Event
	hasEntities  bool
}

// New creates an Engine with empty histories.
func New(cfg Config, opts ...Option) *Engine {
	cfg = cfg.normalize()
	e := &Engine{
		cfg:    cfg,
		logger: logging.Discard(),
		index:  spatial.NewIndex(cfg.CellSize),
		monitor: entropy.NewMonitor(entropy.Config{
			GridSize:           cfg.GridSize,
			HistorySize:        cfg.HistorySize,
			InflectionCooldown: cfg.ScaleTicks(constants.InflectionCooldownTicks),
		}),
		meta:        entropy.NewMetaMonitor(),
		signatures:  signature.NewArchive(),
		recurrence:  signature.NewRecurrence(cfg.ScaleTicks(constants.RecurrenceCooldownTicks)),
		regions:     regional.NewAnalyzer(),
		estimator:   complexity.NewEstimator(),
		compression: complexity.NewCompression(),
		invariants:  invariants.NewArchive(),
		cascade: cascade.New(cascade.Config{
			SyncCooldown: cfg.ScaleTicks(constants.CascadeSyncCooldownTicks),
			SyncWindow:   int(cfg.ScaleTicks(constants.CascadeSyncWindow)),
		}),
		model:     selfmodel.New(),
		resonance: resonance.New(),
		stuck: perturb.New(perturb.Config{
			Cooldown:  cfg.ScaleTicks(constants.PerturbationCooldownTicks),
			Threshold: cfg.ScaleTicks(constants.StuckThreshold),
		}),
		feedback: feedback.New(feedback.Config{
			Cooldown:      cfg.ScaleTicks(constants.LoopClosureCooldownTicks),
			BreakDuration: cfg.ScaleTicks(constants.LoopBreakTicks),
		}),
		topology:    topology.New(),
		phase:       phasespace.New(),
		convergence: convergence.New(cfg.ScaleTicks(constants.ConvergenceCooldownTicks)),
		forces: Forces{Influence: entropy.Influence(0)},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Config returns the normalized configuration.
func (e *Engine) Config() Config { return e.cfg }

// Tick returns the number of ticks processed.
func (e *Engine) Tick() int64 { return e.tick }

// Step advances one tick from a simulation frame.
func (e *Engine) Step(f Frame) {
	e.begin()
	e.hasEntities = len(f.Entities) > 0
	e.index.Rebuild(f.Entities, f.Bounds)
	h := e.monitor.Measure(f.Entities, f.Bounds, e.tick)
	e.advance(h, &f)
}

// ObserveEntropy advances one tick from an externally measured entropy
// sample. Subsystems that need entity positions are skipped.
func (e *Engine) ObserveEntropy(h float64) {
	e.begin()
	e.hasEntities = false
	e.monitor.Observe(h, e.tick)
	e.advance(e.monitor.Current(), nil)
}

func (e *Engine) begin() {
	e.events = e.events[:0]
	e.forces.Directive = constants.DirectiveNone
}

// advance runs the per-tick work and whichever cycle slot is due.
func (e *Engine) advance(h float64, f *Frame) {
	now := e.tick
	e.recurrence.Record(h)
	e.forces.Influence = entropy.Influence(h)
	if sync, ok := e.cascade.Observe(h, now); ok {
		e.emit(EventCascadeSync, now, h, "coherent", sync.Coherent, "aligned", sync.Aligned)
	}
	e.runFeedback(now)
	e.convergence.Fade()

	// Slots may coincide on short cycles, so each is checked separately.
	off := int(now % int64(e.cfg.CycleLength))
	if off == e.cfg.offset(slotCore) {
		e.runCore(now)
	}
	if off == e.cfg.offset(slotInflection) {
		e.runInflection(now)
	}
	if off == e.cfg.offset(slotStuck) {
		e.runStuck(now)
	}
	if off == e.cfg.offset(slotSearch) {
		e.runSearch(now, f)
	}
	if off == e.cfg.offset(slotRegions) {
		e.runRegions(f)
	}

	e.tick++
}

// runCore updates the history-driven subsystems, in dependency order, and
// derives the forces for the next tick.
func (e *Engine) runCore(now int64) {
	e.hist = e.monitor.History(e.hist[:0])

	meta := e.meta.Update(e.hist)
	depth := e.meta.UpdateDepth()
	e.logger.Log(context.Background(), logging.LevelTrace, "meta-entropy updated", "meta", meta, "depth", depth)

	if e.model.Update(e.hist) {
		e.logger.Log(context.Background(), logging.LevelTrace, "self-model updated", "confidence", e.model.Confidence())
	}
	if nearest, ok := e.signatures.Update(e.hist, now); ok {
		e.logger.Log(context.Background(), logging.LevelTrace, "signature updated",
			"nearest", nearest, "familiarity", e.signatures.Familiarity())
	}
	e.estimator.Update(e.hist)

	report := e.invariants.Update(e.hist, now)
	e.offerObserved(now, &report)
	for _, inv := range report.Discovered {
		e.emit(EventInvariantDiscovered, now, inv.Value, "kind", string(inv.Kind), "stability", inv.Stability)
	}
	if report.Evicted > 0 || report.Pruned > 0 {
		e.emit(EventInvariantEvicted, now, float64(report.Evicted+report.Pruned),
			"evicted", report.Evicted, "pruned", report.Pruned)
	}

	cs := e.estimator.Snapshot()
	e.resonance.Update(resonance.Inputs{
		Complexity:     cs.Complexity,
		InvariantCount: e.invariants.Len(),
		StrongCount:    e.invariants.Strong(),
		Perturbation:   cs.Perturbation,
		Collapse:       cs.Collapse,
	})
	e.forces.Perturbation, e.forces.Collapse = e.resonance.Modulate(cs.Perturbation, cs.Collapse)
	e.forces.RecursionDepth = cs.RecursionDepth

	rs := e.resonance.Snapshot()
	ms := e.meta.Snapshot()
	e.topology.Update(topology.Inputs{
		Entropy:           e.monitor.Current(),
		MetaEntropy:       ms.MetaEntropy,
		Complexity:        cs.Complexity,
		MetaComplexity:    cs.MetaComplexity,
		Perturbation:      cs.Perturbation,
		Collapse:          cs.Collapse,
		InvariantCount:    e.invariants.Len(),
		StrongInvariants:  e.invariants.Strong(),
		Resonance:         rs.Resonance,
		Dissonance:        rs.Dissonance,
		FeedbackIntensity: rs.FeedbackIntensity,
		SystemicStability: rs.SystemicStability,
	})
	inv := e.invariants.Summary()
	e.phase.Update(phasespace.Point{
		Tick:      now,
		X:         cs.Complexity,
		Y:         phasespace.Stability(inv.Strong, inv.PeriodStability, inv.AttractorStability),
		Coherence: rs.Coherence,
		Awareness: e.topology.SelfAwareness(),
	})

	if e.hasEntities {
		e.connectivity = e.index.MeanDegree(e.monitor.ConnectionDistance())
	}

	e.logger.Debug("cycle complete",
		"tick", now,
		"entropy", e.monitor.Current(),
		"complexity", cs.Complexity,
		"invariants", e.invariants.Len(),
		"strange_loop", e.cascade.StrangeLoop())
}

// offerObserved proposes the invariants observed outside the archive's own
// detectors: occupancy symmetry and the strongest correlated region pair.
func (e *Engine) offerObserved(now int64, r *invariants.Report) {
	var candidates []invariants.Candidate
	if e.hasEntities {
		if sym := e.monitor.Symmetry(); sym >= constants.SymmetryMinScore {
			candidates = append(candidates, invariants.Candidate{
				Kind: constants.KindSymmetry, Value: sym, Stability: sym,
			})
		}
		if pair, ok := e.regions.Strongest(); ok {
			candidates = append(candidates, invariants.Candidate{
				Kind: constants.KindCorrelation, Value: pair.ID(), Stability: pair.Strength,
			})
		}
	}
	for _, c := range candidates {
		switch e.invariants.Offer(c, now) {
		case invariants.Discovered:
			r.Discovered = append(r.Discovered, invariants.Invariant{
				Kind: c.Kind, Value: c.Value, Stability: c.Stability, DiscoveredAt: now, LastObserved: now,
			})
		case invariants.Reinforced:
			r.Reinforced++
		}
	}
}

func (e *Engine) runInflection(now int64) {
	if ev, ok := e.monitor.DetectInflection(now); ok {
		e.emit(EventInflection, now, ev.Entropy, "direction", string(ev.Direction))
	}
}

// runFeedback turns this tick's cascade coherence into the feedback force
// and reports loop transitions.
func (e *Engine) runFeedback(now int64) {
	synced, intensity := e.cascade.Synced()
	e.coherences = e.cascade.Coherences(e.coherences[:0])
	for _, tr := range e.feedback.Update(feedback.Inputs{
		Coherences:    e.coherences,
		Synced:        synced,
		SyncIntensity: intensity,
		StrangeLoop:   e.cascade.StrangeLoop(),
	}, now) {
		fs := e.feedback.Snapshot()
		switch tr {
		case feedback.Closed:
			e.emit(EventLoopClosed, now, fs.CoherenceProduct, "intensity", fs.Intensity)
		case feedback.Released:
			e.emit(EventLoopReleased, now, fs.Pressure, "intensity", fs.Intensity)
		case feedback.Opened:
			e.emit(EventLoopOpened, now, fs.Intensity)
		}
	}
	e.forces.Feedback = e.feedback.Force()
}

func (e *Engine) runStuck(now int64) {
	e.runConvergence(now)

	e.hist = e.monitor.History(e.hist[:0])
	if ev, ok := e.stuck.Check(e.hist, now); ok {
		e.forces.Directive = ev.Directive
		e.emit(EventPerturbation, now, ev.Entropy, "directive", string(ev.Directive))
	}
}

func (e *Engine) runConvergence(now int64) {
	rec := e.recurrence.Snapshot()
	synced, intensity := e.cascade.Synced()
	ev, ok := e.convergence.Check(convergence.Inputs{
		Entropy:            e.monitor.Current(),
		ObservationDepth:   e.meta.Snapshot().ObservationDepth,
		RecurrenceActive:   rec.Active,
		RecurrenceStrength: rec.Intensity,
		MutualInformation:  e.regions.MutualInfo(),
		CascadeSynced:      synced,
		SyncIntensity:      intensity,
		Predicting:         e.model.Snapshot().Mode == selfmodel.Predicting,
	}, now)
	if ok {
		e.emit(EventConvergence, now, e.monitor.Current(), "type", string(ev.Kind))
	}
}

func (e *Engine) runSearch(now int64, f *Frame) {
	if m, ok := e.recurrence.Search(now); ok {
		e.emit(EventRecurrence, now, m.Correlation, "archive_at", m.ArchiveAt)
	}
	if f != nil {
		mi := e.regions.MutualInformation(f.Entities, f.Bounds)
		e.logger.Log(context.Background(), logging.LevelTrace, "mutual information", "value", mi)
	}
}

func (e *Engine) runRegions(f *Frame) {
	if f == nil {
		return
	}
	e.regions.RecordHistory(f.Entities, f.Bounds)
	causal := e.regions.Causal()
	ratio := e.compression.Update(f.Entities, f.Bounds)
	e.logger.Log(context.Background(), logging.LevelTrace, "regions updated", "causal", causal, "compression", ratio)
}

// emit records an event for this tick, logs it and forwards it to the sink.
// kv holds extra key/value pairs.
func (e *Engine) emit(kind string, tick int64, value float64, kv ...any) {
	ev := Event{Tick: tick, Kind: kind, Value: value}
	fields := map[string]any{"tick": tick, "value": value}
	for i := 0; i+1 < len(kv); i += 2 {
		if k, ok := kv[i].(string); ok {
			fields[k] = kv[i+1]
		}
	}
	ev.Fields = fields
	e.events = append(e.events, ev)

	e.logger.Info(kind, append([]any{"tick", tick, "value", value}, kv...)...)
	if e.sink != nil {
		e.sink.Log(kind, fields)
	}
}
