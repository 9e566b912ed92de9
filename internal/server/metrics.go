package server

import (
	"github.com/nvandessel/selfwatch/internal/engine"
	"github.com/nvandessel/selfwatch/internal/host"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "selfwatch"

// gauge reads one metric out of the latest published snapshot.
type gauge struct {
	name string
	help string
	read func(engine.Snapshot) float64
}

var gauges = []gauge{
	{"tick", "Current engine tick.", func(s engine.Snapshot) float64 { return float64(s.Tick) }},
	{"entropy", "Normalized spatial entropy.", func(s engine.Snapshot) float64 { return s.Entropy.Entropy }},
	{"entropy_trend", "Recent entropy trend.", func(s engine.Snapshot) float64 { return s.Entropy.Trend }},
	{"meta_entropy", "Entropy of the entropy history.", func(s engine.Snapshot) float64 { return s.Meta.MetaEntropy }},
	{"observation_depth", "Smoothed observation depth.", func(s engine.Snapshot) float64 { return s.Meta.ObservationDepth }},
	{"familiarity", "Best signature similarity.", func(s engine.Snapshot) float64 { return s.Signature.Familiarity }},
	{"complexity", "Estimated complexity.", func(s engine.Snapshot) float64 { return s.Complexity.Complexity }},
	{"meta_complexity", "Complexity of the complexity history.", func(s engine.Snapshot) float64 { return s.Complexity.MetaComplexity }},
	{"mutual_information", "Mean regional mutual information.", func(s engine.Snapshot) float64 { return s.Regional.MutualInformation }},
	{"causal_flow", "Mean regional causal influence.", func(s engine.Snapshot) float64 { return s.Regional.CausalFlow }},
	{"compression_ratio", "Smoothed spatial compression ratio.", func(s engine.Snapshot) float64 { return s.Compression.Ratio }},
	{"invariants", "Number of archived invariants.", func(s engine.Snapshot) float64 { return float64(s.Invariants.Count) }},
	{"strong_invariants", "Number of strong invariants.", func(s engine.Snapshot) float64 { return float64(s.Invariants.Strong) }},
	{"strange_loop", "Cascade strange-loop strength.", func(s engine.Snapshot) float64 { return s.Cascade.StrangeLoop }},
	{"cascade_coherence", "Mean cascade level coherence.", func(s engine.Snapshot) float64 { return s.Cascade.AvgCoherence }},
	{"model_confidence", "Self-model prediction confidence.", func(s engine.Snapshot) float64 { return s.SelfModel.Confidence }},
	{"resonance", "Knowledge and observation resonance.", func(s engine.Snapshot) float64 { return s.Resonance.Resonance }},
	{"connectivity", "Mean neighbor count within the connection distance.", func(s engine.Snapshot) float64 { return s.Connectivity }},
	{"feedback_intensity", "Smoothed observer feedback intensity.", func(s engine.Snapshot) float64 { return s.Feedback.Intensity }},
	{"coherence_product", "Product of cascade level coherences.", func(s engine.Snapshot) float64 { return s.Feedback.CoherenceProduct }},
	{"loop_closed", "1 while the feedback loop is closed.", func(s engine.Snapshot) float64 { return boolGauge(s.Feedback.Closed) }},
	{"loop_pressure", "Pressure accumulated by a closed feedback loop.", func(s engine.Snapshot) float64 { return s.Feedback.Pressure }},
	{"topology_coherence", "Evenness of observer activities.", func(s engine.Snapshot) float64 { return s.Topology.Coherence }},
	{"self_awareness", "Self node activity of the observer topology.", func(s engine.Snapshot) float64 { return s.Topology.SelfAwareness }},
	{"phase_spread", "RMS spread of the recent phase-space trajectory.", func(s engine.Snapshot) float64 { return s.PhaseSpace.Spread }},
	{"attractor_strength", "Phase-space attractor strength.", func(s engine.Snapshot) float64 { return s.PhaseSpace.Strength }},
	{"convergence_intensity", "Intensity of the active convergence.", func(s engine.Snapshot) float64 { return s.Convergence.Intensity }},
}

func boolGauge(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// newRegistry builds a registry whose collectors read from pub at scrape
// time, so the tick goroutine never touches Prometheus.
func newRegistry(pub *host.Publisher) *prometheus.Registry {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	for _, g := range gauges {
		read := g.read
		factory.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      g.name,
			Help:      g.help,
		}, func() float64 {
			snap, _ := pub.Latest()
			return read(snap)
		})
	}

	for _, kind := range engine.EventKinds {
		factory.NewCounterFunc(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "events_total",
			Help:        "Engine events published, by kind.",
			ConstLabels: prometheus.Labels{"kind": kind},
		}, func() float64 {
			return float64(pub.EventCount(kind))
		})
	}

	return reg
}
