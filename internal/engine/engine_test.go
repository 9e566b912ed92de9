package engine

import (
	"math"
	"testing"

	"github.com/nvandessel/selfwatch/internal/constants"
	"github.com/nvandessel/selfwatch/internal/invariants"
	"github.com/nvandessel/selfwatch/internal/spatial"
)

type recordingSink struct {
	names []string
}

func (r *recordingSink) Log(name string, _ map[string]any) {
	r.names = append(r.names, name)
}

func uniformFrame() Frame {
	var ents []spatial.Entity
	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			ents = append(ents, spatial.Entity{X: (float64(x) + 0.5) * 80, Y: (float64(y) + 0.5) * 80})
		}
	}
	return Frame{Entities: ents, Bounds: spatial.Bounds{Width: 1280, Height: 1280}}
}

func hasKind(entries []invariants.Invariant, kind constants.InvariantKind) (invariants.Invariant, bool) {
	for _, e := range entries {
		if e.Kind == kind {
			return e, true
		}
	}
	return invariants.Invariant{}, false
}

func TestScaleTicks(t *testing.T) {
	tests := []struct {
		rate int
		in   int64
		want int64
	}{
		{60, 600, 600},
		{120, 600, 1200},
		{30, 600, 300},
		{0, 600, 600},
		{1, 20, 1},
	}
	for _, tt := range tests {
		cfg := Config{TickRate: tt.rate}
		if got := cfg.ScaleTicks(tt.in); got != tt.want {
			t.Errorf("ScaleTicks(%d) at %d Hz = %d, want %d", tt.in, tt.rate, got, tt.want)
		}
	}
}

func TestNew_NormalizesConfig(t *testing.T) {
	e := New(Config{})
	if got := e.Config(); got != DefaultConfig() {
		t.Errorf("Config() = %+v, want %+v", got, DefaultConfig())
	}
}

func TestObserveEntropy_ConstantStream(t *testing.T) {
	cfg := DefaultConfig()
	cfg.HistorySize = 60
	e := New(cfg)
	for i := 0; i < 70; i++ {
		e.ObserveEntropy(0.5)
	}

	s := e.Snapshot()
	if s.Entropy.Trend != 0 {
		t.Errorf("Trend = %v, want 0", s.Entropy.Trend)
	}
	if s.Entropy.Samples != 60 {
		t.Errorf("Samples = %d, want 60", s.Entropy.Samples)
	}
	if math.Abs(s.Entropy.Average-0.5) > 1e-9 {
		t.Errorf("Average = %v, want 0.5", s.Entropy.Average)
	}
	if s.Tick != 70 || s.Cycles != 2 {
		t.Errorf("Tick, Cycles = %d, %d, want 70, 2", s.Tick, s.Cycles)
	}
	if len(e.History()) != 60 {
		t.Errorf("History length = %d, want 60", len(e.History()))
	}
}

func TestObserveEntropy_SineYieldsPeriodInvariant(t *testing.T) {
	e := New(DefaultConfig())
	for i := 0; i < 200; i++ {
		e.ObserveEntropy(0.5 + 0.3*math.Sin(2*math.Pi*float64(i)/20))
	}

	s := e.Snapshot()
	period, ok := hasKind(s.Invariants.Entries, constants.KindPeriod)
	if !ok {
		t.Fatalf("no period invariant in %+v", s.Invariants.Entries)
	}
	if period.Value < 18 || period.Value > 22 {
		t.Errorf("period = %v, want within [18,22]", period.Value)
	}
	if s.Complexity.Samples == 0 {
		t.Error("complexity never ran")
	}
	if s.Signature.ArchiveSize == 0 {
		t.Error("signature archive is empty")
	}
	if s.Regional.HistoryLength != 0 {
		t.Errorf("regional history = %d, entity-free ticks should not record it", s.Regional.HistoryLength)
	}
}

func TestObserveEntropy_MinimumHistoryYieldsPeriodInvariant(t *testing.T) {
	cfg := DefaultConfig()
	cfg.HistorySize = constants.SignatureWindow
	e := New(cfg)
	for i := 0; i < 3000; i++ {
		e.ObserveEntropy(0.5 + 0.3*math.Sin(2*math.Pi*float64(i)/20))
	}

	s := e.Snapshot()
	if s.Entropy.Samples != constants.SignatureWindow {
		t.Fatalf("history holds %d samples, want %d", s.Entropy.Samples, constants.SignatureWindow)
	}
	period, ok := hasKind(s.Invariants.Entries, constants.KindPeriod)
	if !ok {
		t.Fatalf("no period invariant in %+v", s.Invariants.Entries)
	}
	if period.Value < 18 || period.Value > 22 {
		t.Errorf("period = %v, want within [18,22]", period.Value)
	}
	if s.Invariants.DetectedPeriod != 20 {
		t.Errorf("DetectedPeriod = %d, want 20", s.Invariants.DetectedPeriod)
	}
}

func TestObserveEntropy_StuckIssuesDirectiveForOneTick(t *testing.T) {
	sink := &recordingSink{}
	e := New(DefaultConfig(), WithEvents(sink))

	// The stuck check runs at cycle offset 15 and counts ticks, so a
	// motionless stream crosses the 300-tick threshold at tick 345.
	for i := 0; i <= 345; i++ {
		e.ObserveEntropy(0.2)
	}
	s := e.Snapshot()
	if s.Forces.Directive != constants.DirectiveSeekChaos {
		t.Fatalf("Directive = %q, want %q", s.Forces.Directive, constants.DirectiveSeekChaos)
	}
	found := false
	for _, ev := range s.Events {
		if ev.Kind == EventPerturbation {
			found = true
			if ev.Tick != 345 {
				t.Errorf("perturbation tick = %d, want 345", ev.Tick)
			}
			if ev.Fields["directive"] != string(constants.DirectiveSeekChaos) {
				t.Errorf("directive field = %v", ev.Fields["directive"])
			}
		}
	}
	if !found {
		t.Errorf("no perturbation event in %+v", s.Events)
	}

	sinkSaw := false
	for _, n := range sink.names {
		if n == EventPerturbation {
			sinkSaw = true
		}
	}
	if !sinkSaw {
		t.Errorf("sink received %v, want a perturbation", sink.names)
	}

	e.ObserveEntropy(0.2)
	s = e.Snapshot()
	if s.Forces.Directive != constants.DirectiveNone {
		t.Errorf("Directive = %q after the next tick, want none", s.Forces.Directive)
	}
	if s.Perturbation.Perturbations != 1 {
		t.Errorf("Perturbations = %d, want 1", s.Perturbation.Perturbations)
	}
}

func TestStep_UniformFrame(t *testing.T) {
	sink := &recordingSink{}
	e := New(DefaultConfig(), WithEvents(sink))
	e.Step(uniformFrame())

	s := e.Snapshot()
	if math.Abs(s.Entropy.Entropy-1) > 1e-9 {
		t.Errorf("Entropy = %v, want 1", s.Entropy.Entropy)
	}
	if math.Abs(s.Forces.Influence-0.995) > 1e-9 {
		t.Errorf("Influence = %v, want 0.995", s.Forces.Influence)
	}
	if s.Connectivity <= 0 {
		t.Errorf("Connectivity = %v, want > 0", s.Connectivity)
	}
	if _, ok := hasKind(s.Invariants.Entries, constants.KindSymmetry); !ok {
		t.Errorf("no symmetry invariant in %+v", s.Invariants.Entries)
	}
	if len(sink.names) == 0 || sink.names[0] != EventInvariantDiscovered {
		t.Errorf("sink received %v, want an invariant discovery", sink.names)
	}
}

func TestStep_ClusteredFrame(t *testing.T) {
	e := New(DefaultConfig())
	f := Frame{
		Entities: []spatial.Entity{{X: 5, Y: 5}, {X: 6, Y: 6}, {X: 7, Y: 7}},
		Bounds:   spatial.Bounds{Width: 1280, Height: 800},
	}
	for i := 0; i < 30; i++ {
		e.Step(f)
	}

	s := e.Snapshot()
	if s.Entropy.Entropy != 0 {
		t.Errorf("Entropy = %v, want 0", s.Entropy.Entropy)
	}
	if math.Abs(s.Forces.Influence-0.999) > 1e-9 {
		t.Errorf("Influence = %v, want 0.999", s.Forces.Influence)
	}
	if s.Regional.HistoryLength != 1 {
		t.Errorf("regional history = %d, want 1 after one cycle", s.Regional.HistoryLength)
	}
	if s.Compression.Samples != 1 {
		t.Errorf("compression samples = %d, want 1", s.Compression.Samples)
	}
}

func TestSnapshot_EventsArePerTick(t *testing.T) {
	e := New(DefaultConfig())
	e.Step(uniformFrame())
	if len(e.Snapshot().Events) == 0 {
		t.Fatal("expected an event on the first tick")
	}
	e.Step(uniformFrame())
	if ev := e.Snapshot().Events; len(ev) != 0 {
		t.Errorf("events carried over: %+v", ev)
	}
}

func TestShortCycle(t *testing.T) {
	cfg := DefaultConfig()
	cfg.CycleLength = 4
	e := New(cfg)
	for i := 0; i < 100; i++ {
		e.ObserveEntropy(float64(i%7) / 7)
	}
	s := e.Snapshot()
	if s.Cycles != 25 {
		t.Errorf("Cycles = %d, want 25", s.Cycles)
	}
	if s.Complexity.Samples == 0 {
		t.Error("complexity never ran on a short cycle")
	}
	for _, l := range s.Cascade.Levels {
		if l.Value < 0 || l.Value > 1 || math.IsNaN(l.Value) {
			t.Errorf("level %d value %v out of range", l.Depth, l.Value)
		}
	}
}

func TestObserveEntropy_PopulatesObserverSections(t *testing.T) {
	e := New(DefaultConfig())
	for i := 0; i < 300; i++ {
		e.ObserveEntropy(0.5 + 0.3*math.Sin(2*math.Pi*float64(i)/20))
	}

	s := e.Snapshot()
	// Core runs at offset 0 of every 30-tick cycle.
	if s.PhaseSpace.Length != 10 {
		t.Errorf("PhaseSpace.Length = %d, want 10", s.PhaseSpace.Length)
	}
	if s.PhaseSpace.Current.Tick != 270 {
		t.Errorf("PhaseSpace.Current.Tick = %d, want 270", s.PhaseSpace.Current.Tick)
	}
	if len(s.Topology.Nodes) != 6 {
		t.Errorf("len(Topology.Nodes) = %d, want 6", len(s.Topology.Nodes))
	}
	if s.Feedback.Intensity < 0 || s.Feedback.Intensity > 2 {
		t.Errorf("Feedback.Intensity = %v, out of range", s.Feedback.Intensity)
	}
	if s.Forces.Feedback != s.Feedback.Force {
		t.Errorf("Forces.Feedback = %v, want the loop force %v", s.Forces.Feedback, s.Feedback.Force)
	}
	if s.Convergence.Intensity < 0 || s.Convergence.Intensity > 1 {
		t.Errorf("Convergence.Intensity = %v, want within [0,1]", s.Convergence.Intensity)
	}
}

func TestObserveEntropy_ChaosConverges(t *testing.T) {
	sink := &recordingSink{}
	e := New(DefaultConfig(), WithEvents(sink))
	for i := 0; i < 30; i++ {
		e.ObserveEntropy(0.95)
	}

	s := e.Snapshot()
	if s.Convergence.Count != 1 || s.Convergence.Kind != "primordial_chaos" {
		t.Fatalf("convergence = %+v, want one primordial chaos", s.Convergence)
	}
	var found bool
	for _, n := range sink.names {
		found = found || n == EventConvergence
	}
	if !found {
		t.Errorf("events = %v, want %q", sink.names, EventConvergence)
	}
}
