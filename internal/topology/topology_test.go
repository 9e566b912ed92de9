package topology

import (
	"math"
	"testing"
)

func run(m *Map, in Inputs, n int) Snapshot {
	var s Snapshot
	for i := 0; i < n; i++ {
		s = m.Update(in)
	}
	return s
}

func TestUpdate_DarkMap(t *testing.T) {
	s := run(New(), Inputs{}, 10)
	if s.Energy != 0 || s.SelfAwareness != 0 {
		t.Errorf("energy=%v awareness=%v, want 0", s.Energy, s.SelfAwareness)
	}
	if s.Coherence != 1 {
		t.Errorf("Coherence = %v, want 1 for identical activities", s.Coherence)
	}
	if s.Visible {
		t.Error("a dark map should not be visible")
	}
}

func TestUpdate_SelfAwareness(t *testing.T) {
	even := Inputs{
		Entropy:           0.6,
		MetaEntropy:       0.6,
		Complexity:        0.6,
		InvariantCount:    18,
		Resonance:         -0.6,
		SystemicStability: 1,
	}
	lopsided := Inputs{Entropy: 1, SystemicStability: 1}
	unstable := even
	unstable.SystemicStability = 0

	tests := []struct {
		name    string
		in      Inputs
		lo, hi  float64
		visible bool
	}{
		{"evenly lit and stable", even, 0.5, 0.65, true},
		{"one busy observer", lopsided, 0, 0.15, true},
		{"evenly lit but unstable", unstable, 0, 1e-12, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := run(New(), tt.in, 500)
			if s.SelfAwareness < tt.lo || s.SelfAwareness > tt.hi {
				t.Errorf("SelfAwareness = %v, want within [%v,%v]", s.SelfAwareness, tt.lo, tt.hi)
			}
			if s.Nodes[Self].Activity != s.SelfAwareness {
				t.Errorf("self node activity = %v, want the awareness %v", s.Nodes[Self].Activity, s.SelfAwareness)
			}
			if s.Visible != tt.visible {
				t.Errorf("Visible = %v, want %v", s.Visible, tt.visible)
			}
		})
	}

	s := run(New(), even, 500)
	if s.Coherence < 0.99 {
		t.Errorf("evenly lit Coherence = %v, want ~1", s.Coherence)
	}
	if l := run(New(), lopsided, 500); l.Coherence > 0.6 {
		t.Errorf("lopsided Coherence = %v, want well below 1", l.Coherence)
	}
}

func TestUpdate_ResonanceNodeUsesMagnitude(t *testing.T) {
	m := New()
	run(m, Inputs{Resonance: -0.3, FeedbackIntensity: 0.2}, 500)
	if got := m.Activity(Resonance); math.Abs(got-0.5) > 1e-6 {
		t.Errorf("resonance activity = %v, want |−0.3|+0.2", got)
	}
	if got := m.Activity(nodeCount); got != 0 {
		t.Errorf("Activity(out of range) = %v, want 0", got)
	}
}

func TestSnapshot_Shape(t *testing.T) {
	s := run(New(), Inputs{FeedbackIntensity: 0.4}, 500)
	if len(s.Nodes) != 6 || len(s.Flows) != 12 {
		t.Fatalf("nodes=%d flows=%d, want 6 and 12", len(s.Nodes), len(s.Flows))
	}
	if s.Nodes[Self].Name != "self" || s.Nodes[Complexity].Name != "complexity" {
		t.Errorf("node names = %+v", s.Nodes)
	}
	loop := s.Flows[6]
	if loop.From != "resonance" || loop.To != "entropy" {
		t.Fatalf("flow 6 = %s->%s, want resonance->entropy", loop.From, loop.To)
	}
	if math.Abs(loop.Flow-0.4) > 1e-6 {
		t.Errorf("resonance->entropy flow = %v, want the feedback intensity 0.4", loop.Flow)
	}
}
