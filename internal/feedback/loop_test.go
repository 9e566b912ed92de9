package feedback

import (
	"math"
	"slices"
	"testing"
)

func levels(c float64) Inputs {
	return Inputs{Coherences: []float64{c, c, c, c}, StrangeLoop: 1}
}

func TestUpdate_CoherenceProduct(t *testing.T) {
	tests := []struct {
		name string
		in   Inputs
		want float64
	}{
		{"incoherent levels keep the floor", levels(0), math.Pow(0.3, 4)},
		{"coherent levels", levels(1), 1},
		{"mixed levels", Inputs{Coherences: []float64{1, 0.5, 0, 1}}, 0.65 * 0.3},
		{"sync boost", Inputs{Coherences: []float64{1, 1, 1, 1}, Synced: true, SyncIntensity: 1}, 1.5},
		{"out of range coherence is clamped", levels(2), 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := New(DefaultConfig())
			l.Update(tt.in, 0)
			if got := l.Snapshot().CoherenceProduct; math.Abs(got-tt.want) > 1e-12 {
				t.Errorf("CoherenceProduct = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestUpdate_CloseReleaseOpen(t *testing.T) {
	l := New(DefaultConfig())
	var got []Transition
	var sawDispersal, sawPull bool
	for tick := int64(0); tick < 1000; tick++ {
		c := 1.0
		if tick < 30 {
			c = 0
		}
		got = append(got, l.Update(levels(c), tick)...)

		s := l.Snapshot()
		if s.Breaking && s.Force < 0 {
			sawDispersal = true
		}
		if s.Closed && !s.Breaking && s.Force > 0 {
			sawPull = true
		}
	}

	want := []Transition{Closed, Released, Opened}
	if !slices.Equal(got, want) {
		t.Fatalf("transitions = %v, want %v", got, want)
	}
	if !sawPull {
		t.Error("a closed, intense loop never pulled toward order")
	}
	if !sawDispersal {
		t.Error("a breaking loop never dispersed")
	}

	s := l.Snapshot()
	if s.Closed || s.Breaking || s.Pressure > 0.01 {
		t.Errorf("after opening: closed=%v breaking=%v pressure=%v", s.Closed, s.Breaking, s.Pressure)
	}
	if s.Closures != 1 || s.Releases != 1 {
		t.Errorf("closures=%d releases=%d, want 1 and 1", s.Closures, s.Releases)
	}
	if !s.Active || s.Intensity < 0.99 {
		t.Errorf("intensity = %v, want saturated and active", s.Intensity)
	}
}

func TestUpdate_ClosureCooldown(t *testing.T) {
	l := New(DefaultConfig())
	closures := func(from, to int64) {
		for tick := from; tick < to; tick++ {
			c := 1.0
			if tick-from < 30 {
				c = 0
			}
			l.Update(levels(c), tick)
		}
	}

	closures(0, 50)
	if n := l.Snapshot().Closures; n != 1 {
		t.Fatalf("closures after first rise = %d, want 1", n)
	}
	closures(50, 100)
	if n := l.Snapshot().Closures; n != 1 {
		t.Errorf("closures inside the cooldown = %d, want 1", n)
	}
	closures(700, 750)
	if n := l.Snapshot().Closures; n != 2 {
		t.Errorf("closures after the cooldown = %d, want 2", n)
	}
}

func TestForce_QuietBelowThreshold(t *testing.T) {
	l := New(DefaultConfig())
	for tick := int64(0); tick < 200; tick++ {
		l.Update(levels(0), tick)
	}
	if f := l.Force(); f != 0 {
		t.Errorf("Force() = %v, want 0 below the feedback threshold", f)
	}
	if l.Snapshot().Active {
		t.Error("loop should be inactive")
	}
}
