package convergence

import (
	"testing"

	"github.com/nvandessel/selfwatch/internal/constants"
)

func TestCheck_Rules(t *testing.T) {
	regress := Inputs{
		Entropy:          0.5,
		ObservationDepth: 2,
		CascadeSynced:    true,
		SyncIntensity:    0.9,
		Predicting:       true,
	}
	notPredicting := regress
	notPredicting.Predicting = false

	tests := []struct {
		name   string
		in     Inputs
		want   Kind
		wantOK bool
	}{
		{"quiet system", Inputs{Entropy: 0.5, ObservationDepth: 1}, "", false},
		{"primordial chaos", Inputs{Entropy: 0.9, ObservationDepth: 0.2}, PrimordialChaos, true},
		{"chaos with deep observation", Inputs{Entropy: 0.9, ObservationDepth: 1}, "", false},
		{"temporal-spatial coherence", Inputs{
			Entropy: 0.5, ObservationDepth: 1,
			RecurrenceActive: true, RecurrenceStrength: 0.8, MutualInformation: 2,
		}, TemporalSpatialCoherence, true},
		{"fading recurrence", Inputs{
			Entropy: 0.5, ObservationDepth: 1,
			RecurrenceActive: true, RecurrenceStrength: 0.4, MutualInformation: 2,
		}, "", false},
		{"infinite regress", regress, InfiniteRegress, true},
		{"regress needs prediction", notPredicting, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := New(constants.ConvergenceCooldownTicks)
			ev, ok := d.Check(tt.in, 100)
			if ok != tt.wantOK || ev.Kind != tt.want {
				t.Fatalf("Check() = %+v, %v; want kind %q, %v", ev, ok, tt.want, tt.wantOK)
			}
			s := d.Snapshot()
			if s.Active != tt.wantOK {
				t.Errorf("Active = %v, want %v", s.Active, tt.wantOK)
			}
			if ok && (s.Intensity != 1 || s.Last == nil || s.Last.Tick != 100) {
				t.Errorf("snapshot after firing = %+v", s)
			}
		})
	}
}

func TestCheck_Cooldown(t *testing.T) {
	chaos := Inputs{Entropy: 0.95}
	d := New(constants.ConvergenceCooldownTicks)
	if _, ok := d.Check(chaos, 0); !ok {
		t.Fatal("first check should fire")
	}
	if _, ok := d.Check(chaos, constants.ConvergenceCooldownTicks-1); ok {
		t.Error("fired inside the cooldown")
	}
	if _, ok := d.Check(chaos, constants.ConvergenceCooldownTicks); !ok {
		t.Error("did not fire once the cooldown elapsed")
	}
	if n := d.Snapshot().Count; n != 2 {
		t.Errorf("Count = %d, want 2", n)
	}
}

func TestFade(t *testing.T) {
	d := New(constants.ConvergenceCooldownTicks)
	d.Fade()
	if d.Snapshot().Active {
		t.Fatal("inactive detector became active")
	}

	d.Check(Inputs{Entropy: 0.95}, 0)
	ticks := 0
	for d.Snapshot().Active {
		d.Fade()
		ticks++
		if ticks > 10000 {
			t.Fatal("convergence never ended")
		}
	}
	// 0.995^n < 0.05 first holds at n = 598.
	if ticks != 598 {
		t.Errorf("convergence lasted %d ticks, want 598", ticks)
	}
	s := d.Snapshot()
	if s.Kind != "" || s.Intensity != 0 {
		t.Errorf("after fading: %+v", s)
	}
	if s.Last == nil || s.Last.Kind != PrimordialChaos {
		t.Errorf("Last = %+v, want the primordial chaos event kept", s.Last)
	}
}
