package invariants

import (
	"math"
	"testing"

	"github.com/nvandessel/selfwatch/internal/constants"
	"github.com/nvandessel/selfwatch/internal/series"
)

// feed pushes one sample per tick into a bounded history and runs Update
// on the engine's core cadence, once every cycle.
func feed(a *Archive, ticks int, f func(t int) float64) Report {
	return feedSized(a, constants.EntropyHistorySize, ticks, f)
}

func feedSized(a *Archive, size, ticks int, f func(t int) float64) Report {
	hist := series.NewWindow(size)
	var buf []float64
	var total Report
	for t := 0; t < ticks; t++ {
		hist.Push(f(t))
		if t%constants.DefaultCycleLength != 0 {
			continue
		}
		buf = hist.Values(buf[:0])
		r := a.Update(buf, int64(t))
		total.Discovered = append(total.Discovered, r.Discovered...)
		total.Reinforced += r.Reinforced
		total.Pruned += r.Pruned
		total.Evicted += r.Evicted
	}
	return total
}

func sine20(t int) float64 {
	return 0.5 + 0.3*math.Sin(2*math.Pi*float64(t)/20)
}

func find(entries []Invariant, kind constants.InvariantKind) (Invariant, bool) {
	for _, e := range entries {
		if e.Kind == kind {
			return e, true
		}
	}
	return Invariant{}, false
}

func TestUpdate_SineWaveYieldsPeriod(t *testing.T) {
	a := NewArchive()
	feed(a, 200, sine20)

	period, ok := find(a.Entries(), constants.KindPeriod)
	if !ok {
		t.Fatalf("no period invariant in %+v", a.Entries())
	}
	if period.Value < 18 || period.Value > 22 {
		t.Errorf("period = %v, want within [18,22]", period.Value)
	}
	if period.Stability <= 0.5 {
		t.Errorf("period stability = %v, want > 0.5", period.Stability)
	}

	s := a.Summary()
	if s.DetectedPeriod != 20 {
		t.Errorf("DetectedPeriod = %d, want 20", s.DetectedPeriod)
	}
	if _, ok := find(a.Entries(), constants.KindAttractor); ok {
		t.Error("a wide oscillation should not be an attractor")
	}
}

func TestUpdate_MinimumHistoryYieldsPeriod(t *testing.T) {
	a := NewArchive()
	feedSized(a, constants.SignatureWindow, 3000, sine20)

	period, ok := find(a.Entries(), constants.KindPeriod)
	if !ok {
		t.Fatalf("no period invariant from a %d-sample history: %+v", constants.SignatureWindow, a.Entries())
	}
	if period.Value < 18 || period.Value > 22 {
		t.Errorf("period = %v, want within [18,22]", period.Value)
	}
	if period.Observations < 5 {
		t.Errorf("period observations = %d, want repeated detections", period.Observations)
	}
}

func TestDetectPeriod_OverlapBounds(t *testing.T) {
	tests := []struct {
		name string
		n    int
		want bool
	}{
		{"below minimum overlap", constants.PeriodMinLag + constants.PeriodMinOverlap - 1, false},
		{"exactly minimum overlap reaches lag 10 only", constants.PeriodMinLag + constants.PeriodMinOverlap, false},
		{"overlap reaches lag 20", 20 + constants.PeriodMinOverlap, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hist := make([]float64, tt.n)
			for i := range hist {
				hist[i] = sine20(i)
			}
			a := NewArchive()
			a.detectPeriod(hist)
			if got := a.periods.Len() == 1; got != tt.want {
				t.Errorf("candidate pushed = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestUpdate_ConstantYieldsAttractorAndBounds(t *testing.T) {
	a := NewArchive()
	r := feed(a, 150, func(int) float64 { return 0.5 })

	att, ok := find(a.Entries(), constants.KindAttractor)
	if !ok {
		t.Fatal("expected an attractor invariant")
	}
	if math.Abs(att.Value-0.5) > 1e-9 {
		t.Errorf("attractor value = %v, want 0.5", att.Value)
	}

	bound, ok := find(a.Entries(), constants.KindBound)
	if !ok {
		t.Fatal("expected a bound invariant")
	}
	if bound.Value != 0.5 || bound.Upper != 0.5 {
		t.Errorf("bound = [%v,%v], want [0.5,0.5]", bound.Value, bound.Upper)
	}

	if _, ok := find(a.Entries(), constants.KindPeriod); ok {
		t.Error("a constant stream has no period")
	}
	if len(r.Discovered) != 2 {
		t.Errorf("discovered %d invariants, want 2 (duplicates reinforce)", len(r.Discovered))
	}
	if r.Reinforced == 0 {
		t.Error("expected repeated detections to reinforce")
	}
}

func TestUpdate_ShortHistoryDetectsNothing(t *testing.T) {
	a := NewArchive()
	r := a.Update([]float64{0.5, 0.5, 0.5}, 0)
	if len(r.Discovered) != 0 || a.Len() != 0 {
		t.Errorf("short history produced %+v", r)
	}
}

func TestOffer(t *testing.T) {
	tests := []struct {
		name  string
		c     Candidate
		want  Outcome
		count int
	}{
		{"unstable rejected", Candidate{Kind: constants.KindSymmetry, Value: 0.9, Stability: 0.4}, Rejected, 0},
		{"unknown kind rejected", Candidate{Kind: "wave", Value: 1, Stability: 0.9}, Rejected, 0},
		{"NaN stability rejected", Candidate{Kind: constants.KindSymmetry, Value: 1, Stability: math.NaN()}, Rejected, 0},
		{"stable discovered", Candidate{Kind: constants.KindSymmetry, Value: 0.9, Stability: 0.5}, Discovered, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := NewArchive()
			if got := a.Offer(tt.c, 1); got != tt.want {
				t.Errorf("Offer() = %v, want %v", got, tt.want)
			}
			if a.Len() != tt.count {
				t.Errorf("Len() = %d, want %d", a.Len(), tt.count)
			}
		})
	}
}

func TestOffer_DuplicateReinforces(t *testing.T) {
	a := NewArchive()
	a.Offer(Candidate{Kind: constants.KindCorrelation, Value: 34, Stability: 0.95}, 10)

	if got := a.Offer(Candidate{Kind: constants.KindCorrelation, Value: 34.05, Stability: 0.6}, 20); got != Reinforced {
		t.Fatalf("Offer() = %v, want Reinforced", got)
	}
	// a different kind with the same value is a separate entry
	if got := a.Offer(Candidate{Kind: constants.KindSymmetry, Value: 34, Stability: 0.6}, 20); got != Discovered {
		t.Fatalf("Offer() = %v, want Discovered", got)
	}

	e, _ := find(a.Entries(), constants.KindCorrelation)
	if e.Stability != 1 {
		t.Errorf("stability = %v, want capped at 1", e.Stability)
	}
	if e.Observations != 2 || e.LastObserved != 20 || e.DiscoveredAt != 10 {
		t.Errorf("entry = %+v, want 2 observations, last 20, discovered 10", e)
	}
}

func TestOffer_EvictsWeakestWhenFull(t *testing.T) {
	a := NewArchive()
	for i := 0; i < constants.MaxInvariants; i++ {
		stability := 0.9
		if i == 7 {
			stability = 0.55
		}
		a.Offer(Candidate{Kind: constants.KindSymmetry, Value: float64(i), Stability: stability}, int64(i))
	}
	if a.Len() != constants.MaxInvariants {
		t.Fatalf("Len() = %d, want %d", a.Len(), constants.MaxInvariants)
	}

	_, evicted := a.offer(Candidate{Kind: constants.KindSymmetry, Value: 100, Stability: 0.8}, 99)
	if !evicted {
		t.Error("expected an eviction when full")
	}
	if a.Len() != constants.MaxInvariants {
		t.Errorf("Len() = %d after eviction, want %d", a.Len(), constants.MaxInvariants)
	}
	for _, e := range a.Entries() {
		if e.Value == 7 {
			t.Error("weakest entry was not evicted")
		}
	}
}

func TestUpdate_DecayAndPrune(t *testing.T) {
	a := NewArchive()
	a.Offer(Candidate{Kind: constants.KindSymmetry, Value: 0.9, Stability: 0.5}, 0)

	a.Update(nil, 1)
	e, _ := find(a.Entries(), constants.KindSymmetry)
	if math.Abs(e.Stability-0.5*constants.InvariantDecayRate) > 1e-12 {
		t.Errorf("stability after one cycle = %v, want %v", e.Stability, 0.5*constants.InvariantDecayRate)
	}

	pruned := 0
	for i := 0; i < 4000 && a.Len() > 0; i++ {
		pruned += a.Update(nil, int64(i+2)).Pruned
	}
	if a.Len() != 0 || pruned != 1 {
		t.Errorf("Len() = %d pruned = %d, want 0 and 1", a.Len(), pruned)
	}
}

func TestSummary(t *testing.T) {
	a := NewArchive()
	a.Offer(Candidate{Kind: constants.KindSymmetry, Value: 0.9, Stability: 0.9}, 5)
	a.Offer(Candidate{Kind: constants.KindAttractor, Value: 0.4, Stability: 0.6}, 8)
	a.Update(nil, 50)

	s := a.Summary()
	if s.Count != 2 || s.Strong != 1 {
		t.Errorf("Count=%d Strong=%d, want 2 and 1", s.Count, s.Strong)
	}
	if s.OldestAge != 45 {
		t.Errorf("OldestAge = %d, want 45", s.OldestAge)
	}
	if s.Entries[0].Kind != constants.KindSymmetry {
		t.Errorf("Entries not sorted strongest first: %+v", s.Entries)
	}
	if want := (0.9 + 0.6) / 2 * constants.InvariantDecayRate; math.Abs(s.MeanStability-want) > 1e-12 {
		t.Errorf("MeanStability = %v, want %v", s.MeanStability, want)
	}
}
