package entropy

import (
	"math"
	"testing"

	"github.com/nvandessel/selfwatch/internal/constants"
	"github.com/nvandessel/selfwatch/internal/spatial"
)

func gridEntities(g int, cell float64) []spatial.Entity {
	var out []spatial.Entity
	for y := 0; y < g; y++ {
		for x := 0; x < g; x++ {
			out = append(out, spatial.Entity{X: (float64(x) + 0.5) * cell, Y: (float64(y) + 0.5) * cell})
		}
	}
	return out
}

func TestMeasure_UniformAndClustered(t *testing.T) {
	b := spatial.Bounds{Width: 160, Height: 160}

	tests := []struct {
		name     string
		entities []spatial.Entity
		want     float64
	}{
		{"one entity per cell", gridEntities(16, 10), 1},
		{"all in one cell", []spatial.Entity{{X: 1, Y: 1}, {X: 2, Y: 2}, {X: 3, Y: 3}}, 0},
		{"no entities", nil, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewMonitor(DefaultConfig())
			got := m.Measure(tt.entities, b, 0)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("Measure() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMeasure_TwoCellsHalfEach(t *testing.T) {
	m := NewMonitor(DefaultConfig())
	b := spatial.Bounds{Width: 160, Height: 160}
	entities := []spatial.Entity{{X: 1, Y: 1}, {X: 159, Y: 159}}
	// one bit out of log2(256)=8
	if got := m.Measure(entities, b, 0); math.Abs(got-0.125) > 1e-9 {
		t.Errorf("Measure() = %v, want 0.125", got)
	}
}

func TestTrend(t *testing.T) {
	tests := []struct {
		name    string
		samples []float64
		want    float64
	}{
		{"fewer than ten", []float64{0.1, 0.2, 0.3}, 0},
		{"exactly ten has no prior window", repeat(0.4, 10), 0},
		{"constant", repeat(0.5, 40), 0},
		{"step up", append(repeat(0.2, 10), repeat(0.6, 10)...), 0.4},
		{"partial prior window", append(repeat(0.3, 5), repeat(0.5, 10)...), 0.2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewMonitor(DefaultConfig())
			for i, v := range tt.samples {
				m.Observe(v, int64(i))
			}
			if got := m.Trend(); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("Trend() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTrend_IdempotentRead(t *testing.T) {
	m := NewMonitor(DefaultConfig())
	for i := 0; i < 50; i++ {
		m.Observe(0.5+0.3*math.Sin(float64(i)/4), int64(i))
	}
	first := m.Trend()
	second := m.Trend()
	if first != second {
		t.Errorf("Trend() not idempotent: %v then %v", first, second)
	}
}

func TestConstantStream_EndToEnd(t *testing.T) {
	cfg := DefaultConfig()
	cfg.HistorySize = 60
	m := NewMonitor(cfg)
	for i := 0; i < 70; i++ {
		m.Observe(0.5, int64(i))
	}
	if m.Trend() != 0 {
		t.Errorf("Trend() = %v, want 0", m.Trend())
	}
	if m.Len() != 60 {
		t.Errorf("Len() = %d, want 60", m.Len())
	}
	if math.Abs(m.Average()-0.5) > 1e-12 {
		t.Errorf("Average() = %v, want 0.5", m.Average())
	}
}

func TestDetectInflection(t *testing.T) {
	m := NewMonitor(DefaultConfig())
	var tick int64

	// falling then rising entropy
	for i := 0; i < 30; i++ {
		m.Observe(0.8-float64(i)*0.02, tick)
		tick++
	}
	if _, ok := m.DetectInflection(tick); ok {
		t.Fatal("no inflection expected while trend only falls")
	}

	var got Inflection
	fired := false
	for i := 0; i < 30 && !fired; i++ {
		m.Observe(0.3+float64(i)*0.05, tick)
		got, fired = m.DetectInflection(tick)
		tick++
	}
	if !fired {
		t.Fatal("expected an inflection after the trend reversed")
	}
	if got.Direction != OrderToChaos {
		t.Errorf("Direction = %q, want %q", got.Direction, OrderToChaos)
	}

	// cooldown blocks an immediate second event
	if _, ok := m.DetectInflection(tick); ok {
		t.Error("inflection fired during cooldown")
	}

	snap := m.Snapshot()
	if snap.Inflections != 1 || snap.LastInflection == nil {
		t.Errorf("snapshot inflections = %d, last = %v", snap.Inflections, snap.LastInflection)
	}
	if n := len(m.Inflections(nil)); n != 1 {
		t.Errorf("inflection log length = %d, want 1", n)
	}
}

func TestDetectInflection_CooldownIsExclusive(t *testing.T) {
	m := NewMonitor(DefaultConfig())
	var tick int64
	for i := 0; i < 30; i++ {
		m.Observe(0.8-float64(i)*0.02, tick)
		tick++
	}
	var first Inflection
	fired := false
	for i := 0; i < 30 && !fired; i++ {
		m.Observe(0.3+float64(i)*0.05, tick)
		first, fired = m.DetectInflection(tick)
		tick++
	}
	if !fired {
		t.Fatal("expected an inflection after the trend reversed")
	}

	// The history is untouched, so the reversal is still visible and only
	// the cooldown decides.
	cooldown := int64(constants.InflectionCooldownTicks)
	if _, ok := m.DetectInflection(first.Tick + cooldown); ok {
		t.Errorf("inflection fired exactly %d ticks after the last one", cooldown)
	}
	if _, ok := m.DetectInflection(first.Tick + cooldown + 1); !ok {
		t.Errorf("inflection did not fire %d ticks after the last one", cooldown+1)
	}
}

func TestDetectInflection_NeedsHistory(t *testing.T) {
	m := NewMonitor(DefaultConfig())
	for i := 0; i < 30; i++ {
		m.Observe(float64(i%2), int64(i))
	}
	if _, ok := m.DetectInflection(1000); ok {
		t.Error("inflection fired with fewer than 31 samples")
	}
}

func TestExtremesAndConnectionDistance(t *testing.T) {
	m := NewMonitor(DefaultConfig())
	m.Observe(0.5, 1)
	m.Observe(0.9, 2)
	m.Observe(0.1, 3)

	s := m.Snapshot()
	if s.Min != 0.1 || s.MinTick != 3 {
		t.Errorf("min = %v@%d, want 0.1@3", s.Min, s.MinTick)
	}
	if s.Max != 0.9 || s.MaxTick != 2 {
		t.Errorf("max = %v@%d, want 0.9@2", s.Max, s.MaxTick)
	}

	for i := 0; i < 500; i++ {
		m.Observe(1, int64(10+i))
	}
	if d := m.ConnectionDistance(); math.Abs(d-120) > 0.01 {
		t.Errorf("ConnectionDistance() = %v, want ~120 at full entropy", d)
	}
}

func TestObserve_ClampsInput(t *testing.T) {
	m := NewMonitor(DefaultConfig())
	m.Observe(math.NaN(), 0)
	m.Observe(7, 1)
	hist := m.History(nil)
	if hist[0] != 0 || hist[1] != 1 {
		t.Errorf("History() = %v, want [0 1]", hist)
	}
}

func TestInfluence(t *testing.T) {
	if got := Influence(1); got != 0.995 {
		t.Errorf("Influence(1) = %v, want 0.995", got)
	}
	if got := Influence(0); math.Abs(got-0.999) > 1e-12 {
		t.Errorf("Influence(0) = %v, want 0.999", got)
	}
}

func repeat(v float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}
