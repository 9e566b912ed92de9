package entropy

import (
	"math"
	"testing"
)

func TestMetaEntropy(t *testing.T) {
	bins := make([]int, 10)

	if _, ok := MetaEntropy(repeat(0.5, 19), bins); ok {
		t.Error("MetaEntropy should need at least 20 samples")
	}

	v, ok := MetaEntropy(repeat(0.5, 30), bins)
	if !ok || v != 0 {
		t.Errorf("constant history: got (%v, %v), want (0, true)", v, ok)
	}

	spread := make([]float64, 100)
	for i := range spread {
		spread[i] = float64(i) / 100
	}
	v, _ = MetaEntropy(spread, bins)
	if math.Abs(v-1) > 1e-9 {
		t.Errorf("evenly spread history: got %v, want 1", v)
	}

	// 1.0 lands in the top bin rather than overflowing
	v, _ = MetaEntropy(repeat(1, 20), bins)
	if v != 0 {
		t.Errorf("all-ones history: got %v, want 0", v)
	}
}

func TestMetaMonitor_UpdateKeepsValueBelowMinimum(t *testing.T) {
	mm := NewMetaMonitor()
	spread := make([]float64, 40)
	for i := range spread {
		spread[i] = float64(i%10) / 10
	}
	first := mm.Update(spread)
	if first == 0 {
		t.Fatal("expected nonzero meta-entropy")
	}
	if got := mm.Update(spread[:5]); got != first {
		t.Errorf("short history changed meta-entropy: %v -> %v", first, got)
	}
}

func TestMetaMonitor_ObservationDepth(t *testing.T) {
	mm := NewMetaMonitor()
	mm.Update(repeat(0.5, 30)) // meta = 0, focus = 1, target depth = 3
	var d float64
	for i := 0; i < 2000; i++ {
		d = mm.UpdateDepth()
	}
	if math.Abs(d-3) > 0.01 {
		t.Errorf("depth = %v, want ~3", d)
	}
	if mm.Snapshot().ObservationDepth != d {
		t.Error("snapshot depth mismatch")
	}
}

func TestMirrorSymmetry(t *testing.T) {
	tests := []struct {
		name   string
		counts []int
		want   float64
	}{
		{"empty", make([]int, 4), 0},
		{"perfectly symmetric", []int{1, 1, 1, 1}, 1},
		{"left column only is vertically symmetric", []int{2, 0, 2, 0}, 1},
		{"single corner", []int{1, 0, 0, 0}, 0},
		{"short slice", []int{1}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MirrorSymmetry(tt.counts, 2); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("MirrorSymmetry() = %v, want %v", got, tt.want)
			}
		})
	}
}
