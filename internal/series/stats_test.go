package series

import (
	"math"
	"testing"
)

func TestPearson(t *testing.T) {
	tests := []struct {
		name string
		a, b []float64
		want float64
	}{
		{"identical", []float64{1, 2, 3, 4}, []float64{1, 2, 3, 4}, 1},
		{"inverted", []float64{1, 2, 3, 4}, []float64{4, 3, 2, 1}, -1},
		{"scaled and shifted", []float64{1, 2, 3}, []float64{10, 20, 30}, 1},
		{"constant has zero variance", []float64{1, 1, 1}, []float64{1, 2, 3}, 0},
		{"length mismatch", []float64{1, 2}, []float64{1, 2, 3}, 0},
		{"empty", nil, nil, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Pearson(tt.a, tt.b); math.Abs(got-tt.want) > tolerance {
				t.Errorf("Pearson() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMeanVarianceMinMax(t *testing.T) {
	xs := []float64{2, 4, 4, 4, 5, 5, 7, 9}
	if Mean(xs) != 5 {
		t.Errorf("Mean = %v, want 5", Mean(xs))
	}
	if Variance(xs) != 4 {
		t.Errorf("Variance = %v, want 4", Variance(xs))
	}
	lo, hi := MinMax(xs)
	if lo != 2 || hi != 9 {
		t.Errorf("MinMax = %v,%v want 2,9", lo, hi)
	}
	if Mean(nil) != 0 || Variance(nil) != 0 {
		t.Error("empty Mean/Variance should be 0")
	}
}

func TestClamp01(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{-1, 0}, {0.3, 0.3}, {2, 1}, {math.NaN(), 0}, {math.Inf(1), 1},
	}
	for _, tt := range tests {
		if got := Clamp01(tt.in); got != tt.want {
			t.Errorf("Clamp01(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
