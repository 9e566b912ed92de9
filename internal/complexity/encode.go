// Package complexity approximates the algorithmic complexity of the
// entropy stream by how well it compresses.
//
// A window is quantized to a few levels and sized under run-length,
// delta and second-difference encodings; the smallest encoding over the
// window length is the complexity ratio (lower is more ordered).
package complexity

import (
	"math"

	"github.com/nvandessel/selfwatch/internal/constants"
)

// Quantize maps samples in [0,1] onto levels 0..ComplexityLevels-1,
// appending to dst.
func Quantize(xs []float64, dst []int) []int {
	top := constants.ComplexityLevels - 1
	for _, x := range xs {
		q := int(math.Floor(x * constants.ComplexityLevels))
		if q < 0 || math.IsNaN(x) {
			q = 0
		}
		if q > top {
			q = top
		}
		dst = append(dst, q)
	}
	return dst
}

// runs counts maximal runs of equal symbols.
func runs(symbols []int) int {
	if len(symbols) == 0 {
		return 0
	}
	n := 1
	for i := 1; i < len(symbols); i++ {
		if symbols[i] != symbols[i-1] {
			n++
		}
	}
	return n
}

// Encoder sizes symbol sequences, reusing scratch space between calls.
type Encoder struct {
	delta, second []int
}

// Size returns the smallest encoded size of symbols: the raw length, a
// (value,count) run-length encoding, a first-difference encoding (one
// seed symbol plus RLE of the deltas) or a second-difference encoding
// (two seed symbols plus RLE of the second deltas).
func (enc *Encoder) Size(symbols []int) int {
	n := len(symbols)
	if n == 0 {
		return 0
	}
	best := min(n, 2*runs(symbols))

	if n > 1 {
		enc.delta = enc.delta[:0]
		for i := 1; i < n; i++ {
			enc.delta = append(enc.delta, symbols[i]-symbols[i-1])
		}
		best = min(best, 1+2*runs(enc.delta))
	}
	if n > 2 {
		enc.second = enc.second[:0]
		for i := 1; i < len(enc.delta); i++ {
			enc.second = append(enc.second, enc.delta[i]-enc.delta[i-1])
		}
		best = min(best, 2+2*runs(enc.second))
	}
	return best
}

// Ratio returns Size(symbols)/len(symbols), or 0 for an empty sequence.
func (enc *Encoder) Ratio(symbols []int) float64 {
	if len(symbols) == 0 {
		return 0
	}
	return float64(enc.Size(symbols)) / float64(len(symbols))
}
