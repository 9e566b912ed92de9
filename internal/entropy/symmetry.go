package entropy

import "math"

// MirrorSymmetry scores how closely an n×n occupancy grid matches its own
// left-right or top-bottom mirror image, in [0,1]. Empty grids score 0.
func MirrorSymmetry(counts []int, n int) float64 {
	if n < 1 || len(counts) < n*n {
		return 0
	}
	total := 0
	for _, c := range counts[:n*n] {
		total += c
	}
	if total == 0 {
		return 0
	}

	var horiz, vert int
	for y := 0; y < n; y++ {
		for x := 0; x < n; x++ {
			c := counts[x+y*n]
			horiz += absInt(c - counts[(n-1-x)+y*n])
			vert += absInt(c - counts[x+(n-1-y)*n])
		}
	}
	best := math.Min(float64(horiz), float64(vert))
	return 1 - best/float64(2*total)
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
