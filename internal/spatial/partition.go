package spatial

// Cell maps a position onto an n×n partition of b and returns the flat
// index cx + cy·n. Coordinates are clamped to [0, n-1] on both axes.
func Cell(x, y float64, b Bounds, n int) int {
	if n < 1 || !b.Valid() {
		return 0
	}
	cx := clampIndex(int(x/(b.Width/float64(n))), n)
	cy := clampIndex(int(y/(b.Height/float64(n))), n)
	return cx + cy*n
}

func clampIndex(i, n int) int {
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}

// Occupancy counts entities per cell of an n×n partition into counts,
// reusing its storage when it is large enough.
func Occupancy(entities []Entity, b Bounds, n int, counts []int) []int {
	if n < 1 {
		n = 1
	}
	if cap(counts) < n*n {
		counts = make([]int, n*n)
	}
	counts = counts[:n*n]
	for i := range counts {
		counts[i] = 0
	}
	for _, e := range entities {
		counts[Cell(e.X, e.Y, b, n)]++
	}
	return counts
}

// Chebyshev returns the king-move distance between two cells of an n×n partition.
func Chebyshev(a, b, n int) int {
	ax, ay := a%n, a/n
	bx, by := b%n, b/n
	return max(abs(ax-bx), abs(ay-by))
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// Center returns the world-space center of a cell of an n×n partition.
func Center(cell int, b Bounds, n int) (x, y float64) {
	cw, ch := b.Width/float64(n), b.Height/float64(n)
	return (float64(cell%n) + 0.5) * cw, (float64(cell/n) + 0.5) * ch
}
