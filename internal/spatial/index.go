package spatial

import "math"

// Hit is an entity returned by a radius query.
type Hit struct {
	Index  int
	DistSq float64
}

// Index is a uniform hash grid over entity positions.
type Index struct {
	cellSize   float64
	cols, rows int
	cells      [][]int
	entities   []Entity
}

// NewIndex creates an empty index with the given cell size.
// A non-positive cell size falls back to 1.
func NewIndex(cellSize float64) *Index {
	if !(cellSize > 0) {
		cellSize = 1
	}
	return &Index{cellSize: cellSize}
}

// CellSize returns the grid cell length.
func (ix *Index) CellSize() float64 { return ix.cellSize }

// Rebuild re-buckets every entity in O(n). Positions outside the bounds are
// clamped onto the border cells, so each entity lands in exactly one cell.
// The index keeps a reference to entities until the next Rebuild.
func (ix *Index) Rebuild(entities []Entity, b Bounds) {
	cols := int(math.Ceil(b.Width/ix.cellSize)) + 1
	rows := int(math.Ceil(b.Height/ix.cellSize)) + 1
	if !b.Valid() {
		cols, rows = 1, 1
	}

	if cols*rows != len(ix.cells) {
		ix.cells = make([][]int, cols*rows)
	} else {
		for i := range ix.cells {
			ix.cells[i] = ix.cells[i][:0]
		}
	}
	ix.cols, ix.rows = cols, rows
	ix.entities = entities

	for i, e := range entities {
		k := ix.key(ix.coord(e.X, ix.cols), ix.coord(e.Y, ix.rows))
		ix.cells[k] = append(ix.cells[k], i)
	}
}

func (ix *Index) coord(v float64, n int) int {
	c := int(math.Floor(v / ix.cellSize))
	if c < 0 || math.IsNaN(v) {
		return 0
	}
	if c >= n {
		return n - 1
	}
	return c
}

func (ix *Index) key(cx, cy int) int {
	return cx + cy*ix.cols
}

// Len returns the number of indexed entities.
func (ix *Index) Len() int { return len(ix.entities) }

// Neighbors appends the indices of entities in the 3×3 block of cells
// around (x,y) to dst. Cells beyond the grid are skipped.
func (ix *Index) Neighbors(x, y float64, dst []int) []int {
	return ix.rings(x, y, 1, dst)
}

func (ix *Index) rings(x, y float64, r int, dst []int) []int {
	if len(ix.cells) == 0 {
		return dst
	}
	cx, cy := ix.coord(x, ix.cols), ix.coord(y, ix.rows)
	for dy := -r; dy <= r; dy++ {
		ny := cy + dy
		if ny < 0 || ny >= ix.rows {
			continue
		}
		for dx := -r; dx <= r; dx++ {
			nx := cx + dx
			if nx < 0 || nx >= ix.cols {
				continue
			}
			dst = append(dst, ix.cells[ix.key(nx, ny)]...)
		}
	}
	return dst
}

// InRadius appends entities strictly closer than radius to (x,y).
// The search expands ceil(radius/cellSize) rings of cells.
func (ix *Index) InRadius(x, y, radius float64, dst []Hit) []Hit {
	if !(radius > 0) {
		return dst
	}
	r := int(math.Ceil(radius / ix.cellSize))
	limit := radius * radius
	cx, cy := ix.coord(x, ix.cols), ix.coord(y, ix.rows)
	for dy := -r; dy <= r; dy++ {
		ny := cy + dy
		if ny < 0 || ny >= ix.rows {
			continue
		}
		for dx := -r; dx <= r; dx++ {
			nx := cx + dx
			if nx < 0 || nx >= ix.cols {
				continue
			}
			for _, i := range ix.cells[ix.key(nx, ny)] {
				e := ix.entities[i]
				ddx, ddy := e.X-x, e.Y-y
				if d := ddx*ddx + ddy*ddy; d < limit {
					dst = append(dst, Hit{Index: i, DistSq: d})
				}
			}
		}
	}
	return dst
}

// MeanDegree returns the average number of other entities within radius of
// each entity, a cheap connectivity measure for the renderer.
func (ix *Index) MeanDegree(radius float64) float64 {
	if len(ix.entities) == 0 {
		return 0
	}
	var hits []Hit
	total := 0
	for _, e := range ix.entities {
		hits = ix.InRadius(e.X, e.Y, radius, hits[:0])
		total += len(hits) - 1 // self
	}
	return float64(total) / float64(len(ix.entities))
}
