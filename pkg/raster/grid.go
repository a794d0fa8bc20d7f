package raster

import (
	"strings"

	apperrors "github.com/matzehuels/inkgrid/pkg/errors"
)

// Grid is a square binary raster stored row-major. A true cell is ink.
type Grid struct {
	Size  int
	Cells []bool
}

// NewGrid returns an empty size×size grid.
func NewGrid(size int) *Grid {
	return &Grid{Size: size, Cells: make([]bool, size*size)}
}

// At reports whether the cell at (row, col) is ink.
func (g *Grid) At(row, col int) bool {
	return g.Cells[row*g.Size+col]
}

// Set marks the cell at (row, col) as ink.
func (g *Grid) Set(row, col int) {
	g.Cells[row*g.Size+col] = true
}

// Count returns the number of ink cells.
func (g *Grid) Count() int {
	n := 0
	for _, c := range g.Cells {
		if c {
			n++
		}
	}
	return n
}

// Contains reports whether every ink cell of o is also ink in g.
// Grids of different sizes never contain one another.
func (g *Grid) Contains(o *Grid) bool {
	if g.Size != o.Size {
		return false
	}
	for i, c := range o.Cells {
		if c && !g.Cells[i] {
			return false
		}
	}
	return true
}

// Equal reports whether g and o have the same size and ink cells.
func (g *Grid) Equal(o *Grid) bool {
	return g.Size == o.Size && g.Contains(o) && o.Contains(g)
}

// String renders the grid as text, one row per line, '#' for ink.
func (g *Grid) String() string {
	var b strings.Builder
	b.Grow(g.Size * (g.Size + 1))
	for r := 0; r < g.Size; r++ {
		for c := 0; c < g.Size; c++ {
			if g.At(r, c) {
				b.WriteByte('#')
			} else {
				b.WriteByte('.')
			}
		}
		b.WriteByte('\n')
	}
	return b.String()
}

func checkSize(size int) error {
	if size <= 0 {
		return apperrors.New(apperrors.ErrCodeInvalidSize, "grid size must be positive, got %d", size)
	}
	return nil
}
