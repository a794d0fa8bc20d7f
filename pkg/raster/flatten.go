package raster

import (
	"math"

	apperrors "github.com/matzehuels/inkgrid/pkg/errors"
)

// Vector is a flattened raster: Size*Size values in {0.0, 1.0}, row-major.
type Vector []float64

// Flatten serializes g row by row, left to right.
func Flatten(g *Grid) Vector {
	v := make(Vector, len(g.Cells))
	for i, c := range g.Cells {
		if c {
			v[i] = 1
		}
	}
	return v
}

// Unflatten rebuilds a grid from a square vector. Values of 0.5 and above
// count as ink.
func Unflatten(v Vector) (*Grid, error) {
	size := int(math.Sqrt(float64(len(v))))
	if size == 0 || size*size != len(v) {
		return nil, apperrors.New(apperrors.ErrCodeInvalidSize, "vector length %d is not a positive square", len(v))
	}
	g := NewGrid(size)
	for i, x := range v {
		g.Cells[i] = x >= 0.5
	}
	return g, nil
}
