package raster

import (
	apperrors "github.com/matzehuels/inkgrid/pkg/errors"
)

// Downsample reduces a 2n×2n grid to n×n. Output cell (i, j) is ink when
// any cell of the input block {2i, 2i+1} × {2j, 2j+1} is ink.
func Downsample(g *Grid) (*Grid, error) {
	if g.Size%2 != 0 {
		return nil, apperrors.New(apperrors.ErrCodeInvalidSize, "cannot halve odd grid size %d", g.Size)
	}
	return MaxPool(g, 2)
}

// MaxPool reduces g by block in both dimensions using max-pooling.
// The grid size must be a multiple of block. A block of 1 returns a copy.
func MaxPool(g *Grid, block int) (*Grid, error) {
	if block < 1 || g.Size%block != 0 {
		return nil, apperrors.New(apperrors.ErrCodeInvalidSize, "block %d does not divide grid size %d", block, g.Size)
	}
	out := NewGrid(g.Size / block)
	for r := 0; r < g.Size; r++ {
		for c := 0; c < g.Size; c++ {
			if g.At(r, c) {
				out.Set(r/block, c/block)
			}
		}
	}
	return out, nil
}
