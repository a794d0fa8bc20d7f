// Package raster turns stroke drawings into fixed-size binary pixel grids.
//
// # Strategies
//
// Two rasterization strategies implement [Strategy]:
//
//   - [PointStamp] normalizes every pen position straight onto the target
//     grid and sets that one cell. Gaps between sparse points stay empty.
//   - [LineStroke] draws connected, fixed-width strokes on a large canvas
//     (256×256 by default), resamples the canvas to 28×28 with an
//     antialiasing filter and binarizes it with a fixed threshold. Coarser
//     grids are derived from the 28×28 result with [MaxPool].
//
// Both return a [Grid] in which a set cell always means "ink present".
//
// # Resolution Changes
//
// [Downsample] halves a grid with 2×2 max-pooling: a coarse cell is ink if
// any of its four source cells is ink. Detail visible at 28×28 therefore
// survives into 14×14 instead of being averaged away.
//
// # Vectors
//
// [Flatten] serializes a grid row-major into a [Vector] of 0.0/1.0 values,
// the format persisted for model training.
package raster
