package raster

import (
	"math"

	"github.com/matzehuels/inkgrid/pkg/sketch"
)

// Normalizer maps raw pen coordinates from [0, InputMax] into [0, Extent-1].
type Normalizer struct {
	InputMax float64
	Extent   int
}

// NewNormalizer returns a normalizer for the QuickDraw input domain.
func NewNormalizer(extent int) Normalizer {
	return Normalizer{InputMax: sketch.InputMax, Extent: extent}
}

// Apply returns c / InputMax * (Extent-1), clamped to [0, Extent-1].
// Out-of-domain input, as produced by perturbation, is clamped rather than
// rejected. NaN maps to 0.
func (n Normalizer) Apply(c float64) float64 {
	hi := float64(n.Extent - 1)
	v := c / n.InputMax * hi
	if math.IsNaN(v) {
		return 0
	}
	return max(0, min(v, hi))
}

// Cell returns the grid index holding c, truncating the normalized value.
func (n Normalizer) Cell(c float64) int {
	return int(n.Apply(c))
}

// Normalize is shorthand for NewNormalizer(extent).Apply(c).
func Normalize(c float64, extent int) float64 {
	return NewNormalizer(extent).Apply(c)
}
