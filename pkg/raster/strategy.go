package raster

import (
	"github.com/matzehuels/inkgrid/pkg/sketch"
)

// Strategy rasterizes a drawing onto a size×size grid.
// Implementations validate the drawing and reject empty or malformed strokes.
type Strategy interface {
	// Name identifies the strategy in file names, cache keys and logs.
	Name() string
	Rasterize(d sketch.Drawing, size int) (*Grid, error)
}

// Strategy names.
const (
	NamePoint = "point"
	NameLine  = "line"
)

// PointStamp sets one cell per pen position, normalized directly to the
// target grid. No interpolation happens between consecutive points.
type PointStamp struct{}

// Name implements Strategy.
func (PointStamp) Name() string { return NamePoint }

// Rasterize implements Strategy.
func (PointStamp) Rasterize(d sketch.Drawing, size int) (*Grid, error) {
	if err := checkSize(size); err != nil {
		return nil, err
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}
	g := NewGrid(size)
	n := NewNormalizer(size)
	for _, s := range d {
		for i := range s.X {
			g.Set(n.Cell(s.Y[i]), n.Cell(s.X[i]))
		}
	}
	return g, nil
}

var (
	_ Strategy = PointStamp{}
	_ Strategy = (*LineStroke)(nil)
)
