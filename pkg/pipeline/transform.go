package pipeline

import (
	"github.com/matzehuels/inkgrid/pkg/raster"
	"github.com/matzehuels/inkgrid/pkg/sketch"
)

// Transform converts one drawing into one vector per output size, in the
// order of opts.OutputSizes. It never touches a cache or random source.
//
// Point mode rasterizes every size directly. Line mode renders the 28×28
// grid once and derives smaller sizes by max-pooling it. Coordinate mode
// returns the interleaved point list.
func Transform(d sketch.Drawing, opts Options) ([]raster.Vector, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}

	switch opts.Mode {
	case ModeCoords:
		return []raster.Vector{sketch.Flatten(d)}, nil
	case ModeLine:
		g, err := opts.Strategy().Rasterize(d, raster.LineOutputSize)
		if err != nil {
			return nil, err
		}
		out := make([]raster.Vector, len(opts.Sizes))
		for i, size := range opts.Sizes {
			sized, err := raster.MaxPool(g, raster.LineOutputSize/size)
			if err != nil {
				return nil, err
			}
			out[i] = raster.Flatten(sized)
		}
		return out, nil
	default:
		s := opts.Strategy()
		out := make([]raster.Vector, len(opts.Sizes))
		for i, size := range opts.Sizes {
			g, err := s.Rasterize(d, size)
			if err != nil {
				return nil, err
			}
			out[i] = raster.Flatten(g)
		}
		return out, nil
	}
}

// Grids rasterizes d at every configured size. Coordinate mode has no
// raster and returns nil.
func Grids(d sketch.Drawing, opts Options) ([]*raster.Grid, error) {
	vs, err := Transform(d, opts)
	if err != nil || opts.Mode == ModeCoords {
		return nil, err
	}
	grids := make([]*raster.Grid, len(vs))
	for i, v := range vs {
		if grids[i], err = raster.Unflatten(v); err != nil {
			return nil, err
		}
	}
	return grids, nil
}
