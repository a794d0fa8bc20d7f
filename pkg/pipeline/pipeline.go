// Package pipeline turns drawing records into raster vectors.
//
// This package implements the decode → (perturb) → rasterize → flatten
// pipeline shared by the CLI and the HTTP API, so both produce identical
// vectors for the same options.
//
// # Modes
//
// Three output modes are supported:
//
//   - point: every pen position sets one cell of the target grid
//   - line: strokes are drawn as thick lines on a canvas, resampled to
//     28×28 and binarized; 14×14 is derived by 2×2 max-pooling
//   - coords: no rasterization; the drawing is flattened to
//     [x1, y1, x2, y2, ...]
//
// # Usage
//
//	runner := pipeline.NewRunner(cache, nil, logger)
//	opts := pipeline.DefaultOptions()
//	opts.Mode = pipeline.ModeLine
//	opts.Sizes = []int{28, 14}
//	result, err := runner.Convert(ctx, f, opts)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	vectors28 := result.Vectors(28)
//
// # Augmentation
//
// With Augment set, every drawing yields its original vectors followed by
// Variants perturbed copies. Perturbation parameters are drawn from a
// generator seeded with Seed, in input order, before any parallel work
// starts, so the output does not depend on Workers.
package pipeline

import (
	"slices"
	"strings"

	"github.com/matzehuels/inkgrid/pkg/cache"
	apperrors "github.com/matzehuels/inkgrid/pkg/errors"
	"github.com/matzehuels/inkgrid/pkg/perturb"
	"github.com/matzehuels/inkgrid/pkg/raster"
)

// =============================================================================
// Default Values - Single Source of Truth for CLI, API, and Config Files
// =============================================================================

const (
	// DefaultMode is the rasterization mode used when none is given.
	DefaultMode = ModePoint

	// DefaultSize is the grid size used when no sizes are given.
	DefaultSize = 28

	// DefaultSeed is the default random seed for reproducibility.
	DefaultSeed = uint64(42)

	// DefaultWorkers processes drawings sequentially.
	DefaultWorkers = 1

	// DefaultVariants is the number of perturbed copies per drawing.
	DefaultVariants = 1
)

// Mode constants.
const (
	ModePoint  = raster.NamePoint
	ModeLine   = raster.NameLine
	ModeCoords = "coords"
)

// ValidModes is the set of supported output modes.
var ValidModes = map[string]bool{
	ModePoint:  true,
	ModeLine:   true,
	ModeCoords: true,
}

// =============================================================================
// Options - Pipeline Configuration
// =============================================================================

// Options contains all configuration for a conversion. It is decoded from
// TOML config files and populated from CLI flags and API query parameters.
type Options struct {
	// Output shape
	Mode  string `toml:"mode" json:"mode"`
	Sizes []int  `toml:"sizes" json:"sizes,omitempty"`

	// Line-stroke rendering
	CanvasSize  int     `toml:"canvas_size" json:"canvas_size,omitempty"`
	StrokeWidth float64 `toml:"stroke_width" json:"stroke_width,omitempty"`
	Threshold   int     `toml:"threshold" json:"threshold,omitempty"`
	NoSkeleton  bool    `toml:"no_skeleton" json:"no_skeleton,omitempty"`

	// Augmentation
	Augment    bool    `toml:"augment" json:"augment,omitempty"`
	Variants   int     `toml:"variants" json:"variants,omitempty"`
	ShiftRange float64 `toml:"shift_range" json:"shift_range"`
	ScaleRange float64 `toml:"scale_range" json:"scale_range"`
	Seed       uint64  `toml:"seed" json:"seed,omitempty"`

	// Execution
	Workers int  `toml:"workers" json:"-"`
	Limit   int  `toml:"limit" json:"-"`
	Refresh bool `toml:"-" json:"-"`
}

// DefaultOptions returns options with every default applied, including the
// perturbation ranges, which SetDefaults leaves alone because zero is a
// meaningful range.
func DefaultOptions() Options {
	o := Options{
		ShiftRange: perturb.DefaultShiftRange,
		ScaleRange: perturb.DefaultScaleRange,
	}
	o.SetDefaults()
	return o
}

// SetDefaults fills zero-valued fields with their defaults.
// This method is idempotent.
func (o *Options) SetDefaults() {
	if o.Mode == "" {
		o.Mode = DefaultMode
	}
	if len(o.Sizes) == 0 {
		o.Sizes = []int{DefaultSize}
	}
	if o.CanvasSize == 0 {
		o.CanvasSize = raster.DefaultCanvasSize
	}
	if o.StrokeWidth == 0 {
		o.StrokeWidth = raster.DefaultStrokeWidth
	}
	if o.Threshold == 0 {
		o.Threshold = raster.DefaultThreshold
	}
	if o.Variants == 0 {
		o.Variants = DefaultVariants
	}
	if o.Seed == 0 {
		o.Seed = DefaultSeed
	}
	if o.Workers == 0 {
		o.Workers = DefaultWorkers
	}
}

// ValidateAndSetDefaults applies defaults and then validates.
func (o *Options) ValidateAndSetDefaults() error {
	o.SetDefaults()
	return o.Validate()
}

// Validate checks every field. Errors carry ErrCodeInvalidOptions or, for
// grid sizes, ErrCodeInvalidSize.
func (o *Options) Validate() error {
	if err := ValidateMode(o.Mode); err != nil {
		return err
	}
	if o.Mode != ModeCoords {
		if len(o.Sizes) == 0 {
			return apperrors.New(apperrors.ErrCodeInvalidSize, "at least one grid size is required")
		}
		seen := make(map[int]bool, len(o.Sizes))
		for _, s := range o.Sizes {
			if err := apperrors.ValidateGridSize(s); err != nil {
				return err
			}
			if seen[s] {
				return apperrors.New(apperrors.ErrCodeInvalidSize, "grid size %d listed twice", s)
			}
			seen[s] = true
		}
	}
	if o.CanvasSize < raster.LineOutputSize {
		return invalid("canvas_size must be at least %d, got %d", raster.LineOutputSize, o.CanvasSize)
	}
	if o.StrokeWidth <= 0 {
		return invalid("stroke_width must be positive, got %v", o.StrokeWidth)
	}
	if o.Threshold < 1 || o.Threshold > 255 {
		return invalid("threshold must be within [1, 255], got %d", o.Threshold)
	}
	if o.ShiftRange < 0 {
		return invalid("shift_range must not be negative, got %v", o.ShiftRange)
	}
	if o.ScaleRange < 0 || o.ScaleRange >= 1 {
		return invalid("scale_range must be within [0, 1), got %v", o.ScaleRange)
	}
	if o.Variants < 1 {
		return invalid("variants must be at least 1, got %d", o.Variants)
	}
	if o.Workers < 1 {
		return invalid("workers must be at least 1, got %d", o.Workers)
	}
	if o.Limit < 0 {
		return invalid("limit must not be negative, got %d", o.Limit)
	}
	return nil
}

// ValidateMode checks that a mode is valid.
func ValidateMode(mode string) error {
	if !ValidModes[mode] {
		return invalid("invalid mode: %q (must be one of: %s)", mode, strings.Join(modeNames(), ", "))
	}
	return nil
}

// OutputSizes returns the sizes a conversion produces, in order.
// Coordinate mode produces a single unsized output, reported as 0.
func (o *Options) OutputSizes() []int {
	if o.Mode == ModeCoords {
		return []int{0}
	}
	return o.Sizes
}

// Strategy returns the rasterizer configured by o.
// It returns nil for coordinate mode.
func (o *Options) Strategy() raster.Strategy {
	switch o.Mode {
	case ModePoint:
		return raster.PointStamp{}
	case ModeLine:
		l := raster.NewLineStroke()
		l.CanvasSize = o.CanvasSize
		l.StrokeWidth = o.StrokeWidth
		l.Threshold = uint8(o.Threshold)
		l.KeepSkeleton = !o.NoSkeleton
		return l
	default:
		return nil
	}
}

// Perturber returns a perturber seeded from o.Seed.
func (o *Options) Perturber() *perturb.Perturber {
	return &perturb.Perturber{
		ShiftRange: o.ShiftRange,
		ScaleRange: o.ScaleRange,
		Rand:       perturb.NewRand(o.Seed),
	}
}

// VectorKeyOpts returns the cache key options for o. Only fields that change
// the produced vectors are included.
func (o *Options) VectorKeyOpts() cache.VectorKeyOpts {
	k := cache.VectorKeyOpts{Mode: o.Mode}
	switch o.Mode {
	case ModeLine:
		k.Sizes = o.Sizes
		k.CanvasSize = o.CanvasSize
		k.StrokeWidth = o.StrokeWidth
		k.Threshold = uint8(o.Threshold)
		k.KeepSkeleton = !o.NoSkeleton
	case ModePoint:
		k.Sizes = o.Sizes
	}
	return k
}

func modeNames() []string {
	names := make([]string, 0, len(ValidModes))
	for m := range ValidModes {
		names = append(names, m)
	}
	slices.Sort(names)
	return names
}

func invalid(format string, args ...any) error {
	return apperrors.New(apperrors.ErrCodeInvalidOptions, format, args...)
}
