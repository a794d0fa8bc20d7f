package raster

import (
	"image"
	"image/color"

	"github.com/srwiley/rasterx"
	"golang.org/x/image/draw"
	"golang.org/x/image/math/fixed"

	apperrors "github.com/matzehuels/inkgrid/pkg/errors"
	"github.com/matzehuels/inkgrid/pkg/sketch"
)

// Line-stroke defaults.
const (
	// LineOutputSize is the resolution the canvas is resampled to.
	LineOutputSize = 28

	DefaultCanvasSize  = 256
	DefaultStrokeWidth = 10.0
	DefaultThreshold   = 128
)

// LineStroke renders strokes as connected fixed-width lines on a light
// canvas, resamples to 28×28 and binarizes. Ink is drawn dark, so a
// resampled pixel darker than Threshold becomes a set cell.
type LineStroke struct {
	// CanvasSize is the intermediate rendering resolution.
	CanvasSize int

	// StrokeWidth is the line width in canvas pixels. Single-point strokes
	// become disks of radius StrokeWidth/2.
	StrokeWidth float64

	// Threshold is the gray level (0-255) below which a resampled pixel is ink.
	Threshold uint8

	// Interpolator resamples the canvas. Nil means draw.CatmullRom.
	Interpolator draw.Interpolator

	// KeepSkeleton additionally marks every 28×28 cell that contains a pen
	// position, so a dot or short stroke thinner than one output cell is not
	// erased by the resampling filter.
	KeepSkeleton bool
}

// NewLineStroke returns a LineStroke with the default configuration.
func NewLineStroke() *LineStroke {
	return &LineStroke{
		CanvasSize:   DefaultCanvasSize,
		StrokeWidth:  DefaultStrokeWidth,
		Threshold:    DefaultThreshold,
		Interpolator: draw.CatmullRom,
		KeepSkeleton: true,
	}
}

// Name implements Strategy.
func (l *LineStroke) Name() string { return NameLine }

// Rasterize implements Strategy. The drawing is always rendered at 28×28;
// any size that divides 28 is derived from that grid with [MaxPool].
func (l *LineStroke) Rasterize(d sketch.Drawing, size int) (*Grid, error) {
	if err := checkSize(size); err != nil {
		return nil, err
	}
	if LineOutputSize%size != 0 {
		return nil, apperrors.New(apperrors.ErrCodeInvalidSize, "line strokes render at %d; %d does not divide it", LineOutputSize, size)
	}
	if l.CanvasSize < LineOutputSize {
		return nil, apperrors.New(apperrors.ErrCodeInvalidOptions, "canvas size %d is smaller than the output grid", l.CanvasSize)
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}

	g := l.binarize(l.resample(l.Canvas(d)))
	if l.KeepSkeleton {
		l.stampSkeleton(g, d)
	}
	if size == LineOutputSize {
		return g, nil
	}
	return MaxPool(g, LineOutputSize/size)
}

// Canvas draws d in black on a white CanvasSize×CanvasSize image.
// The drawing must already be validated.
func (l *LineStroke) Canvas(d sketch.Drawing) *image.Gray {
	size := l.CanvasSize
	img := image.NewGray(image.Rect(0, 0, size, size))
	draw.Draw(img, img.Bounds(), image.White, image.Point{}, draw.Src)

	scanner := rasterx.NewScannerGV(size, size, img, img.Bounds())
	scanner.SetColor(color.Black)

	dasher := rasterx.NewDasher(size, size, scanner)
	dasher.SetStroke(fixed.Int26_6(l.StrokeWidth*64), 0,
		rasterx.RoundCap, rasterx.RoundCap, rasterx.RoundGap, rasterx.Round, nil, 0)
	filler := rasterx.NewFiller(size, size, scanner)

	n := NewNormalizer(size)
	for _, s := range d {
		if isDot(s) {
			rasterx.AddCircle(n.Apply(s.X[0]), n.Apply(s.Y[0]), l.StrokeWidth/2, filler)
			filler.Draw()
			filler.Clear()
			continue
		}
		dasher.Start(rasterx.ToFixedP(n.Apply(s.X[0]), n.Apply(s.Y[0])))
		for i := 1; i < s.Len(); i++ {
			dasher.Line(rasterx.ToFixedP(n.Apply(s.X[i]), n.Apply(s.Y[i])))
		}
		dasher.Stop(false)
		dasher.Draw()
		dasher.Clear()
	}
	return img
}

func (l *LineStroke) resample(canvas *image.Gray) *image.Gray {
	interp := l.Interpolator
	if interp == nil {
		interp = draw.CatmullRom
	}
	dst := image.NewGray(image.Rect(0, 0, LineOutputSize, LineOutputSize))
	interp.Scale(dst, dst.Bounds(), canvas, canvas.Bounds(), draw.Src, nil)
	return dst
}

func (l *LineStroke) binarize(img *image.Gray) *Grid {
	g := NewGrid(LineOutputSize)
	for r := 0; r < LineOutputSize; r++ {
		for c := 0; c < LineOutputSize; c++ {
			if img.GrayAt(c, r).Y < l.Threshold {
				g.Set(r, c)
			}
		}
	}
	return g
}

// stampSkeleton maps each pen position from canvas space onto the output
// grid, the same cell the resampler assigns that canvas pixel to.
func (l *LineStroke) stampSkeleton(g *Grid, d sketch.Drawing) {
	n := NewNormalizer(l.CanvasSize)
	scale := float64(LineOutputSize) / float64(l.CanvasSize)
	cell := func(c float64) int {
		return min(int(n.Apply(c)*scale), LineOutputSize-1)
	}
	for _, s := range d {
		for i := range s.X {
			g.Set(cell(s.Y[i]), cell(s.X[i]))
		}
	}
}

// isDot reports whether every point of s coincides, so the stroke has no
// direction to draw a line along.
func isDot(s sketch.Stroke) bool {
	for i := 1; i < s.Len(); i++ {
		if s.X[i] != s.X[0] || s.Y[i] != s.Y[0] {
			return false
		}
	}
	return true
}
