package pipeline

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/png"

	"golang.org/x/image/draw"

	apperrors "github.com/matzehuels/inkgrid/pkg/errors"
	"github.com/matzehuels/inkgrid/pkg/raster"
	"github.com/matzehuels/inkgrid/pkg/sketch"
)

// Preview formats.
const (
	FormatText = "text"
	FormatPNG  = "png"
	FormatJSON = "json"
)

// ValidFormats is the set of supported preview formats.
var ValidFormats = map[string]bool{
	FormatText: true,
	FormatPNG:  true,
	FormatJSON: true,
}

// DefaultPreviewScale is the pixel size of one grid cell in PNG previews.
const DefaultPreviewScale = 10

// ValidateFormat checks that a format is valid.
func ValidateFormat(format string) error {
	if !ValidFormats[format] {
		return apperrors.New(apperrors.ErrCodeInvalidOptions, "invalid format: %q (must be one of: text, png, json)", format)
	}
	return nil
}

// RenderGrid renders g in the given format. PNG output draws each cell as a
// scale×scale block, ink black on white.
func RenderGrid(g *raster.Grid, format string, scale int) ([]byte, error) {
	if err := ValidateFormat(format); err != nil {
		return nil, err
	}
	switch format {
	case FormatText:
		return []byte(g.String()), nil
	case FormatJSON:
		return json.Marshal(raster.Flatten(g))
	default:
		if scale < 1 {
			scale = DefaultPreviewScale
		}
		return encodePNG(upscale(gridImage(g), scale))
	}
}

// RenderCanvas renders the intermediate line-stroke canvas of d as PNG,
// before resampling and binarization.
func RenderCanvas(d sketch.Drawing, opts Options) ([]byte, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}
	if opts.Mode != ModeLine {
		return nil, apperrors.New(apperrors.ErrCodeUnsupported, "canvas preview requires line mode, got %q", opts.Mode)
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}
	l := opts.Strategy().(*raster.LineStroke)
	return encodePNG(l.Canvas(d))
}

func gridImage(g *raster.Grid) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, g.Size, g.Size))
	for r := 0; r < g.Size; r++ {
		for c := 0; c < g.Size; c++ {
			v := color.Gray{Y: 255}
			if g.At(r, c) {
				v = color.Gray{Y: 0}
			}
			img.SetGray(c, r, v)
		}
	}
	return img
}

func upscale(src *image.Gray, scale int) *image.Gray {
	b := src.Bounds()
	dst := image.NewGray(image.Rect(0, 0, b.Dx()*scale, b.Dy()*scale))
	draw.NearestNeighbor.Scale(dst, dst.Bounds(), src, b, draw.Src, nil)
	return dst
}

func encodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}
