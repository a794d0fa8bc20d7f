package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	apperrors "github.com/matzehuels/inkgrid/pkg/errors"
	pkgio "github.com/matzehuels/inkgrid/pkg/io"
	"github.com/matzehuels/inkgrid/pkg/perturb"
	"github.com/matzehuels/inkgrid/pkg/pipeline"
	"github.com/matzehuels/inkgrid/pkg/sketch"
)

// previewOpts holds the flags of the preview command.
type previewOpts struct {
	index  int
	format string
	output string
	scale  int
	canvas bool
}

// previewCommand creates the preview command.
func (c *CLI) previewCommand() *cobra.Command {
	p := previewOpts{format: pipeline.FormatText, scale: pipeline.DefaultPreviewScale}
	flags := newOptionFlags()

	cmd := &cobra.Command{
		Use:   "preview <file.ndjson>",
		Short: "Show how one drawing is rasterized",
		Long: `Show how one drawing is rasterized.

Reads the drawing at --index (0-based, blank lines skipped) and renders it
with the same options convert uses. Text output is drawn in the terminal;
png and json are written to --output. With --canvas (line mode only) the
full-resolution stroke canvas is written as PNG before resampling.

Examples:
  inkgrid preview cat.ndjson --index 3 --mode line
  inkgrid preview cat.ndjson --augment --seed 7 --size 14
  inkgrid preview cat.ndjson --mode line --format png -o cat.png`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := pipeline.ValidateFormat(p.format); err != nil {
				return err
			}
			opts, err := flags.resolve(cmd)
			if err != nil {
				return err
			}
			return c.runPreview(cmd.Context(), args[0], p, opts, os.Stdout)
		},
	}

	cmd.Flags().IntVar(&p.index, "index", 0, "drawing to preview (0-based)")
	cmd.Flags().StringVarP(&p.format, "format", "f", p.format, "output format: text, png, json")
	cmd.Flags().StringVarP(&p.output, "output", "o", "", "output file for png/json (default: <input>_<index>.<ext>)")
	cmd.Flags().IntVar(&p.scale, "cell", p.scale, "pixels per grid cell in png output")
	cmd.Flags().BoolVar(&p.canvas, "canvas", false, "write the line-stroke canvas as PNG")
	flags.register(cmd, true)

	return cmd
}

func (c *CLI) runPreview(ctx context.Context, input string, p previewOpts, opts pipeline.Options, w io.Writer) error {
	logger := loggerFromContext(ctx)

	rec, err := readRecordAt(input, p.index)
	if err != nil {
		return err
	}
	d := rec.Drawing
	title := fmt.Sprintf("%s #%d", filepath.Base(input), p.index)
	if rec.Word != "" {
		title = fmt.Sprintf("%s (%s)", title, rec.Word)
	}

	if opts.Augment {
		params := opts.Perturber().Sample()
		d = perturb.Apply(d, params)
		logger.Info("perturbed drawing", "shift_x", params.ShiftX, "shift_y", params.ShiftY, "scale", params.Scale)
	}

	if p.canvas {
		data, err := pipeline.RenderCanvas(d, opts)
		if err != nil {
			return err
		}
		return writePreview(previewPath(input, p, "canvas", "png", false), data)
	}

	grids, err := pipeline.Grids(d, opts)
	if err != nil {
		return err
	}
	if grids == nil {
		return apperrors.New(apperrors.ErrCodeUnsupported, "preview needs a raster mode, got %q", opts.Mode)
	}

	for i, g := range grids {
		if p.format == pipeline.FormatText {
			printGrid(w, fmt.Sprintf("%s · %s %d×%d", title, opts.Mode, g.Size, g.Size), g)
			printDetail("%d of %d cells inked, %d points", g.Count(), g.Size*g.Size, d.PointCount())
			continue
		}
		data, err := pipeline.RenderGrid(g, p.format, p.scale)
		if err != nil {
			return err
		}
		suffix := fmt.Sprintf("%s%d", opts.Mode, opts.Sizes[i])
		if err := writePreview(previewPath(input, p, suffix, p.format, len(grids) > 1), data); err != nil {
			return err
		}
	}
	return nil
}

// readRecordAt returns the index-th record of the ndjson file at path.
func readRecordAt(path string, index int) (sketch.Record, error) {
	if index < 0 {
		return sketch.Record{}, apperrors.New(apperrors.ErrCodeInvalidOptions, "index must not be negative, got %d", index)
	}
	f, err := os.Open(path)
	if err != nil {
		return sketch.Record{}, apperrors.Wrap(apperrors.ErrCodeIO, err, "open %s", path)
	}
	defer f.Close()

	r := pkgio.NewReader(f)
	for i := 0; ; i++ {
		rec, err := r.Next()
		if err == io.EOF {
			return sketch.Record{}, apperrors.New(apperrors.ErrCodeNotFound, "%s has %d drawings, no index %d", path, i, index)
		}
		if err != nil {
			return sketch.Record{}, err
		}
		if i == index {
			return rec, nil
		}
	}
}

// previewPath returns the explicit output path, or one derived from input.
// When several files are written an explicit path gets the suffix inserted
// before its extension.
func previewPath(input string, p previewOpts, suffix, ext string, many bool) string {
	if p.output != "" {
		if !many {
			return p.output
		}
		e := filepath.Ext(p.output)
		return strings.TrimSuffix(p.output, e) + "_" + suffix + e
	}
	base := strings.TrimSuffix(input, filepath.Ext(input))
	return fmt.Sprintf("%s_%d_%s.%s", base, p.index, suffix, ext)
}

func writePreview(path string, data []byte) error {
	if err := apperrors.ValidatePath(path); err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return apperrors.Wrap(apperrors.ErrCodeIO, err, "write %s", path)
	}
	printFile(path)
	return nil
}
