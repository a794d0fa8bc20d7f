package cli

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"github.com/matzehuels/inkgrid/pkg/dataset"
	apperrors "github.com/matzehuels/inkgrid/pkg/errors"
	"github.com/matzehuels/inkgrid/pkg/pipeline"
	"github.com/matzehuels/inkgrid/pkg/store"
)

// convertFlags holds the flags shared by convert and flatten.
type convertFlags struct {
	in    string
	out   string
	split string
	jobs  int
	mongo string
	db    string
	cache cacheFlags
	opts  *optionFlags
}

func newConvertFlags() *convertFlags {
	return &convertFlags{
		in:    ".",
		out:   "vectors",
		split: dataset.SplitAll,
		jobs:  1,
		opts:  newOptionFlags(),
	}
}

func (f *convertFlags) register(cmd *cobra.Command, raster bool) {
	cmd.Flags().StringVarP(&f.in, "in", "i", f.in, "directory holding <category>.ndjson or <split>/<category>_<split>.ndjson")
	cmd.Flags().StringVarP(&f.out, "out", "o", f.out, "output directory for JSON vector files")
	cmd.Flags().StringVar(&f.split, "split", f.split, "input split: all, train, test")
	cmd.Flags().IntVarP(&f.jobs, "jobs", "j", f.jobs, "categories converted in parallel")
	cmd.Flags().StringVar(&f.mongo, "mongo", "", "MongoDB URI; write documents instead of files")
	cmd.Flags().StringVar(&f.db, "mongo-db", store.DefaultDatabase, "MongoDB database name")
	f.cache.register(cmd)
	f.opts.register(cmd, raster)
}

// convertCommand creates the convert command.
func (c *CLI) convertCommand() *cobra.Command {
	f := newConvertFlags()

	cmd := &cobra.Command{
		Use:   "convert <category>...",
		Short: "Rasterize drawing files into binary vectors",
		Long: `Rasterize drawing files into binary vectors.

Each category is read from <in>/<category>.ndjson (or, with --split train|test,
from <in>/<split>/<category>_<split>.ndjson) and written as one JSON array
per grid size to <out>/<category>_<split>_<mode><size>.json.

Modes:
  point  every pen position sets one grid cell (default)
  line   strokes are drawn as thick lines and resampled; 14×14 is derived
         from 28×28 by 2×2 max-pooling

With --augment every drawing is followed by --variants randomly shifted and
scaled copies. The same --seed reproduces the same copies for any --workers.

Unaugmented vectors are cached locally; use --no-cache or --refresh to skip it.

Examples:
  inkgrid convert cat dog --mode line --size 28 --size 14
  inkgrid convert cat --split train --augment --variants 3 -w 8
  inkgrid convert cat,dog --config inkgrid.toml --mongo mongodb://localhost:27017`,
		Args: requireCategories,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := f.opts.resolve(cmd)
			if err != nil {
				return err
			}
			return c.runConvert(cmd.Context(), parseCategories(args), f, opts)
		},
	}
	f.register(cmd, true)
	return cmd
}

// flattenCommand creates the flatten command, a convert that writes
// coordinate vectors.
func (c *CLI) flattenCommand() *cobra.Command {
	f := newConvertFlags()
	f.opts.opts.Mode = pipeline.ModeCoords

	cmd := &cobra.Command{
		Use:   "flatten <category>...",
		Short: "Write drawings as flat coordinate vectors",
		Long: `Write drawings as flat coordinate vectors.

Every drawing becomes [x1, y1, x2, y2, ...] across all of its strokes, in
drawing order, written to <out>/<category>_<split>_coords.json. Augmentation
perturbs the coordinates without clamping them.`,
		Args: requireCategories,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := f.opts.resolve(cmd)
			if err != nil {
				return err
			}
			return c.runConvert(cmd.Context(), parseCategories(args), f, opts)
		},
	}
	f.register(cmd, false)
	return cmd
}

// inputFile returns the ndjson file holding category for split.
func inputFile(dir, category, split string) string {
	if split == dataset.SplitAll {
		return dataset.CategoryFile(dir, category)
	}
	return dataset.SplitFile(dir, category, split)
}

func validateSplit(split string) error {
	switch split {
	case dataset.SplitAll, dataset.SplitTrain, dataset.SplitTest:
		return nil
	}
	return apperrors.New(apperrors.ErrCodeInvalidOptions, "invalid split %q (must be all, train or test)", split)
}

// newSink opens the configured output sink.
func (c *CLI) newSink(ctx context.Context, f *convertFlags) (store.Sink, error) {
	if f.mongo == "" {
		if err := apperrors.ValidatePath(f.out); err != nil {
			return nil, err
		}
		return store.NewFileSink(f.out), nil
	}
	sink, err := store.NewMongoSink(ctx, store.MongoConfig{URI: f.mongo, Database: f.db})
	if err != nil {
		return nil, err
	}
	c.Logger.Info("writing to mongodb", "database", f.db, "run_id", sink.RunID())
	return sink, nil
}

// categoryResult is the outcome of one category, reported after all
// categories finished.
type categoryResult struct {
	stats    pipeline.Stats
	keys     []store.Key
}

func (c *CLI) runConvert(ctx context.Context, categories []string, f *convertFlags, opts pipeline.Options) error {
	if err := validateSplit(f.split); err != nil {
		return err
	}
	logger := loggerFromContext(ctx)

	runner, err := c.newRunner(ctx, f.cache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	sink, err := c.newSink(ctx, f)
	if err != nil {
		return err
	}
	defer sink.Close(context.WithoutCancel(ctx))

	spinner := newSpinnerWithContext(ctx, fmt.Sprintf("Converting %d categories...", len(categories)))
	spinner.Start()

	var (
		mu      sync.Mutex
		results = make(map[string]categoryResult, len(categories))
	)
	prog := newProgress(logger)
	err = dataset.ForEachCategory(ctx, categories, f.jobs, func(ctx context.Context, category string) error {
		spinner.Update("Converting %s...", category)
		res, err := c.convertCategory(ctx, runner, sink, category, f.in, f.split, opts)
		if err != nil {
			return fmt.Errorf("%s: %w", category, err)
		}
		mu.Lock()
		results[category] = res
		mu.Unlock()
		return nil
	})
	if err != nil {
		spinner.StopWithError("Conversion failed")
		return err
	}
	spinner.Stop()

	total := 0
	for _, r := range results {
		total += r.stats.Records
	}
	prog.done("converted", "categories", len(categories), "drawings", total)

	printSuccess("Converted %d categories (%s)", len(categories), describeOptions(opts))
	for _, category := range categories {
		r := results[category]
		printInfo("%s", category)
		if fs, ok := sink.(*store.FileSink); ok {
			for _, k := range r.keys {
				printFile(fs.Path(k))
			}
		}
		printStats(r.stats.Records, r.stats.Vectors, r.stats.CacheHits)
	}
	if opts.Augment {
		printDetail("augmented with %d variant(s) per drawing, seed %d", opts.Variants, opts.Seed)
	}
	return nil
}

func (c *CLI) convertCategory(ctx context.Context, runner *pipeline.Runner, sink store.Sink, category, dir, split string, opts pipeline.Options) (categoryResult, error) {
	path := inputFile(dir, category, split)
	file, err := os.Open(path)
	if err != nil {
		return categoryResult{}, apperrors.Wrap(apperrors.ErrCodeIO, err, "open %s", path)
	}
	defer file.Close()

	res, err := runner.Convert(ctx, file, opts)
	if err != nil {
		return categoryResult{}, fmt.Errorf("%s: %w", path, err)
	}
	if err := runner.Write(ctx, sink, category, split, res, opts); err != nil {
		return categoryResult{}, err
	}

	keys := make([]store.Key, len(res.Outputs))
	for i, o := range res.Outputs {
		keys[i] = store.Key{Category: category, Split: split, Mode: opts.Mode, Size: o.Size}
	}
	return categoryResult{stats: res.Stats, keys: keys}, nil
}

// describeOptions summarizes the options that shape the output.
func describeOptions(opts pipeline.Options) string {
	if opts.Mode == pipeline.ModeCoords {
		return opts.Mode
	}
	sizes := make([]string, len(opts.Sizes))
	for i, s := range opts.Sizes {
		sizes[i] = fmt.Sprintf("%d×%d", s, s)
	}
	return opts.Mode + " " + strings.Join(sizes, ", ")
}
