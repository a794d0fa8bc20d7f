// Package cli implements the inkgrid command-line interface.
//
// # Commands
//
//   - convert: rasterize category files into JSON vector files or MongoDB
//   - flatten: write interleaved coordinate vectors instead of rasters
//   - sample, shuffle, split: prepare raw ndjson category files
//   - preview: show one drawing as a grid in the terminal or as PNG
//   - serve: expose rasterization over HTTP
//   - cache: manage the local vector cache
//
// All commands support --verbose (-v) for debug-level logging.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/inkgrid/pkg/buildinfo"
	"github.com/matzehuels/inkgrid/pkg/cache"
	"github.com/matzehuels/inkgrid/pkg/pipeline"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// appName is the application name used for directories and display.
	appName = "inkgrid"

	// redisEnv names the environment variable read when --redis is not given.
	redisEnv = "INKGRID_REDIS_URL"
)

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   appName,
		Short: "inkgrid turns stroke drawings into raster vectors",
		Long: `inkgrid converts QuickDraw-style stroke drawings (one ndjson record per line)
into fixed-size binary raster vectors for machine learning, and produces
randomly shifted and scaled variants for data augmentation.`,
		Version:      buildinfo.Get().Version,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			cmd.SetContext(withLogger(cmd.Context(), c.Logger))
		},
	}

	root.SetVersionTemplate(buildinfo.Template())

	root.AddCommand(c.convertCommand())
	root.AddCommand(c.flattenCommand())
	root.AddCommand(c.sampleCommand())
	root.AddCommand(c.shuffleCommand())
	root.AddCommand(c.splitCommand())
	root.AddCommand(c.previewCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// =============================================================================
// Runner Factory
// =============================================================================

// cacheFlags selects the vector cache backend.
type cacheFlags struct {
	noCache bool
	redis   string
}

func (f *cacheFlags) register(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&f.noCache, "no-cache", false, "disable caching")
	cmd.Flags().StringVar(&f.redis, "redis", "", "Redis URL for a shared cache (default $"+redisEnv+")")
}

// newRunner creates a pipeline runner for CLI use.
func (c *CLI) newRunner(ctx context.Context, flags cacheFlags) (*pipeline.Runner, error) {
	vc, keyer, err := c.newCache(ctx, flags)
	if err != nil {
		return nil, err
	}
	return pipeline.NewRunner(vc, keyer, c.Logger), nil
}

// newCache opens the configured cache. Redis entries are scoped by build
// version so binaries with different rasterizers never share vectors.
func (c *CLI) newCache(ctx context.Context, flags cacheFlags) (cache.Cache, cache.Keyer, error) {
	if flags.noCache {
		return cache.NewNullCache(), nil, nil
	}

	url := flags.redis
	if url == "" {
		url = os.Getenv(redisEnv)
	}
	if url != "" {
		rc, err := cache.NewRedisCache(ctx, cache.RedisConfig{URL: url, Prefix: appName + ":"})
		if err != nil {
			return nil, nil, err
		}
		c.Logger.Debug("using redis cache", "url", url)
		return rc, cache.NewScopedKeyer(nil, buildinfo.Get().Version+":"), nil
	}

	dir, err := cacheDir()
	if err != nil {
		c.Logger.Warn("cache disabled", "err", err)
		return cache.NewNullCache(), nil, nil
	}
	fc, err := cache.NewFileCache(dir)
	if err != nil {
		return nil, nil, err
	}
	return fc, nil, nil
}

// =============================================================================
// Paths
// =============================================================================

// cacheDir returns the cache directory using XDG standard (~/.cache/inkgrid/).
func cacheDir() (string, error) {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}

// =============================================================================
// Options Helpers
// =============================================================================

// optionFlags binds pipeline options to command flags. Flags given on the
// command line override values from a --config file.
type optionFlags struct {
	opts   pipeline.Options
	config string
}

func newOptionFlags() *optionFlags {
	return &optionFlags{opts: pipeline.DefaultOptions()}
}

// register adds the flags shared by every command that transforms drawings.
func (f *optionFlags) register(cmd *cobra.Command, raster bool) {
	o := &f.opts
	fs := cmd.Flags()
	fs.StringVar(&f.config, "config", "", "TOML file with conversion options")
	if raster {
		fs.StringVarP(&o.Mode, "mode", "m", o.Mode, "rasterization mode: point, line")
		fs.IntSliceVarP(&o.Sizes, "size", "s", o.Sizes, "grid size(s): 28, 14 (repeatable)")
		fs.IntVar(&o.CanvasSize, "canvas-size", o.CanvasSize, "line mode canvas size in pixels")
		fs.Float64Var(&o.StrokeWidth, "width", o.StrokeWidth, "line mode stroke width in canvas pixels")
		fs.IntVar(&o.Threshold, "threshold", o.Threshold, "line mode ink threshold (1-255)")
		fs.BoolVar(&o.NoSkeleton, "no-skeleton", o.NoSkeleton, "line mode: do not force pen positions to ink")
	}
	fs.BoolVar(&o.Augment, "augment", o.Augment, "add randomly shifted and scaled variants")
	fs.IntVar(&o.Variants, "variants", o.Variants, "perturbed variants per drawing")
	fs.Float64Var(&o.ShiftRange, "shift", o.ShiftRange, "maximum shift in input units")
	fs.Float64Var(&o.ScaleRange, "scale", o.ScaleRange, "maximum relative scale change, in [0, 1)")
	fs.Uint64Var(&o.Seed, "seed", o.Seed, "random seed")
	fs.IntVarP(&o.Workers, "workers", "w", o.Workers, "drawings transformed in parallel")
	fs.IntVar(&o.Limit, "limit", o.Limit, "maximum drawings per category (0 = all)")
	fs.BoolVar(&o.Refresh, "refresh", false, "recompute vectors even when cached")
}

// resolve returns the effective options: defaults, then the config file,
// then flags set on the command line.
func (f *optionFlags) resolve(cmd *cobra.Command) (pipeline.Options, error) {
	if f.config == "" {
		opts := f.opts
		return opts, opts.ValidateAndSetDefaults()
	}

	opts, err := pipeline.LoadConfig(f.config)
	if err != nil {
		return opts, err
	}
	changed := cmd.Flags().Changed
	o := f.opts
	if changed("mode") {
		opts.Mode = o.Mode
	}
	if changed("size") {
		opts.Sizes = o.Sizes
	}
	if changed("canvas-size") {
		opts.CanvasSize = o.CanvasSize
	}
	if changed("width") {
		opts.StrokeWidth = o.StrokeWidth
	}
	if changed("threshold") {
		opts.Threshold = o.Threshold
	}
	if changed("no-skeleton") {
		opts.NoSkeleton = o.NoSkeleton
	}
	if changed("augment") {
		opts.Augment = o.Augment
	}
	if changed("variants") {
		opts.Variants = o.Variants
	}
	if changed("shift") {
		opts.ShiftRange = o.ShiftRange
	}
	if changed("scale") {
		opts.ScaleRange = o.ScaleRange
	}
	if changed("seed") {
		opts.Seed = o.Seed
	}
	if changed("workers") {
		opts.Workers = o.Workers
	}
	if changed("limit") {
		opts.Limit = o.Limit
	}
	opts.Refresh = o.Refresh
	if o.Mode == pipeline.ModeCoords {
		opts.Mode = pipeline.ModeCoords
	}
	return opts, opts.ValidateAndSetDefaults()
}

// parseCategories accepts categories as arguments, comma-separated lists,
// or both.
func parseCategories(args []string) []string {
	var out []string
	for _, a := range args {
		for _, c := range strings.Split(a, ",") {
			if c = strings.TrimSpace(c); c != "" {
				out = append(out, c)
			}
		}
	}
	return out
}

// requireCategories is a cobra.PositionalArgs that demands at least one
// category.
func requireCategories(cmd *cobra.Command, args []string) error {
	if len(parseCategories(args)) == 0 {
		return fmt.Errorf("at least one category is required")
	}
	return nil
}
