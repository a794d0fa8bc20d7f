package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/inkgrid/pkg/cache"
	apperrors "github.com/matzehuels/inkgrid/pkg/errors"
	pkgio "github.com/matzehuels/inkgrid/pkg/io"
	"github.com/matzehuels/inkgrid/pkg/observability"
	"github.com/matzehuels/inkgrid/pkg/perturb"
	"github.com/matzehuels/inkgrid/pkg/raster"
	"github.com/matzehuels/inkgrid/pkg/sketch"
	"github.com/matzehuels/inkgrid/pkg/store"
)

// cacheKeyType labels vector entries in cache hooks.
const cacheKeyType = "vector"

// Runner encapsulates pipeline execution with caching.
// Both CLI and API use it so caching and logging behave the same everywhere.
//
// The Runner holds no per-conversion state. Multiple goroutines can safely
// use the same Runner with different options.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger
}

// NewRunner creates a runner with the given cache and keyer.
// If keyer is nil, a DefaultKeyer is used.
// If cache is nil, a NullCache is used (caching disabled).
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Cache:  c,
		Keyer:  keyer,
		Logger: logger,
	}
}

// Output holds the vectors of one size, in input order.
type Output struct {
	// Size is the grid size, or 0 in coordinate mode.
	Size    int
	Vectors []raster.Vector
}

// Result contains the outputs of a conversion.
type Result struct {
	Outputs []Output
	Stats   Stats
}

// Stats contains conversion statistics.
type Stats struct {
	Records   int
	Vectors   int
	CacheHits int
	Duration  time.Duration
}

// Vectors returns the vectors produced for size, or nil.
func (r *Result) Vectors(size int) []raster.Vector {
	for _, o := range r.Outputs {
		if o.Size == size {
			return o.Vectors
		}
	}
	return nil
}

// job is one drawing to transform. A nil params means the original drawing.
type job struct {
	record  int
	drawing sketch.Drawing
	params  *perturb.Params
}

// Convert decodes every record from rd and transforms it. Output order
// matches input order, with augmented variants directly after their
// original. The first failing record aborts the conversion; its error is an
// *errors.RecordError carrying the line number.
func (r *Runner) Convert(ctx context.Context, rd io.Reader, opts Options) (*Result, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}

	start := time.Now()
	hooks := observability.Pipeline()
	hooks.OnConvertStart(ctx, opts.Mode, opts.OutputSizes())

	result, err := r.convert(ctx, rd, opts)

	records := 0
	if result != nil {
		result.Stats.Duration = time.Since(start)
		records = result.Stats.Records
	}
	hooks.OnConvertComplete(ctx, opts.Mode, records, time.Since(start), err)
	if err != nil {
		return nil, err
	}

	r.Logger.Info("converted drawings",
		"mode", opts.Mode,
		"records", result.Stats.Records,
		"vectors", result.Stats.Vectors,
		"cache_hits", result.Stats.CacheHits,
		"duration", result.Stats.Duration)
	return result, nil
}

func (r *Runner) convert(ctx context.Context, rd io.Reader, opts Options) (*Result, error) {
	drawings, lines, err := r.readDrawings(ctx, rd, opts.Limit)
	if err != nil {
		return nil, err
	}
	jobs := plan(drawings, opts)
	r.Logger.Debug("planned conversion", "records", len(drawings), "jobs", len(jobs), "workers", opts.Workers)

	results := make([][]raster.Vector, len(jobs))
	hits := make([]bool, len(jobs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Workers)
	for i, j := range jobs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			vs, hit, err := r.runJob(gctx, j, opts)
			if err != nil {
				return &apperrors.RecordError{Line: lines[j.record], Err: err}
			}
			results[i], hits[i] = vs, hit
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sizes := opts.OutputSizes()
	result := &Result{Outputs: make([]Output, len(sizes))}
	for k, size := range sizes {
		result.Outputs[k] = Output{Size: size, Vectors: make([]raster.Vector, len(jobs))}
	}
	for i, vs := range results {
		for k := range sizes {
			result.Outputs[k].Vectors[i] = vs[k]
		}
		if hits[i] {
			result.Stats.CacheHits++
		}
	}
	result.Stats.Records = len(drawings)
	result.Stats.Vectors = len(jobs) * len(sizes)
	return result, nil
}

// readDrawings decodes up to limit records (0 means all) and remembers the
// input line of each.
func (r *Runner) readDrawings(ctx context.Context, rd io.Reader, limit int) ([]sketch.Drawing, []int, error) {
	var drawings []sketch.Drawing
	var lines []int
	reader := pkgio.NewReader(rd)
	for limit == 0 || len(drawings) < limit {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		rec, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, err
		}
		drawings = append(drawings, rec.Drawing)
		lines = append(lines, reader.Line())
	}
	return drawings, lines, nil
}

// plan expands drawings into jobs. Perturbation parameters are sampled here,
// sequentially, so results do not depend on scheduling.
func plan(drawings []sketch.Drawing, opts Options) []job {
	per := 1
	if opts.Augment {
		per += opts.Variants
	}
	jobs := make([]job, 0, len(drawings)*per)
	p := opts.Perturber()
	for i, d := range drawings {
		jobs = append(jobs, job{record: i, drawing: d})
		if !opts.Augment {
			continue
		}
		for v := 0; v < opts.Variants; v++ {
			params := p.Sample()
			jobs = append(jobs, job{record: i, drawing: d, params: &params})
		}
	}
	return jobs
}

func (r *Runner) runJob(ctx context.Context, j job, opts Options) ([]raster.Vector, bool, error) {
	if j.params != nil {
		vs, err := Transform(perturb.Apply(j.drawing, *j.params), opts)
		return vs, false, err
	}
	return r.TransformWithCacheInfo(ctx, j.drawing, opts)
}

// TransformWithCacheInfo transforms one drawing through the cache and
// reports whether the result was a cache hit. Cache failures are logged and
// otherwise ignored.
func (r *Runner) TransformWithCacheInfo(ctx context.Context, d sketch.Drawing, opts Options) ([]raster.Vector, bool, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, false, err
	}

	hash, err := cache.HashJSON(d)
	if err != nil {
		return nil, false, apperrors.Wrap(apperrors.ErrCodeInternal, err, "hash drawing")
	}
	key := r.Keyer.VectorKey(hash, opts.VectorKeyOpts())
	hooks := observability.Cache()

	if !opts.Refresh {
		data, hit, err := r.Cache.Get(ctx, key)
		switch {
		case err != nil:
			r.Logger.Warn("cache read failed", "err", err)
		case hit:
			var vs []raster.Vector
			if err := json.Unmarshal(data, &vs); err == nil && len(vs) == len(opts.OutputSizes()) {
				hooks.OnCacheHit(ctx, cacheKeyType)
				return vs, true, nil
			}
			r.Logger.Debug("discarding unreadable cache entry", "key", key)
		}
		hooks.OnCacheMiss(ctx, cacheKeyType)
	}

	vs, err := Transform(d, opts)
	if err != nil {
		return nil, false, err
	}

	if data, err := json.Marshal(vs); err == nil {
		if err := r.Cache.Set(ctx, key, data, cache.DefaultTTL); err != nil {
			r.Logger.Warn("cache write failed", "err", err)
		} else {
			hooks.OnCacheSet(ctx, cacheKeyType, len(data))
		}
	}
	return vs, false, nil
}

// Transform is a convenience wrapper that calls TransformWithCacheInfo and
// discards the cache hit info.
func (r *Runner) Transform(ctx context.Context, d sketch.Drawing, opts Options) ([]raster.Vector, error) {
	vs, _, err := r.TransformWithCacheInfo(ctx, d, opts)
	return vs, err
}

// Write stores every output of result in sink under category and split.
func (r *Runner) Write(ctx context.Context, sink store.Sink, category, split string, result *Result, opts Options) error {
	hooks := observability.Pipeline()
	for _, out := range result.Outputs {
		key := store.Key{Category: category, Split: split, Mode: opts.Mode, Size: out.Size}

		start := time.Now()
		hooks.OnWriteStart(ctx, sink.Name(), len(out.Vectors))
		err := sink.Write(ctx, key, out.Vectors)
		hooks.OnWriteComplete(ctx, sink.Name(), time.Since(start), err)
		if err != nil {
			return fmt.Errorf("write %s: %w", key.FileName(), err)
		}

		r.Logger.Info("wrote vectors",
			"sink", sink.Name(),
			"output", key.FileName(),
			"vectors", len(out.Vectors))
	}
	return nil
}

// Close releases resources held by the runner (primarily the cache).
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}
