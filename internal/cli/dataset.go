package cli

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"

	"github.com/spf13/cobra"

	"github.com/matzehuels/inkgrid/pkg/dataset"
	apperrors "github.com/matzehuels/inkgrid/pkg/errors"
	"github.com/matzehuels/inkgrid/pkg/perturb"
)

const (
	// defaultSampleSize is the number of drawings kept per category by sample.
	defaultSampleSize = 1000
)

// datasetFlags holds the flags shared by sample, shuffle and split.
type datasetFlags struct {
	in   string
	out  string
	seed uint64
	jobs int
}

func (f *datasetFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.in, "in", "i", ".", "directory holding <category>.ndjson")
	cmd.Flags().StringVarP(&f.out, "out", "o", "", "output directory (default: --in)")
	cmd.Flags().Uint64Var(&f.seed, "seed", uint64(42), "random seed")
	cmd.Flags().IntVarP(&f.jobs, "jobs", "j", 1, "categories processed in parallel")
}

func (f *datasetFlags) outDir() string {
	if f.out == "" {
		return f.in
	}
	return f.out
}

// lineOp transforms the lines of one category and writes its outputs.
// It returns the paths written and the number of lines kept.
type lineOp func(category string, lines []string, rng *rand.Rand) (paths []string, kept int, err error)

// sampleCommand creates the sample command.
func (c *CLI) sampleCommand() *cobra.Command {
	var (
		f datasetFlags
		n int
	)
	cmd := &cobra.Command{
		Use:   "sample <category>...",
		Short: "Randomly sample drawings from category files",
		Long: `Randomly sample drawings from category files.

Reads <in>/<category>.ndjson and writes n randomly chosen lines to
<out>/<category>_sample.ndjson. Categories with fewer than n drawings are
kept whole, shuffled. Lines are copied unchanged.`,
		Args: requireCategories,
		RunE: func(cmd *cobra.Command, args []string) error {
			if n < 1 {
				return apperrors.New(apperrors.ErrCodeInvalidOptions, "sample size must be positive, got %d", n)
			}
			out := f.outDir()
			return c.runLines(cmd.Context(), "Sampled", parseCategories(args), f, func(category string, lines []string, rng *rand.Rand) ([]string, int, error) {
				if len(lines) < n {
					printWarning("%s has only %d drawings, keeping all", category, len(lines))
				}
				path := dataset.SampleFile(out, category)
				kept := dataset.Sample(lines, n, rng)
				return []string{path}, len(kept), dataset.WriteFile(path, kept)
			})
		},
	}
	f.register(cmd)
	cmd.Flags().IntVarP(&n, "count", "n", defaultSampleSize, "drawings to keep per category")
	return cmd
}

// shuffleCommand creates the shuffle command.
func (c *CLI) shuffleCommand() *cobra.Command {
	var f datasetFlags
	cmd := &cobra.Command{
		Use:   "shuffle <category>...",
		Short: "Shuffle the drawings of category files",
		Long: `Shuffle the drawings of category files.

Reads <in>/<category>.ndjson and writes its lines in random order to
<out>/<category>_shuffled.ndjson.`,
		Args: requireCategories,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := f.outDir()
			return c.runLines(cmd.Context(), "Shuffled", parseCategories(args), f, func(category string, lines []string, rng *rand.Rand) ([]string, int, error) {
				path := dataset.ShuffleFile(out, category)
				return []string{path}, len(lines), dataset.WriteFile(path, dataset.Shuffle(lines, rng))
			})
		},
	}
	f.register(cmd)
	return cmd
}

// splitCommand creates the split command.
func (c *CLI) splitCommand() *cobra.Command {
	var (
		f     datasetFlags
		ratio float64
	)
	cmd := &cobra.Command{
		Use:   "split <category>...",
		Short: "Split category files into train and test sets",
		Long: `Split category files into train and test sets.

Reads <in>/<category>.ndjson, shuffles it and writes the first --ratio share
of lines to <out>/train/<category>_train.ndjson and the rest to
<out>/test/<category>_test.ndjson. Convert the result with
'inkgrid convert --split train'.`,
		Args: requireCategories,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := f.outDir()
			categories := parseCategories(args)
			err := c.runLines(cmd.Context(), "Split", categories, f, func(category string, lines []string, rng *rand.Rand) ([]string, int, error) {
				p, err := dataset.Split(lines, ratio, rng)
				if err != nil {
					return nil, 0, err
				}
				train := dataset.SplitFile(out, category, dataset.SplitTrain)
				test := dataset.SplitFile(out, category, dataset.SplitTest)
				if err := dataset.WriteFile(train, p.Train); err != nil {
					return nil, 0, err
				}
				if err := dataset.WriteFile(test, p.Test); err != nil {
					return nil, 0, err
				}
				printDetail("%s: %d train, %d test", category, len(p.Train), len(p.Test))
				return []string{train, test}, len(lines), nil
			})
			if err != nil {
				return err
			}
			printNewline()
			printNextStep("Convert", fmt.Sprintf("inkgrid convert %s --in %s --split train", categories[0], out))
			return nil
		},
	}
	f.register(cmd)
	cmd.Flags().Float64Var(&ratio, "ratio", dataset.DefaultTrainRatio, "share of drawings assigned to the training set")
	return cmd
}

// runLines applies op to every category. Each category gets its own
// generator seeded with the same seed, so results do not depend on --jobs.
func (c *CLI) runLines(ctx context.Context, verb string, categories []string, f datasetFlags, op lineOp) error {
	if err := apperrors.ValidatePath(f.outDir()); err != nil {
		return err
	}
	logger := loggerFromContext(ctx)
	prog := newProgress(logger)

	var (
		mu    sync.Mutex
		paths = make(map[string][]string, len(categories))
		total int
	)
	err := dataset.ForEachCategory(ctx, categories, f.jobs, func(ctx context.Context, category string) error {
		lines, err := dataset.ReadFile(dataset.CategoryFile(f.in, category))
		if err != nil {
			return err
		}
		written, kept, err := op(category, lines, perturb.NewRand(f.seed))
		if err != nil {
			return fmt.Errorf("%s: %w", category, err)
		}
		logger.Debug("processed category", "category", category, "lines", len(lines), "kept", kept)

		mu.Lock()
		paths[category] = written
		total += kept
		mu.Unlock()
		return nil
	})
	if err != nil {
		return err
	}
	prog.done(verb+" categories", "categories", len(categories), "drawings", total)

	printSuccess("%s %d categories (%d drawings)", verb, len(categories), total)
	for _, category := range categories {
		for _, p := range paths[category] {
			printFile(p)
		}
	}
	return nil
}
