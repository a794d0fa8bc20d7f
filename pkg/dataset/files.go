package dataset

import (
	"bufio"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	apperrors "github.com/matzehuels/inkgrid/pkg/errors"
	pkgio "github.com/matzehuels/inkgrid/pkg/io"
)

// ReadLines returns the non-blank lines of r without their line endings.
func ReadLines(r io.Reader) ([]string, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), pkgio.MaxLineSize)
	var lines []string
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		lines = append(lines, line)
	}
	if err := sc.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeIO, err, "read lines")
	}
	return lines, nil
}

// WriteLines writes each line followed by a newline.
func WriteLines(w io.Writer, lines []string) error {
	bw := bufio.NewWriter(w)
	for _, l := range lines {
		if _, err := bw.WriteString(l); err != nil {
			return apperrors.Wrap(apperrors.ErrCodeIO, err, "write lines")
		}
		if err := bw.WriteByte('\n'); err != nil {
			return apperrors.Wrap(apperrors.ErrCodeIO, err, "write lines")
		}
	}
	if err := bw.Flush(); err != nil {
		return apperrors.Wrap(apperrors.ErrCodeIO, err, "write lines")
	}
	return nil
}

// ReadFile reads the lines of the ndjson file at path.
func ReadFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeIO, err, "open %s", path)
	}
	defer f.Close()
	return ReadLines(f)
}

// WriteFile writes lines to path, creating parent directories.
func WriteFile(path string, lines []string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return apperrors.Wrap(apperrors.ErrCodeIO, err, "create %s", filepath.Dir(path))
	}
	f, err := os.Create(path)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrCodeIO, err, "create %s", path)
	}
	if err := WriteLines(f, lines); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return apperrors.Wrap(apperrors.ErrCodeIO, err, "close %s", path)
	}
	return nil
}

// CategoryFile returns the raw input file for category under dir.
func CategoryFile(dir, category string) string {
	return filepath.Join(dir, category+".ndjson")
}

// SampleFile returns the output path of a sampled category file.
func SampleFile(dir, category string) string {
	return filepath.Join(dir, category+"_sample.ndjson")
}

// ShuffleFile returns the output path of a shuffled category file.
func ShuffleFile(dir, category string) string {
	return filepath.Join(dir, category+"_shuffled.ndjson")
}

// SplitFile returns the output path of one split of a category, laid out
// as dir/<split>/<category>_<split>.ndjson.
func SplitFile(dir, category, split string) string {
	return filepath.Join(dir, split, category+"_"+split+".ndjson")
}

// ForEachCategory runs fn for every category with at most workers calls in
// flight. The first error cancels the remaining work and is returned.
func ForEachCategory(ctx context.Context, categories []string, workers int, fn func(ctx context.Context, category string) error) error {
	for _, c := range categories {
		if err := apperrors.ValidateCategory(c); err != nil {
			return err
		}
	}
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(workers, 1))
	for _, c := range categories {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			return fn(ctx, c)
		})
	}
	return g.Wait()
}
