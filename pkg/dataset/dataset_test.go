package dataset

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"strings"
	"sync/atomic"
	"testing"

	apperrors "github.com/matzehuels/inkgrid/pkg/errors"
	"github.com/matzehuels/inkgrid/pkg/perturb"
)

func lines(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf(`{"key_id":"%d","drawing":[]}`, i)
	}
	return out
}

func TestSample(t *testing.T) {
	in := lines(50)
	got := Sample(in, 10, perturb.NewRand(1))
	if len(got) != 10 {
		t.Fatalf("len = %d, want 10", len(got))
	}
	seen := map[string]bool{}
	for _, l := range got {
		if seen[l] {
			t.Errorf("duplicate line %s", l)
		}
		seen[l] = true
		if !slices.Contains(in, l) {
			t.Errorf("line %s not from input", l)
		}
	}
}

func TestSampleFewerThanRequested(t *testing.T) {
	in := lines(5)
	got := Sample(in, 100, perturb.NewRand(1))
	if len(got) != 5 {
		t.Fatalf("len = %d, want 5", len(got))
	}
	sorted := slices.Clone(got)
	slices.Sort(sorted)
	want := slices.Clone(in)
	slices.Sort(want)
	if !slices.Equal(sorted, want) {
		t.Errorf("Sample() lost lines: %v", got)
	}
}

func TestShuffleDeterministic(t *testing.T) {
	in := lines(30)
	a := Shuffle(in, perturb.NewRand(9))
	b := Shuffle(in, perturb.NewRand(9))
	if !slices.Equal(a, b) {
		t.Error("same seed produced different orders")
	}
	if slices.Equal(a, in) {
		t.Error("Shuffle() returned the input order")
	}
	if in[0] != `{"key_id":"0","drawing":[]}` {
		t.Error("Shuffle() modified its input")
	}
}

func TestSplit(t *testing.T) {
	in := lines(101)
	p, err := Split(in, DefaultTrainRatio, perturb.NewRand(3))
	if err != nil {
		t.Fatalf("Split() error: %v", err)
	}
	if len(p.Train) != 80 || len(p.Test) != 21 {
		t.Fatalf("train/test = %d/%d, want 80/21", len(p.Train), len(p.Test))
	}

	all := append(slices.Clone(p.Train), p.Test...)
	slices.Sort(all)
	want := slices.Clone(in)
	slices.Sort(want)
	if !slices.Equal(all, want) {
		t.Error("Split() is not a partition of the input")
	}
}

func TestSplitBounds(t *testing.T) {
	for _, ratio := range []float64{0, 1} {
		p, err := Split(lines(4), ratio, perturb.NewRand(1))
		if err != nil {
			t.Fatalf("ratio %v: %v", ratio, err)
		}
		if len(p.Train)+len(p.Test) != 4 {
			t.Errorf("ratio %v: lost lines", ratio)
		}
	}
	for _, ratio := range []float64{-0.1, 1.5} {
		if _, err := Split(lines(4), ratio, perturb.NewRand(1)); !apperrors.Is(err, apperrors.ErrCodeInvalidOptions) {
			t.Errorf("ratio %v: error = %v", ratio, err)
		}
	}
}

func TestReadWriteLines(t *testing.T) {
	input := "a\r\n\nb\n   \nc"
	got, err := ReadLines(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ReadLines() error: %v", err)
	}
	if want := []string{"a", "b", "c"}; !slices.Equal(got, want) {
		t.Errorf("ReadLines() = %q, want %q", got, want)
	}

	var buf bytes.Buffer
	if err := WriteLines(&buf, got); err != nil {
		t.Fatalf("WriteLines() error: %v", err)
	}
	if buf.String() != "a\nb\nc\n" {
		t.Errorf("WriteLines() = %q", buf.String())
	}
}

func TestFileRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := SplitFile(dir, "apple", SplitTrain)
	if want := filepath.Join(dir, "train", "apple_train.ndjson"); path != want {
		t.Fatalf("SplitFile() = %s, want %s", path, want)
	}

	in := lines(3)
	if err := WriteFile(path, in); err != nil {
		t.Fatalf("WriteFile() error: %v", err)
	}
	got, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error: %v", err)
	}
	if !slices.Equal(got, in) {
		t.Errorf("ReadFile() = %v", got)
	}

	if _, err := ReadFile(filepath.Join(dir, "missing.ndjson")); !apperrors.Is(err, apperrors.ErrCodeIO) {
		t.Errorf("missing file error = %v", err)
	}
}

func TestFileNames(t *testing.T) {
	if got := CategoryFile("data", "star"); got != filepath.Join("data", "star.ndjson") {
		t.Errorf("CategoryFile() = %s", got)
	}
	if got := SampleFile("samples", "star"); got != filepath.Join("samples", "star_sample.ndjson") {
		t.Errorf("SampleFile() = %s", got)
	}
	if got := ShuffleFile("shuffled", "star"); got != filepath.Join("shuffled", "star_shuffled.ndjson") {
		t.Errorf("ShuffleFile() = %s", got)
	}
}

func TestForEachCategory(t *testing.T) {
	var calls atomic.Int32
	err := ForEachCategory(context.Background(), []string{"apple", "star", "fork"}, 2, func(ctx context.Context, c string) error {
		calls.Add(1)
		return nil
	})
	if err != nil {
		t.Fatalf("ForEachCategory() error: %v", err)
	}
	if calls.Load() != 3 {
		t.Errorf("calls = %d, want 3", calls.Load())
	}

	boom := errors.New("boom")
	err = ForEachCategory(context.Background(), []string{"apple"}, 1, func(ctx context.Context, c string) error {
		return boom
	})
	if !errors.Is(err, boom) {
		t.Errorf("error = %v, want boom", err)
	}

	err = ForEachCategory(context.Background(), []string{"../etc"}, 1, func(ctx context.Context, c string) error {
		t.Error("fn called for invalid category")
		return nil
	})
	if !apperrors.Is(err, apperrors.ErrCodeInvalidCategory) {
		t.Errorf("error = %v, want INVALID_CATEGORY", err)
	}
}
