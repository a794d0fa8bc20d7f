package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/inkgrid/pkg/cache"
	apperrors "github.com/matzehuels/inkgrid/pkg/errors"
	pkgio "github.com/matzehuels/inkgrid/pkg/io"
	"github.com/matzehuels/inkgrid/pkg/raster"
	"github.com/matzehuels/inkgrid/pkg/store"
)

func testRunner(c cache.Cache) *Runner {
	return NewRunner(c, nil, log.New(io.Discard))
}

const catRecords = `{"word":"cat","drawing":[[[0,255],[0,255]]]}
{"word":"cat","drawing":[[[128],[128]]]}

{"word":"cat","drawing":[[[10,60,120,240],[200,40,180,20]],[[30],[220]]]}
`

// manyRecords returns n distinct ndjson records.
func manyRecords(n int) string {
	var b strings.Builder
	for i := 0; i < n; i++ {
		x := (i * 37) % 256
		y := (i * 91) % 256
		fmt.Fprintf(&b, `{"drawing":[[[%d,%d,%d],[%d,%d,%d]]]}`+"\n", x, 255-x, 128, y, 128, 255-y)
	}
	return b.String()
}

func vectorsEqual(a, b []raster.Vector) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if len(a[i]) != len(b[i]) {
			return false
		}
		for j := range a[i] {
			if a[i][j] != b[i][j] {
				return false
			}
		}
	}
	return true
}

func TestConvertPoint(t *testing.T) {
	opts := DefaultOptions()
	opts.Sizes = []int{28, 14}

	res, err := testRunner(nil).Convert(context.Background(), strings.NewReader(catRecords), opts)
	if err != nil {
		t.Fatalf("Convert() error: %v", err)
	}
	if res.Stats.Records != 3 || res.Stats.Vectors != 6 {
		t.Errorf("stats = %+v", res.Stats)
	}

	v28 := res.Vectors(28)
	if len(v28) != 3 {
		t.Fatalf("got %d vectors, want 3", len(v28))
	}
	first := v28[0]
	if len(first) != 784 || first[0] != 1 || first[783] != 1 {
		t.Errorf("diagonal vector corners = %v/%v", first[0], first[783])
	}
	sum := 0.0
	for _, x := range first {
		sum += x
	}
	if sum != 2 {
		t.Errorf("diagonal vector has %v ink cells, want 2", sum)
	}

	if v14 := res.Vectors(14); len(v14) != 3 || len(v14[0]) != 196 {
		t.Errorf("14x14 output shape wrong")
	}
	if res.Vectors(7) != nil {
		t.Error("Vectors() of unknown size should be nil")
	}
}

func TestConvertLineDerivesCoarseGrid(t *testing.T) {
	opts := DefaultOptions()
	opts.Mode = ModeLine
	opts.Sizes = []int{28, 14}

	res, err := testRunner(nil).Convert(context.Background(), strings.NewReader(catRecords), opts)
	if err != nil {
		t.Fatalf("Convert() error: %v", err)
	}
	fine, coarse := res.Vectors(28), res.Vectors(14)
	for i := range fine {
		g, err := raster.Unflatten(fine[i])
		if err != nil {
			t.Fatal(err)
		}
		want, err := raster.Downsample(g)
		if err != nil {
			t.Fatal(err)
		}
		if !vectorsEqual([]raster.Vector{raster.Flatten(want)}, []raster.Vector{coarse[i]}) {
			t.Errorf("record %d: 14x14 is not the max-pooled 28x28", i)
		}
	}

	dot, err := raster.Unflatten(fine[1])
	if err != nil {
		t.Fatal(err)
	}
	if !dot.At(14, 14) {
		t.Errorf("centered dot missing at (14,14):\n%s", dot)
	}
}

func TestConvertCoords(t *testing.T) {
	opts := DefaultOptions()
	opts.Mode = ModeCoords

	res, err := testRunner(nil).Convert(context.Background(), strings.NewReader(catRecords), opts)
	if err != nil {
		t.Fatalf("Convert() error: %v", err)
	}
	vs := res.Vectors(0)
	if len(vs) != 3 {
		t.Fatalf("got %d vectors, want 3", len(vs))
	}
	want := raster.Vector{0, 0, 255, 255}
	if !vectorsEqual([]raster.Vector{vs[0]}, []raster.Vector{want}) {
		t.Errorf("coords vector = %v, want %v", vs[0], want)
	}
	if len(vs[2]) != 10 {
		t.Errorf("multi-stroke coords length = %d, want 10", len(vs[2]))
	}
}

func TestConvertParallelMatchesSequential(t *testing.T) {
	input := manyRecords(40)
	for _, mode := range []string{ModePoint, ModeLine} {
		opts := DefaultOptions()
		opts.Mode = mode
		opts.Sizes = []int{28, 14}
		opts.Augment = true
		opts.Variants = 2

		seq, err := testRunner(nil).Convert(context.Background(), strings.NewReader(input), opts)
		if err != nil {
			t.Fatalf("%s sequential: %v", mode, err)
		}
		opts.Workers = 8
		par, err := testRunner(nil).Convert(context.Background(), strings.NewReader(input), opts)
		if err != nil {
			t.Fatalf("%s parallel: %v", mode, err)
		}

		for _, size := range []int{28, 14} {
			if !vectorsEqual(seq.Vectors(size), par.Vectors(size)) {
				t.Errorf("%s/%d: parallel output differs from sequential", mode, size)
			}
		}
		if n := len(seq.Vectors(28)); n != 120 {
			t.Errorf("%s: got %d vectors, want 40 originals + 80 variants", mode, n)
		}
	}
}

func TestConvertAugmentKeepsOriginalFirst(t *testing.T) {
	plain := DefaultOptions()
	aug := DefaultOptions()
	aug.Augment = true
	aug.Variants = 3

	a, err := testRunner(nil).Convert(context.Background(), strings.NewReader(catRecords), plain)
	if err != nil {
		t.Fatal(err)
	}
	b, err := testRunner(nil).Convert(context.Background(), strings.NewReader(catRecords), aug)
	if err != nil {
		t.Fatal(err)
	}
	va, vb := a.Vectors(28), b.Vectors(28)
	if len(vb) != 4*len(va) {
		t.Fatalf("augmented count = %d, want %d", len(vb), 4*len(va))
	}
	for i := range va {
		if !vectorsEqual([]raster.Vector{va[i]}, []raster.Vector{vb[4*i]}) {
			t.Errorf("record %d: original vector not preserved before its variants", i)
		}
	}
}

func TestConvertAugmentZeroRangesIsNoop(t *testing.T) {
	opts := DefaultOptions()
	opts.Augment = true
	opts.ShiftRange = 0
	opts.ScaleRange = 0

	res, err := testRunner(nil).Convert(context.Background(), strings.NewReader(catRecords), opts)
	if err != nil {
		t.Fatal(err)
	}
	vs := res.Vectors(28)
	for i := 0; i < len(vs); i += 2 {
		if !vectorsEqual([]raster.Vector{vs[i]}, []raster.Vector{vs[i+1]}) {
			t.Errorf("record %d: zero-range variant differs from original", i/2)
		}
	}
}

func TestConvertLimit(t *testing.T) {
	opts := DefaultOptions()
	opts.Limit = 2
	res, err := testRunner(nil).Convert(context.Background(), strings.NewReader(manyRecords(10)), opts)
	if err != nil {
		t.Fatal(err)
	}
	if res.Stats.Records != 2 || len(res.Vectors(28)) != 2 {
		t.Errorf("limit ignored: %+v", res.Stats)
	}
}

func TestConvertReportsLine(t *testing.T) {
	input := `{"drawing":[[[1],[1]]]}

{"drawing":[[[],[]]]}
`
	_, err := testRunner(nil).Convert(context.Background(), strings.NewReader(input), DefaultOptions())
	var recErr *apperrors.RecordError
	if !errors.As(err, &recErr) {
		t.Fatalf("error = %v, want *RecordError", err)
	}
	if recErr.Line != 3 {
		t.Errorf("Line = %d, want 3", recErr.Line)
	}
	if !apperrors.Has(err, apperrors.ErrCodeEmptyStroke) {
		t.Errorf("error = %v, want EMPTY_STROKE", err)
	}
}

func TestConvertInvalidOptions(t *testing.T) {
	opts := DefaultOptions()
	opts.Sizes = []int{21}
	_, err := testRunner(nil).Convert(context.Background(), strings.NewReader(catRecords), opts)
	if !apperrors.Is(err, apperrors.ErrCodeInvalidSize) {
		t.Errorf("error = %v, want INVALID_SIZE", err)
	}
}

func TestConvertCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := testRunner(nil).Convert(ctx, strings.NewReader(catRecords), DefaultOptions())
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}

func TestConvertCacheHit(t *testing.T) {
	c, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	r := testRunner(c)
	opts := DefaultOptions()
	opts.Mode = ModeLine
	opts.Sizes = []int{28, 14}

	first, err := r.Convert(context.Background(), strings.NewReader(catRecords), opts)
	if err != nil {
		t.Fatal(err)
	}
	if first.Stats.CacheHits != 0 {
		t.Errorf("cold cache reported %d hits", first.Stats.CacheHits)
	}

	second, err := r.Convert(context.Background(), strings.NewReader(catRecords), opts)
	if err != nil {
		t.Fatal(err)
	}
	if second.Stats.CacheHits != 3 {
		t.Errorf("warm cache hits = %d, want 3", second.Stats.CacheHits)
	}
	for _, size := range []int{28, 14} {
		if !vectorsEqual(first.Vectors(size), second.Vectors(size)) {
			t.Errorf("size %d: cached vectors differ", size)
		}
	}

	// Different options must not reuse entries.
	opts.StrokeWidth = 20
	third, err := r.Convert(context.Background(), strings.NewReader(catRecords), opts)
	if err != nil {
		t.Fatal(err)
	}
	if third.Stats.CacheHits != 0 {
		t.Errorf("changed options hit the cache %d times", third.Stats.CacheHits)
	}

	// Refresh bypasses reads.
	opts.StrokeWidth = 10
	opts.Refresh = true
	fourth, err := r.Convert(context.Background(), strings.NewReader(catRecords), opts)
	if err != nil {
		t.Fatal(err)
	}
	if fourth.Stats.CacheHits != 0 {
		t.Errorf("refresh hit the cache %d times", fourth.Stats.CacheHits)
	}
}

func TestConvertAugmentedNotCached(t *testing.T) {
	c, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	r := testRunner(c)
	opts := DefaultOptions()
	opts.Augment = true

	if _, err := r.Convert(context.Background(), strings.NewReader(catRecords), opts); err != nil {
		t.Fatal(err)
	}
	n, err := c.Clear()
	if err != nil {
		t.Fatal(err)
	}
	if n != 3 {
		t.Errorf("cache holds %d entries, want only the 3 originals", n)
	}
}

type failingCache struct{ *cache.NullCache }

func (failingCache) Get(context.Context, string) ([]byte, bool, error) {
	return nil, false, errors.New("backend down")
}

func TestConvertIgnoresCacheFailures(t *testing.T) {
	res, err := testRunner(failingCache{cache.NewNullCache()}).Convert(context.Background(), strings.NewReader(catRecords), DefaultOptions())
	if err != nil {
		t.Fatalf("cache failure should not abort conversion: %v", err)
	}
	if len(res.Vectors(28)) != 3 {
		t.Errorf("got %d vectors", len(res.Vectors(28)))
	}
}

func TestRunnerWrite(t *testing.T) {
	opts := DefaultOptions()
	opts.Sizes = []int{28, 14}
	r := testRunner(nil)
	res, err := r.Convert(context.Background(), strings.NewReader(catRecords), opts)
	if err != nil {
		t.Fatal(err)
	}

	sink := store.NewFileSink(t.TempDir())
	if err := r.Write(context.Background(), sink, "cat", "train", res, opts); err != nil {
		t.Fatalf("Write() error: %v", err)
	}
	for _, size := range []int{28, 14} {
		path := sink.Path(store.Key{Category: "cat", Split: "train", Mode: ModePoint, Size: size})
		got, err := pkgio.ImportVectors(path)
		if err != nil {
			t.Fatalf("size %d: %v", size, err)
		}
		if !vectorsEqual(got, res.Vectors(size)) {
			t.Errorf("size %d: written vectors differ", size)
		}
	}

	if err := r.Write(context.Background(), sink, "../cat", "train", res, opts); err == nil {
		t.Error("invalid category should fail")
	}
}
