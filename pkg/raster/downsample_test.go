package raster

import (
	"math/rand/v2"
	"testing"

	apperrors "github.com/matzehuels/inkgrid/pkg/errors"
)

func randomGrid(rng *rand.Rand, size int, density float64) *Grid {
	g := NewGrid(size)
	for i := range g.Cells {
		g.Cells[i] = rng.Float64() < density
	}
	return g
}

func TestDownsampleBlocks(t *testing.T) {
	g := NewGrid(4)
	g.Set(1, 1) // block (0,0)
	g.Set(2, 3) // block (1,1)

	out, err := Downsample(g)
	if err != nil {
		t.Fatalf("Downsample() error: %v", err)
	}
	if out.Size != 2 {
		t.Fatalf("Size = %d, want 2", out.Size)
	}
	want := []bool{true, false, false, true}
	for i, c := range out.Cells {
		if c != want[i] {
			t.Errorf("cell %d = %v, want %v", i, c, want[i])
		}
	}
}

func TestDownsampleKeepsSingleInkPixel(t *testing.T) {
	for r := 0; r < 28; r++ {
		for c := 0; c < 28; c++ {
			g := NewGrid(28)
			g.Set(r, c)
			out, err := Downsample(g)
			if err != nil {
				t.Fatalf("Downsample() error: %v", err)
			}
			if !out.At(r/2, c/2) || out.Count() != 1 {
				t.Fatalf("pixel (%d,%d) not preserved at (%d,%d)", r, c, r/2, c/2)
			}
		}
	}
}

func TestMaxPoolIdentity(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	g := randomGrid(rng, 14, 0.3)

	out, err := MaxPool(g, 1)
	if err != nil {
		t.Fatalf("MaxPool() error: %v", err)
	}
	if !out.Equal(g) {
		t.Error("MaxPool with block 1 should return the same raster")
	}
	out.Cells[0] = !out.Cells[0]
	if out.Equal(g) {
		t.Error("MaxPool should return a copy, not the input grid")
	}
}

func TestDownsampleMonotonic(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))
	for trial := 0; trial < 50; trial++ {
		b := randomGrid(rng, 28, 0.1)
		a := NewGrid(28)
		copy(a.Cells, b.Cells)
		for i := range a.Cells {
			if rng.Float64() < 0.1 {
				a.Cells[i] = true
			}
		}

		da, err := Downsample(a)
		if err != nil {
			t.Fatal(err)
		}
		db, err := Downsample(b)
		if err != nil {
			t.Fatal(err)
		}
		if !da.Contains(db) {
			t.Fatalf("trial %d: downsample(A) does not contain downsample(B)", trial)
		}
	}
}

func TestDownsampleErrors(t *testing.T) {
	if _, err := Downsample(NewGrid(7)); !apperrors.Is(err, apperrors.ErrCodeInvalidSize) {
		t.Errorf("odd size: error = %v", err)
	}
	if _, err := MaxPool(NewGrid(28), 3); !apperrors.Is(err, apperrors.ErrCodeInvalidSize) {
		t.Errorf("non-dividing block: error = %v", err)
	}
	if _, err := MaxPool(NewGrid(28), 0); !apperrors.Is(err, apperrors.ErrCodeInvalidSize) {
		t.Errorf("zero block: error = %v", err)
	}
}
