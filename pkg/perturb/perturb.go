// Package perturb produces randomized affine variants of drawings for data
// augmentation.
//
// A perturbation scales every point about the canvas center and then shifts
// it:
//
//	x' = (x - 128) * scale + 128 + shiftX
//	y' = (y - 128) * scale + 128 + shiftY
//
// Perturbed coordinates are not clamped; they may leave [0, 255] and are
// clamped later when the drawing is normalized onto a grid.
//
// Randomness comes only from the [rand.Rand] held by a [Perturber], so a
// seeded source reproduces the same variants. [Apply] itself is pure.
package perturb

import (
	"math/rand/v2"

	"github.com/matzehuels/inkgrid/pkg/sketch"
)

// Defaults for the augmentation ranges.
const (
	DefaultShiftRange = 12.0
	DefaultScaleRange = 0.8
)

// Params is one concrete perturbation.
type Params struct {
	ShiftX float64 `json:"shift_x"`
	ShiftY float64 `json:"shift_y"`
	Scale  float64 `json:"scale"`
}

// Identity returns parameters that leave a drawing unchanged.
func Identity() Params {
	return Params{Scale: 1}
}

// Perturber draws random [Params] from configured ranges.
type Perturber struct {
	// ShiftRange bounds each shift to [-ShiftRange, ShiftRange].
	ShiftRange float64

	// ScaleRange bounds the scale factor to [1-ScaleRange, 1+ScaleRange].
	ScaleRange float64

	// Rand is the random source. Nil uses a source seeded with 0.
	Rand *rand.Rand
}

// New returns a Perturber with the default ranges and a PCG source
// seeded from seed.
func New(seed uint64) *Perturber {
	return &Perturber{
		ShiftRange: DefaultShiftRange,
		ScaleRange: DefaultScaleRange,
		Rand:       NewRand(seed),
	}
}

// NewRand returns the deterministic source used throughout inkgrid.
func NewRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0xdeadbeef))
}

// Sample draws one set of parameters. Draws happen in the order shiftX,
// shiftY, scale so a given seed always yields the same sequence.
func (p *Perturber) Sample() Params {
	if p.Rand == nil {
		p.Rand = NewRand(0)
	}
	return Params{
		ShiftX: uniform(p.Rand, -p.ShiftRange, p.ShiftRange),
		ShiftY: uniform(p.Rand, -p.ShiftRange, p.ShiftRange),
		Scale:  uniform(p.Rand, 1-p.ScaleRange, 1+p.ScaleRange),
	}
}

// Perturb samples parameters and applies them to d.
func (p *Perturber) Perturb(d sketch.Drawing) (sketch.Drawing, Params) {
	params := p.Sample()
	return Apply(d, params), params
}

// Apply returns a perturbed copy of d. Stroke and point counts are
// preserved and d is not modified.
func Apply(d sketch.Drawing, p Params) sketch.Drawing {
	out := make(sketch.Drawing, len(d))
	for i, s := range d {
		ns := sketch.Stroke{
			X: make([]float64, len(s.X)),
			Y: make([]float64, len(s.Y)),
		}
		for j, x := range s.X {
			ns.X[j] = transform(x, p.Scale, p.ShiftX)
		}
		for j, y := range s.Y {
			ns.Y[j] = transform(y, p.Scale, p.ShiftY)
		}
		out[i] = ns
	}
	return out
}

func transform(c, scale, shift float64) float64 {
	return (c-sketch.Center)*scale + sketch.Center + shift
}

func uniform(rng *rand.Rand, lo, hi float64) float64 {
	if hi <= lo {
		return lo
	}
	return lo + rng.Float64()*(hi-lo)
}
