// Package dataset prepares raw ndjson drawing files before rasterization:
// random sampling, shuffling and train/test splitting.
//
// All operations work on whole lines and never decode them, so records are
// written back byte-for-byte. Randomness comes from a caller-supplied
// [rand.Rand]; the same seed reproduces the same selection.
package dataset

import (
	"math"
	"math/rand/v2"

	apperrors "github.com/matzehuels/inkgrid/pkg/errors"
)

// DefaultTrainRatio is the share of lines assigned to the training split.
const DefaultTrainRatio = 0.8

// Split names used in output file names.
const (
	SplitTrain = "train"
	SplitTest  = "test"
	SplitAll   = "all"
)

// Sample returns n lines chosen uniformly without replacement. When lines
// holds fewer than n entries every line is returned, shuffled. The input
// slice is not modified.
func Sample(lines []string, n int, rng *rand.Rand) []string {
	out := Shuffle(lines, rng)
	if n >= 0 && n < len(out) {
		out = out[:n]
	}
	return out
}

// Shuffle returns a shuffled copy of lines.
func Shuffle(lines []string, rng *rand.Rand) []string {
	out := make([]string, len(lines))
	copy(out, lines)
	rng.Shuffle(len(out), func(i, j int) {
		out[i], out[j] = out[j], out[i]
	})
	return out
}

// Partition is the result of [Split].
type Partition struct {
	Train []string
	Test  []string
}

// Split shuffles lines and assigns the first int(len*ratio) of them to
// Train and the rest to Test. Ratio must lie in [0, 1].
func Split(lines []string, ratio float64, rng *rand.Rand) (Partition, error) {
	if ratio < 0 || ratio > 1 || math.IsNaN(ratio) {
		return Partition{}, apperrors.New(apperrors.ErrCodeInvalidOptions, "train ratio must be within [0, 1], got %v", ratio)
	}
	shuffled := Shuffle(lines, rng)
	cut := int(float64(len(shuffled)) * ratio)
	return Partition{Train: shuffled[:cut], Test: shuffled[cut:]}, nil
}
