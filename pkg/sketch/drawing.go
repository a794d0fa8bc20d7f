package sketch

import (
	"encoding/json"
	"fmt"

	apperrors "github.com/matzehuels/inkgrid/pkg/errors"
)

// Domain bounds of raw pen coordinates.
const (
	// InputMax is the largest nominal raw coordinate.
	InputMax = 255.0

	// Center is the midpoint of the input domain, used as the fixed origin
	// for scaling during perturbation.
	Center = 128.0
)

// Stroke is one continuous pen motion as parallel coordinate lists.
type Stroke struct {
	X []float64
	Y []float64
}

// Len returns the number of points in the stroke.
func (s Stroke) Len() int { return len(s.X) }

// Validate checks the structural assumptions every renderer relies on:
// equal-length coordinate lists and at least one point.
func (s Stroke) Validate() error {
	if len(s.X) != len(s.Y) {
		return apperrors.New(apperrors.ErrCodeInvalidStroke, "%d x values, %d y values", len(s.X), len(s.Y))
	}
	if len(s.X) == 0 {
		return apperrors.New(apperrors.ErrCodeEmptyStroke, "stroke has no points")
	}
	return nil
}

// Clone returns a deep copy of s.
func (s Stroke) Clone() Stroke {
	return Stroke{
		X: append([]float64(nil), s.X...),
		Y: append([]float64(nil), s.Y...),
	}
}

// MarshalJSON encodes the stroke as [x_list, y_list].
func (s Stroke) MarshalJSON() ([]byte, error) {
	x, y := s.X, s.Y
	if x == nil {
		x = []float64{}
	}
	if y == nil {
		y = []float64{}
	}
	return json.Marshal([2][]float64{x, y})
}

// UnmarshalJSON decodes [x_list, y_list] and ignores any trailing lists
// such as the timing list of raw QuickDraw files. Length agreement is not
// checked here; that is [Stroke.Validate]'s job.
func (s *Stroke) UnmarshalJSON(data []byte) error {
	var lists [][]float64
	if err := json.Unmarshal(data, &lists); err != nil {
		return err
	}
	if len(lists) < 2 {
		return fmt.Errorf("stroke needs [x_list, y_list], got %d lists", len(lists))
	}
	s.X, s.Y = lists[0], lists[1]
	return nil
}

// Drawing is an ordered sequence of strokes.
type Drawing []Stroke

// Validate checks every stroke and reports the first failure with its index.
func (d Drawing) Validate() error {
	for i, s := range d {
		if err := s.Validate(); err != nil {
			return apperrors.New(apperrors.GetCode(err), "stroke %d: %s", i, apperrors.UserMessage(err))
		}
	}
	return nil
}

// PointCount returns the total number of points across all strokes.
func (d Drawing) PointCount() int {
	n := 0
	for _, s := range d {
		n += s.Len()
	}
	return n
}

// Clone returns a deep copy of d.
func (d Drawing) Clone() Drawing {
	if d == nil {
		return nil
	}
	out := make(Drawing, len(d))
	for i, s := range d {
		out[i] = s.Clone()
	}
	return out
}

// Flatten returns the interleaved [x1, y1, x2, y2, ...] sequence of d,
// strokes concatenated in drawing order. Coordinates are copied unchanged.
func Flatten(d Drawing) []float64 {
	out := make([]float64, 0, 2*d.PointCount())
	for _, s := range d {
		for i := range s.X {
			out = append(out, s.X[i], s.Y[i])
		}
	}
	return out
}
