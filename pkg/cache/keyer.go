package cache

import (
	"encoding/json"
)

// VectorKeyOpts lists the options that change a drawing's vectors.
type VectorKeyOpts struct {
	Mode         string  `json:"mode"`
	Sizes        []int   `json:"sizes"`
	CanvasSize   int     `json:"canvas_size,omitempty"`
	StrokeWidth  float64 `json:"stroke_width,omitempty"`
	Threshold    uint8   `json:"threshold,omitempty"`
	KeepSkeleton bool    `json:"keep_skeleton,omitempty"`
}

// Keyer builds cache keys.
type Keyer interface {
	// VectorKey returns the key for the vectors of a drawing with the
	// given content hash.
	VectorKey(drawingHash string, opts VectorKeyOpts) string
}

// DefaultKeyer produces keys of the form "vector:<sha256>".
type DefaultKeyer struct{}

// NewDefaultKeyer returns the default keyer.
func NewDefaultKeyer() Keyer {
	return DefaultKeyer{}
}

// VectorKey implements Keyer.
func (DefaultKeyer) VectorKey(drawingHash string, opts VectorKeyOpts) string {
	return hashKey("vector", drawingHash, opts)
}

// HashJSON hashes the JSON encoding of v. It is used to derive a stable
// content hash for drawings.
func HashJSON(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return Hash(data), nil
}
