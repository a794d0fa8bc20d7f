package cache

// ScopedKeyer wraps a Keyer with a prefix so several datasets or
// deployments can share one backend without colliding.
//
// Example usage:
//
//	keyer := NewScopedKeyer(NewDefaultKeyer(), "inkgrid:quickdraw:")
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer creates a keyer with a prefix.
// The prefix is prepended to all generated keys.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{
		inner:  inner,
		prefix: prefix,
	}
}

// VectorKey generates a prefixed vector key.
func (k *ScopedKeyer) VectorKey(drawingHash string, opts VectorKeyOpts) string {
	return k.prefix + k.inner.VectorKey(drawingHash, opts)
}
