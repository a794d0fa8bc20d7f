// Package sketch defines the stroke-based drawing model shared by every
// inkgrid stage.
//
// A [Drawing] is an ordered list of [Stroke]s. A stroke holds two parallel
// coordinate lists, X and Y, in the QuickDraw coordinate domain 0–255. The
// lists are decoded from integer JSON values but held as float64 so that
// perturbed drawings, whose coordinates may be fractional or fall outside the
// nominal domain, use the same type.
//
// # Wire Format
//
// One record per ndjson line, QuickDraw "simplified" layout:
//
//	{"word":"apple","key_id":"5152802093400064","drawing":[[[17,18,20],[81,73,71]],[[0,255],[0,255]]]}
//
// Each stroke is encoded as [x_list, y_list]. Raw QuickDraw files add a third
// timing list; it is accepted and discarded.
//
// # Flattening
//
// [Flatten] serializes a drawing into the interleaved [x1, y1, x2, y2, ...]
// sequence used by the non-rasterized "coords" pipeline variant.
package sketch
