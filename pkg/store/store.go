// Package store writes converted vectors to their destination.
//
// A [Sink] receives one batch of vectors per [Key], that is per category,
// split, mode and grid size. Two sinks are provided:
//   - [FileSink]: one JSON array file per key, the format consumed by
//     training code
//   - [MongoSink]: one document per vector, tagged with a run ID so
//     repeated conversions can be told apart
package store

import (
	"context"
	"fmt"

	apperrors "github.com/matzehuels/inkgrid/pkg/errors"
	"github.com/matzehuels/inkgrid/pkg/raster"
)

// Key identifies one output batch.
type Key struct {
	Category string `json:"category" bson:"category"`
	Split    string `json:"split" bson:"split"`
	Mode     string `json:"mode" bson:"mode"`
	// Size is the grid size, or 0 for coordinate vectors.
	Size int `json:"size" bson:"size"`
}

// Validate checks that the key can be used to build file names.
func (k Key) Validate() error {
	if err := apperrors.ValidateCategory(k.Category); err != nil {
		return err
	}
	if k.Split == "" {
		return apperrors.New(apperrors.ErrCodeInvalidOptions, "split is required")
	}
	if err := apperrors.ValidateCategory(k.Split); err != nil {
		return apperrors.New(apperrors.ErrCodeInvalidOptions, "invalid split %q", k.Split)
	}
	if k.Mode == "" {
		return apperrors.New(apperrors.ErrCodeInvalidOptions, "mode is required")
	}
	if k.Size < 0 {
		return apperrors.New(apperrors.ErrCodeInvalidSize, "negative size %d", k.Size)
	}
	return nil
}

// FileName returns "<category>_<split>_<mode><size>.json", omitting the
// size for coordinate vectors.
func (k Key) FileName() string {
	if k.Size == 0 {
		return fmt.Sprintf("%s_%s_%s.json", k.Category, k.Split, k.Mode)
	}
	return fmt.Sprintf("%s_%s_%s%d.json", k.Category, k.Split, k.Mode, k.Size)
}

// Sink is an output destination for vectors.
type Sink interface {
	// Name identifies the sink in logs and hooks.
	Name() string

	// Write stores vectors under key. Writing the same key twice replaces
	// the file for FileSink and appends documents for MongoSink.
	Write(ctx context.Context, key Key, vectors []raster.Vector) error

	// Close releases resources held by the sink.
	Close(ctx context.Context) error
}
