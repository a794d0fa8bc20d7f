package store

import (
	"context"
	"path/filepath"

	pkgio "github.com/matzehuels/inkgrid/pkg/io"
	"github.com/matzehuels/inkgrid/pkg/raster"
)

// FileSink writes each key to its own JSON file below Dir.
type FileSink struct {
	Dir string
}

// NewFileSink returns a sink writing to dir. The directory is created on
// first write.
func NewFileSink(dir string) *FileSink {
	return &FileSink{Dir: dir}
}

// Name implements Sink.
func (s *FileSink) Name() string { return "file" }

// Path returns the file written for key.
func (s *FileSink) Path(key Key) string {
	return filepath.Join(s.Dir, key.FileName())
}

// Write implements Sink.
func (s *FileSink) Write(ctx context.Context, key Key, vectors []raster.Vector) error {
	if err := key.Validate(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return pkgio.ExportVectors(vectors, s.Path(key))
}

// Close implements Sink.
func (s *FileSink) Close(context.Context) error { return nil }

var _ Sink = (*FileSink)(nil)
