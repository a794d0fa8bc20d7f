package io

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	apperrors "github.com/matzehuels/inkgrid/pkg/errors"
	"github.com/matzehuels/inkgrid/pkg/raster"
)

// WriteVectors encodes vs as one compact JSON array and writes it to w.
// A nil slice is written as an empty array.
func WriteVectors(vs []raster.Vector, w io.Writer) error {
	if vs == nil {
		vs = []raster.Vector{}
	}
	if err := json.NewEncoder(w).Encode(vs); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}

// ExportVectors writes vs to path, creating parent directories as needed.
func ExportVectors(vs []raster.Vector, path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return apperrors.Wrap(apperrors.ErrCodeIO, err, "create %s", dir)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrCodeIO, err, "create %s", path)
	}
	if err := WriteVectors(vs, f); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return apperrors.Wrap(apperrors.ErrCodeIO, err, "close %s", path)
	}
	return nil
}
