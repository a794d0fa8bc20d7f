package io

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	apperrors "github.com/matzehuels/inkgrid/pkg/errors"
	"github.com/matzehuels/inkgrid/pkg/raster"
	"github.com/matzehuels/inkgrid/pkg/sketch"
)

// MaxLineSize bounds a single ndjson line. QuickDraw records with many
// strokes can exceed bufio's 64 KiB default.
const MaxLineSize = 16 << 20

// Reader streams records from ndjson input.
type Reader struct {
	sc   *bufio.Scanner
	line int
}

// NewReader returns a Reader over r. The Reader does not close r.
func NewReader(r io.Reader) *Reader {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), MaxLineSize)
	return &Reader{sc: sc}
}

// Line returns the 1-based number of the last line read.
func (r *Reader) Line() int { return r.line }

// Next returns the next record. It returns io.EOF after the last record.
// Decode failures are returned as *errors.RecordError.
func (r *Reader) Next() (sketch.Record, error) {
	for r.sc.Scan() {
		r.line++
		line := bytes.TrimSpace(r.sc.Bytes())
		if len(line) == 0 {
			continue
		}
		rec, err := sketch.DecodeRecord(line)
		if err != nil {
			return sketch.Record{}, &apperrors.RecordError{Line: r.line, Err: err}
		}
		return rec, nil
	}
	if err := r.sc.Err(); err != nil {
		return sketch.Record{}, apperrors.Wrap(apperrors.ErrCodeIO, err, "read line %d", r.line+1)
	}
	return sketch.Record{}, io.EOF
}

// ReadRecords decodes every record in r.
func ReadRecords(r io.Reader) ([]sketch.Record, error) {
	var out []sketch.Record
	rd := NewReader(r)
	for {
		rec, err := rd.Next()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
}

// ImportRecords reads an ndjson file at path.
func ImportRecords(path string) ([]sketch.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeIO, err, "open %s", path)
	}
	defer f.Close()
	recs, err := ReadRecords(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return recs, nil
}

// ReadVectors decodes a JSON array of vectors from r.
func ReadVectors(r io.Reader) ([]raster.Vector, error) {
	var vs []raster.Vector
	if err := json.NewDecoder(r).Decode(&vs); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeInvalidInput, err, "decode vectors")
	}
	return vs, nil
}

// ImportVectors reads a vector file written by [ExportVectors].
func ImportVectors(path string) ([]raster.Vector, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeIO, err, "open %s", path)
	}
	defer f.Close()
	return ReadVectors(f)
}
