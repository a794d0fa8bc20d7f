// Package io reads drawing records and writes raster vectors.
//
// # Input Format
//
// Drawings arrive as newline-delimited JSON, one record per line, in the
// QuickDraw simplified format:
//
//	{"word":"cat","countrycode":"DE","drawing":[[[10,40,80],[20,25,30]],[[5],[5]]]}
//
// Each element of "drawing" is a stroke given as an [x-list, y-list] pair.
// Blank lines are skipped. Any other line that fails to decode aborts the
// read with an error that carries its 1-based line number (see
// [errors.RecordError]).
//
// Use [Reader] to stream records, [ReadRecords] to load all records from an
// io.Reader, or [ImportRecords] to load a file.
//
// # Output Format
//
// Vectors are written as a single JSON array of arrays of numbers:
//
//	[[0,0,1,0,...],[1,0,0,0,...]]
//
// Use [WriteVectors] or [ExportVectors] to write, and [ReadVectors] or
// [ImportVectors] to load previously written files.
//
// [errors.RecordError]: github.com/matzehuels/inkgrid/pkg/errors.RecordError
package io
