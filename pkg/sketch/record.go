package sketch

import (
	"encoding/json"

	apperrors "github.com/matzehuels/inkgrid/pkg/errors"
)

// Record is one decoded ndjson line. Only Drawing is interpreted; the
// QuickDraw metadata fields are carried through untouched.
type Record struct {
	KeyID       string  `json:"key_id,omitempty"`
	Word        string  `json:"word,omitempty"`
	CountryCode string  `json:"countrycode,omitempty"`
	Recognized  *bool   `json:"recognized,omitempty"`
	Timestamp   string  `json:"timestamp,omitempty"`
	Drawing     Drawing `json:"drawing"`
}

// DecodeRecord parses a single ndjson line and validates its drawing.
// A missing drawing field is a decode failure, not an empty drawing.
func DecodeRecord(line []byte) (Record, error) {
	var raw struct {
		Record
		Drawing *Drawing `json:"drawing"`
	}
	if err := json.Unmarshal(line, &raw); err != nil {
		return Record{}, apperrors.Wrap(apperrors.ErrCodeInvalidRecord, err, "decode record")
	}
	if raw.Drawing == nil {
		return Record{}, apperrors.New(apperrors.ErrCodeInvalidRecord, "record has no drawing field")
	}
	rec := raw.Record
	rec.Drawing = *raw.Drawing
	if err := rec.Drawing.Validate(); err != nil {
		return Record{}, err
	}
	return rec, nil
}
