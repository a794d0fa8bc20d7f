package pipeline

import (
	"io"
	"os"
	"strings"

	"github.com/BurntSushi/toml"

	apperrors "github.com/matzehuels/inkgrid/pkg/errors"
)

// DecodeConfig reads TOML options from r on top of [DefaultOptions].
// Keys absent from the input keep their defaults; unknown keys are an error.
//
// Example file:
//
//	mode = "line"
//	sizes = [28, 14]
//	stroke_width = 8.0
//	augment = true
//	shift_range = 12.0
//	scale_range = 0.3
//	seed = 7
func DecodeConfig(r io.Reader) (Options, error) {
	opts := DefaultOptions()
	md, err := toml.NewDecoder(r).Decode(&opts)
	if err != nil {
		return Options{}, apperrors.Wrap(apperrors.ErrCodeInvalidOptions, err, "decode config")
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return Options{}, apperrors.New(apperrors.ErrCodeInvalidOptions, "unknown config keys: %s", strings.Join(keys, ", "))
	}
	opts.SetDefaults()
	return opts, nil
}

// LoadConfig reads a TOML config file. See [DecodeConfig].
func LoadConfig(path string) (Options, error) {
	f, err := os.Open(path)
	if err != nil {
		return Options{}, apperrors.Wrap(apperrors.ErrCodeIO, err, "open config %s", path)
	}
	defer f.Close()
	return DecodeConfig(f)
}

// WriteConfig encodes opts as TOML.
func WriteConfig(w io.Writer, opts Options) error {
	if err := toml.NewEncoder(w).Encode(opts); err != nil {
		return apperrors.Wrap(apperrors.ErrCodeIO, err, "encode config")
	}
	return nil
}
