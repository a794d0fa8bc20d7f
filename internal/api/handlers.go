package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/matzehuels/inkgrid/pkg/buildinfo"
	apperrors "github.com/matzehuels/inkgrid/pkg/errors"
	"github.com/matzehuels/inkgrid/pkg/perturb"
	"github.com/matzehuels/inkgrid/pkg/pipeline"
	"github.com/matzehuels/inkgrid/pkg/raster"
	"github.com/matzehuels/inkgrid/pkg/sketch"
)

type healthResponse struct {
	Status string `json:"status"`
	buildinfo.Info
}

type rasterizeResponse struct {
	RequestID string          `json:"request_id"`
	Mode      string          `json:"mode"`
	Size      int             `json:"size"`
	Vector    raster.Vector   `json:"vector"`
	Params    *perturb.Params `json:"params,omitempty"`
}

type convertOutput struct {
	Size    int             `json:"size"`
	Vectors []raster.Vector `json:"vectors"`
}

type convertResponse struct {
	RequestID string          `json:"request_id"`
	Mode      string          `json:"mode"`
	Records   int             `json:"records"`
	CacheHits int             `json:"cache_hits"`
	Outputs   []convertOutput `json:"outputs"`
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error     errorBody `json:"error"`
	RequestID string    `json:"request_id"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok", Info: buildinfo.Get()})
}

func (s *Server) handleRasterize(w http.ResponseWriter, r *http.Request) {
	opts, err := s.options(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if opts.Mode != pipeline.ModeCoords && len(opts.Sizes) > 1 {
		opts.Sizes = opts.Sizes[:1]
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxRecordBytes))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	rec, err := sketch.DecodeRecord(body)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	resp := rasterizeResponse{
		RequestID: RequestID(r.Context()),
		Mode:      opts.Mode,
		Size:      opts.OutputSizes()[0],
	}

	var vs []raster.Vector
	if opts.Augment {
		params := opts.Perturber().Sample()
		resp.Params = &params
		vs, err = pipeline.Transform(perturb.Apply(rec.Drawing, params), opts)
	} else {
		vs, err = s.Runner.Transform(r.Context(), rec.Drawing, opts)
	}
	if err != nil {
		s.fail(w, r, err)
		return
	}
	resp.Vector = vs[0]
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleConvert(w http.ResponseWriter, r *http.Request) {
	opts, err := s.options(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if opts.Limit == 0 || opts.Limit > MaxBatchRecords {
		opts.Limit = MaxBatchRecords
	}

	res, err := s.Runner.Convert(r.Context(), http.MaxBytesReader(w, r.Body, MaxBatchBytes), opts)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	resp := convertResponse{
		RequestID: RequestID(r.Context()),
		Mode:      opts.Mode,
		Records:   res.Stats.Records,
		CacheHits: res.Stats.CacheHits,
		Outputs:   make([]convertOutput, len(res.Outputs)),
	}
	for i, o := range res.Outputs {
		resp.Outputs[i] = convertOutput{Size: o.Size, Vectors: o.Vectors}
	}
	writeJSON(w, http.StatusOK, resp)
}

// options applies query parameters on top of the server defaults.
func (s *Server) options(r *http.Request) (pipeline.Options, error) {
	opts := s.Defaults
	q := r.URL.Query()

	if v := q.Get("mode"); v != "" {
		opts.Mode = v
	}
	if vals := q["size"]; len(vals) > 0 {
		opts.Sizes = make([]int, len(vals))
		for i, v := range vals {
			n, err := strconv.Atoi(v)
			if err != nil {
				return opts, apperrors.New(apperrors.ErrCodeInvalidSize, "invalid size %q", v)
			}
			opts.Sizes[i] = n
		}
	}
	if v := q.Get("width"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return opts, apperrors.New(apperrors.ErrCodeInvalidOptions, "invalid width %q", v)
		}
		opts.StrokeWidth = f
	}
	if v := q.Get("threshold"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return opts, apperrors.New(apperrors.ErrCodeInvalidOptions, "invalid threshold %q", v)
		}
		opts.Threshold = n
	}
	if v := q.Get("augment"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return opts, apperrors.New(apperrors.ErrCodeInvalidOptions, "invalid augment %q", v)
		}
		opts.Augment = b
	}
	if v := q.Get("seed"); v != "" {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return opts, apperrors.New(apperrors.ErrCodeInvalidOptions, "invalid seed %q", v)
		}
		opts.Seed = n
	}
	return opts, opts.ValidateAndSetDefaults()
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, code := classify(err)
	if status >= http.StatusInternalServerError {
		s.Logger.Error("request failed", "err", err, "request_id", RequestID(r.Context()))
	}
	writeError(w, r, status, code, err.Error())
}

// classify maps an error to an HTTP status and a machine-readable code.
func classify(err error) (int, string) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return http.StatusRequestEntityTooLarge, "TOO_LARGE"
	}
	var recErr *apperrors.RecordError
	if errors.As(err, &recErr) {
		return http.StatusBadRequest, string(recErr.Code())
	}
	switch code := apperrors.GetCode(err); code {
	case apperrors.ErrCodeInvalidInput, apperrors.ErrCodeInvalidRecord, apperrors.ErrCodeInvalidStroke,
		apperrors.ErrCodeInvalidSize, apperrors.ErrCodeInvalidOptions, apperrors.ErrCodeEmptyStroke,
		apperrors.ErrCodeUnsupported:
		return http.StatusBadRequest, string(code)
	case "":
		return http.StatusInternalServerError, string(apperrors.ErrCodeInternal)
	default:
		return http.StatusInternalServerError, string(code)
	}
}

func writeError(w http.ResponseWriter, r *http.Request, status int, code, msg string) {
	writeJSON(w, status, errorResponse{
		Error:     errorBody{Code: code, Message: msg},
		RequestID: RequestID(r.Context()),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
