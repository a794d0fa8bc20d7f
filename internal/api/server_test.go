package api

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/matzehuels/inkgrid/pkg/pipeline"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	logger := log.New(io.Discard)
	s, err := New(pipeline.NewRunner(nil, nil, logger), pipeline.DefaultOptions(), logger)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func post(t *testing.T, url, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return v
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)
	resp, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if _, err := uuid.Parse(resp.Header.Get(RequestIDHeader)); err != nil {
		t.Errorf("missing request id: %q", resp.Header.Get(RequestIDHeader))
	}
	body := decode[healthResponse](t, resp)
	if body.Status != "ok" || body.Version == "" {
		t.Errorf("body = %+v", body)
	}
}

func TestRequestIDPropagates(t *testing.T) {
	ts := newTestServer(t)
	id := uuid.NewString()
	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/healthz", nil)
	req.Header.Set(RequestIDHeader, id)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if got := resp.Header.Get(RequestIDHeader); got != id {
		t.Errorf("request id = %q, want %q", got, id)
	}
}

func TestRasterize(t *testing.T) {
	ts := newTestServer(t)
	tests := []struct {
		name    string
		query   string
		body    string
		size    int
		length  int
		checkAt int
	}{
		{"point default", "", `{"drawing":[[[0,255],[0,255]]]}`, 28, 784, 783},
		{"point 14", "?size=14", `{"drawing":[[[0,255],[0,255]]]}`, 14, 196, 195},
		{"line dot", "?mode=line&size=28", `{"drawing":[[[128],[128]]]}`, 28, 784, 14*28 + 14},
		{"line 14", "?mode=line&size=14", `{"drawing":[[[128],[128]]]}`, 14, 196, 7*14 + 7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := post(t, ts.URL+"/v1/rasterize"+tt.query, tt.body)
			if resp.StatusCode != http.StatusOK {
				t.Fatalf("status = %d", resp.StatusCode)
			}
			body := decode[rasterizeResponse](t, resp)
			if body.Size != tt.size || len(body.Vector) != tt.length {
				t.Fatalf("size=%d len=%d, want %d/%d", body.Size, len(body.Vector), tt.size, tt.length)
			}
			if body.Vector[tt.checkAt] != 1 {
				t.Errorf("vector[%d] = %v, want 1", tt.checkAt, body.Vector[tt.checkAt])
			}
			if body.Params != nil {
				t.Error("params should be omitted without augmentation")
			}
		})
	}
}

func TestRasterizeCoords(t *testing.T) {
	ts := newTestServer(t)
	resp := post(t, ts.URL+"/v1/rasterize?mode=coords", `{"drawing":[[[1,2],[3,4]]]}`)
	body := decode[rasterizeResponse](t, resp)
	want := []float64{1, 3, 2, 4}
	if len(body.Vector) != len(want) || body.Size != 0 {
		t.Fatalf("body = %+v", body)
	}
	for i := range want {
		if body.Vector[i] != want[i] {
			t.Errorf("vector[%d] = %v, want %v", i, body.Vector[i], want[i])
		}
	}
}

func TestRasterizeAugmentDeterministic(t *testing.T) {
	ts := newTestServer(t)
	record := `{"drawing":[[[10,200],[30,220]]]}`
	a := decode[rasterizeResponse](t, post(t, ts.URL+"/v1/rasterize?augment=true&seed=9", record))
	b := decode[rasterizeResponse](t, post(t, ts.URL+"/v1/rasterize?augment=true&seed=9", record))
	if a.Params == nil || b.Params == nil {
		t.Fatal("augmented response should include params")
	}
	if *a.Params != *b.Params {
		t.Errorf("same seed produced %+v and %+v", *a.Params, *b.Params)
	}
}

func TestRasterizeErrors(t *testing.T) {
	ts := newTestServer(t)
	tests := []struct {
		name  string
		query string
		body  string
		code  string
	}{
		{"malformed", "", `{"drawing":`, "INVALID_RECORD"},
		{"unequal", "", `{"drawing":[[[1,2],[1]]]}`, "INVALID_STROKE"},
		{"empty stroke", "", `{"drawing":[[[],[]]]}`, "EMPTY_STROKE"},
		{"bad size", "?size=20", `{"drawing":[]}`, "INVALID_SIZE"},
		{"bad mode", "?mode=svg", `{"drawing":[]}`, "INVALID_OPTIONS"},
		{"bad width", "?mode=line&width=abc", `{"drawing":[]}`, "INVALID_OPTIONS"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := post(t, ts.URL+"/v1/rasterize"+tt.query, tt.body)
			if resp.StatusCode != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", resp.StatusCode)
			}
			body := decode[errorResponse](t, resp)
			if body.Error.Code != tt.code {
				t.Errorf("code = %s, want %s (%s)", body.Error.Code, tt.code, body.Error.Message)
			}
			if body.RequestID == "" {
				t.Error("error response should carry the request id")
			}
		})
	}
}

func TestRasterizeTooLarge(t *testing.T) {
	logger := log.New(io.Discard)
	s, err := New(pipeline.NewRunner(nil, nil, logger), pipeline.DefaultOptions(), logger)
	if err != nil {
		t.Fatal(err)
	}
	body := `{"drawing":[[[` + strings.Repeat("1,", MaxRecordBytes) + `1],[1]]]}`
	req := httptest.NewRequest(http.MethodPost, "/v1/rasterize", strings.NewReader(body))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("status = %d, want 413", rec.Code)
	}
}

func TestConvert(t *testing.T) {
	ts := newTestServer(t)
	input := `{"drawing":[[[0,255],[0,255]]]}
{"drawing":[[[128],[128]]]}
`
	resp := post(t, ts.URL+"/v1/convert?mode=line&size=28&size=14", input)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	body := decode[convertResponse](t, resp)
	if body.Records != 2 || len(body.Outputs) != 2 {
		t.Fatalf("body = %+v", body)
	}
	if body.Outputs[0].Size != 28 || body.Outputs[1].Size != 14 {
		t.Errorf("sizes = %d/%d", body.Outputs[0].Size, body.Outputs[1].Size)
	}
	if len(body.Outputs[1].Vectors) != 2 || len(body.Outputs[1].Vectors[0]) != 196 {
		t.Errorf("14x14 output shape wrong")
	}
}

func TestConvertReportsLine(t *testing.T) {
	ts := newTestServer(t)
	resp := post(t, ts.URL+"/v1/convert", "{\"drawing\":[]}\n{\"drawing\":[[[1],[]]]}\n")
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	body := decode[errorResponse](t, resp)
	if body.Error.Code != "INVALID_RECORD" || !strings.Contains(body.Error.Message, "line 2") {
		t.Errorf("error = %+v", body.Error)
	}
}

func TestNotFound(t *testing.T) {
	ts := newTestServer(t)
	resp, err := http.Get(ts.URL + "/v2/nothing")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d", resp.StatusCode)
	}

	resp2, err := http.Get(ts.URL + "/v1/rasterize")
	if err != nil {
		t.Fatal(err)
	}
	defer resp2.Body.Close()
	if resp2.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("GET /v1/rasterize status = %d, want 405", resp2.StatusCode)
	}
}

func TestNewRejectsBadDefaults(t *testing.T) {
	opts := pipeline.DefaultOptions()
	opts.Mode = "nope"
	if _, err := New(pipeline.NewRunner(nil, nil, log.New(io.Discard)), opts, nil); err == nil {
		t.Error("invalid defaults should be rejected")
	}
}
