package server

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arkcheck/arkcheck/ark"
	"github.com/arkcheck/arkcheck/evaluate"
	"github.com/arkcheck/arkcheck/harness"
	"github.com/arkcheck/arkcheck/importer"
	"github.com/arkcheck/arkcheck/store"
	"github.com/arkcheck/arkcheck/tensor"
)

const tinyNetwork = `<?xml version="1.0"?>
<net name="tiny" version="10">
	<layers>
		<layer id="0" name="input" type="Parameter" version="opset1"/>
		<layer id="1" name="weights" type="Const" version="opset1">
			<data element_type="f32" shape="1" offset="0" size="4"/>
		</layer>
		<layer id="2" name="affine" type="MatMul" version="opset1"/>
	</layers>
	<edges>
		<edge from-layer="0" from-port="0" to-layer="2" to-port="0"/>
		<edge from-layer="1" from-port="0" to-layer="2" to-port="1"/>
	</edges>
</net>`

// identity kopiert den Input in den Output
type identity struct{}

func (identity) CreateCompiledModel(context.Context) error { return nil }
func (identity) RequiredOps() []string                     { return []string{"MatMul"} }
func (identity) Close() error                              { return nil }

func (identity) Compute(_ context.Context, in, out []*tensor.Tensor) error {
	copy(out[0].Float32s(), in[0].Float32s())
	return nil
}

type fixture struct {
	dir    string
	router http.Handler
	model  string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)
	t.Setenv("ARKCHECK_BACKEND", "")
	t.Setenv("ARKCHECK_PREFER", "")

	dir := t.TempDir()
	weights := make([]byte, 4)
	binary.LittleEndian.PutUint32(weights, math.Float32bits(1))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "tiny.bin"), weights, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "tiny.xml"), []byte(tinyNetwork), 0o644))

	h := harness.New(harness.WithFactories(importer.Factories{
		OpenVino: func(importer.Config) (importer.Importer, error) { return identity{}, nil },
	}))
	st := &store.Store{DBPath: filepath.Join(dir, "history.db")}
	t.Cleanup(func() {
		h.Close()
		st.Close()
	})

	s := &Server{harness: h, store: st}
	return &fixture{dir: dir, router: s.GenerateRoutes(), model: filepath.Join(dir, "tiny.bin")}
}

func (f *fixture) frame(t *testing.T, name string, payload ...float32) string {
	t.Helper()
	path := filepath.Join(f.dir, name)
	require.NoError(t, os.WriteFile(path, ark.Encode(make([]float32, ark.HeaderElems), payload), 0o644))
	return path
}

func (f *fixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var r *http.Request
	switch b := body.(type) {
	case nil:
		r = httptest.NewRequest(method, path, nil)
	case string:
		r = httptest.NewRequest(method, path, strings.NewReader(b))
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		r = httptest.NewRequest(method, path, bytes.NewReader(data))
	}
	r.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, r)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), "body: %s", w.Body.String())
	return v
}

func (f *fixture) config() harness.ModelConfig {
	return harness.ModelConfig{InputSize: []int{1, 3}, OutputSize: []int{1, 3}, ModelFile: f.model}
}

func (f *fixture) loadAndInit(t *testing.T) {
	t.Helper()
	require.Equal(t, http.StatusOK, f.do(t, http.MethodPost, "/api/load", f.config()).Code)
	require.Equal(t, http.StatusOK, f.do(t, http.MethodPost, "/api/init", InitRequest{}).Code)
}

func TestHealth(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodGet, "/", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "arkcheck is running", w.Body.String())
}

func TestLoadHandler(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name       string
		body       any
		wantCode   int
		wantStatus string
	}{
		{"Kein JSON", "{", http.StatusBadRequest, ""},
		{"Ohne modelFile", harness.ModelConfig{InputSize: []int{1}}, http.StatusBadRequest, ""},
		{"Unbekanntes Format", harness.ModelConfig{InputSize: []int{1}, OutputSize: []int{1}, ModelFile: "m.pt"}, http.StatusBadRequest, ""},
		{"Fehlende Datei", harness.ModelConfig{InputSize: []int{1}, OutputSize: []int{1}, ModelFile: filepath.Join(f.dir, "none.onnx")}, http.StatusBadGateway, ""},
		{"Erfolg", f.config(), http.StatusOK, "SUCCESS"},
		{"Schon geladen", f.config(), http.StatusOK, "LOADED"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := f.do(t, http.MethodPost, "/api/load", tt.body)
			require.Equal(t, tt.wantCode, w.Code, w.Body.String())
			if tt.wantStatus != "" {
				resp := decode[map[string]any](t, w)
				assert.Equal(t, tt.wantStatus, resp["status"])
				assert.Equal(t, "OPENVINO", resp["format"])
			}
		})
	}
}

func TestInitHandler(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodPost, "/api/init", InitRequest{Backend: "cpu"})
	require.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "NOT_LOADED", decode[map[string]any](t, w)["status"])

	require.Equal(t, http.StatusOK, f.do(t, http.MethodPost, "/api/load", f.config()).Code)

	w = f.do(t, http.MethodPost, "/api/init", InitRequest{Backend: "cudaa"})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), `did you mean \"cuda\"`)

	w = f.do(t, http.MethodPost, "/api/init", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := decode[map[string]any](t, w)
	assert.Equal(t, "SUCCESS", resp["status"])
	assert.Equal(t, "cpu", resp["backend"])
	assert.Equal(t, "fast", resp["prefer"])

	w = f.do(t, http.MethodPost, "/api/init", InitRequest{Backend: "cpu", Prefer: "fast"})
	assert.Equal(t, "INITIALIZED", decode[map[string]any](t, w)["status"])

	w = f.do(t, http.MethodGet, "/api/ops", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"MatMul"}, decode[struct{ Ops []string }](t, w).Ops)
}

func TestOpsHandlerTimeout(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodGet, "/api/ops?timeout=10ms", nil)
	assert.Equal(t, http.StatusRequestTimeout, w.Code)

	w = f.do(t, http.MethodGet, "/api/ops?timeout=bald", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPredictHandler(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodPost, "/api/predict", PredictRequest{Input: f.frame(t, "in.ark", 1, 2, 3)})
	require.Equal(t, http.StatusConflict, w.Code)

	f.loadAndInit(t)

	w = f.do(t, http.MethodPost, "/api/predict", PredictRequest{
		Input:     f.frame(t, "in.ark", 1, 2, 3),
		Reference: f.frame(t, "ref.ark", 1, 2, 4),
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	resp := decode[PredictResponse](t, w)
	assert.Equal(t, []float64{1, 2, 3}, resp.Output)
	require.NotNil(t, resp.Errors)
	assert.Equal(t, 1, *resp.Errors)
	assert.InDelta(t, 1.0, resp.Frame.MaxError, 1e-9)

	w = f.do(t, http.MethodPost, "/api/predict", PredictRequest{Input: f.frame(t, "short.ark", 1)})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(t, http.MethodGet, "/api/output", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/octet-stream", w.Header().Get("Content-Type"))
	assert.Equal(t, []float32{1, 2, 3}, ark.Decode(w.Body.Bytes()))
}

func TestOutputHandlerNotLoaded(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, http.StatusConflict, f.do(t, http.MethodGet, "/api/output", nil).Code)
}

func TestEvaluateAndRuns(t *testing.T) {
	f := newFixture(t)
	f.loadAndInit(t)

	w := f.do(t, http.MethodPost, "/api/evaluate", EvaluateRequest{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(t, http.MethodPost, "/api/evaluate", EvaluateRequest{
		Pairs: []evaluate.Pair{
			{Input: f.frame(t, "in0.ark", 1, 2, 3), Reference: f.frame(t, "ref0.ark", 1, 2, 3)},
			{Input: f.frame(t, "in1.ark", 4, 5, 6), Reference: f.frame(t, "ref1.ark", 4, 5, 7)},
		},
		Save: true,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	res := decode[evaluate.Result](t, w)
	assert.Equal(t, 2, res.Report.Frames)
	assert.Equal(t, 1, res.Report.NumErrors)

	w = f.do(t, http.MethodGet, "/api/runs?limit=5", nil)
	require.Equal(t, http.StatusOK, w.Code)
	runs := decode[struct{ Runs []store.Run }](t, w).Runs
	require.Len(t, runs, 1)
	assert.Equal(t, res.ID, runs[0].ID)

	w = f.do(t, http.MethodGet, "/api/runs/"+res.ID, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	assert.Equal(t, http.StatusOK, f.do(t, http.MethodDelete, "/api/runs/"+res.ID, nil).Code)
	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodGet, "/api/runs/"+res.ID, nil).Code)
	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodGet, "/api/runs?limit=viele", nil).Code)
}

func TestStateHandler(t *testing.T) {
	f := newFixture(t)
	f.loadAndInit(t)

	resp := decode[map[string]any](t, f.do(t, http.MethodGet, "/api/state", nil))
	assert.Equal(t, "initialized", resp["state"])
	assert.Equal(t, f.model, resp["model"])
}
